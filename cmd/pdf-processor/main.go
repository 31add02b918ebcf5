package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/pdfworkbench/internal/models"
	"github.com/Lllllllleong/pdfworkbench/internal/services"
)

var (
	processor *services.BucketProcessor
	once      sync.Once
	initErr   error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("ProcessUpload", processUpload)
}

// main is required by the Go Functions Framework.
func main() {}

// processUpload runs the configured tool over a newly finalized Cloud Storage object.
func processUpload(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		processor, initErr = services.NewBucketProcessor(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var event models.ObjectEvent
	if err := json.Unmarshal(e.Data(), &event); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Process logs with full context; returning the error marks the invocation failed.
	return processor.Process(ctx, event)
}
