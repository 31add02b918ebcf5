package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/pdfworkbench/internal/gcp"
	"github.com/Lllllllleong/pdfworkbench/internal/models"
	"github.com/Lllllllleong/pdfworkbench/internal/output"
	"github.com/Lllllllleong/pdfworkbench/internal/pdfdoc"
	"github.com/Lllllllleong/pdfworkbench/internal/validation"
)

// Processor modes.
const (
	ModeSplit    = "split"
	ModeCompress = "compress"
)

const uploadConcurrency = 10

type BucketProcessorConfig struct {
	ProjectID        string
	OutputBucket     string
	CollectionName   string
	WorkflowID       string
	WorkflowLocation string
	Mode             string
}

// documentStore is the subset of gcp.DocumentStore the processor uses.
type documentStore interface {
	FindByHash(ctx context.Context, fileHash string) (string, error)
	Create(ctx context.Context, doc models.Document) (string, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	SetStatus(ctx context.Context, id, status, errDetails string) error
}

// BucketProcessor runs a tool over every PDF uploaded to a bucket and publishes the
// outputs to OutputBucket/<documentId>/.
type BucketProcessor struct {
	lib    pdfdoc.Library
	store  documentStore
	config BucketProcessorConfig

	readObject      func(ctx context.Context, bucket, object string) ([]byte, error)
	newSink         func(prefix string) (output.Sink, error)
	triggerWorkflow func(ctx context.Context, handoff models.WorkflowHandoff) (string, error)
}

// NewBucketProcessor builds a processor from the environment.
func NewBucketProcessor(ctx context.Context) (*BucketProcessor, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := BucketProcessorConfig{
		ProjectID:        projectID,
		OutputBucket:     gcp.GetEnv("OUTPUT_BUCKET", ""),
		CollectionName:   gcp.GetEnv("FIRESTORE_COLLECTION", "documents"),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", ""),
		Mode:             gcp.GetEnv("PROCESSOR_MODE", ModeSplit),
	}
	if config.OutputBucket == "" {
		return nil, fmt.Errorf("OUTPUT_BUCKET environment variable must be set")
	}
	if config.Mode != ModeSplit && config.Mode != ModeCompress {
		return nil, fmt.Errorf("PROCESSOR_MODE must be %q or %q, got %q", ModeSplit, ModeCompress, config.Mode)
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}

	p := &BucketProcessor{
		lib:    pdfdoc.NewPDFCPU(),
		store:  gcp.NewDocumentStore(firestoreClient, config.CollectionName),
		config: config,
		readObject: func(ctx context.Context, bucket, object string) ([]byte, error) {
			return gcp.ReadObject(ctx, storageClient, bucket, object)
		},
		newSink: func(prefix string) (output.Sink, error) {
			return gcp.NewBucketSink(storageClient, config.OutputBucket, gcp.WithPrefix(prefix))
		},
	}

	if config.WorkflowID != "" {
		executionsClient, err := executions.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
		}
		p.triggerWorkflow = func(ctx context.Context, handoff models.WorkflowHandoff) (string, error) {
			return startExecution(ctx, executionsClient, config, handoff)
		}
	}

	slog.Info("Bucket processor initialized.", "mode", config.Mode, "outputBucket", config.OutputBucket, "workflowId", config.WorkflowID)
	return p, nil
}

// Process handles one finalized object.
func (p *BucketProcessor) Process(ctx context.Context, e models.ObjectEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name, "mode", p.config.Mode)
	logCtx.Info("Processing new GCS object.")

	if !isPDFObject(e) {
		logCtx.Info("Object is not a PDF. Skipping.", "contentType", e.ContentType)
		return nil
	}

	data, err := p.readObject(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return err
	}

	fileHash := hashBytes(data)
	logCtx = logCtx.With("fileHash", fileHash)

	existing, err := p.store.FindByHash(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if existing != "" {
		logCtx.Info("Duplicate file detected. Skipping.", "existingDocId", existing)
		return nil
	}

	docID, err := p.store.Create(ctx, models.Document{
		FileHash:         fileHash,
		OriginalFilename: e.Name,
		Mode:             p.config.Mode,
	})
	if err != nil {
		logCtx.Error("Failed to create initial Firestore document", "error", err)
		return err
	}
	logCtx = logCtx.With("documentId", docID)
	logCtx.Info("Created master document in Firestore.")

	if err := p.store.SetStatus(ctx, docID, models.StatusProcessing, ""); err != nil {
		return p.handleError(ctx, logCtx, docID, "failed to update status to PROCESSING", err)
	}

	outputs := output.NewMemorySink()
	result, pageCount, err := p.run(ctx, e, data, outputs)
	if err != nil {
		return p.handleError(ctx, logCtx, docID, "failed to process document", err)
	}
	logCtx.Info("Document processed locally.", "jobId", result.JobID, "outputs", len(result.Outputs))

	if err := p.upload(ctx, logCtx, docID, outputs); err != nil {
		return p.handleError(ctx, logCtx, docID, "one or more outputs failed to upload", err)
	}

	fields := map[string]any{
		"status":      models.StatusDone,
		"pageCount":   pageCount,
		"outputCount": len(result.Outputs),
		"jobId":       result.JobID,
	}

	if p.triggerWorkflow != nil {
		logCtx.Info("Triggering workflow.")
		execID, err := p.triggerWorkflow(ctx, models.WorkflowHandoff{
			DocumentID:  docID,
			OutputCount: len(result.Outputs),
			PageCount:   pageCount,
			Mode:        p.config.Mode,
		})
		if err != nil {
			return p.handleError(ctx, logCtx, docID, "failed to trigger workflow execution", err)
		}
		fields["workflowExecutionId"] = execID
	}

	if err := p.store.Update(ctx, docID, fields); err != nil {
		return p.handleError(ctx, logCtx, docID, "failed to update status to DONE", err)
	}
	logCtx.Info("Processing complete.")
	return nil
}

// run stages the object in the configured tool and commits it, collecting outputs in sink.
func (p *BucketProcessor) run(ctx context.Context, e models.ObjectEvent, data []byte, sink output.Sink) (*Result, int, error) {
	deps := Deps{Library: p.lib, Sink: sink}
	item := models.RawItem{
		Name:     path.Base(e.Name),
		Size:     int64(len(data)),
		MIMEType: "application/pdf",
		Source:   models.BytesSource(data),
	}

	switch p.config.Mode {
	case ModeCompress:
		t := NewCompressTool(deps)
		defer t.Close()
		t.List().Add(item)
		res, err := t.Commit(ctx, CompressOptions{Level: pdfdoc.CompressionHigh})
		return res, pageCountOf(t.tool), err
	default:
		t := NewSplitTool(deps)
		defer t.Close()
		t.List().Add(item)
		res, err := t.Commit(ctx, SplitOptions{SplitOptions: validation.SplitOptions{Mode: validation.SplitAll}})
		return res, pageCountOf(t.tool), err
	}
}

func pageCountOf(t *tool) int {
	if item, ok := t.list.Item(0); ok {
		return item.Metadata.PageCount
	}
	return 0
}

// upload publishes every collected output concurrently.
func (p *BucketProcessor) upload(ctx context.Context, logCtx *slog.Logger, docID string, outputs *output.MemorySink) error {
	sink, err := p.newSink(docID)
	if err != nil {
		return err
	}
	names := outputs.Names()
	logCtx.Info("Starting concurrent upload of outputs.", "outputs", len(names))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(uploadConcurrency)
	for _, name := range names {
		data, _ := outputs.Get(name)
		eg.Go(func() error {
			if err := sink.Save(gctx, name, data); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	logCtx.Info("All outputs uploaded successfully.")
	return nil
}

func (p *BucketProcessor) handleError(ctx context.Context, logCtx *slog.Logger, docID, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := p.store.SetStatus(ctx, docID, models.StatusFailed, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}

func startExecution(ctx context.Context, client *executions.Client, config BucketProcessorConfig, handoff models.WorkflowHandoff) (string, error) {
	payload, err := json.Marshal(handoff)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", config.ProjectID, config.WorkflowLocation, config.WorkflowID),
		Execution: &executionspb.Execution{
			Argument: string(payload),
		},
	}
	exec, err := client.CreateExecution(ctx, req)
	if err != nil {
		return "", err
	}
	return exec.GetName(), nil
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// isPDFObject reports whether an event refers to a PDF, by content type or extension.
func isPDFObject(e models.ObjectEvent) bool {
	if strings.EqualFold(e.ContentType, "application/pdf") {
		return true
	}
	return strings.EqualFold(path.Ext(e.Name), ".pdf")
}
