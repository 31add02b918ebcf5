package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/Lllllllleong/pdfworkbench/internal/driver"
	"github.com/Lllllllleong/pdfworkbench/internal/models"
	"github.com/Lllllllleong/pdfworkbench/internal/output"
	"github.com/Lllllllleong/pdfworkbench/internal/pdfdoc"
	"github.com/Lllllllleong/pdfworkbench/internal/staging"
)

// ErrJobInProgress is returned by Commit while the same tool is still running a job.
var ErrJobInProgress = errors.New("a job is already running for this tool")

// Deps are the collaborators every tool is constructed with.
type Deps struct {
	Library  pdfdoc.Library
	Sink     output.Sink
	Listener driver.Listener
}

// Result describes a successful commit.
type Result struct {
	JobID    string
	Outputs  []string
	Warnings []models.Warning
	Message  string
}

// tool is the part shared by every tool: a staging list, a driver and the single
// in-flight job guard.
type tool struct {
	name    string
	list    *staging.List
	lib     pdfdoc.Library
	sink    output.Sink
	driver  *driver.Driver
	running atomic.Bool
}

func newTool(name string, deps Deps, accept staging.AcceptFunc, loader staging.MetadataLoader, opts []staging.Option) *tool {
	opts = append([]staging.Option{staging.WithMetadataLoader(loader)}, opts...)
	return &tool{
		name:   name,
		list:   staging.New(accept, opts...),
		lib:    deps.Library,
		sink:   deps.Sink,
		driver: driver.New(deps.Listener),
	}
}

// List returns the tool's staging list.
func (t *tool) List() *staging.List { return t.list }

// Running reports whether a job is in flight.
func (t *tool) Running() bool { return t.running.Load() }

// Close releases the staging list.
func (t *tool) Close() { t.list.Close() }

func (t *tool) begin() error {
	if !t.running.CompareAndSwap(false, true) {
		return ErrJobInProgress
	}
	return nil
}

func (t *tool) end() { t.running.Store(false) }

func (t *tool) deliver(ctx context.Context, outputs []models.Output) ([]string, error) {
	names := make([]string, 0, len(outputs))
	for _, out := range outputs {
		if err := t.sink.Save(ctx, out.Name, out.Data); err != nil {
			return names, fmt.Errorf("failed to save %s: %w", out.Name, err)
		}
		names = append(names, out.Name)
	}
	return names, nil
}

// loadDocument parses data, wrapping failures as pdfdoc.ErrLoad.
func loadDocument(lib pdfdoc.Library, data []byte) (pdfdoc.Document, error) {
	doc, err := lib.Load(data)
	if err != nil {
		if errors.Is(err, pdfdoc.ErrLoad) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", pdfdoc.ErrLoad, err)
	}
	return doc, nil
}

func readItem(item models.StagedItem) ([]byte, error) {
	rc, err := item.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", item.Name, err)
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", item.Name, err)
	}
	return buf.Bytes(), nil
}

// DocumentMetadata returns a loader that extracts page count and info strings.
func DocumentMetadata(lib pdfdoc.Library) staging.MetadataLoader {
	return func(ctx context.Context, item models.StagedItem) (models.Metadata, error) {
		if err := ctx.Err(); err != nil {
			return models.Metadata{}, err
		}
		data, err := readItem(item)
		if err != nil {
			return models.Metadata{}, err
		}
		doc, err := loadDocument(lib, data)
		if err != nil {
			return models.Metadata{}, err
		}
		info := doc.Info()
		return models.Metadata{
			PageCount: doc.PageCount(),
			Title:     info.Title,
			Author:    info.Author,
			Creator:   info.Creator,
		}, nil
	}
}

// ImageMetadata returns a loader that reads image dimensions from the header.
func ImageMetadata() staging.MetadataLoader {
	return func(ctx context.Context, item models.StagedItem) (models.Metadata, error) {
		if err := ctx.Err(); err != nil {
			return models.Metadata{}, err
		}
		data, err := readItem(item)
		if err != nil {
			return models.Metadata{}, err
		}
		cfg, err := pdfdoc.DecodeImageConfig(data)
		if err != nil {
			return models.Metadata{}, err
		}
		return models.Metadata{
			PageCount: 1,
			Width:     cfg.Width,
			Height:    cfg.Height,
			Format:    string(cfg.Format),
		}, nil
	}
}

// baseName strips a trailing .pdf extension.
func baseName(name string) string {
	if ext := filepath.Ext(name); strings.EqualFold(ext, ".pdf") {
		return strings.TrimSuffix(name, ext)
	}
	return name
}

// outputName returns name with a .pdf extension, or fallback when name is blank.
func outputName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

func logger(t *tool, jobID string) *slog.Logger {
	return slog.With("tool", t.name, "jobId", jobID)
}
