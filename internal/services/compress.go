package services

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/pdfworkbench/internal/driver"
	"github.com/Lllllllleong/pdfworkbench/internal/models"
	"github.com/Lllllllleong/pdfworkbench/internal/pdfdoc"
	"github.com/Lllllllleong/pdfworkbench/internal/staging"
	"github.com/Lllllllleong/pdfworkbench/internal/validation"
)

// CompressOptions are the compress form fields. Level is reported back but every accepted
// level compacts; CompressionNone is rejected.
type CompressOptions struct {
	OutputName string
	Level      pdfdoc.CompressionLevel
}

// CompressTool re-serializes a single staged document with compaction enabled.
type CompressTool struct {
	*tool
}

// NewCompressTool creates a compress tool. Its list holds at most one document.
func NewCompressTool(deps Deps, opts ...staging.Option) *CompressTool {
	opts = append([]staging.Option{staging.WithSingleSlot()}, opts...)
	return &CompressTool{tool: newTool("compress", deps, staging.AcceptDocuments, DocumentMetadata(deps.Library), opts)}
}

// Reduction returns the size reduction from original to compressed in percent. It is
// negative when the output grew.
func Reduction(original, compressed int64) float64 {
	if original <= 0 {
		return 0
	}
	return float64(original-compressed) / float64(original) * 100
}

// Commit validates the list and runs the compression.
func (c *CompressTool) Commit(ctx context.Context, opts CompressOptions) (*Result, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	if opts.Level == pdfdoc.CompressionNone {
		return nil, &validation.Error{Tool: c.name, Reason: "compression level none would not compress; pick low, medium or high"}
	}

	c.list.WaitMetadata()
	items := c.list.Snapshot()
	if err := validation.Compress(items); err != nil {
		return nil, err
	}
	item := items[0]

	job := driver.NewJob(c.name, items)
	logCtx := logger(c.tool, job.ID)
	name := outputName(opts.OutputName, baseName(item.Name)+"-compressed.pdf")

	var original int64
	builder := c.lib.Create()
	outcome := c.driver.Run(ctx, job, driver.Plan{
		StartLabel: "Loading PDF...",
		Tasks: []driver.Task{{
			Label:  "Reading PDF...",
			Index:  0,
			Name:   item.Name,
			Source: item.Source,
			Run: func(_ context.Context, data []byte) error {
				original = int64(len(data))
				doc, err := loadDocument(c.lib, data)
				if err != nil {
					return err
				}
				return builder.CopyPages(doc, pdfdoc.AllPages(doc.PageCount()))
			},
		}},
		LoopWeight:    0.5,
		FinalizeLabel: "Compressing...",
		Finalize: func(context.Context) ([]models.Output, error) {
			data, err := builder.Save(pdfdoc.SaveOptions{Compact: true})
			if err != nil {
				return nil, err
			}
			return []models.Output{{Name: name, Data: data}}, nil
		},
		DoneLabel: "Download ready!",
	})
	if outcome.Err != nil {
		return nil, outcome.Err
	}

	names, err := c.deliver(ctx, outcome.Outputs)
	if err != nil {
		return nil, err
	}
	compressed := int64(len(outcome.Outputs[0].Data))
	reduction := Reduction(original, compressed)
	logCtx.Info("Compressed document.", "level", opts.Level, "originalBytes", original, "compressedBytes", compressed, "reduction", reduction)
	return &Result{
		JobID:   job.ID,
		Outputs: names,
		Message: fmt.Sprintf("Compressed! Reduced by %.1f%%", reduction),
	}, nil
}
