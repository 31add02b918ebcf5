package services

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/pdfworkbench/internal/driver"
	"github.com/Lllllllleong/pdfworkbench/internal/models"
	"github.com/Lllllllleong/pdfworkbench/internal/pages"
	"github.com/Lllllllleong/pdfworkbench/internal/pdfdoc"
	"github.com/Lllllllleong/pdfworkbench/internal/staging"
	"github.com/Lllllllleong/pdfworkbench/internal/validation"
)

const defaultConvertName = "images-to-pdf.pdf"

// ConvertOptions are the convert form fields.
type ConvertOptions struct {
	OutputName  string
	PageSize    pages.Size
	Orientation pages.Orientation
	// Quality is the JPEG quality used when an image has to be transcoded.
	Quality int
}

// ConvertTool turns each staged image into one page, in staging order.
type ConvertTool struct {
	*tool
}

// NewConvertTool creates a convert tool.
func NewConvertTool(deps Deps, opts ...staging.Option) *ConvertTool {
	return &ConvertTool{tool: newTool("convert", deps, staging.AcceptImages, ImageMetadata(), opts)}
}

// Commit validates the list and builds the document.
func (c *ConvertTool) Commit(ctx context.Context, opts ConvertOptions) (*Result, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	items := c.list.Snapshot()
	if err := validation.Convert(items); err != nil {
		return nil, err
	}

	job := driver.NewJob(c.name, items)
	logCtx := logger(c.tool, job.ID)
	name := outputName(opts.OutputName, defaultConvertName)
	builder := c.lib.Create()

	tasks := make([]driver.Task, len(items))
	for i, item := range items {
		tasks[i] = driver.Task{
			Label:  fmt.Sprintf("Processing %s...", item.Name),
			Index:  i,
			Name:   item.Name,
			Source: item.Source,
			Run: func(_ context.Context, data []byte) error {
				return c.addImage(builder, data, opts)
			},
		}
	}

	outcome := c.driver.Run(ctx, job, driver.Plan{
		StartLabel:    "Starting conversion...",
		Tasks:         tasks,
		LoopWeight:    driver.DefaultLoopWeight,
		FinalizeLabel: "Finalizing PDF...",
		Finalize: func(context.Context) ([]models.Output, error) {
			data, err := builder.Save(pdfdoc.SaveOptions{})
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
	logCtx.Info("Converted images.", "images", len(items), "output", name)
	return &Result{
		JobID:   job.ID,
		Outputs: names,
		Message: fmt.Sprintf("Converted %d images into %s", len(items), name),
	}, nil
}

// addImage embeds one image as a page. WebP is transcoded to JPEG first since not every
// engine embeds it natively.
func (c *ConvertTool) addImage(b pdfdoc.Builder, data []byte, opts ConvertOptions) error {
	cfg, err := pdfdoc.DecodeImageConfig(data)
	if err != nil {
		return err
	}
	format := cfg.Format
	if format == pdfdoc.WEBP {
		data, err = pdfdoc.ToJPEG(data, opts.Quality)
		if err != nil {
			return err
		}
		format = pdfdoc.JPEG
	}
	dim := pages.Dimensions(opts.PageSize, opts.Orientation, cfg.Width, cfg.Height)
	return b.AddImagePage(data, format, dim.Width, dim.Height)
}
