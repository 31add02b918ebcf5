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

const defaultMergeName = "merged-document.pdf"

// MergeOptions are the merge form fields.
type MergeOptions struct {
	OutputName        string
	Compression       pdfdoc.CompressionLevel
	PasswordEnabled   bool
	Password          string
	PreserveBookmarks bool
}

// MergeTool concatenates every page of every staged document in staging order.
type MergeTool struct {
	*tool
}

// NewMergeTool creates a merge tool. Extra staging options are applied after the defaults.
func NewMergeTool(deps Deps, opts ...staging.Option) *MergeTool {
	return &MergeTool{tool: newTool("merge", deps, staging.AcceptDocuments, DocumentMetadata(deps.Library), opts)}
}

// Commit validates the staged list and runs the merge.
func (m *MergeTool) Commit(ctx context.Context, opts MergeOptions) (*Result, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()

	items := m.list.Snapshot()
	if err := validation.Merge(items, opts.gate()); err != nil {
		return nil, err
	}

	job := driver.NewJob(m.name, items)
	logCtx := logger(m.tool, job.ID)

	save := pdfdoc.SaveOptions{Compact: opts.Compression.Compact()}
	var warnings []models.Warning
	caps := m.lib.Capabilities()
	if opts.PasswordEnabled {
		if caps.Encryption {
			save.UserPassword = opts.Password
		} else {
			warnings = append(warnings, models.Warning{
				Feature: "password",
				Message: fmt.Sprintf("%s cannot encrypt documents; the merged file is not password protected", m.lib.Name()),
			})
		}
	}
	if opts.PreserveBookmarks && !caps.Bookmarks {
		warnings = append(warnings, models.Warning{
			Feature: "bookmarks",
			Message: fmt.Sprintf("%s does not carry bookmarks across a merge; the merged file has none", m.lib.Name()),
		})
	}
	for _, w := range warnings {
		logCtx.Warn("Requested feature is not supported.", "feature", w.Feature)
	}

	name := outputName(opts.OutputName, defaultMergeName)
	builder := m.lib.Create()
	tasks := make([]driver.Task, len(items))
	for i, item := range items {
		tasks[i] = driver.Task{
			Label:  fmt.Sprintf("Processing %s...", item.Name),
			Index:  i,
			Name:   item.Name,
			Source: item.Source,
			Run: func(_ context.Context, data []byte) error {
				doc, err := loadDocument(m.lib, data)
				if err != nil {
					return err
				}
				return builder.CopyPages(doc, pdfdoc.AllPages(doc.PageCount()))
			},
		}
	}

	outcome := m.driver.Run(ctx, job, driver.Plan{
		StartLabel:    "Starting merge...",
		Tasks:         tasks,
		LoopWeight:    driver.DefaultLoopWeight,
		FinalizeLabel: "Applying compression and finalizing...",
		Finalize: func(context.Context) ([]models.Output, error) {
			data, err := builder.Save(save)
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

	names, err := m.deliver(ctx, outcome.Outputs)
	if err != nil {
		return nil, err
	}
	logCtx.Info("Merged documents.", "files", len(items), "pages", builder.PageCount(), "output", name)
	return &Result{
		JobID:    job.ID,
		Outputs:  names,
		Warnings: warnings,
		Message:  fmt.Sprintf("Merged %d files (%d pages) into %s", len(items), builder.PageCount(), name),
	}, nil
}

// gate returns the fields the validation gate checks.
func (o MergeOptions) gate() validation.MergeOptions {
	return validation.MergeOptions{PasswordEnabled: o.PasswordEnabled, Password: o.Password}
}

// Preview summarizes what a merge would produce without running it.
type Preview struct {
	Summary     staging.Summary
	Files       []models.StagedItem
	OutputName  string
	Compression pdfdoc.CompressionLevel
	Protected   bool
}

// Preview returns the merge preview for the current list.
func (m *MergeTool) Preview(opts MergeOptions) Preview {
	items := m.list.Snapshot()
	return Preview{
		Summary:     staging.Summarize(items),
		Files:       items,
		OutputName:  outputName(opts.OutputName, defaultMergeName),
		Compression: opts.Compression,
		Protected:   opts.PasswordEnabled && m.lib.Capabilities().Encryption,
	}
}
