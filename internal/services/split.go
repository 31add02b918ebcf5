package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Lllllllleong/pdfworkbench/internal/driver"
	"github.com/Lllllllleong/pdfworkbench/internal/models"
	"github.com/Lllllllleong/pdfworkbench/internal/pdfdoc"
	"github.com/Lllllllleong/pdfworkbench/internal/staging"
	"github.com/Lllllllleong/pdfworkbench/internal/validation"
)

// DefaultSplitPause is the pause between successive saves in split-all mode.
const DefaultSplitPause = 100 * time.Millisecond

// SplitOptions are the split form fields.
type SplitOptions struct {
	validation.SplitOptions

	// Pause between saves in SplitAll mode. Zero disables it.
	Pause time.Duration
}

// SplitTool extracts pages from a single staged document.
type SplitTool struct {
	*tool
}

// NewSplitTool creates a split tool. Its list holds at most one document.
func NewSplitTool(deps Deps, opts ...staging.Option) *SplitTool {
	opts = append([]staging.Option{staging.WithSingleSlot()}, opts...)
	return &SplitTool{tool: newTool("split", deps, staging.AcceptDocuments, DocumentMetadata(deps.Library), opts)}
}

// Commit validates the selection and runs the split. It waits for the staged document's
// metadata first, since the page count is needed to validate ranges.
func (s *SplitTool) Commit(ctx context.Context, opts SplitOptions) (*Result, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	s.list.WaitMetadata()
	items := s.list.Snapshot()
	indices, err := validation.Split(items, opts.SplitOptions)
	if err != nil {
		return nil, err
	}

	if opts.Mode == validation.SplitAll || opts.Mode == "" {
		return s.splitAll(ctx, items[0], indices, opts.Pause)
	}
	return s.extract(ctx, items[0], indices, opts.SplitOptions)
}

// splitAll saves one single-page document per page, pausing between saves.
func (s *SplitTool) splitAll(ctx context.Context, item models.StagedItem, indices []int, pause time.Duration) (*Result, error) {
	job := driver.NewJob(s.name, []models.StagedItem{item})
	logCtx := logger(s.tool, job.ID)
	base := baseName(item.Name)

	var doc pdfdoc.Document
	var names []string
	tasks := []driver.Task{{
		Label:  fmt.Sprintf("Loading %s...", item.Name),
		Index:  0,
		Name:   item.Name,
		Source: item.Source,
		Run: func(_ context.Context, data []byte) error {
			d, err := loadDocument(s.lib, data)
			if err != nil {
				return err
			}
			doc = d
			return nil
		},
	}}
	// Page tasks follow the load task, so a failure index counts the load as item 0.
	for n, pageIndex := range indices {
		name := fmt.Sprintf("%s_page_%d.pdf", base, pageIndex+1)
		tasks = append(tasks, driver.Task{
			Label: fmt.Sprintf("Creating page %d...", pageIndex+1),
			Index: n + 1,
			Name:  name,
			Run: func(ctx context.Context, _ []byte) error {
				if n > 0 && pause > 0 {
					if err := sleep(ctx, pause); err != nil {
						return err
					}
				}
				b := s.lib.Create()
				if err := b.CopyPages(doc, []int{pageIndex}); err != nil {
					return err
				}
				data, err := b.Save(pdfdoc.SaveOptions{})
				if err != nil {
					return err
				}
				if err := s.sink.Save(ctx, name, data); err != nil {
					return fmt.Errorf("failed to save %s: %w", name, err)
				}
				names = append(names, name)
				return nil
			},
		})
	}

	outcome := s.driver.Run(ctx, job, driver.Plan{
		StartLabel: "Starting split...",
		Tasks:      tasks,
		LoopWeight: 1,
		DoneLabel:  "Split complete!",
	})
	if outcome.Err != nil {
		return nil, outcome.Err
	}
	logCtx.Info("Split document into single pages.", "pages", len(names))
	return &Result{
		JobID:   job.ID,
		Outputs: names,
		Message: fmt.Sprintf("Split %s into %d files", item.Name, len(names)),
	}, nil
}

// extract saves the selected pages, ascending, as one document.
func (s *SplitTool) extract(ctx context.Context, item models.StagedItem, indices []int, opts validation.SplitOptions) (*Result, error) {
	job := driver.NewJob(s.name, []models.StagedItem{item})
	logCtx := logger(s.tool, job.ID)

	name := fmt.Sprintf("%s_selected_pages.pdf", baseName(item.Name))
	if opts.Mode == validation.SplitRange {
		name = fmt.Sprintf("%s_pages_%d-%d.pdf", baseName(item.Name), opts.Start, opts.End)
	}

	var doc pdfdoc.Document
	outcome := s.driver.Run(ctx, job, driver.Plan{
		StartLabel: "Loading PDF...",
		Tasks: []driver.Task{{
			Label:  "Creating PDF with selected pages...",
			Index:  0,
			Name:   item.Name,
			Source: item.Source,
			Run: func(_ context.Context, data []byte) error {
				d, err := loadDocument(s.lib, data)
				if err != nil {
					return err
				}
				doc = d
				return nil
			},
		}},
		LoopWeight:    0.5,
		FinalizeLabel: "Finalizing PDF...",
		Finalize: func(context.Context) ([]models.Output, error) {
			b := s.lib.Create()
			if err := b.CopyPages(doc, indices); err != nil {
				return nil, err
			}
			data, err := b.Save(pdfdoc.SaveOptions{})
			if err != nil {
				return nil, err
			}
			return []models.Output{{Name: name, Data: data}}, nil
		},
		DoneLabel: "Split complete!",
	})
	if outcome.Err != nil {
		return nil, outcome.Err
	}

	names, err := s.deliver(ctx, outcome.Outputs)
	if err != nil {
		return nil, err
	}
	logCtx.Info("Extracted pages.", "pages", len(indices), "output", name)
	return &Result{
		JobID:   job.ID,
		Outputs: names,
		Message: fmt.Sprintf("Extracted %d pages from %s into %s", len(indices), item.Name, name),
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
