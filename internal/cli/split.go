package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdfworkbench/internal/services"
	"github.com/Lllllllleong/pdfworkbench/internal/validation"
)

type splitOptions struct {
	mode  string
	start int
	end   int
	pages string
}

// newSplitCmd creates the split command.
func (a *App) newSplitCmd() *cobra.Command {
	opts := &splitOptions{}

	cmd := &cobra.Command{
		Use:   "split FILE",
		Short: "Extract pages from a PDF",
		Long: `Extract pages from a single PDF.

Modes:
  all     one file per page (<name>_page_<n>.pdf)
  range   pages --start to --end into <name>_pages_<start>-<end>.pdf
  custom  the pages listed in --pages, e.g. "1,3,5-7", into <name>_selected_pages.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSplit(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.mode, "mode", string(validation.SplitAll), "Split mode: all, range or custom")
	cmd.Flags().IntVar(&opts.start, "start", 0, "First page of the range (1-based)")
	cmd.Flags().IntVar(&opts.end, "end", 0, "Last page of the range (1-based)")
	cmd.Flags().StringVar(&opts.pages, "pages", "", "Pages to extract in custom mode")

	return cmd
}

func (a *App) runSplit(ctx context.Context, path string, opts *splitOptions) error {
	mode, err := validation.ParseSplitMode(opts.mode)
	if err != nil {
		return err
	}

	sess, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	s := services.NewSplitTool(sess.deps)
	defer s.Close()
	if err := stage(s.List(), []string{path}); err != nil {
		return err
	}

	res, err := s.Commit(ctx, services.SplitOptions{
		SplitOptions: validation.SplitOptions{Mode: mode, Start: opts.start, End: opts.end, Pages: opts.pages},
		Pause:        a.cfg.Split.Pause,
	})
	if err != nil {
		return fmt.Errorf("split failed: %w", err)
	}
	a.report(res)
	return nil
}
