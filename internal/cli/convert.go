package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdfworkbench/internal/pages"
	"github.com/Lllllllleong/pdfworkbench/internal/services"
)

type convertOptions struct {
	output      string
	pageSize    string
	orientation string
	quality     int
	edits       editFlags
}

// newConvertCmd creates the convert command.
func (a *App) newConvertCmd() *cobra.Command {
	opts := &convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert [images...]",
		Short: "Turn images into a PDF, one page per image",
		Long: `Place each image on its own page, in staging order.

With --page-size auto every page matches its image's pixel size. Named sizes stretch the
image to fill the whole page without keeping its aspect ratio; --orientation auto picks
portrait or landscape per image.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.output, "output", "", "Output file name (overrides config)")
	cmd.Flags().StringVar(&opts.pageSize, "page-size", "", "Page size: auto, a4, letter or a3 (overrides config)")
	cmd.Flags().StringVar(&opts.orientation, "orientation", "", "Orientation: auto, portrait or landscape (overrides config)")
	cmd.Flags().IntVar(&opts.quality, "quality", 0, "JPEG quality for transcoded images, 1-100 (overrides config)")
	opts.edits.register(cmd)

	return cmd
}

func (a *App) runConvert(ctx context.Context, args []string, opts *convertOptions) error {
	cfg := a.cfg.Convert
	if opts.pageSize != "" {
		cfg.PageSize = opts.pageSize
	}
	if opts.orientation != "" {
		cfg.Orientation = opts.orientation
	}
	if opts.quality != 0 {
		cfg.Quality = opts.quality
	}
	if opts.output != "" {
		cfg.OutputName = opts.output
	}
	size, err := pages.ParseSize(cfg.PageSize)
	if err != nil {
		return err
	}
	orientation, err := pages.ParseOrientation(cfg.Orientation)
	if err != nil {
		return err
	}
	if cfg.Quality < 1 || cfg.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", cfg.Quality)
	}

	sess, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	c := services.NewConvertTool(sess.deps)
	defer c.Close()
	if err := stage(c.List(), args); err != nil {
		return err
	}
	if err := opts.edits.apply(c.List()); err != nil {
		return err
	}

	res, err := c.Commit(ctx, services.ConvertOptions{
		OutputName:  cfg.OutputName,
		PageSize:    size,
		Orientation: orientation,
		Quality:     cfg.Quality,
	})
	if err != nil {
		return fmt.Errorf("convert failed: %w", err)
	}
	a.report(res)
	return nil
}
