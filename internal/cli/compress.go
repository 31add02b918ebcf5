package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdfworkbench/internal/pdfdoc"
	"github.com/Lllllllleong/pdfworkbench/internal/services"
)

type compressOptions struct {
	output string
	level  string
}

// newCompressCmd creates the compress command.
func (a *App) newCompressCmd() *cobra.Command {
	opts := &compressOptions{}

	cmd := &cobra.Command{
		Use:   "compress FILE",
		Short: "Re-save a PDF with compaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCompress(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.output, "output", "", "Output file name (default <name>-compressed.pdf)")
	cmd.Flags().StringVar(&opts.level, "level", string(pdfdoc.CompressionHigh), "Compression: low, medium or high")

	return cmd
}

func (a *App) runCompress(ctx context.Context, path string, opts *compressOptions) error {
	level, err := pdfdoc.ParseCompressionLevel(opts.level)
	if err != nil {
		return err
	}

	sess, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	c := services.NewCompressTool(sess.deps)
	defer c.Close()
	if err := stage(c.List(), []string{path}); err != nil {
		return err
	}

	res, err := c.Commit(ctx, services.CompressOptions{OutputName: opts.output, Level: level})
	if err != nil {
		return fmt.Errorf("compress failed: %w", err)
	}
	a.report(res)
	return nil
}
