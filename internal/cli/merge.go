package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdfworkbench/internal/pdfdoc"
	"github.com/Lllllllleong/pdfworkbench/internal/services"
	"github.com/Lllllllleong/pdfworkbench/internal/staging"
)

type mergeOptions struct {
	output            string
	compression       string
	password          string
	preserveBookmarks bool
	dryRun            bool
	edits             editFlags
}

// newMergeCmd creates the merge command.
func (a *App) newMergeCmd() *cobra.Command {
	opts := &mergeOptions{}

	cmd := &cobra.Command{
		Use:   "merge [files...]",
		Short: "Combine PDF files into one document",
		Long: `Combine every page of every PDF, in staging order, into a single document.

Examples:
  # Merge two files
  pdfkit merge a.pdf b.pdf

  # Put the third file first and drop the second
  pdfkit merge a.pdf b.pdf c.pdf --move 3:1 --remove 3

  # Show what would be merged without running
  pdfkit merge a.pdf b.pdf --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMerge(cmd.Context(), args, opts, cmd.Flags().Changed("password"))
		},
	}

	cmd.Flags().StringVar(&opts.output, "output", "", "Output file name (overrides config)")
	cmd.Flags().StringVar(&opts.compression, "compression", "", "Compression: none, low, medium or high (overrides config)")
	cmd.Flags().StringVar(&opts.password, "password", "", "Protect the output with a password")
	cmd.Flags().BoolVar(&opts.preserveBookmarks, "preserve-bookmarks", false, "Keep bookmarks from the inputs")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the merge preview without running")
	opts.edits.register(cmd)

	return cmd
}

func (a *App) runMerge(ctx context.Context, args []string, opts *mergeOptions, passwordSet bool) error {
	compression := opts.compression
	if compression == "" {
		compression = a.cfg.Merge.Compression
	}
	level, err := pdfdoc.ParseCompressionLevel(compression)
	if err != nil {
		return err
	}
	output := opts.output
	if output == "" {
		output = a.cfg.Merge.OutputName
	}

	sess, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	m := services.NewMergeTool(sess.deps)
	defer m.Close()
	if err := stage(m.List(), args); err != nil {
		return err
	}
	if err := opts.edits.apply(m.List()); err != nil {
		return err
	}

	mergeOpts := services.MergeOptions{
		OutputName:        output,
		Compression:       level,
		PasswordEnabled:   passwordSet,
		Password:          opts.password,
		PreserveBookmarks: opts.preserveBookmarks,
	}

	if opts.dryRun {
		m.List().WaitMetadata()
		a.printPreview(m.Preview(mergeOpts))
		return nil
	}

	res, err := m.Commit(ctx, mergeOpts)
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}
	a.report(res)
	return nil
}

func (a *App) printPreview(p services.Preview) {
	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	for _, item := range p.Files {
		fmt.Fprintf(w, "%d.\t%s\t%s\t%s\n", item.Position+1, item.Name, staging.FormatSize(item.Size), describe(item))
	}
	w.Flush()

	pagesLine := fmt.Sprintf("%d", p.Summary.TotalPages)
	if p.Summary.UnknownPages > 0 {
		pagesLine += fmt.Sprintf(" (+%d files with unknown page count)", p.Summary.UnknownPages)
	}
	fmt.Fprintf(a.stdout, "Files: %d\n", p.Summary.Count)
	fmt.Fprintf(a.stdout, "Total pages: %s\n", pagesLine)
	fmt.Fprintf(a.stdout, "Total size: %s\n", staging.FormatSize(p.Summary.TotalBytes))
	fmt.Fprintf(a.stdout, "Output: %s\n", p.OutputName)
	fmt.Fprintf(a.stdout, "Compression: %s\n", p.Compression)
	fmt.Fprintf(a.stdout, "Password protected: %t\n", p.Protected)
}
