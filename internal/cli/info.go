package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdfworkbench/internal/models"
	"github.com/Lllllllleong/pdfworkbench/internal/pdfdoc"
	"github.com/Lllllllleong/pdfworkbench/internal/services"
	"github.com/Lllllllleong/pdfworkbench/internal/staging"
)

// newInfoCmd creates the info command.
func (a *App) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [files...]",
		Short: "Stage files and print their metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInfo(cmd.Context(), args)
		},
	}
}

func (a *App) runInfo(ctx context.Context, args []string) error {
	lib := a.lib
	if lib == nil {
		lib = pdfdoc.NewPDFCPU()
	}

	list := staging.New(acceptAny, staging.WithMetadataLoader(anyMetadata(lib)))
	defer list.Close()
	if err := stage(list, args); err != nil {
		return err
	}
	list.WaitMetadata()
	if err := ctx.Err(); err != nil {
		return err
	}

	items := list.Snapshot()
	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tSIZE\tTYPE\tCONTENT\tTITLE")
	for _, item := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			item.Position+1, item.Name, staging.FormatSize(item.Size), item.MIMEType, describe(item), item.Metadata.Title)
	}
	w.Flush()

	s := staging.Summarize(items)
	fmt.Fprintf(a.stdout, "%d files, %d pages, %s\n", s.Count, s.TotalPages, staging.FormatSize(s.TotalBytes))
	return nil
}

func acceptAny(item models.RawItem) bool {
	return staging.AcceptDocuments(item) || staging.AcceptImages(item)
}

func anyMetadata(lib pdfdoc.Library) staging.MetadataLoader {
	docs, images := services.DocumentMetadata(lib), services.ImageMetadata()
	return func(ctx context.Context, item models.StagedItem) (models.Metadata, error) {
		if strings.HasPrefix(item.MIMEType, "image/") {
			return images(ctx, item)
		}
		return docs(ctx, item)
	}
}
