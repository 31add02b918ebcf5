package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdfworkbench/internal/driver"
	"github.com/Lllllllleong/pdfworkbench/internal/models"
	"github.com/Lllllllleong/pdfworkbench/internal/output"
	"github.com/Lllllllleong/pdfworkbench/internal/pdfdoc"
	"github.com/Lllllllleong/pdfworkbench/internal/services"
	"github.com/Lllllllleong/pdfworkbench/internal/staging"
)

// session holds the collaborators for one command invocation.
type session struct {
	deps  services.Deps
	close func() error
}

func (a *App) open(ctx context.Context) (*session, error) {
	lib := a.lib
	if lib == nil {
		lib = pdfdoc.NewPDFCPU()
	}

	sink, closeFn := a.sink, func() error { return nil }
	if sink == nil {
		var err error
		sink, closeFn, err = output.New(ctx, output.Config{
			Backend: a.cfg.Output.Backend,
			Dir:     a.cfg.Output.Dir,
			Bucket:  a.cfg.Output.Bucket,
			Prefix:  a.cfg.Output.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open output: %w", err)
		}
	}

	var listener driver.Listener = driver.NopListener{}
	if !a.quiet {
		listener = progressPrinter{w: a.stderr}
	}
	return &session{
		deps:  services.Deps{Library: lib, Sink: sink, Listener: listener},
		close: closeFn,
	}, nil
}

// progressPrinter writes one line per progress event.
type progressPrinter struct {
	w io.Writer
}

func (p progressPrinter) OnProgress(_ string, e models.Progress) {
	fmt.Fprintf(p.w, "[%3.0f%%] %s\n", e.Fraction*100, e.Phase)
}

func (p progressPrinter) OnDone(string, error) {}

// stage adds files to list in argument order. Files the list rejects are reported and
// skipped.
func stage(list *staging.List, paths []string) error {
	for _, path := range paths {
		raw, err := staging.FromPath(path)
		if err != nil {
			return err
		}
		if len(list.Add(raw)) == 0 {
			slog.Warn("Skipped file: unsupported type or already staged.", "file", path)
		}
	}
	return nil
}

// editFlags are the list edits merge and convert accept before committing.
type editFlags struct {
	moves   []string
	removes []int
}

func (e *editFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&e.moves, "move", nil, "Move the file at position FROM to TO before running (FROM:TO, 1-based, repeatable)")
	cmd.Flags().IntSliceVar(&e.removes, "remove", nil, "Remove the file at position POS before running (1-based, repeatable)")
}

// apply runs moves and then removals, each against the list as it stands at that point.
// Positions outside the list are ignored.
func (e *editFlags) apply(list *staging.List) error {
	var cmds []staging.Command
	for _, m := range e.moves {
		from, to, err := parseMove(m)
		if err != nil {
			return err
		}
		cmds = append(cmds, staging.MoveItem{From: from, To: to})
	}
	for _, pos := range e.removes {
		cmds = append(cmds, staging.RemoveAt{Position: pos - 1})
	}
	for _, cmd := range cmds {
		if !list.Dispatch(cmd) {
			slog.Warn("Ignored list edit outside the staged files.", "edit", fmt.Sprintf("%+v", cmd), "staged", list.Len())
		}
	}
	return nil
}

// parseMove parses a 1-based FROM:TO pair into 0-based positions.
func parseMove(s string) (int, int, error) {
	fromStr, toStr, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid --move %q: want FROM:TO", s)
	}
	from, err := strconv.Atoi(strings.TrimSpace(fromStr))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --move %q: %w", s, err)
	}
	to, err := strconv.Atoi(strings.TrimSpace(toStr))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --move %q: %w", s, err)
	}
	return from - 1, to - 1, nil
}

// report prints the outcome of a successful commit.
func (a *App) report(res *services.Result) {
	for _, w := range res.Warnings {
		fmt.Fprintf(a.stderr, "Warning: %s\n", w.Message)
	}
	for _, name := range res.Outputs {
		fmt.Fprintf(a.stdout, "Wrote %s\n", name)
	}
	if res.Message != "" {
		fmt.Fprintln(a.stdout, res.Message)
	}
}

func describe(item models.StagedItem) string {
	md := item.Metadata
	switch {
	case !md.Loaded():
		return md.State.String()
	case md.Width > 0:
		return fmt.Sprintf("%s %dx%d", md.Format, md.Width, md.Height)
	case md.PageCount == 1:
		return "1 page"
	default:
		return fmt.Sprintf("%d pages", md.PageCount)
	}
}
