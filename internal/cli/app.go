// Package cli provides the pdfkit command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdfworkbench/internal/config"
	"github.com/Lllllllleong/pdfworkbench/internal/output"
	"github.com/Lllllllleong/pdfworkbench/internal/pdfdoc"
)

// Version information set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	configPath string
	outDir     string
	logLevel   string
	quiet      bool

	cfg  config.Config
	lib  pdfdoc.Library
	sink output.Sink
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "pdfkit",
		Short: "Merge, split, convert and compress PDF files",
		Long: `pdfkit stages files in an ordered list, validates the request and runs it locally.

Every tool works on the files given as arguments, in argument order. Merge and convert
accept --move and --remove to reorder the staged list before the job runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.configure()
		},
	}

	app.root.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Path to a YAML configuration file")
	app.root.PersistentFlags().StringVar(&app.outDir, "out-dir", "", "Directory to write outputs to (overrides config)")
	app.root.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	app.root.PersistentFlags().BoolVarP(&app.quiet, "quiet", "q", false, "Do not print progress")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newMergeCmd(),
		app.newSplitCmd(),
		app.newConvertCmd(),
		app.newCompressCmd(),
		app.newInfoCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// WithLibrary replaces the PDF engine.
func (a *App) WithLibrary(lib pdfdoc.Library) *App {
	a.lib = lib
	return a
}

// WithSink sends outputs to sink instead of the configured backend.
func (a *App) WithSink(sink output.Sink) *App {
	a.sink = sink
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// configure loads configuration and installs the logger.
func (a *App) configure() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.outDir != "" {
		cfg.Output.Backend = "local"
		cfg.Output.Dir = a.outDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	slog.SetDefault(newLogger(cfg.Log, a.stderr))
	return nil
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "pdfkit version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}
