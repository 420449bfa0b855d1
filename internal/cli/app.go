// Package cli provides the pdfr command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jsscheller/pdfr/internal/fpdf"
	"github.com/jsscheller/pdfr/internal/logging"
	"github.com/jsscheller/pdfr/internal/pdfium"
	"github.com/jsscheller/pdfr/internal/telemetry"
)

// Version information set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// EngineFactory creates the PDF engine for one command run.
type EngineFactory func() (fpdf.Engine, error)

var errNoEngine = errors.New("no PDF engine available")

// Option configures an App.
type Option func(*App)

// WithEngine sets the engine used by every command.
func WithEngine(f EngineFactory) Option {
	return func(a *App) { a.newEngine = f }
}

// WithJPEGWriter sets the JPEG codec.
func WithJPEGWriter(w pdfium.JPEGWriter) Option {
	return func(a *App) { a.jpeg = w }
}

// globalOptions holds the persistent flags.
type globalOptions struct {
	logLevel  string
	logFormat string
	trace     bool
}

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	newEngine EngineFactory
	jpeg      pdfium.JPEGWriter

	globals globalOptions
	runID   string
	log     *bolt.Logger
	tel     *telemetry.Provider
}

// New creates a new CLI application.
func New(opts ...Option) *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
		newEngine: func() (fpdf.Engine, error) {
			return nil, errNoEngine
		},
		log: logging.Discard(),
		tel: telemetry.NewNoop(),
	}
	for _, opt := range opts {
		opt(app)
	}

	app.root = &cobra.Command{
		Use:   "pdfr",
		Short: "A command-line tool for PDFium",
		Long: `pdfr renders, inspects, edits and creates PDF files using PDFium.

Pages are numbered from 1. Placements are in PDF points (1/72 inch) with
the origin at the lower-left corner of the page.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: app.setup,
	}

	pf := app.root.PersistentFlags()
	pf.StringVar(&app.globals.logLevel, "log-level", "warn", "Log level (trace, debug, info, warn, error) [$PDFR_LOG_LEVEL]")
	pf.StringVar(&app.globals.logFormat, "log-format", "auto", "Log format (json, console, auto) [$PDFR_LOG_FORMAT]")
	pf.BoolVar(&app.globals.trace, "trace", false, "Write OpenTelemetry spans to stderr")

	// Add subcommands
	app.root.AddCommand(
		app.newVersionCmd(),
		app.newRenderCmd(),
		app.newPageCountCmd(),
		app.newAddImageCmd(),
		app.newAddTextCmd(),
		app.newEditCmd(),
		app.newExtractImagesCmd(),
		app.newCreateCmd(),
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

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	// Set up signal handling
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := a.root.ExecuteContext(ctx)
	if serr := a.tel.Shutdown(context.WithoutCancel(ctx)); serr != nil && err == nil {
		err = fmt.Errorf("flush traces: %w", serr)
	}
	return err
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// setup resolves the persistent flags, which take precedence over the
// environment, and builds the logger and tracer.
func (a *App) setup(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if v := os.Getenv("PDFR_LOG_LEVEL"); v != "" && !flags.Changed("log-level") {
		a.globals.logLevel = v
	}
	if v := os.Getenv("PDFR_LOG_FORMAT"); v != "" && !flags.Changed("log-format") {
		a.globals.logFormat = v
	}
	if !logging.ValidLevel(a.globals.logLevel) {
		return fmt.Errorf("invalid log level %q", a.globals.logLevel)
	}
	if !logging.ValidFormat(a.globals.logFormat) {
		return fmt.Errorf("invalid log format %q", a.globals.logFormat)
	}

	a.runID = uuid.NewString()
	a.log = logging.New(logging.Config{
		Level:  a.globals.logLevel,
		Format: a.globals.logFormat,
		Output: a.stderr,
	})

	tel, err := telemetry.New(telemetry.Config{
		Enabled:        a.globals.trace,
		Output:         a.stderr,
		ServiceVersion: Version,
	})
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	a.tel = tel
	return nil
}

// event starts a log event carrying the run id.
func (a *App) event(e *bolt.Event, fields ...logging.Field) *logging.LogEvent {
	return logging.NewEvent(e, logging.RunID(a.runID)).Add(chain(fields))
}

func chain(fields []logging.Field) logging.Field {
	return func(e *bolt.Event) *bolt.Event {
		for _, f := range fields {
			e = f(e)
		}
		return e
	}
}

// withLibrary runs fn with an initialised Library inside a span named
// after the command. The Library and everything opened from it are
// released when fn returns.
func (a *App) withLibrary(ctx context.Context, command string, fn func(context.Context, *pdfium.Library) error, attrs ...attribute.KeyValue) (err error) {
	ctx, span := a.tel.Start(ctx, command, attrs...)
	start := time.Now()
	defer func() {
		telemetry.End(span, err)
		if err != nil {
			a.event(a.log.Error(), logging.Command(command), logging.ErrorField(err)).Msg("command failed")
			return
		}
		a.event(a.log.Info(), logging.Command(command), logging.Duration(time.Since(start))).Msg("command finished")
	}()

	engine, err := a.newEngine()
	if err != nil {
		return err
	}
	lib, err := pdfium.Init(engine, pdfium.WithLogger(a.log), pdfium.WithJPEGWriter(a.jpeg))
	if err != nil {
		return err
	}
	defer lib.Close()

	return fn(ctx, lib)
}

// loadDocument opens path, with password when one is given.
func loadDocument(lib *pdfium.Library, path, password string) (*pdfium.Document, error) {
	if password == "" {
		return lib.LoadDocument(path)
	}
	return lib.LoadDocumentWithPassword(path, password)
}

// fileStem returns the base name of path without its extension.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "pdfr version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}
