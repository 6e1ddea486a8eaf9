// Package cli implements the afm command surface: chat, generate, status,
// and git-commit.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	afm "github.com/peridot-sh/afm"
	"github.com/peridot-sh/afm/model"
	"github.com/peridot-sh/afm/shell"
	"github.com/peridot-sh/afm/tool"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// App carries the wired dependencies of one CLI invocation. Fields left nil
// are filled in from config before any command runs, so tests can inject
// fakes.
type App struct {
	Config  *afm.Config
	Logger  *slog.Logger
	Runtime model.Runtime
	Runner  shell.Runner
	Tools   *tool.Registry

	// Out and ErrOut default to stdout and stderr.
	Out    io.Writer
	ErrOut io.Writer

	verbose bool
}

// init fills in every nil dependency. Injected fields are kept as-is.
func (app *App) init() error {
	if app.Out == nil {
		app.Out = os.Stdout
	}
	if app.ErrOut == nil {
		app.ErrOut = os.Stderr
	}
	if app.Logger == nil {
		level := slog.LevelInfo
		if app.verbose {
			level = slog.LevelDebug
		}
		app.Logger = slog.New(slog.NewTextHandler(app.ErrOut, &slog.HandlerOptions{Level: level}))
	}
	if app.Config == nil {
		cfg, err := afm.LoadConfig()
		if err != nil {
			return fmt.Errorf("cannot load config: %w", err)
		}
		app.Config = cfg
		for _, w := range afm.ValidateConfig(cfg) {
			app.Logger.Debug("config warning", "warning", w)
		}
	}
	if app.Runner == nil {
		app.Runner = shell.ExecRunner{}
	}
	if app.Tools == nil {
		app.Tools = tool.Builtins(app.Runner, app.Logger)
	}
	if app.Runtime == nil {
		app.Runtime = model.NewLocal(app.Config, app.Logger)
	}
	return nil
}

// requireAvailable aborts the invocation before any generation attempt when
// the default capability is absent.
func (app *App) requireAvailable(ctx context.Context) error {
	a := app.Runtime.Check(ctx, afm.CapabilityDefault)
	if a.Available {
		return nil
	}
	reason := a.Reason
	if reason == "" {
		reason = afm.ReasonUnknown
	}
	return &model.UnavailableError{Capability: afm.CapabilityDefault, Reason: reason}
}

// NewRootCmd builds the afm command tree over the given app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "afm",
		Short: "Talk to the on-device foundation model",
		Long: `afm forwards prompts to the on-device model runtime and relays the
responses: interactive chat with optional tools, one-shot generation,
availability status, and commit message synthesis from the staged diff.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init()
		},
	}
	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newChatCmd(app))
	root.AddCommand(newGenerateCmd(app))
	root.AddCommand(newStatusCmd(app))
	root.AddCommand(newGitCommitCmd(app))
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &App{}
	if err := NewRootCmd(app).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(1)
	}
}
