package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/nvandessel/compsig/internal/config"
	"github.com/nvandessel/compsig/internal/logging"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "compsig",
		Short: "Compositional signaling simulations",
		Long: `compsig simulates the emergence of compositional signaling in a
three-agent chain (Sender1 -> Sender2 -> Receiver1) trained with urn-based
reinforcement learning, and scores the learned Sender2 policies for
second messages that depend on the first message.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("root", "", "Output root directory (default from settings, then \".\")")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug, or trace")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newTrialCmd(),
		newClassifyCmd(),
		newAnalyzeCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

// env bundles what a subcommand needs after flags and settings are merged.
type env struct {
	settings *config.Settings
	root     string
	json     bool
	logger   *slog.Logger
	trace    *logging.TraceLogger
	out      io.Writer
}

// close releases the trace log.
func (e *env) close() {
	e.trace.Close()
}

// setup loads settings and applies the global flags on top of them.
// Order: defaults -> ~/.compsig/config.yaml -> environment -> flags
func setup(cmd *cobra.Command) (*env, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if root, _ := cmd.Flags().GetString("root"); root != "" {
		settings.Root = root
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		settings.Logging.Level = level
		if err := settings.Validate(); err != nil {
			return nil, err
		}
	}
	jsonOut, _ := cmd.Flags().GetBool("json")

	return &env{
		settings: settings,
		root:     settings.Root,
		json:     jsonOut,
		logger:   logging.NewLogger(settings.Logging.Level, cmd.ErrOrStderr()),
		trace:    logging.NewTraceLogger(settings.Root, settings.Logging.Level),
		out:      cmd.OutOrStdout(),
	}, nil
}

// encodeJSON writes v as indented JSON.
func (e *env) encodeJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var stopSignals = signal.Stop

// signalContext returns a context cancelled on interrupt. The returned cancel
// also unregisters the signal handler.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	notifySignals(ch)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		stopSignals(ch)
		cancel()
	}
}
