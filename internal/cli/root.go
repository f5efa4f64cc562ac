// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shrijat-26/HealthCare-Chatbot/internal/config"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/gateway"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/logging"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/model"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/notice"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/session"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/turn"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/ui/chat"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/ui/styles"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/voicedrop"
)

// Version information, set at build time via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// annotationStderrLog marks commands that log to stderr instead of the
// log file.
const annotationStderrLog = "kare/stderr-log"

// annotationConfigOptional marks commands that run on defaults when the
// --config file does not exist yet.
const annotationConfigOptional = "kare/config-optional"

// app carries the state shared by all commands.
type app struct {
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger
}

// Execute runs the kare command tree. Interrupts cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:"), err)
		stop()
		os.Exit(1)
	}
}

// NewRootCmd builds the kare command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "kare",
		Short: "Terminal client for the Kare healthcare companion",
		Long: `kare talks to the Kare backend from your terminal.

Identify yourself with a user ID (new users create a short profile), then
chat by text or send voice recordings.

Run without arguments to start the interactive interface.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd.Context())
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.kare/config.toml)")

	root.AddCommand(
		newChatCmd(a),
		newMockServerCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// init loads configuration and builds the logger.
func (a *app) init(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFromPath(a.configPath)
		if errors.Is(err, fs.ErrNotExist) && cmd.Annotations[annotationConfigOptional] == "true" {
			cfg, err = config.Default(), nil
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Warning:"), err)
		}
	}
	a.cfg = cfg

	opts := logging.Options{
		Level:   cfg.Logging.Level,
		Verbose: a.verbose,
		File:    cfg.Logging.File,
	}
	if cmd.Annotations[annotationStderrLog] == "true" {
		opts.File = ""
	}
	a.logger = logging.Must(opts)
	return nil
}

// =============================================================================
// RUNTIME WIRING
// =============================================================================

// runtime is one client session: gateway, gate and orchestrator sharing a
// transcript.
type runtime struct {
	client *gateway.Client
	gate   *session.Gate
	orch   *turn.Orchestrator
}

// newRuntime wires a client session. Notices from the gate and the
// orchestrator go to n.
func newRuntime(cfg *config.Config, logger *zap.Logger, n notice.Notifier) *runtime {
	client := gateway.NewClientWithConfig(&gateway.Config{
		BaseURL:   cfg.Gateway.BaseURL,
		Timeout:   cfg.Gateway.Timeout.Std(),
		RateLimit: cfg.Gateway.RateLimit,
		Burst:     cfg.Gateway.Burst,
	}, gateway.WithLogger(logger.Named("gateway")))

	gate := session.NewGate(client,
		session.WithNotifier(n),
		session.WithLogger(logger.Named("session")))

	orch := turn.New(model.NewTranscript(), gate, client,
		turn.WithConfig(turn.Config{
			Timeout:   cfg.Chat.TurnTimeout.Std(),
			ErrorText: cfg.Chat.ErrorText,
		}),
		turn.WithNotifier(n),
		turn.WithLogger(logger.Named("turn")))

	logger.Info("session started",
		zap.String("session_id", gate.SessionID()),
		zap.String("backend", client.BaseURL()))

	return &runtime{client: client, gate: gate, orch: orch}
}

// =============================================================================
// TUI
// =============================================================================

func (a *app) runTUI(ctx context.Context) error {
	if err := RequiresTTY("kare"); err != nil {
		return fmt.Errorf("%w; use 'kare chat' for line mode", err)
	}

	mode, err := styles.ParseMode(a.cfg.UI.Theme)
	if err != nil {
		a.logger.Warn("theme", zap.Error(err))
	}

	board := notice.NewBoard(notice.DefaultCapacity)
	rt := newRuntime(a.cfg, a.logger, board)

	watcher := a.startVoiceDrop(ctx, board)

	m := chat.New(ctx, chat.Deps{
		Gate:         rt.gate,
		Orchestrator: rt.orch,
		Notices:      board,
		Theme:        styles.NewTheme(mode),
		VoiceDrop:    watcher,
		Markdown:     a.cfg.UI.Markdown,
		ExportDir:    ".",
		Logger:       a.logger.Named("tui"),
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run interface: %w", err)
	}
	return nil
}

// startVoiceDrop starts the voice drop watcher if a directory is
// configured. Failures are reported as a notice and the TUI runs without it.
func (a *app) startVoiceDrop(ctx context.Context, n notice.Notifier) *voicedrop.Watcher {
	dir := a.cfg.UI.VoiceDropDir
	if dir == "" {
		return nil
	}
	w, err := voicedrop.New(dir, voicedrop.WithLogger(a.logger.Named("voicedrop")))
	if err != nil {
		a.logger.Warn("voice drop disabled", zap.String("dir", dir), zap.Error(err))
		n.Notify(notice.Error(fmt.Sprintf("Voice folder unavailable: %v", err)))
		return nil
	}
	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("voice drop stopped", zap.Error(err))
		}
	}()
	n.Notify(notice.Info("Watching " + w.Dir() + " for voice recordings"))
	return w
}

// =============================================================================
// VERSION
// =============================================================================

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// No config or logger needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "kare %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
