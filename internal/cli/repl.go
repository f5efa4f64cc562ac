// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - Line-mode chat for kare ("kare chat").
//
// Same onboarding and slash commands as the TUI, read through liner so
// arrow keys and history work. History persists to ~/.kare/chat_history.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shrijat-26/HealthCare-Chatbot/internal/export"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/gateway"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/notice"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/session"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/turn"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/ui/chat"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/ui/styles"
)

// errQuit ends the REPL loop.
var errQuit = errors.New("quit")

const (
	promptIdentify = "User ID: "
	promptName     = "Name: "
	promptAge      = "Age: "
	promptChat     = "you> "
)

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat in line mode with history (no full-screen interface)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runREPL(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func (a *app) runREPL(ctx context.Context, out io.Writer) error {
	if err := RequiresTTY("kare chat"); err != nil {
		return err
	}

	in := newLinerInput(a.cfg.Chat.HistoryFile)
	defer in.Close()

	r := &repl{
		in:        in,
		out:       out,
		exportDir: ".",
		logger:    a.logger.Named("repl"),
	}
	if a.cfg.UI.Markdown && IsStdoutTTY() {
		mode, _ := styles.ParseMode(a.cfg.UI.Theme)
		r.render = newGlamourRenderer(styles.NewTheme(mode).GlamourStyle(), GetTerminalWidth()-4)
	}

	rt := newRuntime(a.cfg, a.logger, notice.NotifierFunc(r.printNotice))
	r.gate = rt.gate
	r.orch = rt.orch
	return r.Run(ctx)
}

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader reads one line of input after showing prompt.
type lineReader interface {
	ReadLine(prompt string) (string, error)
}

// linerInput is a lineReader with editing and persistent history.
type linerInput struct {
	line        *liner.State
	historyFile string
}

func newLinerInput(historyFile string) *linerInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	in := &linerInput{line: line, historyFile: historyFile}
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return in
}

// ReadLine prompts for input and records non-empty lines in history.
func (in *linerInput) ReadLine(prompt string) (string, error) {
	s, err := in.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) != "" {
		in.line.AppendHistory(s)
	}
	return s, nil
}

// Close saves history (owner read/write only) and restores the terminal.
func (in *linerInput) Close() {
	defer in.line.Close()
	if in.historyFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(in.historyFile), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = in.line.WriteHistory(f)
}

// newGlamourRenderer returns a markdown renderer, or nil when glamour
// cannot be set up.
func newGlamourRenderer(style string, width int) func(string) string {
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return func(s string) string {
		out, err := tr.Render(s)
		if err != nil {
			return s
		}
		return strings.Trim(out, "\n")
	}
}

// =============================================================================
// REPL
// =============================================================================

type repl struct {
	in     lineReader
	out    io.Writer
	gate   *session.Gate
	orch   *turn.Orchestrator
	logger *zap.Logger

	// render formats assistant answers; nil prints them as-is.
	render    func(string) string
	exportDir string
}

// Run drives onboarding and chat until the user quits, input ends or ctx
// is cancelled.
func (r *repl) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, TitleStyle.Render("Welcome to Kare"))
	fmt.Fprintln(r.out, DimStyle.Render("Type /help for commands, /quit or Ctrl+D to exit."))

	for {
		var err error
		switch r.gate.Status() {
		case session.StatusAnonymous:
			err = r.identify(ctx)
		case session.StatusProfilePending:
			err = r.profile(ctx)
		default:
			err = r.chat(ctx)
		}

		if isExit(err) || ctx.Err() != nil {
			fmt.Fprintln(r.out)
			fmt.Fprintln(r.out, InfoStyle.Render("Goodbye!"))
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func isExit(err error) bool {
	return errors.Is(err, errQuit) || errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted)
}

func (r *repl) identify(ctx context.Context) error {
	line, err := r.in.ReadLine(promptIdentify)
	if err != nil {
		return err
	}
	if isQuit(line) {
		return errQuit
	}

	_, err = r.gate.SubmitIdentifier(ctx, line)
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		r.printNotice(notice.Error("Please enter your user ID."))
	case err != nil:
		// Already reported through the notifier.
		r.logger.Debug("identify", zap.Error(err))
	case r.gate.Status() == session.StatusProfilePending:
		fmt.Fprintf(r.out, "%s %s\n", InfoStyle.Render("New user:"), r.gate.Candidate())
		fmt.Fprintln(r.out, DimStyle.Render("Create your profile, or enter /back to use a different ID."))
	}
	return nil
}

func (r *repl) profile(ctx context.Context) error {
	name, err := r.in.ReadLine(promptName)
	if err != nil {
		return err
	}
	if done, err := r.profileEscape(name); done {
		return err
	}

	age, err := r.in.ReadLine(promptAge)
	if err != nil {
		return err
	}
	if done, err := r.profileEscape(age); done {
		return err
	}

	if _, err := r.gate.SubmitProfile(ctx, name, age); err != nil {
		r.logger.Debug("create profile", zap.Error(err))
	}
	return nil
}

// profileEscape handles /back and /quit typed at a profile prompt.
func (r *repl) profileEscape(line string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "/back":
		return true, r.gate.Back()
	case "/quit", "/exit", "/q":
		return true, errQuit
	}
	return false, nil
}

func (r *repl) chat(ctx context.Context) error {
	line, err := r.in.ReadLine(promptChat)
	if err != nil {
		return err
	}
	text := strings.TrimSpace(line)
	if text == "" {
		return nil
	}

	if cmd, ok := chat.ParseCommand(text); ok {
		return r.command(ctx, cmd)
	}
	if strings.HasPrefix(text, "//") {
		text = text[1:]
	}

	fmt.Fprintln(r.out, DimStyle.Render("Thinking..."))
	res, err := r.orch.SubmitText(ctx, text)
	if err != nil {
		r.rejected(err)
		return nil
	}
	r.printResult(res)
	return nil
}

func (r *repl) command(ctx context.Context, cmd chat.Command) error {
	switch cmd.Name {
	case "quit", "exit", "q":
		return errQuit

	case "help", "?":
		fmt.Fprintln(r.out, chat.HelpText())

	case "voice":
		if cmd.Arg == "" {
			r.printNotice(notice.Error("Usage: /voice PATH"))
			return nil
		}
		voice, err := gateway.VoiceFromFile(cmd.Arg)
		if err != nil {
			r.printNotice(notice.Error(fmt.Sprintf("Cannot read %s: %v", cmd.Arg, err)))
			return nil
		}
		fmt.Fprintln(r.out, DimStyle.Render("Uploading "+voice.Filename+"..."))
		res, err := r.orch.SubmitVoice(ctx, voice)
		if err != nil {
			r.rejected(err)
			return nil
		}
		r.printResult(res)

	case "export":
		doc := export.FromTranscript(r.orch.Transcript(), r.gate.Identifier())
		opts := export.DefaultOptions()
		opts.OutputDir = r.exportDir
		path, err := export.ToFile(doc, cmd.Arg, opts)
		switch {
		case errors.Is(err, export.ErrEmpty):
			r.printNotice(notice.Info("Nothing to export yet."))
		case err != nil:
			r.printNotice(notice.Error(fmt.Sprintf("Export failed: %v", err)))
		default:
			r.printNotice(notice.Success("Saved " + path))
		}

	default:
		r.printNotice(notice.Error(fmt.Sprintf("Unknown command /%s. Try /help.", cmd.Name)))
	}
	return nil
}

// printResult prints the settled assistant message. Failures have already
// been reported through the notifier.
func (r *repl) printResult(res turn.Result) {
	msg, ok := r.orch.Transcript().At(res.Index)
	if !ok {
		return
	}
	if msg.IsFailed() {
		fmt.Fprintln(r.out, ErrorStyle.Render(msg.Content))
		return
	}
	if msg.Transcript != "" {
		fmt.Fprintf(r.out, "%s %s\n", DimStyle.Render("heard:"), msg.Transcript)
	}
	content := msg.Content
	if r.render != nil {
		content = r.render(content)
	}
	fmt.Fprintf(r.out, "%s %s\n", AssistantStyle.Render("kare>"), content)
}

func (r *repl) rejected(err error) {
	switch {
	case errors.Is(err, turn.ErrEmptyMessage):
	case errors.Is(err, turn.ErrTurnInProgress):
		r.printNotice(notice.Info("Please wait for the current answer."))
	default:
		r.printNotice(notice.Error(err.Error()))
	}
}

func (r *repl) printNotice(n notice.Notice) {
	style := InfoStyle
	switch n.Level {
	case notice.LevelSuccess:
		style = SuccessStyle
	case notice.LevelError:
		style = ErrorStyle
	}
	fmt.Fprintln(r.out, style.Render(n.Text))
}

func isQuit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "/quit", "/exit", "/q":
		return true
	}
	return false
}
