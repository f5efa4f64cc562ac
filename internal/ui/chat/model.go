// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/shrijat-26/HealthCare-Chatbot/internal/export"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/gateway"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/notice"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/session"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/turn"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/ui/styles"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/voicedrop"
)

// NoticeTTL is how long a notice stays on screen.
const NoticeTTL = 6 * time.Second

const msgWaitForAnswer = "Please wait for the current answer."

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Deps wires the model to the rest of kare.
type Deps struct {
	Gate         *session.Gate
	Orchestrator *turn.Orchestrator
	Notices      *notice.Board
	Theme        *styles.Theme

	// VoiceDrop is optional. Its Run loop is owned by the caller.
	VoiceDrop *voicedrop.Watcher

	Markdown  bool
	ExportDir string
	Logger    *zap.Logger
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// field indexes on the profile screen
const (
	fieldName = iota
	fieldAge
)

// Model is the Bubble Tea model for the kare TUI. The visible screen is
// derived from the session gate: identify while Anonymous, profile while
// ProfilePending, chat once Ready.
type Model struct {
	ctx  context.Context
	deps Deps

	theme  *styles.Theme
	keyMap KeyMap
	help   help.Model

	width  int
	height int
	ready  bool

	// Onboarding
	idInput    textinput.Model
	nameInput  textinput.Model
	ageInput   textinput.Model
	focusField int
	gateBusy   bool

	// Chat
	viewport  viewport.Model
	input     textinput.Model
	spinner   spinner.Model
	markdown  *markdownRenderer
	showHelp  bool
	voiceQ    []string
	exporting bool

	now time.Time
}

// New creates the model. ctx bounds every gateway call the model starts.
func New(ctx context.Context, deps Deps) *Model {
	if deps.Theme == nil {
		deps.Theme = styles.NewTheme(styles.ModeAuto)
	}
	if deps.Notices == nil {
		deps.Notices = notice.NewBoard(notice.DefaultCapacity)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.ExportDir == "" {
		deps.ExportDir = "."
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = deps.Theme.Pending

	m := &Model{
		ctx:       ctx,
		deps:      deps,
		theme:     deps.Theme,
		keyMap:    DefaultKeyMap(),
		help:      help.New(),
		idInput:   newInput("Your name or ID", 64),
		nameInput: newInput("Name", 64),
		ageInput:  newInput("Age", 3),
		input:     newInput("Type a message, or /help", 4000),
		spinner:   sp,
		viewport:  viewport.New(80, 20),
		now:       time.Now(),
	}
	m.input.Prompt = "> "
	m.input.PromptStyle = m.theme.InputPrompt
	if deps.Markdown {
		m.markdown = newMarkdownRenderer(m.theme.GlamourStyle())
	}
	m.focusForStatus()
	return m
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Prompt = ""
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

// Init starts the clock and, when configured, the voice drop subscription.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd()}
	if m.deps.VoiceDrop != nil {
		cmds = append(cmds, waitForVoice(m.deps.VoiceDrop))
	}
	return tea.Batch(cmds...)
}

// Status returns the gate status that selects the screen.
func (m *Model) Status() session.Status {
	return m.deps.Gate.Status()
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keyMap.Quit) {
			return m, tea.Quit
		}
		if key.Matches(msg, m.keyMap.Help) {
			m.showHelp = !m.showHelp
			return m, nil
		}
		switch m.Status() {
		case session.StatusAnonymous:
			return m, m.updateIdentify(msg)
		case session.StatusProfilePending:
			return m, m.updateProfile(msg)
		default:
			return m, m.updateChat(msg)
		}

	case gateResultMsg:
		m.gateBusy = false
		if msg.err != nil {
			m.deps.Logger.Debug("gate submit failed", zap.Error(msg.err))
		}
		m.focusForStatus()
		m.refreshViewport()
		return m, m.drainVoiceQueue()

	case turnResultMsg:
		if msg.result.Err != nil && !errors.Is(msg.result.Err, turn.ErrAlreadySettled) {
			m.deps.Logger.Debug("turn failed", zap.Error(msg.result.Err))
		}
		m.refreshViewport()
		return m, m.drainVoiceQueue()

	case voiceDroppedMsg:
		m.voiceQ = append(m.voiceQ, msg.path)
		m.deps.Notices.Notify(notice.Info("Voice file queued: " + msg.path))
		return m, tea.Batch(waitForVoice(m.deps.VoiceDrop), m.drainVoiceQueue())

	case voiceWatchClosedMsg:
		return m, nil

	case exportResultMsg:
		m.exporting = false
		if msg.err != nil {
			m.deps.Notices.Notify(notice.Error("Export failed: " + msg.err.Error()))
		} else {
			m.deps.Notices.Notify(notice.Success("Conversation saved to " + msg.path))
		}
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()

	case spinner.TickMsg:
		if !m.deps.Orchestrator.Busy() && !m.gateBusy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshViewport()
		return m, cmd
	}

	return m, nil
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.theme.SetSize(width, height)
	m.ready = true

	m.viewport.Width = width
	m.viewport.Height = max(height-chromeHeight, 3)
	m.input.Width = max(width-4, 10)
	if m.markdown != nil {
		m.markdown.reset()
	}
	m.refreshViewport()
}

// focusForStatus focuses the input belonging to the current screen.
func (m *Model) focusForStatus() {
	m.idInput.Blur()
	m.nameInput.Blur()
	m.ageInput.Blur()
	m.input.Blur()

	switch m.Status() {
	case session.StatusAnonymous:
		m.idInput.Focus()
	case session.StatusProfilePending:
		if m.focusField == fieldAge {
			m.ageInput.Focus()
		} else {
			m.nameInput.Focus()
		}
	default:
		m.input.Focus()
	}
}

// =============================================================================
// IDENTIFY SCREEN
// =============================================================================

func (m *Model) updateIdentify(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keyMap.Submit) {
		if m.gateBusy {
			return nil
		}
		m.gateBusy = true
		return tea.Batch(m.identifyCmd(m.idInput.Value()), m.spinner.Tick)
	}
	var cmd tea.Cmd
	m.idInput, cmd = m.idInput.Update(msg)
	return cmd
}

func (m *Model) identifyCmd(raw string) tea.Cmd {
	gate, ctx := m.deps.Gate, m.ctx
	return func() tea.Msg {
		st, err := gate.SubmitIdentifier(ctx, raw)
		return gateResultMsg{status: st, err: err}
	}
}

// =============================================================================
// PROFILE SCREEN
// =============================================================================

func (m *Model) updateProfile(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keyMap.Back):
		if err := m.deps.Gate.Back(); err != nil {
			return nil
		}
		m.focusField = fieldName
		m.nameInput.Reset()
		m.ageInput.Reset()
		m.focusForStatus()
		return nil

	case key.Matches(msg, m.keyMap.Switch):
		m.focusField = 1 - m.focusField
		m.focusForStatus()
		return nil

	case key.Matches(msg, m.keyMap.Submit):
		if m.gateBusy {
			return nil
		}
		m.gateBusy = true
		return tea.Batch(m.profileCmd(m.nameInput.Value(), m.ageInput.Value()), m.spinner.Tick)
	}

	var cmd tea.Cmd
	if m.focusField == fieldAge {
		m.ageInput, cmd = m.ageInput.Update(msg)
	} else {
		m.nameInput, cmd = m.nameInput.Update(msg)
	}
	return cmd
}

func (m *Model) profileCmd(name, age string) tea.Cmd {
	gate, ctx := m.deps.Gate, m.ctx
	return func() tea.Msg {
		st, err := gate.SubmitProfile(ctx, name, age)
		return gateResultMsg{status: st, err: err}
	}
}

// =============================================================================
// CHAT SCREEN
// =============================================================================

func (m *Model) updateChat(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return nil
	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return nil
	case key.Matches(msg, m.keyMap.Back):
		m.showHelp = false
		return nil
	case key.Matches(msg, m.keyMap.Submit):
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return nil
		}
		if cmd, ok := ParseCommand(text); ok {
			m.input.Reset()
			return m.runCommand(cmd)
		}
		if strings.HasPrefix(strings.TrimSpace(text), "//") {
			text = strings.TrimSpace(text)[1:]
		}
		cmd := m.beginText(text)
		if cmd != nil {
			m.input.Reset()
		}
		return cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// beginText starts a text turn. It returns nil, keeping the input, when the
// turn was rejected.
func (m *Model) beginText(text string) tea.Cmd {
	p, err := m.deps.Orchestrator.BeginText(text)
	if err != nil {
		m.rejected(err)
		return nil
	}
	m.refreshViewport()
	return tea.Batch(m.awaitCmd(p), m.spinner.Tick)
}

func (m *Model) beginVoice(path string) tea.Cmd {
	voice, err := gateway.VoiceFromFile(path)
	if err != nil {
		m.deps.Notices.Notify(notice.Error(fmt.Sprintf("Cannot read %s: %v", path, err)))
		return nil
	}
	p, err := m.deps.Orchestrator.BeginVoice(voice)
	if err != nil {
		m.rejected(err)
		return nil
	}
	m.refreshViewport()
	return tea.Batch(m.awaitCmd(p), m.spinner.Tick)
}

func (m *Model) awaitCmd(p *turn.Pending) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return turnResultMsg{result: p.Await(ctx)}
	}
}

func (m *Model) rejected(err error) {
	switch {
	case errors.Is(err, turn.ErrTurnInProgress):
		m.deps.Notices.Notify(notice.Info(msgWaitForAnswer))
	case errors.Is(err, turn.ErrEmptyMessage):
	default:
		m.deps.Notices.Notify(notice.Error(err.Error()))
	}
}

func (m *Model) runCommand(cmd Command) tea.Cmd {
	switch cmd.Name {
	case "quit", "exit", "q":
		return tea.Quit

	case "help", "?":
		m.showHelp = !m.showHelp
		return nil

	case "voice":
		if cmd.Arg == "" {
			m.deps.Notices.Notify(notice.Error("Usage: /voice PATH"))
			return nil
		}
		if m.deps.Orchestrator.Busy() {
			m.deps.Notices.Notify(notice.Info(msgWaitForAnswer))
			return nil
		}
		return m.beginVoice(cmd.Arg)

	case "export":
		if m.exporting {
			return nil
		}
		m.exporting = true
		return m.exportCmd(cmd.Arg)

	default:
		m.deps.Notices.Notify(notice.Error(fmt.Sprintf("Unknown command /%s. Try /help.", cmd.Name)))
		return nil
	}
}

func (m *Model) exportCmd(path string) tea.Cmd {
	doc := export.FromTranscript(m.deps.Orchestrator.Transcript(), m.deps.Gate.Identifier())
	opts := export.DefaultOptions()
	opts.OutputDir = m.deps.ExportDir
	return func() tea.Msg {
		out, err := export.ToFile(doc, path, opts)
		return exportResultMsg{path: out, err: err}
	}
}

// =============================================================================
// VOICE DROP
// =============================================================================

func waitForVoice(w *voicedrop.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		path, ok := <-w.Paths()
		if !ok {
			return voiceWatchClosedMsg{}
		}
		return voiceDroppedMsg{path: path}
	}
}

// drainVoiceQueue starts the next queued voice turn once chat is open and
// idle.
func (m *Model) drainVoiceQueue() tea.Cmd {
	if len(m.voiceQ) == 0 || !m.deps.Gate.Ready() || m.deps.Orchestrator.Busy() {
		return nil
	}
	path := m.voiceQ[0]
	m.voiceQ = m.voiceQ[1:]
	if cmd := m.beginVoice(path); cmd != nil {
		return cmd
	}
	return m.drainVoiceQueue()
}

// QueuedVoice returns the number of dropped files waiting to be sent.
func (m *Model) QueuedVoice() int {
	return len(m.voiceQ)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
