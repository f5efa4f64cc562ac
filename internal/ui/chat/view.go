// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/shrijat-26/HealthCare-Chatbot/internal/model"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/notice"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/session"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/util"
)

// chromeHeight is the rows used by header, notice line, input and status bar.
const chromeHeight = 6

// thinkingText labels the pending placeholder.
const thinkingText = "Thinking..."

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "Starting kare..."
	}

	var body string
	switch m.Status() {
	case session.StatusAnonymous:
		body = m.viewIdentify()
	case session.StatusProfilePending:
		body = m.viewProfile()
	default:
		body = m.viewChat()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewHeader(),
		body,
		m.viewNotice(),
		m.viewFooter(),
	)
}

func (m *Model) viewHeader() string {
	info := "not signed in"
	if snap := m.deps.Gate.Snapshot(); snap.Status == session.StatusReady {
		info = snap.Identifier
		if snap.Profile != nil && snap.Profile.Name != "" {
			info = snap.Profile.Name
		}
	}
	line := m.theme.HeaderBrand.Render("kare") + "  " + m.theme.HeaderInfo.Render(info)
	return m.theme.Header.Width(m.width).Render(line)
}

// =============================================================================
// ONBOARDING
// =============================================================================

func (m *Model) viewIdentify() string {
	var sb strings.Builder
	sb.WriteString(m.theme.FormTitle.Render("Welcome to Kare"))
	sb.WriteString("\n")
	sb.WriteString(m.theme.FormLabel.Render("Enter your name or user ID to begin."))
	sb.WriteString("\n\n")
	sb.WriteString(m.theme.FormFocused.Render("ID: "))
	sb.WriteString(m.idInput.View())
	sb.WriteString("\n\n")
	if m.gateBusy {
		sb.WriteString(m.spinner.View() + " " + m.theme.Pending.Render("Checking..."))
	} else {
		sb.WriteString(m.theme.FormHint.Render("enter to continue"))
	}
	return m.pad(sb.String())
}

func (m *Model) viewProfile() string {
	label := func(text string, field int) string {
		if m.focusField == field {
			return m.theme.FormFocused.Render(text)
		}
		return m.theme.FormLabel.Render(text)
	}

	var sb strings.Builder
	sb.WriteString(m.theme.FormTitle.Render("Create your profile"))
	sb.WriteString("\n")
	sb.WriteString(m.theme.FormLabel.Render("New user: " + m.deps.Gate.Candidate()))
	sb.WriteString("\n\n")
	sb.WriteString(label("Name: ", fieldName))
	sb.WriteString(m.nameInput.View())
	sb.WriteString("\n")
	sb.WriteString(label("Age:  ", fieldAge))
	sb.WriteString(m.ageInput.View())
	sb.WriteString("\n\n")
	if m.gateBusy {
		sb.WriteString(m.spinner.View() + " " + m.theme.Pending.Render("Creating profile..."))
	} else {
		sb.WriteString(m.theme.FormHint.Render("tab to switch fields, enter to submit, esc to go back"))
	}
	return m.pad(sb.String())
}

// =============================================================================
// CHAT
// =============================================================================

func (m *Model) viewChat() string {
	if m.showHelp {
		return m.pad(m.theme.Help.Render(HelpText()))
	}
	return m.viewport.View() + "\n" + m.input.View()
}

// refreshViewport re-renders the transcript and follows the bottom when the
// user has not scrolled up.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if atBottom || m.deps.Orchestrator.Busy() {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderTranscript() string {
	msgs := m.deps.Orchestrator.Transcript().Messages()
	if len(msgs) == 0 {
		return m.theme.FormHint.Render("Say hello. Type /help for commands.")
	}
	parts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		parts = append(parts, m.renderMessage(msg))
	}
	return strings.Join(parts, "\n\n")
}

func (m *Model) renderMessage(msg model.Message) string {
	width := m.theme.BubbleWidth()
	stamp := m.theme.Timestamp.Render(msg.CreatedAt.Format("15:04"))

	if msg.Role == model.RoleUser {
		header := m.theme.UserLabel.Render(msg.Role.DisplayName()) + " " + stamp
		body := m.theme.UserBubble.Width(width).Render(msg.Content)
		return header + "\n" + body
	}

	header := m.theme.AssistantLabel.Render(msg.Role.DisplayName()) + " " + stamp
	switch {
	case msg.IsPending():
		elapsed := m.now.Sub(msg.CreatedAt).Round(time.Second)
		line := m.spinner.View() + " " + thinkingText
		if elapsed >= 2*time.Second {
			line += fmt.Sprintf(" (%s)", elapsed)
		}
		return header + "\n" + m.theme.Pending.Render(line)

	case msg.IsFailed():
		return header + "\n" + m.theme.FailedBubble.Width(width).Render(msg.Content)
	}

	content := msg.Content
	if m.markdown != nil {
		content = m.markdown.render(msg.ID, msg.Content, width-4)
	}
	out := header + "\n" + m.theme.AssistantBubble.Width(width).Render(content)
	if msg.Transcript != "" {
		out += "\n" + m.theme.Transcript.Render("heard: "+util.SingleLine(msg.Transcript))
	}
	return out
}

// =============================================================================
// NOTICE AND FOOTER
// =============================================================================

func (m *Model) viewNotice() string {
	n, ok := m.deps.Notices.Latest()
	if !ok || n.Expired(m.now, NoticeTTL) {
		return ""
	}
	text := util.TruncateWidth(util.SingleLine(n.Text), max(m.width-2, 10))
	switch n.Level {
	case notice.LevelError:
		return m.theme.NoticeError.Render(text)
	case notice.LevelSuccess:
		return m.theme.NoticeSuccess.Render(text)
	default:
		return m.theme.NoticeInfo.Render(text)
	}
}

func (m *Model) viewFooter() string {
	status := m.help.View(m.keyMap)
	if m.Status() == session.StatusReady {
		var extra []string
		if m.deps.Orchestrator.Busy() {
			extra = append(extra, "waiting for answer")
		}
		if n := len(m.voiceQ); n > 0 {
			extra = append(extra, fmt.Sprintf("%d voice queued", n))
		}
		if len(extra) > 0 {
			status = strings.Join(extra, " | ") + "  " + status
		}
	}
	return m.theme.StatusBar.Width(m.width).Render(status)
}

// pad fills the body area so the footer stays at the bottom.
func (m *Model) pad(s string) string {
	h := max(m.height-chromeHeight+1, 1)
	return lipgloss.NewStyle().Padding(1, 2).Height(h).Render(s)
}
