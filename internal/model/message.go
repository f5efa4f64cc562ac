// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VoiceLabel is the user message content recorded for a voice turn.
const VoiceLabel = "[Voice message]"

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Kare"
	default:
		return string(r)
	}
}

// =============================================================================
// STATE TYPE
// =============================================================================

// State is the lifecycle state of a message. User messages are always
// Resolved; an assistant message starts Pending and ends Resolved or Failed.
type State int

const (
	StateResolved State = iota
	StatePending
	StateFailed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateResolved:
		return "resolved"
	case StatePending:
		return "pending"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "resolved", "":
		*s = StateResolved
	case "pending":
		*s = StatePending
	case "failed":
		*s = StateFailed
	default:
		return fmt.Errorf("unknown message state %q", text)
	}
	return nil
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single transcript entry.
//
// A pending message has empty Content. Pending-ness is carried by State,
// never by a reserved content value, so no answer can be mistaken for it.
type Message struct {
	ID         string    `json:"id"`
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	State      State     `json:"state"`
	CreatedAt  time.Time `json:"created_at"`
	ResolvedAt time.Time `json:"resolved_at,omitempty"`

	// Transcript is the server-side transcription of a voice turn, if any.
	Transcript string `json:"transcript,omitempty"`
}

// NewUserMessage creates a resolved user message.
func NewUserMessage(content string) Message {
	now := time.Now()
	return Message{
		ID:         uuid.NewString(),
		Role:       RoleUser,
		Content:    content,
		State:      StateResolved,
		CreatedAt:  now,
		ResolvedAt: now,
	}
}

// newPlaceholder creates a pending assistant message.
func newPlaceholder() Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		State:     StatePending,
		CreatedAt: time.Now(),
	}
}

// IsPending reports whether the message awaits a response.
func (m Message) IsPending() bool {
	return m.State == StatePending
}

// IsFailed reports whether the message was resolved with error text.
func (m Message) IsFailed() bool {
	return m.State == StateFailed
}

// Elapsed returns how long the message took to resolve, or zero while pending.
func (m Message) Elapsed() time.Duration {
	if m.ResolvedAt.IsZero() {
		return 0
	}
	return m.ResolvedAt.Sub(m.CreatedAt)
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	runes := []rune(m.Content)
	if len(runes) <= maxLen {
		return m.Content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
