// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Transcript errors.
var (
	// ErrTurnPending is returned when a turn is appended while another is unresolved.
	ErrTurnPending = errors.New("a turn is already pending")

	// ErrNotPending is returned when resolving a message that is not a placeholder.
	ErrNotPending = errors.New("message is not pending")

	// ErrIndexOutOfRange is returned for an index outside the transcript.
	ErrIndexOutOfRange = errors.New("message index out of range")
)

// =============================================================================
// TRANSCRIPT TYPE
// =============================================================================

// Transcript is the ordered, append-only message sequence of one session.
//
// Invariants:
//   - at most one message is pending at any time
//   - every user message is immediately followed by its assistant message
//   - messages are never removed or reordered; only a pending message's
//     content and state change, exactly once
//
// All methods are safe for concurrent use so a renderer may read while a
// turn is in flight.
type Transcript struct {
	mu        sync.RWMutex
	id        string
	createdAt time.Time
	messages  []Message
	pending   int // index of the placeholder, -1 when none
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{
		id:        uuid.NewString(),
		createdAt: time.Now(),
		messages:  make([]Message, 0, 16),
		pending:   -1,
	}
}

// ID returns the transcript's local identifier.
func (t *Transcript) ID() string {
	return t.id
}

// CreatedAt returns when the transcript was created.
func (t *Transcript) CreatedAt() time.Time {
	return t.createdAt
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// AppendUserTurn appends a user message followed by a pending assistant
// placeholder and returns the placeholder's index.
func (t *Transcript) AppendUserTurn(content string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending >= 0 {
		return -1, ErrTurnPending
	}

	t.messages = append(t.messages, NewUserMessage(content), newPlaceholder())
	t.pending = len(t.messages) - 1
	return t.pending, nil
}

// ResolveTurn replaces the placeholder at index with the answer.
func (t *Transcript) ResolveTurn(index int, content string) error {
	return t.settle(index, content, "", StateResolved)
}

// ResolveVoiceTurn resolves a voice turn, recording the server transcription.
func (t *Transcript) ResolveVoiceTurn(index int, content, transcription string) error {
	return t.settle(index, content, transcription, StateResolved)
}

// FailTurn replaces the placeholder at index with error text.
func (t *Transcript) FailTurn(index int, errText string) error {
	return t.settle(index, errText, "", StateFailed)
}

func (t *Transcript) settle(index int, content, transcription string, state State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 || index >= len(t.messages) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(t.messages))
	}
	if index != t.pending || !t.messages[index].IsPending() {
		return fmt.Errorf("%w: index %d", ErrNotPending, index)
	}

	msg := &t.messages[index]
	msg.Content = content
	msg.State = state
	msg.Transcript = transcription
	msg.ResolvedAt = time.Now()
	t.pending = -1
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Messages returns a copy of every message, including a pending one.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// History returns a copy of the transcript without the pending placeholder.
// Failed messages are included with their error text.
func (t *Transcript) History() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Message, 0, len(t.messages))
	for _, m := range t.messages {
		if m.IsPending() {
			continue
		}
		out = append(out, m)
	}
	return out
}

// At returns a copy of the message at index.
func (t *Transcript) At(index int) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if index < 0 || index >= len(t.messages) {
		return Message{}, false
	}
	return t.messages[index], true
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// IsEmpty reports whether no message has been appended.
func (t *Transcript) IsEmpty() bool {
	return t.Len() == 0
}

// Pending returns the placeholder index and whether one exists.
func (t *Transcript) Pending() (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pending, t.pending >= 0
}

// IsPending reports whether the message at index is the open placeholder.
func (t *Transcript) IsPending(index int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return index >= 0 && index == t.pending
}

// Loading reports whether a turn is in flight.
func (t *Transcript) Loading() bool {
	_, ok := t.Pending()
	return ok
}

// Title returns a preview of the first user message, or a default.
func (t *Transcript) Title() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, m := range t.messages {
		if m.Role == RoleUser && m.Content != "" {
			return m.Preview(50)
		}
	}
	return "New conversation"
}
