// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notice provides transient user-visible notices.
package notice

import (
	"sync"
	"time"
)

// Level is the severity of a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a single transient message for the user.
type Notice struct {
	Level Level
	Text  string
	At    time.Time
}

// Info creates an informational notice.
func Info(text string) Notice {
	return Notice{Level: LevelInfo, Text: text, At: time.Now()}
}

// Success creates a success notice.
func Success(text string) Notice {
	return Notice{Level: LevelSuccess, Text: text, At: time.Now()}
}

// Error creates an error notice.
func Error(text string) Notice {
	return Notice{Level: LevelError, Text: text, At: time.Now()}
}

// Expired reports whether the notice is older than ttl.
func (n Notice) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(n.At) > ttl
}

// Notifier receives notices.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) { f(n) }

// Discard drops every notice.
var Discard Notifier = NotifierFunc(func(Notice) {})

// =============================================================================
// BOARD
// =============================================================================

// DefaultCapacity is the number of notices a Board retains.
const DefaultCapacity = 32

// Board is a bounded, concurrency-safe notice history.
// The oldest notices are dropped when capacity is reached.
type Board struct {
	mu       sync.Mutex
	items    []Notice
	unread   int
	capacity int
}

// NewBoard creates a board that keeps up to capacity notices.
func NewBoard(capacity int) *Board {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Board{capacity: capacity}
}

// Notify records a notice.
func (b *Board) Notify(n Notice) {
	if n.At.IsZero() {
		n.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append(b.items, n)
	if len(b.items) > b.capacity {
		b.items = b.items[len(b.items)-b.capacity:]
	}
	if b.unread < len(b.items) {
		b.unread++
	}
}

// Latest returns the most recent notice.
func (b *Board) Latest() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == 0 {
		return Notice{}, false
	}
	return b.items[len(b.items)-1], true
}

// Drain returns the notices recorded since the previous Drain, oldest first.
func (b *Board) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.unread == 0 {
		return nil
	}
	out := make([]Notice, b.unread)
	copy(out, b.items[len(b.items)-b.unread:])
	b.unread = 0
	return out
}

// All returns every retained notice, oldest first.
func (b *Board) All() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Notice, len(b.items))
	copy(out, b.items)
	return out
}

// Len returns the number of retained notices.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
