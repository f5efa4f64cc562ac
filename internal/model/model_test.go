// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// entry is the comparable projection of a Message used in transcript diffs.
type entry struct {
	Role    Role
	Content string
	State   State
}

func entries(msgs []Message) []entry {
	out := make([]entry, len(msgs))
	for i, m := range msgs {
		out[i] = entry{m.Role, m.Content, m.State}
	}
	return out
}

func countPending(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		if m.IsPending() {
			n++
		}
	}
	return n
}

// =============================================================================
// ROLE / STATE TESTS
// =============================================================================

func TestRole_DisplayName(t *testing.T) {
	if got := RoleUser.DisplayName(); got != "You" {
		t.Errorf("RoleUser.DisplayName() = %q, want %q", got, "You")
	}
	if got := RoleAssistant.DisplayName(); got != "Kare" {
		t.Errorf("RoleAssistant.DisplayName() = %q, want %q", got, "Kare")
	}
}

func TestState_TextRoundTrip(t *testing.T) {
	for _, s := range []State{StateResolved, StatePending, StateFailed} {
		text, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v) error: %v", s, err)
		}
		var got State
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) error: %v", text, err)
		}
		if got != s {
			t.Errorf("round trip %v = %v", s, got)
		}
	}

	var s State
	if err := s.UnmarshalText([]byte("thinking")); err == nil {
		t.Error("UnmarshalText(thinking) should fail")
	}
}

func TestMessage_JSONCarriesState(t *testing.T) {
	data, err := json.Marshal(newPlaceholder())
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["state"] != "pending" {
		t.Errorf("state = %v, want pending", raw["state"])
	}
	if raw["content"] != "" {
		t.Errorf("content = %v, want empty for a placeholder", raw["content"])
	}
}

func TestMessage_Preview(t *testing.T) {
	tests := []struct {
		content string
		max     int
		want    string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this is a long message", 10, "this is..."},
		{"héllo wörld", 8, "héllo..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		m := Message{Content: tt.content}
		if got := m.Preview(tt.max); got != tt.want {
			t.Errorf("Preview(%q, %d) = %q, want %q", tt.content, tt.max, got, tt.want)
		}
	}
}

// =============================================================================
// TRANSCRIPT TRANSITION TESTS
// =============================================================================

func TestAppendUserTurn(t *testing.T) {
	tr := NewTranscript()

	idx, err := tr.AppendUserTurn("Hi")
	if err != nil {
		t.Fatalf("AppendUserTurn() error: %v", err)
	}
	if idx != 1 {
		t.Errorf("placeholder index = %d, want 1", idx)
	}
	if !tr.Loading() {
		t.Error("Loading() should be true while a turn is pending")
	}
	if !tr.IsPending(idx) {
		t.Error("IsPending(idx) should be true")
	}

	want := []entry{
		{RoleUser, "Hi", StateResolved},
		{RoleAssistant, "", StatePending},
	}
	if diff := cmp.Diff(want, entries(tr.Messages())); diff != "" {
		t.Errorf("Messages() mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendUserTurn_RejectsSecondPending(t *testing.T) {
	tr := NewTranscript()
	if _, err := tr.AppendUserTurn("one"); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.AppendUserTurn("two"); !errors.Is(err, ErrTurnPending) {
		t.Errorf("second AppendUserTurn() error = %v, want ErrTurnPending", err)
	}
	if tr.Len() != 2 {
		t.Errorf("Len() = %d, want 2 after rejected append", tr.Len())
	}
}

func TestResolveTurn(t *testing.T) {
	tr := NewTranscript()
	idx, _ := tr.AppendUserTurn("Hi")

	if err := tr.ResolveTurn(idx, "Hello! How can I help?"); err != nil {
		t.Fatalf("ResolveTurn() error: %v", err)
	}
	if tr.Loading() {
		t.Error("Loading() should be false after resolution")
	}

	want := []entry{
		{RoleUser, "Hi", StateResolved},
		{RoleAssistant, "Hello! How can I help?", StateResolved},
	}
	if diff := cmp.Diff(want, entries(tr.Messages())); diff != "" {
		t.Errorf("Messages() mismatch (-want +got):\n%s", diff)
	}

	msg, _ := tr.At(idx)
	if msg.ResolvedAt.IsZero() {
		t.Error("ResolvedAt should be set")
	}
	if msg.Elapsed() < 0 {
		t.Errorf("Elapsed() = %v, want non-negative", msg.Elapsed())
	}
}

func TestFailTurn(t *testing.T) {
	tr := NewTranscript()
	idx, _ := tr.AppendUserTurn("Hello")

	if err := tr.FailTurn(idx, "Error retrieving answer."); err != nil {
		t.Fatalf("FailTurn() error: %v", err)
	}

	want := []entry{
		{RoleUser, "Hello", StateResolved},
		{RoleAssistant, "Error retrieving answer.", StateFailed},
	}
	if diff := cmp.Diff(want, entries(tr.Messages())); diff != "" {
		t.Errorf("Messages() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveVoiceTurn(t *testing.T) {
	tr := NewTranscript()
	idx, _ := tr.AppendUserTurn(VoiceLabel)

	if err := tr.ResolveVoiceTurn(idx, "Audio received", "hello there"); err != nil {
		t.Fatal(err)
	}
	msg, _ := tr.At(idx)
	if msg.Transcript != "hello there" {
		t.Errorf("Transcript = %q, want %q", msg.Transcript, "hello there")
	}
}

func TestResolve_Misuse(t *testing.T) {
	tr := NewTranscript()
	idx, _ := tr.AppendUserTurn("Hi")

	tests := []struct {
		name    string
		resolve func() error
		want    error
	}{
		{"user message index", func() error { return tr.ResolveTurn(idx-1, "x") }, ErrNotPending},
		{"negative index", func() error { return tr.ResolveTurn(-1, "x") }, ErrIndexOutOfRange},
		{"past end", func() error { return tr.FailTurn(99, "x") }, ErrIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.resolve(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	if err := tr.ResolveTurn(idx, "first"); err != nil {
		t.Fatal(err)
	}
	if err := tr.ResolveTurn(idx, "second"); !errors.Is(err, ErrNotPending) {
		t.Errorf("double resolve error = %v, want ErrNotPending", err)
	}
	if err := tr.FailTurn(idx, "late"); !errors.Is(err, ErrNotPending) {
		t.Errorf("fail after resolve error = %v, want ErrNotPending", err)
	}
	msg, _ := tr.At(idx)
	if msg.Content != "first" {
		t.Errorf("content = %q, want first resolution kept", msg.Content)
	}
}

// =============================================================================
// INVARIANT TESTS
// =============================================================================

func TestTranscript_AppendOnlyAcrossTurns(t *testing.T) {
	tr := NewTranscript()
	outcomes := []struct {
		in     string
		answer string
		fail   bool
	}{
		{"one", "ans one", false},
		{"two", "Error retrieving answer.", true},
		{"three", "ans three", false},
		{"", "ans empty", false},
	}

	var before []Message
	for i, o := range outcomes {
		idx, err := tr.AppendUserTurn(o.in)
		if err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
		if idx != 2*i+1 {
			t.Errorf("turn %d placeholder index = %d, want %d", i, idx, 2*i+1)
		}
		if n := countPending(tr.Messages()); n != 1 {
			t.Errorf("turn %d in flight: %d pending, want 1", i, n)
		}

		if o.fail {
			err = tr.FailTurn(idx, o.answer)
		} else {
			err = tr.ResolveTurn(idx, o.answer)
		}
		if err != nil {
			t.Fatal(err)
		}

		after := tr.Messages()
		if n := countPending(after); n != 0 {
			t.Errorf("turn %d settled: %d pending, want 0", i, n)
		}
		if diff := cmp.Diff(before, after[:len(before)], cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("turn %d changed earlier messages (-before +after):\n%s", i, diff)
		}
		before = after
	}

	for i, m := range tr.Messages() {
		wantRole := RoleUser
		if i%2 == 1 {
			wantRole = RoleAssistant
		}
		if m.Role != wantRole {
			t.Errorf("message %d role = %s, want %s", i, m.Role, wantRole)
		}
	}
}

func TestHistory_ExcludesPlaceholder(t *testing.T) {
	tr := NewTranscript()
	idx, _ := tr.AppendUserTurn("first")
	_ = tr.FailTurn(idx, "Error retrieving answer.")
	_, _ = tr.AppendUserTurn("second")

	want := []entry{
		{RoleUser, "first", StateResolved},
		{RoleAssistant, "Error retrieving answer.", StateFailed},
		{RoleUser, "second", StateResolved},
	}
	if diff := cmp.Diff(want, entries(tr.History())); diff != "" {
		t.Errorf("History() mismatch (-want +got):\n%s", diff)
	}
}

func TestMessages_ReturnsCopy(t *testing.T) {
	tr := NewTranscript()
	idx, _ := tr.AppendUserTurn("Hi")

	snapshot := tr.Messages()
	snapshot[0].Content = "tampered"

	msg, _ := tr.At(0)
	if msg.Content != "Hi" {
		t.Errorf("transcript mutated through Messages() copy: %q", msg.Content)
	}
	if !tr.IsPending(idx) {
		t.Error("placeholder should still be pending")
	}
}

func TestTranscript_Title(t *testing.T) {
	tr := NewTranscript()
	if tr.Title() != "New conversation" {
		t.Errorf("Title() = %q, want default", tr.Title())
	}
	_, _ = tr.AppendUserTurn("How do I sleep better?")
	if tr.Title() != "How do I sleep better?" {
		t.Errorf("Title() = %q", tr.Title())
	}
}

func TestTranscript_ConcurrentReaders(t *testing.T) {
	tr := NewTranscript()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					if n := countPending(tr.Messages()); n > 1 {
						t.Errorf("observed %d pending messages", n)
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		idx, err := tr.AppendUserTurn("msg")
		if err != nil {
			t.Fatal(err)
		}
		if err := tr.ResolveTurn(idx, "ok"); err != nil {
			t.Fatal(err)
		}
	}
	close(stop)
	wg.Wait()

	if tr.Len() != 200 {
		t.Errorf("Len() = %d, want 200", tr.Len())
	}
}
