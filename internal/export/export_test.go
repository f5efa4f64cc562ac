// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrijat-26/HealthCare-Chatbot/internal/model"
)

// sampleTranscript has one resolved, one voice, one failed and one pending turn.
func sampleTranscript(t *testing.T) *model.Transcript {
	t.Helper()
	tr := model.NewTranscript()

	i, err := tr.AppendUserTurn("What helps with a headache?")
	require.NoError(t, err)
	require.NoError(t, tr.ResolveTurn(i, "Rest and *water*."))

	i, err = tr.AppendUserTurn(model.VoiceLabel)
	require.NoError(t, err)
	require.NoError(t, tr.ResolveVoiceTurn(i, "Audio received", "my knee hurts"))

	i, err = tr.AppendUserTurn("and now?")
	require.NoError(t, err)
	require.NoError(t, tr.FailTurn(i, "Error retrieving answer."))

	_, err = tr.AppendUserTurn("still waiting")
	require.NoError(t, err)
	return tr
}

func TestFromTranscript_SkipsPending(t *testing.T) {
	tr := sampleTranscript(t)
	doc := FromTranscript(tr, "alice")

	assert.Equal(t, tr.ID(), doc.ID)
	assert.Equal(t, "What helps with a headache?", doc.Title)
	assert.Equal(t, "alice", doc.User)
	require.Len(t, doc.Messages, 7, "8 messages minus the placeholder")
	for _, m := range doc.Messages {
		assert.False(t, m.IsPending())
	}
	assert.Equal(t, "still waiting", doc.Messages[6].Content)
}

func TestMarkdownExport(t *testing.T) {
	doc := FromTranscript(sampleTranscript(t), "alice")

	out, err := NewMarkdownExporter(nil).Export(doc)
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: What helps with a headache?\nuser: alice\n"))
	assert.Contains(t, md, "generator: kare\n")
	assert.Contains(t, md, "### You <sub>")
	assert.Contains(t, md, "### Kare <sub>")
	assert.Contains(t, md, "Rest and *water*.")
	assert.Contains(t, md, "> Transcript: my knee hurts")
	assert.Contains(t, md, "- **Failed turns**: 1")
	assert.Equal(t, 1, strings.Count(md, "<sub>Request failed</sub>"))
	assert.NotContains(t, md, "### Kare\n\n\n", "no empty placeholder block")
}

func TestMarkdownExport_NoMetadata(t *testing.T) {
	doc := FromTranscript(sampleTranscript(t), "")
	opts := &Options{IncludeMetadata: false, IncludeTimestamps: false}

	out, err := NewMarkdownExporter(opts).Export(doc)
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "# What helps with a headache?\n"))
	assert.NotContains(t, md, "generator:")
	assert.NotRegexp(t, `<sub>\d`, md)
	assert.Contains(t, md, "### You\n\n")
}

func TestMarkdownExport_Empty(t *testing.T) {
	doc := FromTranscript(model.NewTranscript(), "")
	_, err := NewMarkdownExporter(nil).Export(doc)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = NewMarkdownExporter(nil).Export(nil)
	assert.Error(t, err)
}

func TestJSONExport(t *testing.T) {
	doc := FromTranscript(sampleTranscript(t), "alice")

	out, err := NewJSONExporter().Export(doc)
	require.NoError(t, err)

	var decoded struct {
		Title    string `json:"title"`
		Messages []struct {
			Role       string `json:"role"`
			State      string `json:"state"`
			Transcript string `json:"transcript"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, doc.Title, decoded.Title)
	require.Len(t, decoded.Messages, 7)
	assert.Equal(t, "my knee hurts", decoded.Messages[3].Transcript)
	assert.Equal(t, "failed", decoded.Messages[5].State)
	assert.Equal(t, "assistant", decoded.Messages[5].Role)
}

func TestForPath(t *testing.T) {
	assert.IsType(t, &JSONExporter{}, ForPath("out.JSON", nil))
	assert.IsType(t, &MarkdownExporter{}, ForPath("out.md", nil))
	assert.IsType(t, &MarkdownExporter{}, ForPath("out.txt", nil))
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	doc := FromTranscript(sampleTranscript(t), "alice")

	t.Run("generated name", func(t *testing.T) {
		path, err := ToFile(doc, "", &Options{OutputDir: dir, IncludeMetadata: true})
		require.NoError(t, err)
		assert.Equal(t, dir, filepath.Dir(path))
		assert.True(t, strings.HasPrefix(filepath.Base(path), "kare_What_helps_with_a_headache-_"))
		assert.Equal(t, ".md", filepath.Ext(path))
	})

	t.Run("json by extension", func(t *testing.T) {
		path, err := ToFile(doc, filepath.Join(dir, "nested", "chat.json"), nil)
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, json.Valid(data))
	})

	t.Run("extension added", func(t *testing.T) {
		path, err := ToFile(doc, filepath.Join(dir, "notes"), nil)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "notes.md"), path)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ToFile(FromTranscript(model.NewTranscript(), ""), filepath.Join(dir, "x.md"), nil)
		assert.True(t, errors.Is(err, ErrEmpty))
	})
}

func TestSanitizeFilename(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello_world"},
		{`a/b\c:d*e?f"g<h>i|j`, "a-b-c-d-e-f-g-h-i-j"},
		{"line\nbreak", "line_break"},
		{"bell\x07", "bell-"},
		{"   ", "conversation"},
	}
	for _, tc := range testCases {
		if got := sanitizeFilename(tc.input); got != tc.expected {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestEscapeYAML(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"plain", "plain"},
		{"a: b", `"a: b"`},
		{"two\nlines", `"two\nlines"`},
		{`C:\path`, `"C:\\path"`},
		{`say "hi"`, `"say \"hi\""`},
	}
	for _, tc := range testCases {
		if got := escapeYAML(tc.input); got != tc.expected {
			t.Errorf("escapeYAML(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestEscapeMarkdown(t *testing.T) {
	if got := escapeMarkdown("#1 *bold* [x]_y"); got != `\#1 \*bold\* \[x\]\_y` {
		t.Errorf("escapeMarkdown = %q", got)
	}
}
