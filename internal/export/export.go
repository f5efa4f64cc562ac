// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shrijat-26/HealthCare-Chatbot/internal/model"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/util"
)

// ErrEmpty is returned when there is nothing settled to export.
var ErrEmpty = errors.New("export: transcript has no settled messages")

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is the exportable snapshot of a transcript.
type Document struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	User       string          `json:"user,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ExportedAt time.Time       `json:"exported_at"`
	Messages   []model.Message `json:"messages"`
}

// FromTranscript snapshots t, dropping any pending placeholder.
func FromTranscript(t *model.Transcript, user string) *Document {
	all := t.Messages()
	msgs := make([]model.Message, 0, len(all))
	for _, m := range all {
		if m.IsPending() {
			continue
		}
		msgs = append(msgs, m)
	}
	return &Document{
		ID:         t.ID(),
		Title:      t.Title(),
		User:       user,
		CreatedAt:  t.CreatedAt(),
		ExportedAt: time.Now(),
		Messages:   msgs,
	}
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a Document in one format.
type Exporter interface {
	Export(doc *Document) ([]byte, error)

	// FileExtension returns the extension including the dot.
	FileExtension() string

	MimeType() string
}

// Options configures export behavior.
type Options struct {
	// OutputDir receives generated filenames when no path is given.
	// Default: current working directory
	OutputDir string

	// IncludeMetadata adds a front matter block and session section.
	IncludeMetadata bool

	// IncludeTimestamps adds a time to each message heading.
	IncludeTimestamps bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// ForPath returns the exporter matching path's extension. Anything other
// than .json is Markdown.
func ForPath(path string, opts *Options) Exporter {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return NewJSONExporter()
	}
	return NewMarkdownExporter(opts)
}

// ToFile writes doc to path and returns the path written. An empty path
// generates a name in opts.OutputDir. A path without an extension gets ".md".
func ToFile(doc *Document, path string, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if doc == nil || len(doc.Messages) == 0 {
		return "", ErrEmpty
	}

	if strings.TrimSpace(path) == "" {
		path = filepath.Join(opts.OutputDir, DefaultFilename(doc, ".md"))
	} else if filepath.Ext(path) == "" {
		path += ".md"
	}

	exporter := ForPath(path, opts)
	content, err := exporter.Export(doc)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	if err := util.AtomicWriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// DefaultFilename builds "kare_<title>_<timestamp><ext>".
func DefaultFilename(doc *Document, ext string) string {
	at := doc.ExportedAt
	if at.IsZero() {
		at = time.Now()
	}
	return fmt.Sprintf("kare_%s_%s%s", sanitizeFilename(doc.Title), at.Format("20060102_150405"), ext)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename maps characters that are invalid on Windows or Unix.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(strings.TrimSpace(s), 40)

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "conversation"
	}
	return b.String()
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
