// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shrijat-26/HealthCare-Chatbot/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export renders doc as Markdown.
func (e *MarkdownExporter) Export(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("document is nil")
	}
	if len(doc.Messages) == 0 {
		return nil, ErrEmpty
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(doc.Title))
		if doc.User != "" {
			fmt.Fprintf(&sb, "user: %s\n", escapeYAML(doc.User))
		}
		fmt.Fprintf(&sb, "date: %s\n", doc.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(&sb, "messages: %d\n", len(doc.Messages))
		fmt.Fprintf(&sb, "exported: %s\n", doc.ExportedAt.Format(time.RFC3339))
		sb.WriteString("generator: kare\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(doc.Title))

	if e.options.IncludeMetadata {
		sb.WriteString("## Session Information\n\n")
		if doc.User != "" {
			fmt.Fprintf(&sb, "- **User**: %s\n", escapeMarkdown(doc.User))
		}
		fmt.Fprintf(&sb, "- **Started**: %s\n", formatTimestamp(doc.CreatedAt))
		fmt.Fprintf(&sb, "- **Messages**: %d\n", len(doc.Messages))
		if failed := countFailed(doc.Messages); failed > 0 {
			fmt.Fprintf(&sb, "- **Failed turns**: %d\n", failed)
		}
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("## Conversation\n\n")

	for i, msg := range doc.Messages {
		label := msg.Role.DisplayName()
		if e.options.IncludeTimestamps {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.CreatedAt))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}

		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if msg.Transcript != "" {
			fmt.Fprintf(&sb, "> Transcript: %s\n\n", strings.TrimSpace(msg.Transcript))
		}
		if msg.IsFailed() {
			sb.WriteString("<sub>Request failed</sub>\n\n")
		}

		if i < len(doc.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	if e.options.IncludeMetadata {
		sb.WriteString("\n---\n\n")
		fmt.Fprintf(&sb, "*Exported from kare on %s*\n", doc.ExportedAt.Format("January 2, 2006 at 3:04 PM"))
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

func countFailed(msgs []model.Message) int {
	n := 0
	for _, m := range msgs {
		if m.IsFailed() {
			n++
		}
	}
	return n
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break a heading or list item.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(`#`, `\#`, `*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}

// escapeYAML quotes a front matter value when it contains YAML syntax.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return "\"" + s + "\""
	}
	return s
}
