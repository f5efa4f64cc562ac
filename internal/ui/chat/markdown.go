// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer renders assistant answers with glamour, caching output
// per message since settled messages never change.
type markdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
	cache    map[string]string
}

func newMarkdownRenderer(style string) *markdownRenderer {
	return &markdownRenderer{style: style, cache: make(map[string]string)}
}

// reset drops the renderer and cache after a resize.
func (r *markdownRenderer) reset() {
	r.renderer = nil
	r.cache = make(map[string]string)
}

// render returns the rendered markdown, or content unchanged if glamour
// fails.
func (r *markdownRenderer) render(id, content string, width int) string {
	if out, ok := r.cache[id]; ok && r.width == width {
		return out
	}
	if r.renderer == nil || r.width != width {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		r.renderer = tr
		r.width = width
		r.cache = make(map[string]string)
	}
	out, err := r.renderer.Render(content)
	if err != nil {
		return content
	}
	out = strings.Trim(out, "\n")
	r.cache[id] = out
	return out
}
