// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the kare packages.
//
// String helpers measure display width with go-runewidth so chat bubbles and
// notice lines stay aligned when messages contain CJK text or emoji.
//
// # Key Functions
//
// String Utilities:
//   - TruncateWidth: cut a string to a terminal column budget with "..."
//   - PadRight: pad to a column width
//   - StringWidth, RuneLen: display width and character count
//   - SingleLine: collapse whitespace for one-line previews
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	line := util.TruncateWidth(util.SingleLine(msg.Content), width-4)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
