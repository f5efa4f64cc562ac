// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a kare chat transcript to disk.
//
// A Document is a snapshot of the settled messages in a transcript. Pending
// placeholders are never exported. Two formats are supported and chosen by
// file extension:
//
//   - Markdown (.md, the default): readable, one heading per message
//   - JSON (.json): the Document as-is, message states included
//
// # Usage
//
//	doc := export.FromTranscript(orch.Transcript(), gate.Identifier())
//	path, err := export.ToFile(doc, "", export.DefaultOptions())
package export
