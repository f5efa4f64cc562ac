// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the conversation store: messages and the transcript.
//
// # Key Types
//
//   - Message: single entry with role, content and a lifecycle State
//   - State: Resolved, Pending or Failed
//   - Transcript: append-only ordered sequence with at most one pending turn
//
// # Usage
//
//	t := model.NewTranscript()
//	idx, err := t.AppendUserTurn("Hello")
//	// ... call the backend with t.History() ...
//	t.ResolveTurn(idx, answer) // or t.FailTurn(idx, "Error retrieving answer.")
//
// Resolving an index twice, or one that was never a placeholder, returns
// ErrNotPending instead of silently overwriting content.
package model
