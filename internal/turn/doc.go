// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package turn drives one chat request/response cycle against the backend.
//
// A turn is split in two so a UI can render the placeholder before the
// network call starts:
//
//	p, err := orch.BeginText("Hello")   // gate check + append, synchronous
//	res := p.Await(ctx)                 // gateway call + resolution
//
// SubmitText and SubmitVoice combine both steps. Await always leaves the
// placeholder in a terminal state, whatever the gateway does.
package turn
