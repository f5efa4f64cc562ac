// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the onboarding gate that guards chat access.
//
// A session starts Anonymous. Submitting an identifier either finds an
// existing profile (Ready) or asks for one (ProfilePending). Creating the
// profile makes the session Ready. Ready is terminal.
//
// # Key Types
//
//   - Gate: the state machine, safe for concurrent use
//   - Status: Anonymous, ProfilePending, Ready
//   - ValidationError: empty required field, rejected without a network call
//
// # Usage
//
//	gate := session.NewGate(client, session.WithNotifier(board))
//	status, err := gate.SubmitIdentifier(ctx, "u1")
//	if status == session.StatusProfilePending {
//	    status, err = gate.SubmitProfile(ctx, "Alice", "30")
//	}
package session
