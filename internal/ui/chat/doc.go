// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the Bubble Tea front-end for kare.
//
// The screen follows the session gate: an identify form while the session is
// anonymous, a name and age form while a profile is pending, and the chat view
// once the session is ready.
//
// Submitting a message calls Orchestrator.BeginText synchronously, so the user
// message and the "Thinking..." placeholder render immediately. The gateway
// call runs in a tea.Cmd wrapping Pending.Await, and its turnResultMsg
// triggers a re-render of the settled transcript.
//
// Slash commands: /voice PATH, /export [PATH], /help, /quit. A message that
// really starts with "/" can be sent as "//...".
package chat
