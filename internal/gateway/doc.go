// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway provides the HTTP client for the chat backend.
//
// The backend exposes four operations, each a single POST exchange with
// no retry:
//
//   - /check-user      {user_id}                  -> {exists, profile?}
//   - /create-profile  {user_id, name, age}        -> ack
//   - /text            {messages, user_id?}       -> {answer}
//   - /voice           multipart file + user_id?  -> {answer, transcript?}
//
// # Key Types
//
//   - Client: typed request functions with optional client-side pacing
//   - Error: the one failure type, classified by ErrorKind
//   - Message: transcript entry in wire format
//   - VoiceUpload: audio payload for /voice
//
// # Usage
//
//	client := gateway.NewClientWithConfig(&gateway.Config{BaseURL: url})
//	lookup, err := client.CheckUserExists(ctx, "u1")
//	if err != nil {
//	    var gwErr *gateway.Error
//	    errors.As(err, &gwErr) // always succeeds for gateway failures
//	}
//
// Any non-2xx status is a failure; callers must not assume partial data.
package gateway
