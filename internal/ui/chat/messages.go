// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/shrijat-26/HealthCare-Chatbot/internal/session"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/turn"
)

// gateResultMsg carries the outcome of SubmitIdentifier or SubmitProfile.
type gateResultMsg struct {
	status session.Status
	err    error
}

// turnResultMsg is sent when a pending turn settles.
type turnResultMsg struct {
	result turn.Result
}

// voiceDroppedMsg carries a new file from the voice drop directory.
type voiceDroppedMsg struct {
	path string
}

// voiceWatchClosedMsg is sent once the drop watcher stops.
type voiceWatchClosedMsg struct{}

// exportResultMsg carries the outcome of /export.
type exportResultMsg struct {
	path string
	err  error
}

// tickMsg refreshes notice expiry and elapsed times.
type tickMsg time.Time
