// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// =============================================================================
// OPERATIONS
// =============================================================================

// Op names one of the four backend operations.
type Op string

const (
	OpCheckUser     Op = "check-user"
	OpCreateProfile Op = "create-profile"
	OpText          Op = "text"
	OpVoice         Op = "voice"
)

// Path returns the endpoint path for the operation.
func (o Op) Path() string {
	return "/" + string(o)
}

// failureMessage is the user-facing summary for a failed operation.
func (o Op) failureMessage() string {
	switch o {
	case OpCheckUser:
		return "Failed to check user existence"
	case OpCreateProfile:
		return "Failed to create user profile"
	case OpText, OpVoice:
		return "Failed to fetch answer from backend"
	default:
		return "Backend request failed"
	}
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message is a transcript entry in the wire format of /text.
type Message struct {
	Role    string `json:"role"`    // "user" or "assistant"
	Content string `json:"content"` // message text
}

// checkUserRequest is the request body for /check-user.
type checkUserRequest struct {
	UserID string `json:"user_id"`
}

// createProfileRequest is the request body for /create-profile.
type createProfileRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Age    string `json:"age"`
}

// textRequest is the request body for /text.
type textRequest struct {
	Messages []Message `json:"messages"`
	UserID   string    `json:"user_id,omitempty"`
}

// VoiceUpload is an audio payload for /voice.
type VoiceUpload struct {
	Filename string
	Data     []byte
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// Profile is the user profile as returned by the backend.
type Profile struct {
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name"`
	Age    string `json:"age"`
}

// UnmarshalJSON accepts age as either a JSON string or a number.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw struct {
		UserID string          `json:"user_id"`
		Name   string          `json:"name"`
		Age    json.RawMessage `json:"age"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.UserID = raw.UserID
	p.Name = raw.Name
	p.Age = ""

	age := bytes.TrimSpace(raw.Age)
	if len(age) == 0 || bytes.Equal(age, []byte("null")) {
		return nil
	}
	if age[0] == '"' {
		return json.Unmarshal(age, &p.Age)
	}
	var n json.Number
	if err := json.Unmarshal(age, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		p.Age = strconv.FormatInt(i, 10)
		return nil
	}
	p.Age = n.String()
	return nil
}

// UserLookup is the response from /check-user.
type UserLookup struct {
	Exists  bool     `json:"exists"`
	Profile *Profile `json:"profile,omitempty"`
}

// ProfileAck is the acknowledgement from /create-profile.
// The backend may omit any of the fields; callers must not rely on Profile.
type ProfileAck struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Profile *Profile `json:"profile,omitempty"`
}

// Answer is the response from /text and /voice.
type Answer struct {
	Answer     string `json:"answer"`
	Transcript string `json:"transcript,omitempty"` // voice only
}

// apiError is the error body shape used by the backend.
type apiError struct {
	Error  string `json:"error"`
	Answer string `json:"answer"`
}
