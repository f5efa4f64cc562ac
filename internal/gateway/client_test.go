// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// =============================================================================
// CONSTRUCTION TESTS
// =============================================================================

func TestNewClient(t *testing.T) {
	client := NewClient()
	if client.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() = %q, want %q", client.BaseURL(), DefaultBaseURL)
	}
}

func TestNewClientWithConfig_Defaults(t *testing.T) {
	client := NewClientWithConfig(&Config{BaseURL: "http://example.test:9000/"})
	if client.BaseURL() != "http://example.test:9000" {
		t.Errorf("BaseURL() = %q, want trailing slash trimmed", client.BaseURL())
	}
	if client.config.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", client.config.Timeout, DefaultTimeout)
	}

	client = NewClientWithConfig(nil)
	if client.BaseURL() != DefaultBaseURL {
		t.Errorf("nil config BaseURL() = %q, want %q", client.BaseURL(), DefaultBaseURL)
	}

	client = NewClientWithConfig(&Config{RateLimit: 5})
	if client.config.Burst != 1 {
		t.Errorf("Burst = %d, want 1 when RateLimit is set", client.config.Burst)
	}
}

// =============================================================================
// OPERATION TESTS
// =============================================================================

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithConfig(&Config{BaseURL: srv.URL, Timeout: 5 * time.Second},
		WithLogger(zaptest.NewLogger(t)))
}

func TestCheckUserExists(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/check-user", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "u1", req["user_id"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"exists": true, "profile": {"user_id": "u1", "name": "Ada", "age": 36}}`)
	})

	lookup, err := client.CheckUserExists(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, lookup.Exists)
	require.NotNil(t, lookup.Profile)
	assert.Equal(t, "Ada", lookup.Profile.Name)
	assert.Equal(t, "36", lookup.Profile.Age)
}

func TestCheckUserExists_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"exists": false}`)
	})

	lookup, err := client.CheckUserExists(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, lookup.Exists)
	assert.Nil(t, lookup.Profile)
}

func TestCreateUserProfile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/create-profile", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, map[string]string{"user_id": "u2", "name": "Bo", "age": "30"}, req)

		io.WriteString(w, `{"success": true, "message": "Profile created"}`)
	})

	ack, err := client.CreateUserProfile(context.Background(), "u2", "Bo", "30")
	require.NoError(t, err)
	assert.True(t, ack.Success)
	assert.Nil(t, ack.Profile)
}

func TestSendText_OmitsEmptyUserID(t *testing.T) {
	var body map[string]json.RawMessage
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		io.WriteString(w, `{"answer": "hello"}`)
	})

	answer, err := client.SendText(context.Background(), []Message{{Role: "user", Content: "hi"}}, "")
	require.NoError(t, err)
	assert.Equal(t, "hello", answer.Answer)

	_, hasUserID := body["user_id"]
	assert.False(t, hasUserID, "user_id should be omitted when empty")
	assert.JSONEq(t, `[{"role":"user","content":"hi"}]`, string(body["messages"]))
}

func TestSendText_WithUserID(t *testing.T) {
	var body struct {
		Messages []Message `json:"messages"`
		UserID   string    `json:"user_id"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		io.WriteString(w, `{"answer": "ok"}`)
	})

	history := []Message{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
	}
	_, err := client.SendText(context.Background(), history, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", body.UserID)
	assert.Equal(t, history, body.Messages)
}

func TestSendVoice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/voice", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)

		assert.Equal(t, "clip.wav", header.Filename)
		assert.Equal(t, []byte("RIFF"), data)
		assert.Equal(t, "u9", r.FormValue("user_id"))

		io.WriteString(w, `{"answer": "heard you", "transcript": "hello there"}`)
	})

	answer, err := client.SendVoice(context.Background(), VoiceUpload{Filename: "clip.wav", Data: []byte("RIFF")}, "u9")
	require.NoError(t, err)
	assert.Equal(t, "heard you", answer.Answer)
	assert.Equal(t, "hello there", answer.Transcript)
}

func TestSendVoice_OmitsEmptyUserID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, present := r.MultipartForm.Value["user_id"]
		assert.False(t, present)
		io.WriteString(w, `{"answer": "ok"}`)
	})

	_, err := client.SendVoice(context.Background(), VoiceUpload{Data: []byte{1, 2, 3}}, "")
	require.NoError(t, err)
}

func TestSendVoice_EmptyPayload(t *testing.T) {
	client := NewClient()
	_, err := client.SendVoice(context.Background(), VoiceUpload{}, "u1")
	require.Error(t, err)
	assert.Equal(t, KindRequest, KindOf(err))
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestNon2xxIsFailure(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"bad request", http.StatusBadRequest, `{"error": "user_id is required"}`, "user_id is required"},
		{"conflict", http.StatusConflict, `{"error": "User already exists"}`, "User already exists"},
		{"server error plain", http.StatusInternalServerError, `boom`, ""},
		{"answer body", http.StatusBadRequest, `{"answer": "No message received"}`, "No message received"},
		{"redirect", http.StatusMultipleChoices, `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			lookup, err := client.CheckUserExists(context.Background(), "u1")
			require.Error(t, err)
			assert.Nil(t, lookup)

			var gwErr *Error
			require.True(t, errors.As(err, &gwErr))
			assert.Equal(t, KindStatus, gwErr.Kind)
			assert.Equal(t, tt.status, gwErr.Status)
			assert.Equal(t, tt.wantDetail, gwErr.Detail)
			assert.Equal(t, "Failed to check user existence", gwErr.Message)
			assert.Equal(t, tt.status, StatusCode(err))
		})
	}
}

func TestDecodeError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `not json`)
	})

	_, err := client.SendText(context.Background(), nil, "")
	require.Error(t, err)
	assert.Equal(t, KindDecode, KindOf(err))
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClientWithConfig(&Config{BaseURL: url, Timeout: time.Second})
	_, err := client.SendText(context.Background(), nil, "")
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Equal(t, "Failed to fetch answer from backend", err.(*Error).Message)
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.SendText(ctx, []Message{{Role: "user", Content: "slow"}}, "")
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "want timeout, got %v", err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestCanceledIsNotTimeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := client.SendText(ctx, []Message{{Role: "user", Content: "slow"}}, "")
	require.Error(t, err)
	assert.Equal(t, KindCanceled, KindOf(err))
	assert.True(t, IsCanceled(err))
	assert.False(t, IsTimeout(err))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestErrorString(t *testing.T) {
	err := &Error{Op: OpText, Kind: KindStatus, Status: 500, Message: "Failed to fetch answer from backend", Detail: "boom"}
	want := "Failed to fetch answer from backend (HTTP 500): boom"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	cause := errors.New("dial refused")
	err = &Error{Op: OpText, Kind: KindTransport, Message: "Failed to fetch answer from backend", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
}

func TestKindString(t *testing.T) {
	kinds := map[ErrorKind]string{
		KindUnknown:   "unknown",
		KindRequest:   "request",
		KindTransport: "transport",
		KindTimeout:   "timeout",
		KindStatus:    "status",
		KindDecode:    "decode",
		KindCanceled:  "canceled",
	}
	for k, want := range kinds {
		if k.String() != want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", k, k.String(), want)
		}
	}
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestProfileAgeFormats(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"name": "A", "age": "42"}`, "42"},
		{`{"name": "A", "age": 42}`, "42"},
		{`{"name": "A", "age": 4.5}`, "4.5"},
		{`{"name": "A", "age": null}`, ""},
		{`{"name": "A"}`, ""},
	}
	for _, tt := range tests {
		var p Profile
		require.NoError(t, json.Unmarshal([]byte(tt.in), &p), tt.in)
		assert.Equal(t, tt.want, p.Age, tt.in)
	}
}

func TestVoiceFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.ogg")
	require.NoError(t, os.WriteFile(path, []byte("OggS"), 0o600))

	voice, err := VoiceFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "note.ogg", voice.Filename)
	assert.Equal(t, []byte("OggS"), voice.Data)

	_, err = VoiceFromFile(dir)
	assert.Error(t, err)

	_, err = VoiceFromFile(filepath.Join(dir, "missing.wav"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
