// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Configuration constants for the backend API.
const (
	// DefaultBaseURL is where the backend listens in a local setup.
	DefaultBaseURL = "http://127.0.0.1:8000"

	// DefaultTimeout bounds a single request/response exchange.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize = 4 * 1024 * 1024

	// MaxVoiceSize caps audio uploads.
	MaxVoiceSize = 25 * 1024 * 1024
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Config holds configuration options for the gateway client.
type Config struct {
	// BaseURL is the backend base URL (default: http://127.0.0.1:8000)
	BaseURL string

	// Timeout for each request (default: 30s)
	Timeout time.Duration

	// RateLimit is the maximum requests per second; 0 disables pacing.
	RateLimit float64

	// Burst is the limiter burst size (default: 1 when RateLimit is set)
	Burst int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client performs the four backend operations. Each call is a single
// request/response exchange; nothing is retried.
//
// The Client is safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a client with default configuration.
func NewClient(opts ...Option) *Client {
	return NewClientWithConfig(DefaultConfig(), opts...)
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(config *Config, opts ...Option) *Client {
	cfg := DefaultConfig()
	if config != nil {
		cfg = config
	}

	// Fill in defaults for any zero values
	c := Config{
		BaseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		Burst:     cfg.Burst,
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	limit := rate.Inf
	if c.RateLimit > 0 {
		limit = rate.Limit(c.RateLimit)
		if c.Burst <= 0 {
			c.Burst = 1
		}
	}

	client := &Client{
		config:     c,
		httpClient: &http.Client{Timeout: c.Timeout},
		limiter:    rate.NewLimiter(limit, c.Burst),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// BaseURL returns the backend base URL in use.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// OPERATIONS
// =============================================================================

// CheckUserExists asks the backend whether identifier has a profile.
func (c *Client) CheckUserExists(ctx context.Context, identifier string) (*UserLookup, error) {
	var out UserLookup
	if err := c.postJSON(ctx, OpCheckUser, checkUserRequest{UserID: identifier}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateUserProfile registers a new profile. The ack does not reliably
// include the created profile; callers rebuild it from their own input.
func (c *Client) CreateUserProfile(ctx context.Context, identifier, name, age string) (*ProfileAck, error) {
	var out ProfileAck
	req := createProfileRequest{UserID: identifier, Name: name, Age: age}
	if err := c.postJSON(ctx, OpCreateProfile, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendText sends the transcript and returns the backend's answer.
// identifier may be empty, in which case user_id is omitted.
func (c *Client) SendText(ctx context.Context, messages []Message, identifier string) (*Answer, error) {
	if messages == nil {
		messages = []Message{}
	}
	var out Answer
	if err := c.postJSON(ctx, OpText, textRequest{Messages: messages, UserID: identifier}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendVoice uploads an audio payload as multipart/form-data.
// identifier may be empty, in which case the user_id field is omitted.
func (c *Client) SendVoice(ctx context.Context, voice VoiceUpload, identifier string) (*Answer, error) {
	if len(voice.Data) == 0 {
		return nil, &Error{Op: OpVoice, Kind: KindRequest, Message: "audio payload is empty"}
	}
	if len(voice.Data) > MaxVoiceSize {
		return nil, &Error{Op: OpVoice, Kind: KindRequest, Message: fmt.Sprintf("audio payload exceeds %d bytes", MaxVoiceSize)}
	}

	filename := voice.Filename
	if filename == "" {
		filename = "voice.webm"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, &Error{Op: OpVoice, Kind: KindRequest, Message: "failed to build upload", Cause: err}
	}
	if _, err := part.Write(voice.Data); err != nil {
		return nil, &Error{Op: OpVoice, Kind: KindRequest, Message: "failed to build upload", Cause: err}
	}
	if identifier != "" {
		if err := mw.WriteField("user_id", identifier); err != nil {
			return nil, &Error{Op: OpVoice, Kind: KindRequest, Message: "failed to build upload", Cause: err}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, &Error{Op: OpVoice, Kind: KindRequest, Message: "failed to build upload", Cause: err}
	}

	var out Answer
	if err := c.do(ctx, OpVoice, mw.FormDataContentType(), &body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VoiceFromFile loads an audio file into a VoiceUpload.
func VoiceFromFile(path string) (VoiceUpload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return VoiceUpload{}, fmt.Errorf("voice file: %w", err)
	}
	if info.IsDir() {
		return VoiceUpload{}, fmt.Errorf("voice file: %s is a directory", path)
	}
	if info.Size() > MaxVoiceSize {
		return VoiceUpload{}, fmt.Errorf("voice file: %s exceeds %d bytes", path, MaxVoiceSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return VoiceUpload{}, fmt.Errorf("voice file: %w", err)
	}
	return VoiceUpload{Filename: filepath.Base(path), Data: data}, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// postJSON marshals in, posts it to the operation's endpoint and decodes out.
func (c *Client) postJSON(ctx context.Context, op Op, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &Error{Op: op, Kind: KindRequest, Message: "failed to marshal request", Cause: err}
	}
	return c.do(ctx, op, "application/json", bytes.NewReader(body), out)
}

// do performs one exchange. Every failure comes back as *Error.
func (c *Client) do(ctx context.Context, op Op, contentType string, body io.Reader, out any) error {
	start := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		// Wait fails early when the deadline cannot fit another request.
		kind := errorKind(ctx, err)
		if kind == KindTransport {
			kind = KindTimeout
		}
		return &Error{Op: op, Kind: kind, Message: op.failureMessage(), Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+op.Path(), body)
	if err != nil {
		return &Error{Op: op, Kind: KindRequest, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := errorKind(ctx, err)
		c.logger.Debug("gateway request failed",
			zap.String("op", string(op)),
			zap.String("kind", kind.String()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return &Error{Op: op, Kind: kind, Message: op.failureMessage(), Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		kind := errorKind(ctx, err)
		return &Error{Op: op, Kind: kind, Message: op.failureMessage(), Cause: err}
	}

	c.logger.Debug("gateway request",
		zap.String("op", string(op)),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Op:      op,
			Kind:    KindStatus,
			Status:  resp.StatusCode,
			Message: op.failureMessage(),
			Detail:  serverDetail(data),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Op: op, Kind: KindDecode, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// serverDetail extracts the backend's error text from a non-2xx body.
func serverDetail(body []byte) string {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return ""
	}
	if apiErr.Error != "" {
		return apiErr.Error
	}
	return apiErr.Answer
}

// errorKind classifies a failed exchange. Cancellation is checked first so
// a user abort is never reported as a timeout.
func errorKind(ctx context.Context, err error) ErrorKind {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindTransport
}
