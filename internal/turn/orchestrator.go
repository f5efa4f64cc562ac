// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/shrijat-26/HealthCare-Chatbot/internal/gateway"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/model"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/notice"
)

const (
	// DefaultErrorText replaces the placeholder when a turn fails.
	DefaultErrorText = "Error retrieving answer."

	// DefaultTimeout bounds a whole turn, including the gateway call.
	DefaultTimeout = 60 * time.Second
)

// Submission errors. These are the only errors Begin and Submit return;
// gateway failures are reported in Result.Err.
var (
	ErrSessionNotReady = errors.New("turn: session is not ready")
	ErrTurnInProgress  = errors.New("turn: another turn is in progress")
	ErrEmptyMessage    = errors.New("turn: message is empty")
	ErrAlreadySettled  = errors.New("turn: already settled")
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// SessionState is the view of the session gate the orchestrator needs.
type SessionState interface {
	Ready() bool
	Identifier() string
}

// Gateway is the subset of the backend client used for turns.
type Gateway interface {
	SendText(ctx context.Context, messages []gateway.Message, identifier string) (*gateway.Answer, error)
	SendVoice(ctx context.Context, voice gateway.VoiceUpload, identifier string) (*gateway.Answer, error)
}

// Config holds orchestrator settings.
type Config struct {
	// Timeout per turn (default: 60s)
	Timeout time.Duration

	// ErrorText written into a failed turn (default: "Error retrieving answer.")
	ErrorText string
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:   DefaultTimeout,
		ErrorText: DefaultErrorText,
	}
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithConfig overrides timeout and error text; zero fields keep defaults.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		if cfg.Timeout > 0 {
			o.cfg.Timeout = cfg.Timeout
		}
		if cfg.ErrorText != "" {
			o.cfg.ErrorText = cfg.ErrorText
		}
	}
}

// WithNotifier routes failure notices to n.
func WithNotifier(n notice.Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithLogger sets the orchestrator's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator runs turns one at a time. A submission while a turn is in
// flight is rejected with ErrTurnInProgress; nothing is queued.
type Orchestrator struct {
	transcript *model.Transcript
	session    SessionState
	gw         Gateway
	notifier   notice.Notifier
	logger     *zap.Logger
	cfg        Config

	inFlight atomic.Bool
}

// New creates an orchestrator writing into transcript.
func New(transcript *model.Transcript, session SessionState, gw Gateway, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		transcript: transcript,
		session:    session,
		gw:         gw,
		notifier:   notice.Discard,
		logger:     zap.NewNop(),
		cfg:        DefaultConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Transcript returns the transcript the orchestrator writes into.
func (o *Orchestrator) Transcript() *model.Transcript {
	return o.transcript
}

// Busy reports whether a turn is in flight.
func (o *Orchestrator) Busy() bool {
	return o.inFlight.Load()
}

// Result is the outcome of a settled turn.
type Result struct {
	// Index of the assistant message this turn resolved.
	Index int

	// Answer and Transcript are set on success.
	Answer     string
	Transcript string

	// Err is the gateway failure, if any. The placeholder has already been
	// resolved to error text when Err is set.
	Err error
}

// Failed reports whether the turn ended in error text.
func (r Result) Failed() bool {
	return r.Err != nil
}

// SubmitText runs a text turn to completion.
func (o *Orchestrator) SubmitText(ctx context.Context, content string) (Result, error) {
	p, err := o.BeginText(content)
	if err != nil {
		return Result{Index: -1}, err
	}
	return p.Await(ctx), nil
}

// SubmitVoice runs a voice turn to completion.
func (o *Orchestrator) SubmitVoice(ctx context.Context, voice gateway.VoiceUpload) (Result, error) {
	p, err := o.BeginVoice(voice)
	if err != nil {
		return Result{Index: -1}, err
	}
	return p.Await(ctx), nil
}

// BeginText appends the user message and placeholder for a text turn and
// returns the pending turn. The caller must call Await exactly once.
func (o *Orchestrator) BeginText(content string) (*Pending, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	return o.begin(content, kindText, func(ctx context.Context, history []gateway.Message, id string) (*gateway.Answer, error) {
		return o.gw.SendText(ctx, history, id)
	})
}

// BeginVoice appends the voice label and placeholder for a voice turn.
// The caller must call Await exactly once.
func (o *Orchestrator) BeginVoice(voice gateway.VoiceUpload) (*Pending, error) {
	if len(voice.Data) == 0 {
		return nil, ErrEmptyMessage
	}
	return o.begin(model.VoiceLabel, kindVoice, func(ctx context.Context, _ []gateway.Message, id string) (*gateway.Answer, error) {
		return o.gw.SendVoice(ctx, voice, id)
	})
}

type turnKind string

const (
	kindText  turnKind = "text"
	kindVoice turnKind = "voice"
)

type callFunc func(ctx context.Context, history []gateway.Message, identifier string) (*gateway.Answer, error)

func (o *Orchestrator) begin(label string, kind turnKind, call callFunc) (*Pending, error) {
	if !o.session.Ready() {
		return nil, ErrSessionNotReady
	}
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, ErrTurnInProgress
	}

	index, err := o.transcript.AppendUserTurn(label)
	if err != nil {
		o.inFlight.Store(false)
		if errors.Is(err, model.ErrTurnPending) {
			return nil, ErrTurnInProgress
		}
		return nil, err
	}

	return &Pending{
		o:          o,
		index:      index,
		kind:       kind,
		call:       call,
		history:    toWire(o.transcript.History()),
		identifier: o.session.Identifier(),
		started:    time.Now(),
	}, nil
}

// =============================================================================
// PENDING TURN
// =============================================================================

// Pending is a turn whose placeholder is in the transcript and whose
// gateway call has not settled.
type Pending struct {
	o          *Orchestrator
	index      int
	kind       turnKind
	call       callFunc
	history    []gateway.Message
	identifier string
	started    time.Time
	settled    atomic.Bool
}

// Index returns the placeholder index this turn will resolve.
func (p *Pending) Index() int {
	return p.index
}

// Await performs the gateway call and resolves the placeholder. The
// placeholder is always terminal when Await returns, including when ctx
// expires or the gateway panics.
func (p *Pending) Await(ctx context.Context) (res Result) {
	if !p.settled.CompareAndSwap(false, true) {
		return Result{Index: p.index, Err: ErrAlreadySettled}
	}

	o := p.o
	res.Index = p.index
	resolved := false

	defer o.inFlight.Store(false)
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("turn: gateway panic: %v", r)
			o.logger.Error("turn panicked", zap.Int("index", p.index), zap.Any("panic", r))
		}
		if !resolved {
			if res.Err == nil {
				res.Err = errors.New("turn: not resolved")
			}
			p.fail(res.Err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	answer, err := p.call(ctx, p.history, p.identifier)
	if err == nil && answer == nil {
		err = errors.New("turn: empty response")
	}
	if err != nil {
		res.Err = err
		p.fail(err)
		resolved = true
		return res
	}

	if p.kind == kindVoice {
		err = o.transcript.ResolveVoiceTurn(p.index, answer.Answer, answer.Transcript)
	} else {
		err = o.transcript.ResolveTurn(p.index, answer.Answer)
	}
	if err != nil {
		// Only reachable if the transcript was settled outside the orchestrator.
		o.logger.Error("resolve turn", zap.Int("index", p.index), zap.Error(err))
		res.Err = err
		resolved = true
		return res
	}
	resolved = true

	res.Answer = answer.Answer
	res.Transcript = answer.Transcript
	o.logger.Debug("turn resolved",
		zap.String("kind", string(p.kind)),
		zap.Int("index", p.index),
		zap.Int("answer_len", len(answer.Answer)),
		zap.Duration("elapsed", time.Since(p.started)))
	return res
}

// fail writes the error text into the placeholder and raises a notice.
func (p *Pending) fail(err error) {
	o := p.o
	if ferr := o.transcript.FailTurn(p.index, o.cfg.ErrorText); ferr != nil {
		o.logger.Error("fail turn", zap.Int("index", p.index), zap.Error(ferr))
	}
	o.notifier.Notify(notice.Error(noticeText(err)))
	o.logger.Warn("turn failed",
		zap.String("kind", string(p.kind)),
		zap.Int("index", p.index),
		zap.String("error_kind", gateway.KindOf(err).String()),
		zap.Duration("elapsed", time.Since(p.started)),
		zap.Error(err))
}

// noticeText is the user-facing summary of a turn failure.
func noticeText(err error) string {
	if gateway.IsCanceled(err) || errors.Is(err, context.Canceled) {
		return "The request was cancelled."
	}
	if gateway.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return "The request timed out. Please try again."
	}
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) && gwErr.Message != "" {
		return gwErr.Message
	}
	return "Failed to fetch answer from backend"
}

func toWire(msgs []model.Message) []gateway.Message {
	out := make([]gateway.Message, len(msgs))
	for i, m := range msgs {
		out[i] = gateway.Message{Role: m.Role.String(), Content: m.Content}
	}
	return out
}
