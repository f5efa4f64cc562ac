// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shrijat-26/HealthCare-Chatbot/internal/gateway"
	"github.com/shrijat-26/HealthCare-Chatbot/internal/notice"
)

// Gate errors.
var (
	// ErrBusy is returned while a lookup or profile creation is in flight.
	ErrBusy = errors.New("session: request already in progress")

	// ErrInvalidTransition is returned for an action the current status does not allow.
	ErrInvalidTransition = errors.New("session: invalid transition")

	// ErrEmptyLookup is returned when the backend answers a lookup with no body.
	ErrEmptyLookup = errors.New("session: empty lookup response")
)

// Notice texts shown during onboarding.
const (
	msgCheckFailed   = "Failed to check user. Please try again."
	msgFillProfile   = "Please fill in both name and age."
	msgCreateFailed  = "Failed to create profile. Please try again."
	msgWelcomeBack   = "Welcome back, %s!"
	msgProfileMade   = "Profile created for %s!"
	msgWelcomeNoName = "Welcome back!"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the onboarding state of a session.
type Status int

const (
	StatusAnonymous Status = iota
	StatusProfilePending
	StatusReady
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusProfilePending:
		return "profile_pending"
	case StatusReady:
		return "ready"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Profile is the user's profile once the session is Ready.
type Profile struct {
	Name string `json:"name"`
	Age  string `json:"age"`
}

// Gateway is the subset of the backend client the gate needs.
type Gateway interface {
	CheckUserExists(ctx context.Context, identifier string) (*gateway.UserLookup, error)
	CreateUserProfile(ctx context.Context, identifier, name, age string) (*gateway.ProfileAck, error)
}

// Snapshot is a consistent copy of the gate state for rendering.
type Snapshot struct {
	SessionID  string
	Status     Status
	Identifier string
	Candidate  string
	Profile    *Profile
	Busy       bool
}

// =============================================================================
// GATE
// =============================================================================

// Gate is the onboarding state machine:
//
//	Anonymous --SubmitIdentifier--> Ready | ProfilePending
//	ProfilePending --SubmitProfile--> Ready
//	ProfilePending --Back--> Anonymous
//
// Ready is terminal. Gateway failures keep the current status so the user
// can retry. Each submit holds a per-gate lock for the duration of its
// request; a concurrent submit or Back returns ErrBusy.
type Gate struct {
	mu sync.Mutex

	sessionID string
	startTime time.Time

	status     Status
	identifier string // set once Ready
	candidate  string // identifier being profiled
	profile    *Profile
	busy       bool

	gw       Gateway
	notifier notice.Notifier
	logger   *zap.Logger
}

// Option customizes a Gate.
type Option func(*Gate)

// WithNotifier routes onboarding notices to n.
func WithNotifier(n notice.Notifier) Option {
	return func(g *Gate) {
		if n != nil {
			g.notifier = n
		}
	}
}

// WithLogger sets the gate's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGate creates an Anonymous gate backed by gw.
func NewGate(gw Gateway, opts ...Option) *Gate {
	g := &Gate{
		sessionID: uuid.NewString(),
		startTime: time.Now(),
		status:    StatusAnonymous,
		gw:        gw,
		notifier:  notice.Discard,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(zap.String("session", g.sessionID))
	return g
}

// SubmitIdentifier looks up identifier. A known user makes the session
// Ready; an unknown one moves it to ProfilePending. On gateway failure the
// session stays Anonymous and the error is returned.
func (g *Gate) SubmitIdentifier(ctx context.Context, raw string) (Status, error) {
	id, err := required("identifier", raw)
	if err != nil {
		return g.Status(), err
	}

	if err := g.acquire(StatusAnonymous); err != nil {
		return g.Status(), err
	}

	start := time.Now()
	lookup, err := g.gw.CheckUserExists(ctx, id)
	if err == nil && lookup == nil {
		err = ErrEmptyLookup
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.busy = false

	if err != nil {
		g.logger.Warn("user lookup failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		g.notifier.Notify(notice.Error(msgCheckFailed))
		return g.status, err
	}

	if lookup.Exists {
		p := &Profile{}
		if lookup.Profile != nil {
			p.Name = lookup.Profile.Name
			p.Age = lookup.Profile.Age
		}
		g.identifier = id
		g.candidate = ""
		g.profile = p
		g.status = StatusReady
		g.logger.Info("session ready", zap.String("via", "lookup"))
		if p.Name != "" {
			g.notifier.Notify(notice.Success(fmt.Sprintf(msgWelcomeBack, p.Name)))
		} else {
			g.notifier.Notify(notice.Success(msgWelcomeNoName))
		}
		return g.status, nil
	}

	g.candidate = id
	g.status = StatusProfilePending
	g.logger.Info("profile required")
	return g.status, nil
}

// SubmitProfile creates a profile for the pending identifier. On success the
// session is Ready with the submitted name and age; the backend ack is not
// trusted to echo them. On failure the session stays ProfilePending.
func (g *Gate) SubmitProfile(ctx context.Context, rawName, rawAge string) (Status, error) {
	g.mu.Lock()
	if g.status != StatusProfilePending {
		status := g.status
		g.mu.Unlock()
		return status, fmt.Errorf("%w: submit profile while %s", ErrInvalidTransition, status)
	}
	g.mu.Unlock()

	name, nameErr := required("name", rawName)
	age, ageErr := required("age", rawAge)
	if nameErr != nil || ageErr != nil {
		g.notifier.Notify(notice.Error(msgFillProfile))
		if nameErr != nil {
			return g.Status(), nameErr
		}
		return g.Status(), ageErr
	}

	if err := g.acquire(StatusProfilePending); err != nil {
		return g.Status(), err
	}

	g.mu.Lock()
	candidate := g.candidate
	g.mu.Unlock()

	start := time.Now()
	_, err := g.gw.CreateUserProfile(ctx, candidate, name, age)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.busy = false

	if err != nil {
		g.logger.Warn("profile creation failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		g.notifier.Notify(notice.Error(msgCreateFailed))
		return g.status, err
	}

	g.identifier = candidate
	g.candidate = ""
	g.profile = &Profile{Name: name, Age: age}
	g.status = StatusReady
	g.logger.Info("session ready", zap.String("via", "profile"))
	g.notifier.Notify(notice.Success(fmt.Sprintf(msgProfileMade, name)))
	return g.status, nil
}

// Back returns a ProfilePending session to Anonymous, discarding the candidate.
func (g *Gate) Back() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.busy {
		return ErrBusy
	}
	if g.status != StatusProfilePending {
		return fmt.Errorf("%w: back while %s", ErrInvalidTransition, g.status)
	}
	g.status = StatusAnonymous
	g.candidate = ""
	return nil
}

// acquire takes the per-action lock if the gate is in want.
func (g *Gate) acquire(want Status) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.busy {
		return ErrBusy
	}
	if g.status != want {
		return fmt.Errorf("%w: expected %s, have %s", ErrInvalidTransition, want, g.status)
	}
	g.busy = true
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// SessionID returns the local session ID used for log correlation.
func (g *Gate) SessionID() string {
	return g.sessionID
}

// StartTime returns when the session started.
func (g *Gate) StartTime() time.Time {
	return g.startTime
}

// Status returns the current status.
func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Ready reports whether chat is allowed.
func (g *Gate) Ready() bool {
	return g.Status() == StatusReady
}

// Identifier returns the session identifier, or "" before Ready.
func (g *Gate) Identifier() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.identifier
}

// Candidate returns the identifier awaiting a profile, or "".
func (g *Gate) Candidate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.candidate
}

// Profile returns a copy of the profile, or nil before Ready.
func (g *Gate) Profile() *Profile {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.profile == nil {
		return nil
	}
	p := *g.profile
	return &p
}

// Busy reports whether a lookup or creation is in flight.
func (g *Gate) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}

// Snapshot returns a consistent copy of the gate state.
func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Snapshot{
		SessionID:  g.sessionID,
		Status:     g.status,
		Identifier: g.identifier,
		Candidate:  g.candidate,
		Busy:       g.busy,
	}
	if g.profile != nil {
		p := *g.profile
		s.Profile = &p
	}
	return s
}
