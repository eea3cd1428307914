// Package session tracks the lifecycle of a single authenticated session
// using wall-clock activity timestamps. A session moves one way:
// once expired or explicitly invalidated it can never become valid again,
// and its identifier is withheld from callers from that point on.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/devboost/secore/audit"
	"github.com/devboost/secore/crypto"
)

// DefaultTimeout is the inactivity span after which a session expires.
const DefaultTimeout = 30 * time.Minute

// Clock abstracts wall-clock time so tests can simulate inactivity.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Recorder receives session lifecycle events. *audit.Auditor satisfies it.
type Recorder interface {
	Log(event string, details any, severity audit.Severity)
}

// Session is a single session with activity-based expiry. All methods are
// safe for concurrent use, though a session is expected to have one
// logical owner.
type Session struct {
	mu           sync.Mutex
	id           string
	createdAt    time.Time
	lastActivity time.Time
	valid        bool
	timeout      time.Duration
	clock        Clock
	logger       *slog.Logger
	recorder     Recorder
}

// Option customizes a Session.
type Option func(*Session)

// WithClock sets the time source.
func WithClock(clock Clock) Option {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder attaches an audit recorder that is notified when the
// session self-invalidates on expiry.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// New creates a valid session with a fresh random identifier. A
// non-positive timeout falls back to DefaultTimeout.
func New(timeout time.Duration, opts ...Option) *Session {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &Session{
		id:      crypto.GenerateNonce(),
		valid:   true,
		timeout: timeout,
		clock:   systemClock{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	now := s.clock.Now()
	s.createdAt = now
	s.lastActivity = now
	return s
}

// Touch refreshes the activity timestamp. If the session has already sat
// idle past its timeout, it invalidates instead: stale sessions cannot be
// revived by late activity.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid {
		return
	}

	now := s.clock.Now()
	if now.Sub(s.lastActivity) >= s.timeout {
		s.invalidateLocked(audit.EventSessionExpired)
		return
	}
	s.lastActivity = now
}

// Invalidate terminates the session. Irreversible.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.valid {
		s.invalidateLocked(audit.EventSessionInvalidated)
	}
}

// invalidateLocked must be called with the mutex held.
func (s *Session) invalidateLocked(event string) {
	s.valid = false
	s.logger.Info("session terminated", "event", event)
	if s.recorder != nil {
		s.recorder.Log(event, map[string]any{
			"created_at":    s.createdAt.Format(time.RFC3339),
			"last_activity": s.lastActivity.Format(time.RFC3339),
		}, audit.SeverityMedium)
	}
}

// Valid reports whether the session is usable: still marked valid and
// within its inactivity timeout. It never mutates state.
func (s *Session) Valid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valid && s.clock.Now().Sub(s.lastActivity) < s.timeout
}

// ID returns the session identifier while the session is usable, and the
// empty string afterwards so dead-session identifiers cannot leak into
// caller state.
func (s *Session) ID() string {
	if !s.Valid() {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createdAt
}
