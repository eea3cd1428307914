// Package audit emits structured, severity-tagged security events. Every
// entry is scrubbed through the sanitizer before emission, stamped with a
// fresh correlation nonce, and handed to a pluggable sink. Emission is
// fire-and-forget: sink failures, panics, and rate-cap overflows drop the
// entry but never propagate to the calling operation.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/devboost/secore/crypto"
	"github.com/devboost/secore/sanitize"
)

// Severity classifies the impact of an audit event.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// DefaultSource is the source tag attached to entries when none is
// configured.
const DefaultSource = "secore"

// DefaultEmitRate caps audit emission at this many entries per second,
// with an equal burst. Excess entries are dropped, never queued, so a
// flood of security events cannot stall the operations producing them.
const DefaultEmitRate = 100

// Entry is an immutable audit record.
type Entry struct {
	ID        string    // unique entry identifier
	Timestamp time.Time // emission time
	Event     string    // sanitized event name
	Severity  Severity
	Details   any    // sanitized, depth-bounded payload
	Source    string // fixed source tag
	SessionID string // owning session, empty when none
	Nonce     string // correlation nonce, fresh per entry
}

// Sink receives emitted entries. Implementations must tolerate concurrent
// calls; returned errors are counted and discarded.
type Sink interface {
	Emit(Entry) error
}

// Auditor produces sanitized audit entries.
type Auditor struct {
	sink      Sink
	source    string
	sessionID func() string
	clock     Clock
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// Clock abstracts wall-clock time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option customizes an Auditor.
type Option func(*Auditor)

// WithSink sets the destination for entries. Default is a SlogSink on the
// default logger.
func WithSink(s Sink) Option {
	return func(a *Auditor) {
		if s != nil {
			a.sink = s
		}
	}
}

// WithSource sets the fixed source tag.
func WithSource(source string) Option {
	return func(a *Auditor) {
		if source != "" {
			a.source = source
		}
	}
}

// WithSessionID supplies the session identifier attached to entries,
// typically (*session.Session).ID.
func WithSessionID(fn func() string) Option {
	return func(a *Auditor) { a.sessionID = fn }
}

// WithClock sets the time source.
func WithClock(clock Clock) Option {
	return func(a *Auditor) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithEmitRate overrides the emission cap, in entries per second.
// Non-positive disables the cap.
func WithEmitRate(perSecond int) Option {
	return func(a *Auditor) {
		if perSecond <= 0 {
			a.limiter = nil
			return
		}
		a.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
	}
}

// WithLogger sets the logger used for the auditor's own diagnostics and
// the default SlogSink.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Auditor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an Auditor. With no options it emits to slog at the default
// rate cap.
func New(opts ...Option) *Auditor {
	a := &Auditor{
		source:  DefaultSource,
		clock:   systemClock{},
		limiter: rate.NewLimiter(rate.Limit(DefaultEmitRate), DefaultEmitRate),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.sink == nil {
		a.sink = &SlogSink{Logger: a.logger}
	}
	return a
}

// Log sanitizes and emits one audit event. It never panics and never
// returns an error: a failed or dropped log entry must not abort the
// security operation that produced it.
func (a *Auditor) Log(event string, details any, severity Severity) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("audit emission panic recovered", "panic", r)
		}
	}()

	if a.limiter != nil && !a.limiter.Allow() {
		return
	}

	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: a.clock.Now(),
		Event:     sanitize.Text(event),
		Severity:  severity,
		Details:   sanitize.Structured(details),
		Source:    a.source,
		Nonce:     crypto.GenerateNonce(),
	}
	if a.sessionID != nil {
		entry.SessionID = a.sessionID()
	}

	if err := a.sink.Emit(entry); err != nil {
		a.logger.Debug("audit sink rejected entry", "event", entry.Event, "error", err)
	}
}

// SlogSink writes entries to a structured logger with the session
// identifier hashed, so raw session tokens never land in log output.
type SlogSink struct {
	Logger *slog.Logger
}

// Emit implements Sink.
func (s *SlogSink) Emit(e Entry) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("security_audit",
		"id", e.ID,
		"event", e.Event,
		"severity", string(e.Severity),
		"details", e.Details,
		"source", e.Source,
		"session_id_hash", hashForLogging(e.SessionID),
		"nonce", e.Nonce,
		"timestamp", e.Timestamp,
	)
	return nil
}

// DiscardSink drops every entry. Used when auditing is disabled so
// callers can keep logging unconditionally.
type DiscardSink struct{}

// Emit implements Sink.
func (DiscardSink) Emit(Entry) error { return nil }

// hashForLogging creates a truncated SHA-256 hash of sensitive data for
// log correlation.
func hashForLogging(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	hash := sha256.Sum256([]byte(sensitive))
	return hex.EncodeToString(hash[:])[:16]
}
