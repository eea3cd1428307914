package secore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/devboost/secore/audit"
	"github.com/devboost/secore/crypto"
	"github.com/devboost/secore/csp"
	"github.com/devboost/secore/instrumentation"
	"github.com/devboost/secore/ratelimit"
	"github.com/devboost/secore/session"
)

// Clock abstracts wall-clock time for the whole core. It satisfies the
// per-package Clock interfaces.
type Clock interface {
	Now() time.Time
}

// Core wires the security components together for a host application:
// admission control, session gating, secret sealing, auditing, and
// telemetry behind one handle. Hosts needing only one component can use
// the subpackages directly.
type Core struct {
	cfg       Config
	logger    *slog.Logger
	clock     Clock
	limiter   *ratelimit.Limiter
	engine    *crypto.Engine
	auditor   *audit.Auditor
	auditSink audit.Sink
	session   *session.Session
	inst      *instrumentation.Instrumentation
}

// Option customizes a Core.
type Option func(*Core)

// WithClock sets the time source for the limiter, session, and auditor.
func WithClock(clock Clock) Option {
	return func(c *Core) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithEngine replaces the default crypto engine, e.g. to bind a custom
// application identity.
func WithEngine(e *crypto.Engine) Option {
	return func(c *Core) {
		if e != nil {
			c.engine = e
		}
	}
}

// WithAuditSink sets the destination for audit entries.
func WithAuditSink(s audit.Sink) Option {
	return func(c *Core) {
		if s != nil {
			c.auditSink = s
		}
	}
}

// WithInstrumentation attaches OpenTelemetry instrumentation.
func WithInstrumentation(inst *instrumentation.Instrumentation) Option {
	return func(c *Core) { c.inst = inst }
}

// New creates a Core from cfg. Call Close when the host shuts down.
func New(cfg Config, opts ...Option) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Core{
		cfg:    cfg,
		logger: logger,
		engine: crypto.NewEngine(),
	}
	for _, opt := range opts {
		opt(c)
	}

	auditOpts := []audit.Option{
		audit.WithLogger(logger),
		// The session does not exist yet when the auditor is built, so
		// the identifier is resolved lazily per entry.
		audit.WithSessionID(func() string {
			if c.session == nil {
				return ""
			}
			return c.session.ID()
		}),
	}
	if cfg.ServiceName != "" {
		auditOpts = append(auditOpts, audit.WithSource(cfg.ServiceName))
	}
	var sink audit.Sink
	switch {
	case !cfg.AuditEnabled:
		sink = audit.DiscardSink{}
	case c.auditSink != nil:
		sink = c.auditSink
	default:
		sink = &audit.SlogSink{Logger: logger}
	}
	if cfg.AuditEnabled && c.inst != nil {
		sink = &meteredSink{next: sink, metrics: c.inst.Metrics()}
	}
	auditOpts = append(auditOpts, audit.WithSink(sink))
	if c.clock != nil {
		auditOpts = append(auditOpts, audit.WithClock(c.clock))
	}
	c.auditor = audit.New(auditOpts...)

	limiterOpts := []ratelimit.Option{ratelimit.WithLogger(logger)}
	if c.clock != nil {
		limiterOpts = append(limiterOpts, ratelimit.WithClock(c.clock))
	}
	c.limiter = ratelimit.New(ratelimit.Config{
		MaxRequests: cfg.MaxRequests,
		Window:      cfg.Window,
		BurstLimit:  cfg.BurstLimit,
	}, limiterOpts...)
	if c.inst != nil {
		if err := c.inst.RegisterTrackedIdentities(func() int64 {
			return int64(c.limiter.GetStats().TrackedIdentities)
		}); err != nil {
			logger.Warn("failed to register limiter gauge", "error", err)
		}
	}

	var recorder session.Recorder = c.auditor
	if c.inst != nil {
		recorder = &meteredRecorder{next: c.auditor, metrics: c.inst.Metrics()}
	}
	sessionOpts := []session.Option{
		session.WithLogger(logger),
		session.WithRecorder(recorder),
	}
	if c.clock != nil {
		sessionOpts = append(sessionOpts, session.WithClock(c.clock))
	}
	c.session = session.New(cfg.SessionTimeout, sessionOpts...)

	c.auditor.Log(audit.EventSessionCreated, nil, audit.SeverityLow)

	return c, nil
}

// Admit decides whether an action from identity may proceed. The session
// gate runs first: a dead session declines everything with
// ErrorCodeSessionExpired. Otherwise the rate limiter decides, and the
// returned Result carries the retry hint on denial.
func (c *Core) Admit(ctx context.Context, identity string) (ratelimit.Result, error) {
	if !c.session.Valid() {
		return ratelimit.Result{}, NewSecurityError(
			ErrorCodeSessionExpired, "session is expired or invalidated", nil)
	}

	res := c.limiter.Check(identity)
	if c.inst != nil {
		c.inst.Metrics().RecordAdmission(ctx, res.Allowed, res.LockoutApplied)
	}
	if !res.Allowed {
		c.auditor.Log(audit.EventRateLimitExceeded, map[string]any{
			"retry_after_ms": res.RetryAfter.Milliseconds(),
		}, audit.SeverityMedium)
	}
	return res, nil
}

// Touch refreshes the session's activity timestamp.
func (c *Core) Touch() {
	c.session.Touch()
}

// SealSecret encrypts plaintext under passphrase for at-rest storage and
// returns the encoded blob.
func (c *Core) SealSecret(ctx context.Context, plaintext, passphrase string) (string, error) {
	start := time.Now()
	blob, err := c.engine.Encrypt(plaintext, passphrase)
	c.recordCrypto(ctx, "encrypt", err, start)
	if err != nil {
		return "", NewSecurityError(ErrorCodeInternal, "encryption failed", err)
	}
	c.auditor.Log(audit.EventSecretSealed, nil, audit.SeverityLow)
	return blob, nil
}

// OpenSecret decrypts a stored blob. The error code distinguishes
// malformed storage (ErrorCodeFormat) from failed authentication
// (ErrorCodeAuthentication) so callers can surface the right remediation.
func (c *Core) OpenSecret(ctx context.Context, blob, passphrase string) (string, error) {
	start := time.Now()
	plaintext, err := c.engine.Decrypt(blob, passphrase)
	c.recordCrypto(ctx, "decrypt", err, start)
	if err == nil {
		c.auditor.Log(audit.EventSecretOpened, nil, audit.SeverityLow)
		return plaintext, nil
	}

	c.auditor.Log(audit.EventSecretOpenFailed, map[string]any{
		"reason": err.Error(),
	}, audit.SeverityHigh)

	switch {
	case errors.Is(err, crypto.ErrMalformedBlob):
		return "", NewSecurityError(ErrorCodeFormat, "malformed encrypted blob", err)
	case errors.Is(err, crypto.ErrDecryptFailed):
		return "", NewSecurityError(ErrorCodeAuthentication, "decryption failed", err)
	default:
		return "", NewSecurityError(ErrorCodeInternal, "decryption failed", err)
	}
}

// RenderNonce returns a fresh one-time nonce and the CSP value bound to
// it, for one render of a host UI surface.
func (c *Core) RenderNonce() (nonce, policy string) {
	nonce = crypto.GenerateNonce()
	return nonce, csp.Policy(nonce)
}

// Session returns the core's session handle.
func (c *Core) Session() *session.Session { return c.session }

// Auditor returns the core's auditor.
func (c *Core) Auditor() *audit.Auditor { return c.auditor }

// Limiter returns the core's rate limiter.
func (c *Core) Limiter() *ratelimit.Limiter { return c.limiter }

// Close stops background work. The core is not usable afterwards.
func (c *Core) Close() {
	c.limiter.Stop()
	if c.inst != nil {
		_ = c.inst.Shutdown(context.Background())
	}
}

// meteredSink counts entries by severity before handing them to the real
// sink, so audit volume shows up in telemetry.
type meteredSink struct {
	next    audit.Sink
	metrics *instrumentation.Metrics
}

func (s *meteredSink) Emit(e audit.Entry) error {
	s.metrics.RecordAuditEvent(context.Background(), string(e.Severity))
	return s.next.Emit(e)
}

// meteredRecorder counts session terminations by cause on their way to the
// auditor.
type meteredRecorder struct {
	next    session.Recorder
	metrics *instrumentation.Metrics
}

func (r *meteredRecorder) Log(event string, details any, severity audit.Severity) {
	switch event {
	case audit.EventSessionExpired:
		r.metrics.RecordSessionInvalidated(context.Background(), "expired")
	case audit.EventSessionInvalidated:
		r.metrics.RecordSessionInvalidated(context.Background(), "invalidated")
	}
	r.next.Log(event, details, severity)
}

func (c *Core) recordCrypto(ctx context.Context, op string, err error, start time.Time) {
	if c.inst == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.inst.Metrics().RecordCryptoOperation(ctx, op, result,
		float64(time.Since(start).Microseconds())/1000.0)
}
