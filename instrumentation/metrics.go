package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metric instruments for the security core.
type Metrics struct {
	// Admission metrics
	AdmissionChecks   metric.Int64Counter
	AdmissionDenied   metric.Int64Counter
	LockoutsApplied   metric.Int64Counter
	TrackedIdentities metric.Int64ObservableGauge

	// Crypto metrics
	CryptoOperations metric.Int64Counter
	CryptoDuration   metric.Float64Histogram

	// Audit metrics
	AuditEventsTotal metric.Int64Counter

	// Session metrics
	SessionsInvalidated metric.Int64Counter
}

// newMetrics creates and registers all metric instruments.
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}
	var err error

	admissionMeter := inst.Meter("ratelimit")
	m.AdmissionChecks, err = admissionMeter.Int64Counter(
		"secore.admission.checks",
		metric.WithDescription("Total number of admission checks"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create admission.checks counter: %w", err)
	}

	m.AdmissionDenied, err = admissionMeter.Int64Counter(
		"secore.admission.denied",
		metric.WithDescription("Number of denied admission checks"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create admission.denied counter: %w", err)
	}

	m.LockoutsApplied, err = admissionMeter.Int64Counter(
		"secore.admission.lockouts",
		metric.WithDescription("Number of lockouts applied to identities"),
		metric.WithUnit("{lockout}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create admission.lockouts counter: %w", err)
	}

	m.TrackedIdentities, err = admissionMeter.Int64ObservableGauge(
		"secore.admission.tracked_identities",
		metric.WithDescription("Identities currently tracked by the rate limiter"),
		metric.WithUnit("{identity}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create admission.tracked_identities gauge: %w", err)
	}

	cryptoMeter := inst.Meter("crypto")
	m.CryptoOperations, err = cryptoMeter.Int64Counter(
		"secore.crypto.operations",
		metric.WithDescription("Encryption and decryption operations by result"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create crypto.operations counter: %w", err)
	}

	m.CryptoDuration, err = cryptoMeter.Float64Histogram(
		"secore.crypto.duration",
		metric.WithDescription("Encryption and decryption duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create crypto.duration histogram: %w", err)
	}

	auditMeter := inst.Meter("audit")
	m.AuditEventsTotal, err = auditMeter.Int64Counter(
		"secore.audit.events",
		metric.WithDescription("Audit events emitted by severity"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit.events counter: %w", err)
	}

	sessionMeter := inst.Meter("session")
	m.SessionsInvalidated, err = sessionMeter.Int64Counter(
		"secore.session.invalidated",
		metric.WithDescription("Sessions invalidated by cause"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session.invalidated counter: %w", err)
	}

	return m, nil
}

// IdentityCountCallback reports how many identities the rate limiter is
// currently tracking.
type IdentityCountCallback func() int64

// RegisterTrackedIdentities registers a callback observed on every metrics
// collection to populate the tracked-identities gauge.
func (i *Instrumentation) RegisterTrackedIdentities(fn IdentityCountCallback) error {
	meter := i.Meter("ratelimit")
	_, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(i.metrics.TrackedIdentities, fn())
		return nil
	}, i.metrics.TrackedIdentities)
	if err != nil {
		return fmt.Errorf("failed to register tracked-identities callback: %w", err)
	}
	return nil
}

// RecordAdmission records one admission check and its outcome.
func (m *Metrics) RecordAdmission(ctx context.Context, allowed, lockedOut bool) {
	if m == nil {
		return
	}
	m.AdmissionChecks.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("allowed", allowed),
	))
	if !allowed {
		m.AdmissionDenied.Add(ctx, 1)
	}
	if lockedOut {
		m.LockoutsApplied.Add(ctx, 1)
	}
}

// RecordCryptoOperation records one encrypt or decrypt with its result.
func (m *Metrics) RecordCryptoOperation(ctx context.Context, operation, result string, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("result", result),
	)
	m.CryptoOperations.Add(ctx, 1, attrs)
	m.CryptoDuration.Record(ctx, durationMs, attrs)
}

// RecordAuditEvent records one emitted audit event.
func (m *Metrics) RecordAuditEvent(ctx context.Context, severity string) {
	if m == nil {
		return
	}
	m.AuditEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("severity", severity),
	))
}

// RecordSessionInvalidated records a session termination.
func (m *Metrics) RecordSessionInvalidated(ctx context.Context, cause string) {
	if m == nil {
		return
	}
	m.SessionsInvalidated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cause", cause),
	))
}
