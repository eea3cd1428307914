// Package instrumentation provides OpenTelemetry observability for the
// security core: counters and histograms for admission decisions,
// lockouts, encryption operations, and audit volume. When enabled it
// builds SDK providers from the configured resource and reader; when
// disabled it uses no-op providers, so embedding hosts that do not export
// telemetry pay no overhead.
package instrumentation
