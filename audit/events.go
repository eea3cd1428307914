package audit

// Event name constants for security audit logging. Using these instead of
// literals keeps event names consistent across the codebase.
const (
	// Session lifecycle events

	// EventSessionCreated is logged when a session is created.
	EventSessionCreated = "session_created"

	// EventSessionExpired is logged when a session self-invalidates after
	// exceeding its inactivity timeout.
	EventSessionExpired = "session_expired"

	// EventSessionInvalidated is logged when a session is explicitly
	// terminated.
	EventSessionInvalidated = "session_invalidated"

	// Admission events

	// EventRateLimitExceeded is logged when an identity is denied
	// admission.
	EventRateLimitExceeded = "rate_limit_exceeded"

	// EventLockoutApplied is logged when an identity is placed under a
	// temporary lockout.
	EventLockoutApplied = "lockout_applied"

	// Secret handling events

	// EventSecretSealed is logged when a secret is encrypted for storage.
	EventSecretSealed = "secret_sealed"

	// EventSecretOpened is logged when a stored secret is decrypted.
	EventSecretOpened = "secret_opened"

	// EventSecretOpenFailed is logged when decryption of a stored secret
	// fails, covering both tampering and malformed blobs.
	EventSecretOpenFailed = "secret_open_failed"
)
