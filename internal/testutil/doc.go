// Package testutil provides testing utilities for the secore library,
// including a mock time provider for deterministic expiry and
// rate-limiting tests.
package testutil
