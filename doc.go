// Package secore is an embeddable application-security core: sliding-window
// admission control with burst detection and lockouts, activity-expiring
// sessions, authenticated encryption for at-rest secrets, bounded
// sanitization of untrusted data, severity-tagged audit logging, and
// nonce-bound Content-Security-Policy generation.
//
// The root package wires the components behind a single Core handle:
//
//	cfg := secore.LevelConfig(secore.LevelElevated)
//	core, err := secore.New(cfg)
//	if err != nil {
//		// handle error
//	}
//	defer core.Close()
//
//	if res, err := core.Admit(ctx, callerID); err != nil || !res.Allowed {
//		// declined: dead session or rate limited
//	}
//
// Each component also stands alone in its subpackage (sanitize, crypto,
// ratelimit, session, audit, csp) for hosts that need only one of them.
package secore
