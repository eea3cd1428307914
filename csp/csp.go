// Package csp builds nonce-bound Content-Security-Policy values for
// rendering surfaces and provides HTTP middleware that issues a fresh
// nonce per response. A nonce must never be reused across renders; reuse
// defeats the policy's replay protection.
package csp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/devboost/secore/crypto"
)

// Header is the response header the policy is served under.
const Header = "Content-Security-Policy"

// Policy returns a strict policy string bound to the supplied nonce:
// everything is denied by default, script and style run only when tagged
// with the nonce, images and fonts load only from secure origins, and
// framing, form submission, and base-URI rewriting are disallowed.
func Policy(nonce string) string {
	return fmt.Sprintf("default-src 'none'; "+
		"script-src 'nonce-%s'; "+
		"style-src 'nonce-%s'; "+
		"img-src https:; "+
		"font-src https:; "+
		"connect-src https:; "+
		"base-uri 'none'; "+
		"form-action 'none'; "+
		"frame-ancestors 'none'",
		nonce, nonce)
}

// nonceContextKey is the context key for the per-request nonce.
type nonceContextKey struct{}

// NonceFromContext returns the nonce issued for the current request, or
// the empty string outside the middleware.
func NonceFromContext(ctx context.Context) string {
	if nonce, ok := ctx.Value(nonceContextKey{}).(string); ok {
		return nonce
	}
	return ""
}

// Middleware issues a fresh nonce for every request, sets the policy
// header plus companion hardening headers, and exposes the nonce through
// the request context so handlers can tag inline script and style blocks.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nonce := crypto.GenerateNonce()

		h := w.Header()
		h.Set(Header, Policy(nonce))
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		ctx := context.WithValue(r.Context(), nonceContextKey{}, nonce)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
