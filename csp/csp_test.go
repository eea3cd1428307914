package csp

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPolicy_ContainsRequiredDirectives(t *testing.T) {
	policy := Policy("abc123")

	directives := []string{
		"default-src",
		"script-src",
		"style-src",
		"img-src",
		"font-src",
		"connect-src",
		"base-uri",
		"form-action",
		"frame-ancestors",
	}
	for _, d := range directives {
		if !strings.Contains(policy, d) {
			t.Errorf("policy missing directive %q: %s", d, policy)
		}
	}
}

func TestPolicy_NonceGatesScriptAndStyle(t *testing.T) {
	policy := Policy("abc123")

	if !strings.Contains(policy, "script-src 'nonce-abc123'") {
		t.Errorf("script-src not nonce-gated: %s", policy)
	}
	if !strings.Contains(policy, "style-src 'nonce-abc123'") {
		t.Errorf("style-src not nonce-gated: %s", policy)
	}
	if !strings.Contains(policy, "default-src 'none'") {
		t.Errorf("default-src is not 'none': %s", policy)
	}
	if strings.Contains(policy, "unsafe-inline") || strings.Contains(policy, "unsafe-eval") {
		t.Errorf("policy contains unsafe directives: %s", policy)
	}
}

func TestPolicy_LocksDownFramingAndForms(t *testing.T) {
	policy := Policy("n")

	for _, want := range []string{
		"frame-ancestors 'none'",
		"form-action 'none'",
		"base-uri 'none'",
		"img-src https:",
		"font-src https:",
	} {
		if !strings.Contains(policy, want) {
			t.Errorf("policy missing %q: %s", want, policy)
		}
	}
}

func TestMiddleware_SetsHeadersAndContextNonce(t *testing.T) {
	var seenNonce string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenNonce = NonceFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seenNonce == "" {
		t.Fatal("handler saw no nonce in context")
	}

	policy := rec.Header().Get(Header)
	if policy == "" {
		t.Fatal("no Content-Security-Policy header set")
	}
	if !strings.Contains(policy, fmt.Sprintf("'nonce-%s'", seenNonce)) {
		t.Errorf("header policy not bound to context nonce %q: %s", seenNonce, policy)
	}

	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("X-Frame-Options not set")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("X-Content-Type-Options not set")
	}
}

func TestMiddleware_FreshNoncePerRequest(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	nonces := make(map[string]bool)
	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		policy := rec.Header().Get(Header)
		if nonces[policy] {
			t.Fatal("nonce (and therefore policy) reused across requests")
		}
		nonces[policy] = true
	}
}

func TestNonceFromContext_OutsideMiddleware(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := NonceFromContext(r.Context()); got != "" {
		t.Errorf("NonceFromContext outside middleware = %q, want empty", got)
	}
}
