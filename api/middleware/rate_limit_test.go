package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgerrors "github.com/equipqr/equipqr-backend/pkg/errors"
)

type fakeLimiter struct {
	scopes []string
	allow  bool
	err    error
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, _ int64, _ time.Duration) (bool, int64, error) {
	f.scopes = append(f.scopes, scope)
	return f.allow, 1, f.err
}

func TestRateLimitAllowsUnderLimit(t *testing.T) {
	limiter := &fakeLimiter{allow: true}
	mw := RateLimit(limiter, "qb_connect", 10, time.Minute, nil)

	var called bool
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quickbooks/connect", nil)
	req = req.WithContext(WithOrgID(req.Context(), "org-1"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if !called {
		t.Fatalf("handler should run under the limit")
	}
	if len(limiter.scopes) != 1 || limiter.scopes[0] != "qb_connect:org-1" {
		t.Fatalf("unexpected scopes %v", limiter.scopes)
	}
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	limiter := &fakeLimiter{allow: false}
	mw := RateLimit(limiter, "qb_connect", 10, time.Minute, nil)

	var called bool
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quickbooks/connect", nil)
	req = req.WithContext(WithOrgID(req.Context(), "org-1"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if called {
		t.Fatalf("handler must not run once the window is exhausted")
	}
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
	if resp.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After 60, got %q", resp.Header().Get("Retry-After"))
	}

	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
		t.Fatalf("expected code %s got %s", pkgerrors.CodeRateLimit, payload.Error.Code)
	}
}

func TestRateLimitFailsOpenOnStoreError(t *testing.T) {
	limiter := &fakeLimiter{allow: false, err: errors.New("redis down")}
	mw := RateLimit(limiter, "qb_connect", 10, time.Minute, nil)

	var called bool
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/quickbooks/connect", nil))

	if !called {
		t.Fatalf("limiter failure must not block the request")
	}
}

func TestRateLimitNilLimiterPassesThrough(t *testing.T) {
	mw := RateLimit(nil, "qb_connect", 10, time.Minute, nil)

	var called bool
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", nil))

	if !called {
		t.Fatalf("nil limiter should be a no-op")
	}
}

func TestRateLimitScopeFallsBackToUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req = req.WithContext(WithUserID(req.Context(), "user-9"))
	if got := rateLimitScope(req, "qb_export"); got != "qb_export:user-9" {
		t.Fatalf("unexpected scope %s", got)
	}

	anon := httptest.NewRequest(http.MethodPost, "/x", nil)
	if got := rateLimitScope(anon, "qb_export"); got != "qb_export:anonymous" {
		t.Fatalf("unexpected anonymous scope %s", got)
	}
}
