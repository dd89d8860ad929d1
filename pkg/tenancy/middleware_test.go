// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/canonical/session-gateway/internal/logging"
	"github.com/canonical/session-gateway/internal/monitoring"
	"github.com/canonical/session-gateway/internal/tracing"
	"github.com/canonical/session-gateway/internal/types"
	"github.com/canonical/session-gateway/pkg/authentication"
)

type fakeSessionReader struct {
	data map[string]*types.SessionData
	err  error
}

func (f *fakeSessionReader) GetSessionData(ctx context.Context, sessionID string) (*types.SessionData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data[sessionID], nil
}

const testCookie = "gateway_session"

func resolveWith(t *testing.T, reader *fakeSessionReader, mutate func(*http.Request)) *Principal {
	t.Helper()

	m := NewMiddleware(reader, testCookie, tracing.NewNoopTracer(), monitoring.NewNoopMonitor(), logging.NewNoopLogger())

	var captured *Principal
	handler := m.ResolvePrincipal()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = PrincipalFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	if mutate != nil {
		mutate(r)
	}
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if captured == nil {
		t.Fatal("expected a principal on the request context")
	}
	return captured
}

func TestMiddlewareResolvesSession(t *testing.T) {
	reader := &fakeSessionReader{data: map[string]*types.SessionData{
		"sess-1": {ID: "sess-1", UserID: "user-1"},
	}}

	principal := resolveWith(t, reader, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: testCookie, Value: "sess-1"})
	})

	if principal.SessionID != "sess-1" {
		t.Errorf("unexpected session id: %s", principal.SessionID)
	}
	if principal.Session == nil || principal.Session.UserID != "user-1" {
		t.Error("expected session data to be loaded")
	}
}

func TestMiddlewareWithoutCookie(t *testing.T) {
	principal := resolveWith(t, &fakeSessionReader{}, nil)

	if principal.SessionID != "" || principal.Session != nil {
		t.Error("expected an anonymous principal")
	}
}

func TestMiddlewareSessionLoadFailure(t *testing.T) {
	reader := &fakeSessionReader{err: errors.New("redis down")}

	principal := resolveWith(t, reader, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: testCookie, Value: "sess-1"})
	})

	if principal.Session != nil {
		t.Error("expected no session data on load failure")
	}
	if principal.SessionID != "sess-1" {
		t.Error("session id from the cookie should survive a load failure")
	}
}

func TestMiddlewareCarriesClaims(t *testing.T) {
	principal := resolveWith(t, &fakeSessionReader{}, func(r *http.Request) {
		ctx := authentication.WithClaims(r.Context(), map[string]interface{}{"sub": "user-2"})
		*r = *r.WithContext(ctx)
	})

	if principal.Claims == nil || principal.Claims["sub"] != "user-2" {
		t.Error("expected claims carried onto the principal")
	}
}
