// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package refresh

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/canonical/session-gateway/internal/logging"
	"github.com/canonical/session-gateway/internal/monitoring"
	"github.com/canonical/session-gateway/internal/tracing"
	"github.com/canonical/session-gateway/internal/types"
)

const testCookie = "gateway_session"

type fakeSessionStore struct {
	bundle *types.TokenBundle

	getCalls    int
	storeCalls  int
	extendCalls int

	storedBundle *types.TokenBundle
	extension    time.Duration

	storeErr error
}

func (f *fakeSessionStore) GetTokens(_ context.Context, _ string) (*types.TokenBundle, error) {
	f.getCalls++
	return f.bundle, nil
}

func (f *fakeSessionStore) StoreTokens(_ context.Context, _ string, bundle *types.TokenBundle) error {
	f.storeCalls++
	f.storedBundle = bundle
	return f.storeErr
}

func (f *fakeSessionStore) ExtendSession(_ context.Context, _ string, extension time.Duration) error {
	f.extendCalls++
	f.extension = extension
	return nil
}

type fakeRefresher struct {
	calls  int
	bundle *types.TokenBundle
	err    error
}

func (f *fakeRefresher) Refresh(_ context.Context, _ string) (*types.TokenBundle, error) {
	f.calls++
	return f.bundle, f.err
}

func newTestMiddleware(store *fakeSessionStore, refresher *fakeRefresher, now time.Time) *Middleware {
	m := NewMiddleware(
		store,
		refresher,
		testCookie,
		DefaultThreshold,
		tracing.NewNoopTracer(),
		monitoring.NewNoopMonitor(),
		logging.NewNoopLogger(),
	)
	m.now = func() time.Time { return now }
	return m
}

func serve(t *testing.T, m *Middleware, path string, withCookie bool) (int, bool) {
	t.Helper()

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if withCookie {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: "sess-1"})
	}
	rec := httptest.NewRecorder()

	m.RefreshTokens()(next).ServeHTTP(rec, req)
	return rec.Code, nextCalled
}

func TestMiddleware_ExcludedPathsNeverTouchStore(t *testing.T) {
	paths := []string{
		"/api/v1/status",
		"/api/v1/metrics",
		"/api/v1/auth/login",
		"/api/v1/auth/callback",
		"/api/v1/auth/logout",
		"/api/v1/auth/signout-callback",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			store := &fakeSessionStore{}
			m := newTestMiddleware(store, &fakeRefresher{}, time.Now())

			_, nextCalled := serve(t, m, path, true)

			if !nextCalled {
				t.Error("next stage not invoked")
			}
			if store.getCalls != 0 {
				t.Errorf("expected zero GetTokens calls, got %d", store.getCalls)
			}
		})
	}
}

func TestMiddleware_NoCookiePassesThrough(t *testing.T) {
	store := &fakeSessionStore{}
	m := newTestMiddleware(store, &fakeRefresher{}, time.Now())

	_, nextCalled := serve(t, m, "/api/v1/session", false)

	if !nextCalled {
		t.Error("next stage not invoked")
	}
	if store.getCalls != 0 {
		t.Errorf("expected zero GetTokens calls, got %d", store.getCalls)
	}
}

func TestMiddleware_ThresholdExactness(t *testing.T) {
	now := time.Now()

	testCases := []struct {
		name          string
		untilExpiry   time.Duration
		expectRefresh bool
	}{
		{name: "well before threshold", untilExpiry: time.Hour, expectRefresh: false},
		{name: "one second past threshold", untilExpiry: 5*time.Minute + time.Second, expectRefresh: false},
		{name: "exactly at threshold", untilExpiry: 5 * time.Minute, expectRefresh: true},
		{name: "under threshold", untilExpiry: 3 * time.Minute, expectRefresh: true},
		{name: "already expired", untilExpiry: -time.Minute, expectRefresh: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeSessionStore{
				bundle: &types.TokenBundle{
					AccessToken:  "at",
					RefreshToken: "rt",
					ExpiresAt:    now.Add(tc.untilExpiry),
				},
			}
			refresher := &fakeRefresher{
				bundle: &types.TokenBundle{AccessToken: "new", RefreshToken: "rt2", ExpiresAt: now.Add(time.Hour)},
			}
			m := newTestMiddleware(store, refresher, now)

			_, nextCalled := serve(t, m, "/api/v1/session", true)

			if !nextCalled {
				t.Error("next stage not invoked")
			}

			expectedCalls := 0
			if tc.expectRefresh {
				expectedCalls = 1
			}
			if refresher.calls != expectedCalls {
				t.Errorf("expected %d refresh calls, got %d", expectedCalls, refresher.calls)
			}
		})
	}
}

func TestMiddleware_NoRefreshToken(t *testing.T) {
	now := time.Now()
	store := &fakeSessionStore{
		bundle: &types.TokenBundle{AccessToken: "at", ExpiresAt: now.Add(time.Minute)},
	}
	refresher := &fakeRefresher{}
	m := newTestMiddleware(store, refresher, now)

	_, nextCalled := serve(t, m, "/api/v1/session", true)

	if !nextCalled {
		t.Error("next stage not invoked")
	}
	if refresher.calls != 0 {
		t.Errorf("expected zero refresh calls, got %d", refresher.calls)
	}
	if store.storeCalls != 0 {
		t.Errorf("expected zero StoreTokens calls, got %d", store.storeCalls)
	}
}

func TestMiddleware_ExpiringTokenRefreshed(t *testing.T) {
	now := time.Now()
	fresh := &types.TokenBundle{
		AccessToken:  "at-new",
		RefreshToken: "rt-new",
		ExpiresAt:    now.Add(time.Hour),
	}
	store := &fakeSessionStore{
		bundle: &types.TokenBundle{AccessToken: "at", RefreshToken: "rt1", ExpiresAt: now.Add(3 * time.Minute)},
	}
	refresher := &fakeRefresher{bundle: fresh}
	m := newTestMiddleware(store, refresher, now)

	_, nextCalled := serve(t, m, "/api/v1/session", true)

	if !nextCalled {
		t.Error("next stage not invoked")
	}
	if store.storeCalls != 1 {
		t.Fatalf("expected 1 StoreTokens call, got %d", store.storeCalls)
	}
	if store.storedBundle.AccessToken != "at-new" {
		t.Errorf("stored bundle is not the refreshed one: %+v", store.storedBundle)
	}
	if store.extendCalls != 1 {
		t.Fatalf("expected 1 ExtendSession call, got %d", store.extendCalls)
	}
	if store.extension != time.Hour {
		t.Errorf("expected 1h extension, got %v", store.extension)
	}
}

func TestMiddleware_RefreshFailureNeverBlocksRequest(t *testing.T) {
	now := time.Now()
	store := &fakeSessionStore{
		bundle: &types.TokenBundle{AccessToken: "at", RefreshToken: "rt", ExpiresAt: now.Add(time.Minute)},
	}
	refresher := &fakeRefresher{err: errors.New("idp unreachable")}
	m := newTestMiddleware(store, refresher, now)

	code, nextCalled := serve(t, m, "/api/v1/session", true)

	if !nextCalled {
		t.Error("next stage not invoked after failed refresh")
	}
	if code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
	if store.storeCalls != 0 {
		t.Errorf("expected no StoreTokens on failure, got %d", store.storeCalls)
	}
}

func TestMiddleware_PersistFailureStillServesRequest(t *testing.T) {
	now := time.Now()
	store := &fakeSessionStore{
		bundle:   &types.TokenBundle{AccessToken: "at", RefreshToken: "rt", ExpiresAt: now.Add(time.Minute)},
		storeErr: errors.New("redis down"),
	}
	refresher := &fakeRefresher{
		bundle: &types.TokenBundle{AccessToken: "new", ExpiresAt: now.Add(time.Hour)},
	}
	m := newTestMiddleware(store, refresher, now)

	code, nextCalled := serve(t, m, "/api/v1/session", true)

	if !nextCalled || code != http.StatusOK {
		t.Errorf("request must complete despite persist failure, code %d", code)
	}
	if store.extendCalls != 0 {
		t.Errorf("expected no ExtendSession after failed persist, got %d", store.extendCalls)
	}
}

func TestMiddleware_UnrotatedRefreshTokenKept(t *testing.T) {
	now := time.Now()
	// The provider answered without rotating the refresh token and
	// without restating the scopes.
	fresh := &types.TokenBundle{
		AccessToken: "at-new",
		ExpiresAt:   now.Add(time.Hour),
	}
	store := &fakeSessionStore{
		bundle: &types.TokenBundle{
			AccessToken:  "at",
			RefreshToken: "rt1",
			Scopes:       []string{"openid", "offline_access"},
			ExpiresAt:    now.Add(3 * time.Minute),
		},
	}
	m := newTestMiddleware(store, &fakeRefresher{bundle: fresh}, now)

	_, nextCalled := serve(t, m, "/api/v1/session", true)

	if !nextCalled {
		t.Error("next stage not invoked")
	}
	if store.storeCalls != 1 {
		t.Fatalf("expected 1 StoreTokens call, got %d", store.storeCalls)
	}
	if store.storedBundle.RefreshToken != "rt1" {
		t.Errorf("persisted bundle lost the refresh token: %+v", store.storedBundle)
	}
	if len(store.storedBundle.Scopes) != 2 {
		t.Errorf("persisted bundle lost the scopes: %+v", store.storedBundle)
	}
}

func TestMiddleware_RotatedRefreshTokenReplaces(t *testing.T) {
	now := time.Now()
	fresh := &types.TokenBundle{
		AccessToken:  "at-new",
		RefreshToken: "rt2",
		ExpiresAt:    now.Add(time.Hour),
	}
	store := &fakeSessionStore{
		bundle: &types.TokenBundle{AccessToken: "at", RefreshToken: "rt1", ExpiresAt: now.Add(3 * time.Minute)},
	}
	m := newTestMiddleware(store, &fakeRefresher{bundle: fresh}, now)

	serve(t, m, "/api/v1/session", true)

	if store.storedBundle == nil || store.storedBundle.RefreshToken != "rt2" {
		t.Errorf("rotated refresh token not persisted: %+v", store.storedBundle)
	}
}
