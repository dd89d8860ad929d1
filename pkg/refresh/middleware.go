// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package refresh

import (
	"net/http"
	"time"

	"github.com/canonical/session-gateway/internal/logging"
	"github.com/canonical/session-gateway/internal/monitoring"
	"github.com/canonical/session-gateway/internal/tracing"
)

// DefaultThreshold is how close to expiry a token must be before the
// middleware refreshes it. A token exactly at the threshold is due.
const DefaultThreshold = 5 * time.Minute

// Paths where refreshing makes no sense: either no session exists yet or
// the session is being torn down.
var defaultExcludedPaths = map[string]struct{}{
	"/api/v1/status":                {},
	"/api/v1/metrics":               {},
	"/api/v1/auth/login":            {},
	"/api/v1/auth/callback":         {},
	"/api/v1/auth/logout":           {},
	"/api/v1/auth/signout-callback": {},
}

// Middleware refreshes an expiring access token inline, on the request
// that discovers it. Refresh is best effort: no outcome here may fail the
// original request.
type Middleware struct {
	store      SessionStoreInterface
	refresher  RefresherInterface
	cookieName string
	threshold  time.Duration
	excluded   map[string]struct{}

	// now is overridable in tests
	now func() time.Time

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewMiddleware(
	store SessionStoreInterface,
	refresher RefresherInterface,
	cookieName string,
	threshold time.Duration,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Middleware {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	return &Middleware{
		store:      store,
		refresher:  refresher,
		cookieName: cookieName,
		threshold:  threshold,
		excluded:   defaultExcludedPaths,
		now:        time.Now,
		tracer:     tracer,
		monitor:    monitor,
		logger:     logger,
	}
}

func (m *Middleware) RefreshTokens() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := m.excluded[r.URL.Path]; skip {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(m.cookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			m.refreshIfDue(r, cookie.Value)
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) refreshIfDue(r *http.Request, sessionID string) {
	ctx, span := m.tracer.Start(r.Context(), "refresh.Middleware.RefreshTokens")
	defer span.End()

	bundle, err := m.store.GetTokens(ctx, sessionID)
	if err != nil {
		m.logger.Errorf("failed to load tokens for session %s: %v", sessionID, err)
		return
	}
	if bundle == nil || bundle.RefreshToken == "" {
		// Nothing refreshable.
		return
	}

	now := m.now()
	if bundle.ExpiresAt.Sub(now) > m.threshold {
		return
	}

	fresh, err := m.refresher.Refresh(ctx, bundle.RefreshToken)
	if err != nil {
		// The user continues with possibly stale credentials; the next
		// request retries.
		m.logger.Errorf("token refresh for session %s failed, continuing unrefreshed: %v", sessionID, err)
		return
	}

	// Providers rotate the refresh token only sometimes. An omitted
	// refresh token or scope list means the previous ones still stand;
	// persisting the blanks would strand the session unrefreshable.
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = bundle.RefreshToken
	}
	if len(fresh.Scopes) == 0 {
		fresh.Scopes = bundle.Scopes
	}

	if err := m.store.StoreTokens(ctx, sessionID, fresh); err != nil {
		m.logger.Errorf("failed to persist refreshed tokens for session %s: %v", sessionID, err)
		return
	}

	if err := m.store.ExtendSession(ctx, sessionID, fresh.ExpiresAt.Sub(now)); err != nil {
		m.logger.Errorf("failed to extend session %s after refresh: %v", sessionID, err)
		return
	}

	m.logger.Security().TokenRefreshed(sessionID)
}
