// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"context"
	"net/http"

	"github.com/canonical/session-gateway/internal/logging"
	"github.com/canonical/session-gateway/internal/monitoring"
	"github.com/canonical/session-gateway/internal/tracing"
	"github.com/canonical/session-gateway/internal/types"
	"github.com/canonical/session-gateway/pkg/authentication"
)

// SessionReaderInterface is the slice of the session store the middleware
// needs to load the request's session.
type SessionReaderInterface interface {
	GetSessionData(ctx context.Context, sessionID string) (*types.SessionData, error)
}

// Middleware builds the request's principal exactly once, from the
// session cookie and any verified token claims. Everything downstream
// reads tenant and user through the resolver, so tenant state never
// outlives the request.
type Middleware struct {
	sessions   SessionReaderInterface
	cookieName string

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewMiddleware(sessions SessionReaderInterface, cookieName string, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Middleware {
	m := new(Middleware)

	m.sessions = sessions
	m.cookieName = cookieName

	m.tracer = tracer
	m.monitor = monitor
	m.logger = logger

	return m
}

func (m *Middleware) ResolvePrincipal() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := m.tracer.Start(r.Context(), "tenancy.Middleware.ResolvePrincipal")
			defer span.End()

			principal := new(Principal)

			if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
				principal.SessionID = cookie.Value

				data, err := m.sessions.GetSessionData(ctx, cookie.Value)
				if err != nil {
					m.logger.Warnf("failed to load session data: %v", err)
				} else {
					principal.Session = data
				}
			}

			if claims, ok := authentication.GetClaims(ctx); ok {
				principal.Claims = claims
			}

			ctx = WithPrincipal(ctx, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
