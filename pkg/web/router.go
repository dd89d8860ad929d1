// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/canonical/session-gateway/internal/db"
	"github.com/canonical/session-gateway/internal/logging"
	"github.com/canonical/session-gateway/internal/monitoring"
	"github.com/canonical/session-gateway/internal/tracing"
	"github.com/canonical/session-gateway/pkg/authentication"
	"github.com/canonical/session-gateway/pkg/metrics"
	"github.com/canonical/session-gateway/pkg/refresh"
	"github.com/canonical/session-gateway/pkg/status"
	"github.com/canonical/session-gateway/pkg/tenancy"
)

func NewRouter(
	authAPI *authentication.API,
	tenancyAPI *tenancy.API,
	claimsMiddleware *authentication.Middleware,
	principalMiddleware *tenancy.Middleware,
	refreshMiddleware *refresh.Middleware,
	dbClient db.DBClientInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) http.Handler {
	router := chi.NewMux()

	middlewares := make(chi.Middlewares, 0)
	middlewares = append(
		middlewares,
		middleware.RequestID,
		monitoring.NewMiddleware(monitor, logger).ResponseTime(),
		middlewareCORS([]string{"*"}),
		claimsMiddleware.ExtractClaims(),
		// Refresh must run before the principal is resolved so handlers
		// see the post-refresh session state.
		refreshMiddleware.RefreshTokens(),
		principalMiddleware.ResolvePrincipal(),
		db.TransactionMiddleware(dbClient, logger),
	)

	router.Use(middlewares...)

	metrics.NewAPI(logger).RegisterEndpoints(router)
	status.NewAPI(tracer, monitor, logger).RegisterEndpoints(router)
	authAPI.RegisterEndpoints(router)
	tenancyAPI.RegisterEndpoints(router)

	return tracing.NewMiddleware(monitor, logger).OpenTelemetry(router)
}
