// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"context"
	"errors"

	"github.com/canonical/session-gateway/internal/logging"
	"github.com/canonical/session-gateway/internal/monitoring"
	"github.com/canonical/session-gateway/internal/storage"
	"github.com/canonical/session-gateway/internal/tracing"
)

// ErrNotSupported is returned by the resolver's mutators. The tenant for
// a request is derived from the session or token claims; allowing callers
// to set it directly would let one request leak its tenant into another.
// Tenant changes go through the selection service, which updates the
// session instead.
var ErrNotSupported = errors.New("tenant is established by selection, not set directly")

// Claim names checked, in order, when the session carries no tenant or
// user. The session always wins over claims.
var (
	tenantClaims = []string{"tenant_id", "tid"}
	userClaims   = []string{"sub", "user_id", "uid"}
)

var (
	_ ResolverInterface               = (*Resolver)(nil)
	_ storage.TenantResolverInterface = (*Resolver)(nil)
)

// Resolver answers "which tenant and user is this request acting as"
// from the request context alone. It holds no per-request state itself.
type Resolver struct {
	platformTenantID string

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewResolver(platformTenantID string, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Resolver {
	r := new(Resolver)

	r.platformTenantID = platformTenantID

	r.tracer = tracer
	r.monitor = monitor
	r.logger = logger

	return r
}

func (r *Resolver) TenantID(ctx context.Context) (string, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return "", false
	}

	if p.Session != nil && p.Session.TenantID != nil && *p.Session.TenantID != "" {
		return *p.Session.TenantID, true
	}

	return firstStringClaim(p.Claims, tenantClaims)
}

func (r *Resolver) UserID(ctx context.Context) (string, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return "", false
	}

	if p.Session != nil && p.Session.UserID != "" {
		return p.Session.UserID, true
	}

	return firstStringClaim(p.Claims, userClaims)
}

func (r *Resolver) IsPlatformTenant(ctx context.Context) bool {
	id, ok := r.TenantID(ctx)
	return ok && id == r.platformTenantID
}

func (r *Resolver) SetTenantID(ctx context.Context, tenantID string) error {
	return ErrNotSupported
}

func (r *Resolver) ClearTenantID(ctx context.Context) error {
	return ErrNotSupported
}

func firstStringClaim(claims map[string]interface{}, names []string) (string, bool) {
	for _, name := range names {
		if v, ok := claims[name].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}
