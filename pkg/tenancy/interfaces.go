// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"context"

	"github.com/canonical/session-gateway/internal/types"
)

type ResolverInterface interface {
	// TenantID returns the tenant the current request operates in, if one
	// has been established.
	TenantID(ctx context.Context) (string, bool)
	// UserID returns the authenticated user behind the request, if any.
	UserID(ctx context.Context) (string, bool)
	// IsPlatformTenant reports whether the request runs in the platform
	// tenant.
	IsPlatformTenant(ctx context.Context) bool
	// SetTenantID and ClearTenantID always fail; the tenant is
	// established through selection, never mutated on a request.
	SetTenantID(ctx context.Context, tenantID string) error
	ClearTenantID(ctx context.Context) error
}

type ServiceInterface interface {
	GetAvailableTenants(ctx context.Context, userID string) ([]*types.Tenant, error)
	// SelectTenant validates the user's access to the tenant, persists
	// the choice on the session and returns the established context.
	// Denials are uniform: a missing tenant, a disabled tenant and a
	// missing membership all come back as ErrAccessDenied.
	SelectTenant(ctx context.Context, data *types.SessionData, tenantID string) (*types.TenantContext, error)
	// ValidateAccess is a cheap membership pre-check: denial is false,
	// not an error.
	ValidateAccess(ctx context.Context, tenantID, userID string) (bool, error)
	IsPlatformAdmin(ctx context.Context, userID string) (bool, error)
}

// SessionWriterInterface is the slice of the session store tenant
// selection needs to persist the selected tenant.
type SessionWriterInterface interface {
	StoreSessionData(ctx context.Context, sessionID string, data *types.SessionData) error
}
