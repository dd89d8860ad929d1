// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"time"

	"github.com/canonical/session-gateway/internal/types"
)

// Entity is the contract every relational entity satisfies so the generic
// repository can build statements for it. Columns, Values and ScanDest
// must use the same column order.
type Entity interface {
	TableName() string
	Columns() []string
	Values() []any
	ScanDest() []any
	GetID() string
	SetID(id string)
}

// TenantOwned marks entities whose rows belong to exactly one tenant. The
// repository stamps tenant_id on writes and filters on it on reads.
type TenantOwned interface {
	GetTenantID() string
	SetTenantID(id string)
}

// Auditable marks entities carrying audit columns. Deletes on auditable
// entities are soft deletes.
type Auditable interface {
	MarkDeleted(by string, at time.Time)
	StampCreate(now time.Time)
	StampUpdate(now time.Time)
}

// TenantResolverInterface is the repository's view of the per-request
// tenant resolution. Implemented by pkg/tenancy; defined here so storage
// does not import it.
type TenantResolverInterface interface {
	TenantID(ctx context.Context) (string, bool)
	UserID(ctx context.Context) (string, bool)
	IsPlatformTenant(ctx context.Context) bool
}

// RepositoryInterface is the tenant-scoped data access contract. All
// methods derive their tenant from ctx, never from arguments.
type RepositoryInterface[T Entity] interface {
	Create(ctx context.Context, entity T) (T, error)
	GetByID(ctx context.Context, id string, opts ...QueryOption) (T, error)
	List(ctx context.Context, params ListParams) (*Page[T], error)
	Update(ctx context.Context, entity T) (T, error)
	Delete(ctx context.Context, id string) error
	HardDelete(ctx context.Context, id string) error
}

// TenancyStorageInterface covers the queries tenant selection needs. They
// run before a tenant is established for the request, so they take the
// user explicitly instead of reading it from ctx.
type TenancyStorageInterface interface {
	CreateTenant(ctx context.Context, t *types.Tenant) (*types.Tenant, error)
	GetTenantByID(ctx context.Context, id string) (*types.Tenant, error)
	GetPlatformTenant(ctx context.Context) (*types.Tenant, error)
	ListAvailableTenants(ctx context.Context, userID string) ([]*types.Tenant, error)
	GetMembership(ctx context.Context, tenantID, userID string) (*types.TenantUser, error)
	ListEffectiveRoles(ctx context.Context, tenantID, userID string) ([]string, error)
	AddMember(ctx context.Context, tenantID, userID string) (*types.TenantUser, error)
	AssignRole(ctx context.Context, tenantID, tenantUserID, roleName string, expiresAt *time.Time) (*types.UserRole, error)
}
