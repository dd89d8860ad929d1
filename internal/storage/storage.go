// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/canonical/session-gateway/internal/db"
	"github.com/canonical/session-gateway/internal/logging"
	"github.com/canonical/session-gateway/internal/monitoring"
	"github.com/canonical/session-gateway/internal/tracing"
	"github.com/canonical/session-gateway/internal/types"
)

var _ TenancyStorageInterface = (*TenancyStorage)(nil)

// TenancyStorage answers the membership and role questions tenant
// selection asks. Most of its queries run before the request has a
// tenant, so they scope by explicit arguments and filter soft-deleted
// rows inline; the repository-backed paths consult the per-request
// resolver for tenant stamping and the platform gates.
type TenancyStorage struct {
	db db.DBClientInterface

	tenants *Repository[*types.Tenant]
	members *Repository[*types.TenantUser]
	grants  *Repository[*types.UserRole]

	logger  logging.LoggerInterface
	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
}

func NewTenancyStorage(c db.DBClientInterface, resolver TenantResolverInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *TenancyStorage {
	s := new(TenancyStorage)

	s.db = c

	s.tenants = NewRepository(c, resolver, func() *types.Tenant { return new(types.Tenant) }, tracer, monitor, logger)
	s.members = NewRepository(c, resolver, func() *types.TenantUser { return new(types.TenantUser) }, tracer, monitor, logger)
	s.grants = NewRepository(c, resolver, func() *types.UserRole { return new(types.UserRole) }, tracer, monitor, logger)

	s.logger = logger
	s.tracer = tracer
	s.monitor = monitor

	return s
}

func (s *TenancyStorage) CreateTenant(ctx context.Context, t *types.Tenant) (*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "storage.TenancyStorage.CreateTenant")
	defer span.End()

	created, err := s.tenants.Create(ctx, t)
	if err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return nil, fmt.Errorf("tenant %q: %w", t.Slug, ErrDuplicateKey)
		}
		return nil, err
	}

	return created, nil
}

func (s *TenancyStorage) GetTenantByID(ctx context.Context, id string) (*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "storage.TenancyStorage.GetTenantByID")
	defer span.End()

	return s.tenants.GetByID(ctx, id)
}

// PurgeTenant physically removes a tenant row. The repository only allows
// this for platform-tenant requests; everyone else gets ErrAuthorization.
func (s *TenancyStorage) PurgeTenant(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "storage.TenancyStorage.PurgeTenant")
	defer span.End()

	return s.tenants.HardDelete(ctx, id)
}

func (s *TenancyStorage) GetPlatformTenant(ctx context.Context) (*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "storage.TenancyStorage.GetPlatformTenant")
	defer span.End()

	var t types.Tenant
	err := s.db.Statement(ctx).
		Select(t.Columns()...).
		From(t.TableName()).
		Where(sq.Eq{"is_platform": true, "is_deleted": false}).
		QueryRowContext(ctx).
		Scan(t.ScanDest()...)

	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get platform tenant: %w", err)
	}

	return &t, nil
}

// ListAvailableTenants returns the enabled tenants the user has an active
// membership in, ordered by name. This is what the tenant picker shows.
func (s *TenancyStorage) ListAvailableTenants(ctx context.Context, userID string) ([]*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "storage.TenancyStorage.ListAvailableTenants")
	defer span.End()

	query := s.db.Statement(ctx).
		Select("t.id", "t.slug", "t.name", "t.is_platform", "t.enabled", "t.created_at", "t.updated_at", "t.is_deleted", "t.deleted_at", "t.deleted_by").
		From("tenants t").
		Join("tenant_users tu ON t.id = tu.tenant_id").
		Where(sq.Eq{
			"tu.user_id":    userID,
			"tu.active":     true,
			"tu.is_deleted": false,
			"t.enabled":     true,
			"t.is_deleted":  false,
		}).
		OrderBy("t.name")

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list available tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*types.Tenant
	for rows.Next() {
		var t types.Tenant
		if err := rows.Scan(t.ScanDest()...); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return tenants, nil
}

func (s *TenancyStorage) GetMembership(ctx context.Context, tenantID, userID string) (*types.TenantUser, error) {
	ctx, span := s.tracer.Start(ctx, "storage.TenancyStorage.GetMembership")
	defer span.End()

	var tu types.TenantUser
	err := s.db.Statement(ctx).
		Select(tu.Columns()...).
		From(tu.TableName()).
		Where(sq.Eq{
			"tenant_id":  tenantID,
			"user_id":    userID,
			"is_deleted": false,
		}).
		QueryRowContext(ctx).
		Scan(tu.ScanDest()...)

	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return &tu, nil
}

// ListEffectiveRoles returns the distinct role names currently granted to
// the user in the tenant. Expired and soft-deleted grants do not count.
func (s *TenancyStorage) ListEffectiveRoles(ctx context.Context, tenantID, userID string) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "storage.TenancyStorage.ListEffectiveRoles")
	defer span.End()

	query := s.db.Statement(ctx).
		Select("DISTINCT r.name").
		From("user_roles ur").
		Join("roles r ON ur.role_id = r.id").
		Join("tenant_users tu ON ur.tenant_user_id = tu.id").
		Where(sq.Eq{
			"ur.tenant_id":  tenantID,
			"tu.user_id":    userID,
			"ur.is_deleted": false,
			"r.is_deleted":  false,
			"tu.is_deleted": false,
		}).
		Where(sq.Or{
			sq.Eq{"ur.expires_at": nil},
			sq.Gt{"ur.expires_at": time.Now().UTC()},
		}).
		OrderBy("r.name")

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list effective roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return roles, nil
}

func (s *TenancyStorage) AddMember(ctx context.Context, tenantID, userID string) (*types.TenantUser, error) {
	ctx, span := s.tracer.Start(ctx, "storage.TenancyStorage.AddMember")
	defer span.End()

	return s.members.Create(ctx, &types.TenantUser{
		TenantID: tenantID,
		UserID:   userID,
		Active:   true,
		JoinedAt: time.Now().UTC(),
	})
}

// AssignRole grants a named role to a membership. The role must already
// exist in the tenant.
func (s *TenancyStorage) AssignRole(ctx context.Context, tenantID, tenantUserID, roleName string, expiresAt *time.Time) (*types.UserRole, error) {
	ctx, span := s.tracer.Start(ctx, "storage.TenancyStorage.AssignRole")
	defer span.End()

	var roleID string
	err := s.db.Statement(ctx).
		Select("id").
		From("roles").
		Where(sq.Eq{
			"tenant_id":  tenantID,
			"name":       roleName,
			"is_deleted": false,
		}).
		QueryRowContext(ctx).
		Scan(&roleID)

	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("role %q: %w", roleName, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up role: %w", err)
	}

	return s.grants.Create(ctx, &types.UserRole{
		TenantID:     tenantID,
		TenantUserID: tenantUserID,
		RoleID:       roleID,
		ExpiresAt:    expiresAt,
	})
}
