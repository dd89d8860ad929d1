// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/canonical/session-gateway/internal/logging"
	"github.com/canonical/session-gateway/internal/monitoring"
	"github.com/canonical/session-gateway/internal/storage"
	"github.com/canonical/session-gateway/internal/tracing"
	"github.com/canonical/session-gateway/internal/types"
)

// ErrAccessDenied covers every way a tenant selection can be refused.
// Callers get the same error whether the tenant does not exist, is
// disabled, or the user is not a member, so responses cannot be used to
// probe which tenants exist.
var ErrAccessDenied = errors.New("access to tenant denied")

var _ ServiceInterface = (*Service)(nil)

type Service struct {
	storage  storage.TenancyStorageInterface
	sessions SessionWriterInterface

	platformTenantID string

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewService(s storage.TenancyStorageInterface, sessions SessionWriterInterface, platformTenantID string, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Service {
	svc := new(Service)

	svc.storage = s
	svc.sessions = sessions
	svc.platformTenantID = platformTenantID

	svc.tracer = tracer
	svc.monitor = monitor
	svc.logger = logger

	return svc
}

func (s *Service) GetAvailableTenants(ctx context.Context, userID string) ([]*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "tenancy.Service.GetAvailableTenants")
	defer span.End()

	tenants, err := s.storage.ListAvailableTenants(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list available tenants: %w", err)
	}

	return tenants, nil
}

// checkAccess verifies that the tenant is enabled and the user holds an
// active membership in it, answering every refusal with ErrAccessDenied.
func (s *Service) checkAccess(ctx context.Context, tenantID, userID string) error {
	tenant, err := s.storage.GetTenantByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrAccessDenied
		}
		return fmt.Errorf("failed to load tenant: %w", err)
	}
	if !tenant.Enabled {
		return ErrAccessDenied
	}

	membership, err := s.storage.GetMembership(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrAccessDenied
		}
		return fmt.Errorf("failed to load membership: %w", err)
	}
	if !membership.Active {
		return ErrAccessDenied
	}

	return nil
}

// ValidateAccess is the boolean pre-check variant of the membership
// validation. A denial is a false, not an error; infrastructure failures
// still surface.
func (s *Service) ValidateAccess(ctx context.Context, tenantID, userID string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "tenancy.Service.ValidateAccess")
	defer span.End()

	err := s.checkAccess(ctx, tenantID, userID)
	if errors.Is(err, ErrAccessDenied) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) SelectTenant(ctx context.Context, data *types.SessionData, tenantID string) (*types.TenantContext, error) {
	ctx, span := s.tracer.Start(ctx, "tenancy.Service.SelectTenant")
	defer span.End()

	if err := s.checkAccess(ctx, tenantID, data.UserID); err != nil {
		if errors.Is(err, ErrAccessDenied) {
			s.logger.Security().AuthzFailure(data.UserID, fmt.Sprintf("select tenant %s", tenantID))
		}
		return nil, err
	}

	tenant, err := s.storage.GetTenantByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}

	roles, err := s.storage.ListEffectiveRoles(ctx, tenantID, data.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	tenantContext := types.NewTenantContext(tenant.ID, tenant.Name, tenant.IsPlatform, roles)

	data.TenantID = &tenant.ID
	data.TenantName = tenant.Name
	data.TenantRoles = tenantContext.Roles()
	data.IsPlatformAdmin = tenantContext.IsPlatformAdmin()

	if err := s.sessions.StoreSessionData(ctx, data.ID, data); err != nil {
		return nil, fmt.Errorf("failed to persist tenant selection: %w", err)
	}

	s.logger.Security().TenantSelected(data.UserID, tenant.ID)

	return &tenantContext, nil
}

// IsPlatformAdmin reports whether the user currently holds the Admin role
// in the platform tenant.
func (s *Service) IsPlatformAdmin(ctx context.Context, userID string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "tenancy.Service.IsPlatformAdmin")
	defer span.End()

	membership, err := s.storage.GetMembership(ctx, s.platformTenantID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load platform membership: %w", err)
	}
	if !membership.Active {
		return false, nil
	}

	roles, err := s.storage.ListEffectiveRoles(ctx, s.platformTenantID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load platform roles: %w", err)
	}

	for _, role := range roles {
		if role == types.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}
