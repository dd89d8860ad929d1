// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/canonical/session-gateway/internal/logging"
	"github.com/canonical/session-gateway/internal/monitoring"
	"github.com/canonical/session-gateway/internal/tracing"
	"github.com/canonical/session-gateway/internal/types"
)

func newTenancyStorage(runner *fakeRunner) *TenancyStorage {
	return newTenancyStorageWithResolver(runner, &fakeResolver{})
}

func newTenancyStorageWithResolver(runner *fakeRunner, resolver TenantResolverInterface) *TenancyStorage {
	return NewTenancyStorage(
		&fakeDB{runner: runner},
		resolver,
		tracing.NewNoopTracer(),
		monitoring.NewNoopMonitor(),
		logging.NewNoopLogger(),
	)
}

func TestCreateTenant(t *testing.T) {
	runner := &fakeRunner{affected: 1}
	s := newTenancyStorage(runner)

	created, err := s.CreateTenant(context.Background(), &types.Tenant{Slug: "acme", Name: "Acme", Enabled: true})
	if err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}

	if created.ID == "" {
		t.Error("expected a generated id")
	}
	if created.CreatedAt.IsZero() {
		t.Error("expected audit timestamps to be stamped")
	}
	if !strings.HasPrefix(runner.lastSQL, "INSERT INTO tenants") {
		t.Errorf("unexpected statement: %s", runner.lastSQL)
	}
}

func TestAddMember(t *testing.T) {
	runner := &fakeRunner{affected: 1}
	s := newTenancyStorage(runner)

	tu, err := s.AddMember(context.Background(), "tenant-1", "user-1")
	if err != nil {
		t.Fatalf("expected add member to succeed, got %v", err)
	}

	if tu.TenantID != "tenant-1" || tu.UserID != "user-1" {
		t.Errorf("unexpected membership: %+v", tu)
	}
	if !tu.Active {
		t.Error("new memberships must start active")
	}
	if !strings.HasPrefix(runner.lastSQL, "INSERT INTO tenant_users") {
		t.Errorf("unexpected statement: %s", runner.lastSQL)
	}
}

func TestAssignRoleUnknownRole(t *testing.T) {
	runner := &fakeRunner{row: &fakeRow{err: sql.ErrNoRows}}
	s := newTenancyStorage(runner)

	_, err := s.AssignRole(context.Background(), "tenant-1", "tu-1", "Ghost", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown role, got %v", err)
	}
	if !strings.HasPrefix(runner.lastSQL, "SELECT id FROM roles") {
		t.Errorf("expected the role lookup to hit roles, got %s", runner.lastSQL)
	}
}

func TestGetMembershipFiltersDeleted(t *testing.T) {
	runner := &fakeRunner{row: &fakeRow{err: sql.ErrNoRows}}
	s := newTenancyStorage(runner)

	_, err := s.GetMembership(context.Background(), "tenant-1", "user-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(runner.lastSQL, "is_deleted") {
		t.Errorf("expected soft-delete filter, got %s", runner.lastSQL)
	}
}

func TestGetTenantByIDFiltersDeleted(t *testing.T) {
	runner := &fakeRunner{row: &fakeRow{err: sql.ErrNoRows}}
	s := newTenancyStorage(runner)

	_, err := s.GetTenantByID(context.Background(), "tenant-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.HasPrefix(runner.lastSQL, "SELECT") || !strings.Contains(runner.lastSQL, "FROM tenants") {
		t.Errorf("unexpected statement: %s", runner.lastSQL)
	}
	if !strings.Contains(runner.lastSQL, "is_deleted") {
		t.Errorf("expected soft-delete filter, got %s", runner.lastSQL)
	}
}

func TestPurgeTenantRequiresPlatformContext(t *testing.T) {
	runner := &fakeRunner{affected: 1}
	s := newTenancyStorageWithResolver(runner, &fakeResolver{tenantID: "tenant-1", hasTenant: true})

	err := s.PurgeTenant(context.Background(), "tenant-2")
	if !errors.Is(err, ErrAuthorization) {
		t.Fatalf("expected ErrAuthorization outside the platform tenant, got %v", err)
	}
	if runner.lastSQL != "" {
		t.Errorf("no statement may be issued on a denied purge, got %s", runner.lastSQL)
	}
}

func TestPurgeTenantPlatformContext(t *testing.T) {
	runner := &fakeRunner{affected: 1}
	s := newTenancyStorageWithResolver(runner, &fakeResolver{tenantID: "platform", hasTenant: true, platform: true})

	if err := s.PurgeTenant(context.Background(), "tenant-2"); err != nil {
		t.Fatalf("expected purge to succeed, got %v", err)
	}
	if !strings.HasPrefix(runner.lastSQL, "DELETE FROM tenants") {
		t.Errorf("expected a physical delete, got %s", runner.lastSQL)
	}
}
