// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"slices"
	"time"
)

// Role names with special meaning for tenant and platform administration.
const (
	RoleAdmin       = "Admin"
	RoleTenantAdmin = "TenantAdmin"
)

// AuditFields are shared by every tenant-scoped relational entity. Soft
// delete is the only delete path normal code takes; the columns stay
// behind for history.
type AuditFields struct {
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	IsDeleted bool       `db:"is_deleted"`
	DeletedAt *time.Time `db:"deleted_at"`
	DeletedBy *string    `db:"deleted_by"`
}

// MarkDeleted flips the audit columns for a soft delete.
func (a *AuditFields) MarkDeleted(by string, at time.Time) {
	a.IsDeleted = true
	a.DeletedAt = &at
	a.DeletedBy = &by
}

// StampCreate sets both timestamps for a new row.
func (a *AuditFields) StampCreate(now time.Time) {
	a.CreatedAt = now
	a.UpdatedAt = now
}

// StampUpdate bumps updated_at only.
func (a *AuditFields) StampUpdate(now time.Time) {
	a.UpdatedAt = now
}

type Tenant struct {
	ID         string `db:"id"`
	Slug       string `db:"slug"`
	Name       string `db:"name"`
	IsPlatform bool   `db:"is_platform"`
	Enabled    bool   `db:"enabled"`

	AuditFields
}

type TenantUser struct {
	ID       string    `db:"id"`
	TenantID string    `db:"tenant_id"`
	UserID   string    `db:"user_id"`
	Active   bool      `db:"active"`
	JoinedAt time.Time `db:"joined_at"`

	AuditFields
}

type Role struct {
	ID       string `db:"id"`
	TenantID string `db:"tenant_id"`
	Name     string `db:"name"`

	AuditFields
}

type UserRole struct {
	ID           string     `db:"id"`
	TenantID     string     `db:"tenant_id"`
	TenantUserID string     `db:"tenant_user_id"`
	RoleID       string     `db:"role_id"`
	ExpiresAt    *time.Time `db:"expires_at"`

	AuditFields
}

// Effective reports whether a role grant currently applies.
func (ur *UserRole) Effective(now time.Time) bool {
	if ur.IsDeleted {
		return false
	}
	return ur.ExpiresAt == nil || ur.ExpiresAt.After(now)
}

// TokenBundle holds the OAuth2 tokens for one session. It is replaced
// wholesale on every refresh so ExpiresAt always describes AccessToken.
type TokenBundle struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	TokenType    string    `json:"token_type"`
	Scopes       []string  `json:"scopes,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SessionData is the plaintext session metadata. It deliberately carries
// no secrets so it can be inspected and logged for diagnostics.
type SessionData struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Username        string    `json:"username,omitempty"`
	Email           string    `json:"email,omitempty"`
	TenantID        *string   `json:"tenant_id,omitempty"`
	TenantName      string    `json:"tenant_name,omitempty"`
	TenantRoles     []string  `json:"tenant_roles,omitempty"`
	IsPlatformAdmin bool      `json:"is_platform_admin"`
	CreatedAt       time.Time `json:"created_at"`
	LastAccessedAt  time.Time `json:"last_accessed_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	IPAddress       string    `json:"ip_address,omitempty"`
	UserAgent       string    `json:"user_agent,omitempty"`
}

// TenantContext is the immutable "user U operates in tenant T with roles R"
// value produced on tenant selection. Construct via NewTenantContext and
// never mutate.
type TenantContext struct {
	tenantID   string
	tenantName string
	isPlatform bool
	roles      []string
	selectedAt time.Time
}

func NewTenantContext(tenantID, tenantName string, isPlatform bool, roles []string) TenantContext {
	return TenantContext{
		tenantID:   tenantID,
		tenantName: tenantName,
		isPlatform: isPlatform,
		roles:      slices.Clone(roles),
		selectedAt: time.Now().UTC(),
	}
}

func (c TenantContext) TenantID() string      { return c.tenantID }
func (c TenantContext) TenantName() string    { return c.tenantName }
func (c TenantContext) IsPlatform() bool      { return c.isPlatform }
func (c TenantContext) Roles() []string       { return slices.Clone(c.roles) }
func (c TenantContext) SelectedAt() time.Time { return c.selectedAt }

func (c TenantContext) IsAdmin() bool {
	return slices.Contains(c.roles, RoleAdmin) || slices.Contains(c.roles, RoleTenantAdmin)
}

func (c TenantContext) IsPlatformAdmin() bool {
	return c.isPlatform && slices.Contains(c.roles, RoleAdmin)
}
