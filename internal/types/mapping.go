// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

// Column mappings consumed by the generic repository in internal/storage.
// Columns, Values and ScanDest must stay in the same order.

func (t *Tenant) TableName() string { return "tenants" }

func (t *Tenant) Columns() []string {
	return []string{"id", "slug", "name", "is_platform", "enabled", "created_at", "updated_at", "is_deleted", "deleted_at", "deleted_by"}
}

func (t *Tenant) Values() []any {
	return []any{t.ID, t.Slug, t.Name, t.IsPlatform, t.Enabled, t.CreatedAt, t.UpdatedAt, t.IsDeleted, t.DeletedAt, t.DeletedBy}
}

func (t *Tenant) ScanDest() []any {
	return []any{&t.ID, &t.Slug, &t.Name, &t.IsPlatform, &t.Enabled, &t.CreatedAt, &t.UpdatedAt, &t.IsDeleted, &t.DeletedAt, &t.DeletedBy}
}

func (t *Tenant) GetID() string   { return t.ID }
func (t *Tenant) SetID(id string) { t.ID = id }

func (u *TenantUser) TableName() string { return "tenant_users" }

func (u *TenantUser) Columns() []string {
	return []string{"id", "tenant_id", "user_id", "active", "joined_at", "created_at", "updated_at", "is_deleted", "deleted_at", "deleted_by"}
}

func (u *TenantUser) Values() []any {
	return []any{u.ID, u.TenantID, u.UserID, u.Active, u.JoinedAt, u.CreatedAt, u.UpdatedAt, u.IsDeleted, u.DeletedAt, u.DeletedBy}
}

func (u *TenantUser) ScanDest() []any {
	return []any{&u.ID, &u.TenantID, &u.UserID, &u.Active, &u.JoinedAt, &u.CreatedAt, &u.UpdatedAt, &u.IsDeleted, &u.DeletedAt, &u.DeletedBy}
}

func (u *TenantUser) GetID() string          { return u.ID }
func (u *TenantUser) SetID(id string)        { u.ID = id }
func (u *TenantUser) GetTenantID() string    { return u.TenantID }
func (u *TenantUser) SetTenantID(id string)  { u.TenantID = id }

func (r *Role) TableName() string { return "roles" }

func (r *Role) Columns() []string {
	return []string{"id", "tenant_id", "name", "created_at", "updated_at", "is_deleted", "deleted_at", "deleted_by"}
}

func (r *Role) Values() []any {
	return []any{r.ID, r.TenantID, r.Name, r.CreatedAt, r.UpdatedAt, r.IsDeleted, r.DeletedAt, r.DeletedBy}
}

func (r *Role) ScanDest() []any {
	return []any{&r.ID, &r.TenantID, &r.Name, &r.CreatedAt, &r.UpdatedAt, &r.IsDeleted, &r.DeletedAt, &r.DeletedBy}
}

func (r *Role) GetID() string         { return r.ID }
func (r *Role) SetID(id string)       { r.ID = id }
func (r *Role) GetTenantID() string   { return r.TenantID }
func (r *Role) SetTenantID(id string) { r.TenantID = id }

func (ur *UserRole) TableName() string { return "user_roles" }

func (ur *UserRole) Columns() []string {
	return []string{"id", "tenant_id", "tenant_user_id", "role_id", "expires_at", "created_at", "updated_at", "is_deleted", "deleted_at", "deleted_by"}
}

func (ur *UserRole) Values() []any {
	return []any{ur.ID, ur.TenantID, ur.TenantUserID, ur.RoleID, ur.ExpiresAt, ur.CreatedAt, ur.UpdatedAt, ur.IsDeleted, ur.DeletedAt, ur.DeletedBy}
}

func (ur *UserRole) ScanDest() []any {
	return []any{&ur.ID, &ur.TenantID, &ur.TenantUserID, &ur.RoleID, &ur.ExpiresAt, &ur.CreatedAt, &ur.UpdatedAt, &ur.IsDeleted, &ur.DeletedAt, &ur.DeletedBy}
}

func (ur *UserRole) GetID() string         { return ur.ID }
func (ur *UserRole) SetID(id string)       { ur.ID = id }
func (ur *UserRole) GetTenantID() string   { return ur.TenantID }
func (ur *UserRole) SetTenantID(id string) { ur.TenantID = id }
