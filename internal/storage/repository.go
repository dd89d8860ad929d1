// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/canonical/session-gateway/internal/db"
	"github.com/canonical/session-gateway/internal/logging"
	"github.com/canonical/session-gateway/internal/monitoring"
	"github.com/canonical/session-gateway/internal/tracing"
)

type QueryOption func(*queryOptions)

type queryOptions struct {
	ignoreQueryFilters bool
}

// IgnoreQueryFilters asks a read to skip the soft-delete and tenant row
// filters. It is only honored when the request runs in the platform
// tenant; everyone else keeps their filters.
func IgnoreQueryFilters() QueryOption {
	return func(o *queryOptions) {
		o.ignoreQueryFilters = true
	}
}

func applyOptions(opts []QueryOption) queryOptions {
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type ListParams struct {
	Page               int64
	Size               int64
	Filter             sq.Sqlizer
	OrderBy            string
	Descending         bool
	IgnoreQueryFilters bool
}

type Page[T Entity] struct {
	Items []T
	Total uint64
	Page  uint64
	Size  uint64
}

func (p *Page[T]) TotalPages() uint64 {
	if p.Size == 0 {
		return 0
	}
	return (p.Total + p.Size - 1) / p.Size
}

func (p *Page[T]) HasPrevious() bool { return p.Page > 1 }

func (p *Page[T]) HasNext() bool { return p.Page < p.TotalPages() }

var _ RepositoryInterface[Entity] = (*Repository[Entity])(nil)

// Repository is the generic tenant-scoped data access layer. Every read
// filters out soft-deleted rows, and for tenant-owned entities also rows
// outside the request's tenant. Every write stamps the tenant and audit
// columns from the request context. The tenant always comes from ctx via
// the resolver, never from method arguments, so one request can never
// act on another tenant's rows.
type Repository[T Entity] struct {
	db       db.DBClientInterface
	resolver TenantResolverInterface
	factory  func() T

	tenantOwned bool
	auditable   bool

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewRepository[T Entity](dbc db.DBClientInterface, resolver TenantResolverInterface, factory func() T, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Repository[T] {
	r := new(Repository[T])

	r.db = dbc
	r.resolver = resolver
	r.factory = factory

	sample := any(factory())
	_, r.tenantOwned = sample.(TenantOwned)
	_, r.auditable = sample.(Auditable)

	r.logger = logger
	r.tracer = tracer
	r.monitor = monitor

	return r
}

// readFilter builds the row filter for reads on this entity. A nil return
// means no filtering, which only happens for a platform-tenant request
// that explicitly asked for it.
func (r *Repository[T]) readFilter(ctx context.Context, ignoreFilters bool) sq.Sqlizer {
	if ignoreFilters && r.resolver.IsPlatformTenant(ctx) {
		return nil
	}

	var filter sq.And
	if r.auditable {
		filter = append(filter, sq.Eq{"is_deleted": false})
	}
	if r.tenantOwned {
		tenantID, ok := r.resolver.TenantID(ctx)
		if !ok {
			// Tenant-owned rows are unreachable until a tenant is selected.
			return sq.Expr("FALSE")
		}
		filter = append(filter, sq.Eq{"tenant_id": tenantID})
	}

	if len(filter) == 0 {
		return nil
	}
	return filter
}

func (r *Repository[T]) Create(ctx context.Context, entity T) (T, error) {
	ctx, span := r.tracer.Start(ctx, "storage.Repository.Create")
	defer span.End()

	var zero T

	id, err := uuid.NewV7()
	if err != nil {
		return zero, fmt.Errorf("failed to generate id: %w", err)
	}
	entity.SetID(id.String())

	// Stamp the tenant only when the caller left it unset; pre-selection
	// code paths set it explicitly.
	if owned, ok := any(entity).(TenantOwned); ok && owned.GetTenantID() == "" {
		tenantID, found := r.resolver.TenantID(ctx)
		if !found {
			return zero, fmt.Errorf("create %s: %w", entity.TableName(), ErrTenantRequired)
		}
		owned.SetTenantID(tenantID)
	}

	if aud, ok := any(entity).(Auditable); ok {
		aud.StampCreate(time.Now().UTC())
	}

	_, err = r.db.Statement(ctx).
		Insert(entity.TableName()).
		Columns(entity.Columns()...).
		Values(entity.Values()...).
		ExecContext(ctx)

	if err != nil {
		if IsDuplicateKeyError(err) {
			return zero, ErrDuplicateKey
		}
		if IsForeignKeyViolation(err) {
			return zero, ErrForeignKeyViolation
		}
		return zero, fmt.Errorf("failed to insert into %s: %w", entity.TableName(), err)
	}

	return entity, nil
}

func (r *Repository[T]) GetByID(ctx context.Context, id string, opts ...QueryOption) (T, error) {
	ctx, span := r.tracer.Start(ctx, "storage.Repository.GetByID")
	defer span.End()

	var zero T
	o := applyOptions(opts)

	entity := r.factory()
	query := r.db.Statement(ctx).
		Select(entity.Columns()...).
		From(entity.TableName()).
		Where(sq.Eq{"id": id})
	if filter := r.readFilter(ctx, o.ignoreQueryFilters); filter != nil {
		query = query.Where(filter)
	}

	err := query.QueryRowContext(ctx).Scan(entity.ScanDest()...)
	if err != nil {
		if isNoRows(err) {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("failed to get %s: %w", entity.TableName(), err)
	}

	return entity, nil
}

func (r *Repository[T]) List(ctx context.Context, params ListParams) (*Page[T], error) {
	ctx, span := r.tracer.Start(ctx, "storage.Repository.List")
	defer span.End()

	sample := r.factory()
	filter := r.readFilter(ctx, params.IgnoreQueryFilters)

	countQuery := r.db.Statement(ctx).
		Select("COUNT(*)").
		From(sample.TableName())
	if filter != nil {
		countQuery = countQuery.Where(filter)
	}
	if params.Filter != nil {
		countQuery = countQuery.Where(params.Filter)
	}

	var total uint64
	if err := countQuery.QueryRowContext(ctx).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", sample.TableName(), err)
	}

	size := db.PageSize(params.Size)
	offset := db.Offset(params.Page, size)

	orderBy := params.OrderBy
	if orderBy == "" {
		orderBy = "id"
	}
	if params.Descending {
		orderBy += " DESC"
	}

	query := r.db.Statement(ctx).
		Select(sample.Columns()...).
		From(sample.TableName())
	if filter != nil {
		query = query.Where(filter)
	}
	if params.Filter != nil {
		query = query.Where(params.Filter)
	}
	query = query.OrderBy(orderBy).Limit(size).Offset(offset)

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", sample.TableName(), err)
	}
	defer rows.Close()

	items := make([]T, 0, size)
	for rows.Next() {
		entity := r.factory()
		if err := rows.Scan(entity.ScanDest()...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", sample.TableName(), err)
		}
		items = append(items, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	page := params.Page
	if page <= 0 {
		page = 1
	}

	return &Page[T]{Items: items, Total: total, Page: uint64(page), Size: size}, nil
}

func (r *Repository[T]) Update(ctx context.Context, entity T) (T, error) {
	ctx, span := r.tracer.Start(ctx, "storage.Repository.Update")
	defer span.End()

	var zero T

	if aud, ok := any(entity).(Auditable); ok {
		aud.StampUpdate(time.Now().UTC())
	}

	cols := entity.Columns()
	vals := entity.Values()
	updateMap := make(map[string]interface{}, len(cols))
	for i, col := range cols {
		switch col {
		// Identity, ownership and soft-delete columns never change on update.
		case "id", "tenant_id", "created_at", "is_deleted", "deleted_at", "deleted_by":
			continue
		}
		updateMap[col] = vals[i]
	}

	// Writes always keep their filters; ignoreQueryFilters is a read-only
	// affordance.
	query := r.db.Statement(ctx).
		Update(entity.TableName()).
		SetMap(updateMap).
		Where(sq.Eq{"id": entity.GetID()})
	if filter := r.readFilter(ctx, false); filter != nil {
		query = query.Where(filter)
	}

	res, err := query.ExecContext(ctx)
	if err != nil {
		if IsDuplicateKeyError(err) {
			return zero, ErrDuplicateKey
		}
		return zero, fmt.Errorf("failed to update %s: %w", entity.TableName(), err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return zero, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return zero, ErrNotFound
	}

	return entity, nil
}

// Delete removes a row within the request's tenant. Auditable entities
// are soft deleted with the acting user recorded; anything else is a
// hard delete.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "storage.Repository.Delete")
	defer span.End()

	sample := r.factory()

	where := sq.And{sq.Eq{"id": id}}
	if filter := r.readFilter(ctx, false); filter != nil {
		where = append(where, filter)
	}

	var (
		res sql.Result
		err error
	)
	if r.auditable {
		now := time.Now().UTC()
		var deletedBy interface{}
		if actor, ok := r.resolver.UserID(ctx); ok {
			deletedBy = actor
		}
		res, err = r.db.Statement(ctx).
			Update(sample.TableName()).
			SetMap(map[string]interface{}{
				"is_deleted": true,
				"deleted_at": now,
				"deleted_by": deletedBy,
				"updated_at": now,
			}).
			Where(where).
			ExecContext(ctx)
	} else {
		res, err = r.db.Statement(ctx).
			Delete(sample.TableName()).
			Where(where).
			ExecContext(ctx)
	}

	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", sample.TableName(), err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// HardDelete physically removes a row regardless of soft-delete state or
// tenant ownership. It is an administrative purge and only platform-tenant
// requests may use it.
func (r *Repository[T]) HardDelete(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "storage.Repository.HardDelete")
	defer span.End()

	if !r.resolver.IsPlatformTenant(ctx) {
		return ErrAuthorization
	}

	sample := r.factory()

	res, err := r.db.Statement(ctx).
		Delete(sample.TableName()).
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge from %s: %w", sample.TableName(), err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
