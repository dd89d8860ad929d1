// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"encoding/json"
	"errors"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/canonical/session-gateway/internal/http/types"
	"github.com/canonical/session-gateway/internal/logging"
	"github.com/canonical/session-gateway/internal/monitoring"
	"github.com/canonical/session-gateway/internal/tracing"
)

type tenantResponse struct {
	ID         string `json:"id"`
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	IsPlatform bool   `json:"is_platform"`
}

type selectTenantRequest struct {
	TenantID string `json:"tenant_id" validate:"required,uuid"`
}

type selectTenantResponse struct {
	TenantID   string   `json:"tenant_id"`
	TenantName string   `json:"tenant_name"`
	Roles      []string `json:"roles"`
}

type API struct {
	service  ServiceInterface
	validate *validator.Validate

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewAPI(service ServiceInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *API {
	a := new(API)

	a.service = service
	a.validate = validator.New(validator.WithRequiredStructEnabled())

	a.tracer = tracer
	a.monitor = monitor
	a.logger = logger

	return a
}

func (a *API) RegisterEndpoints(mux *chi.Mux) {
	mux.Get("/api/v1/tenants/available", a.handleAvailable)
	mux.Post("/api/v1/tenants/select", a.handleSelect)
}

func (a *API) handleAvailable(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "tenancy.API.handleAvailable")
	defer span.End()

	principal, ok := PrincipalFromContext(ctx)
	if !ok || principal.Session == nil {
		types.WriteErrorResponse(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	tenants, err := a.service.GetAvailableTenants(ctx, principal.Session.UserID)
	if err != nil {
		a.logger.Errorf("failed to list available tenants: %v", err)
		types.WriteErrorResponse(w, http.StatusInternalServerError, "failed to list tenants")
		return
	}

	resp := make([]tenantResponse, 0, len(tenants))
	for _, t := range tenants {
		resp = append(resp, tenantResponse{
			ID:         t.ID,
			Slug:       t.Slug,
			Name:       t.Name,
			IsPlatform: t.IsPlatform,
		})
	}

	types.WriteResponse(w, http.StatusOK, resp, "")
}

func (a *API) handleSelect(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "tenancy.API.handleSelect")
	defer span.End()

	principal, ok := PrincipalFromContext(ctx)
	if !ok || principal.Session == nil {
		types.WriteErrorResponse(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req selectTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.validate.Struct(req); err != nil {
		types.WriteErrorResponse(w, http.StatusBadRequest, "tenant_id must be a uuid")
		return
	}

	tenantContext, err := a.service.SelectTenant(ctx, principal.Session, req.TenantID)
	if err != nil {
		if errors.Is(err, ErrAccessDenied) {
			types.WriteErrorResponse(w, http.StatusForbidden, "access to tenant denied")
			return
		}
		a.logger.Errorf("failed to select tenant: %v", err)
		types.WriteErrorResponse(w, http.StatusInternalServerError, "failed to select tenant")
		return
	}

	types.WriteResponse(w, http.StatusOK, selectTenantResponse{
		TenantID:   tenantContext.TenantID(),
		TenantName: tenantContext.TenantName(),
		Roles:      tenantContext.Roles(),
	}, "")
}
