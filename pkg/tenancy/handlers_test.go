// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chi "github.com/go-chi/chi/v5"

	httpTypes "github.com/canonical/session-gateway/internal/http/types"
	"github.com/canonical/session-gateway/internal/logging"
	"github.com/canonical/session-gateway/internal/monitoring"
	"github.com/canonical/session-gateway/internal/tracing"
	"github.com/canonical/session-gateway/internal/types"
)

type fakeService struct {
	tenants       []*types.Tenant
	tenantContext *types.TenantContext
	err           error
}

func (f *fakeService) GetAvailableTenants(ctx context.Context, userID string) ([]*types.Tenant, error) {
	return f.tenants, f.err
}

func (f *fakeService) SelectTenant(ctx context.Context, data *types.SessionData, tenantID string) (*types.TenantContext, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tenantContext, nil
}

func (f *fakeService) ValidateAccess(ctx context.Context, tenantID, userID string) (bool, error) {
	return f.err == nil, nil
}

func (f *fakeService) IsPlatformAdmin(ctx context.Context, userID string) (bool, error) {
	return false, f.err
}

func newTestAPI(service ServiceInterface) *chi.Mux {
	mux := chi.NewMux()
	api := NewAPI(service, tracing.NewNoopTracer(), monitoring.NewNoopMonitor(), logging.NewNoopLogger())
	api.RegisterEndpoints(mux)
	return mux
}

func authenticatedRequest(method, target, body string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := WithPrincipal(r.Context(), &Principal{
		SessionID: "sess-1",
		Session:   &types.SessionData{ID: "sess-1", UserID: "user-1"},
	})
	return r.WithContext(ctx)
}

func TestHandleAvailable(t *testing.T) {
	tests := []struct {
		name       string
		request    *http.Request
		service    *fakeService
		wantStatus int
	}{
		{
			name:       "unauthenticated",
			request:    httptest.NewRequest(http.MethodGet, "/api/v1/tenants/available", nil),
			service:    &fakeService{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:    "success",
			request: authenticatedRequest(http.MethodGet, "/api/v1/tenants/available", ""),
			service: &fakeService{tenants: []*types.Tenant{
				{ID: "tenant-1", Slug: "one", Name: "Tenant One", Enabled: true},
			}},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestAPI(tt.service)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, tt.request)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}

			var envelope httpTypes.Response
			if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
				t.Fatalf("failed to decode envelope: %v", err)
			}
			if envelope.Status != tt.wantStatus {
				t.Errorf("envelope status = %d, want %d", envelope.Status, tt.wantStatus)
			}
		})
	}
}

func TestHandleSelect(t *testing.T) {
	granted := types.NewTenantContext("tenant-1", "Tenant One", false, []string{"Viewer"})

	tests := []struct {
		name       string
		request    *http.Request
		service    *fakeService
		wantStatus int
	}{
		{
			name:       "unauthenticated",
			request:    httptest.NewRequest(http.MethodPost, "/api/v1/tenants/select", strings.NewReader(`{}`)),
			service:    &fakeService{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid body",
			request:    authenticatedRequest(http.MethodPost, "/api/v1/tenants/select", `{"tenant_id": "not-a-uuid"}`),
			service:    &fakeService{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "denied",
			request:    authenticatedRequest(http.MethodPost, "/api/v1/tenants/select", `{"tenant_id": "0198fa6d-1111-7aaa-8aaa-aaaaaaaaaaaa"}`),
			service:    &fakeService{err: ErrAccessDenied},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "success",
			request:    authenticatedRequest(http.MethodPost, "/api/v1/tenants/select", `{"tenant_id": "0198fa6d-1111-7aaa-8aaa-aaaaaaaaaaaa"}`),
			service:    &fakeService{tenantContext: &granted},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestAPI(tt.service)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, tt.request)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}

			if tt.wantStatus == http.StatusOK {
				var envelope struct {
					Data selectTenantResponse `json:"data"`
				}
				if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
					t.Fatalf("failed to decode envelope: %v", err)
				}
				if envelope.Data.TenantID != "tenant-1" {
					t.Errorf("unexpected tenant in response: %s", envelope.Data.TenantID)
				}
			}
		})
	}
}
