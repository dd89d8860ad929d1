// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/canonical/session-gateway/internal/logging"
	"github.com/canonical/session-gateway/internal/monitoring"
	"github.com/canonical/session-gateway/internal/tracing"
)

type fakeVerifier struct {
	subject string
	claims  map[string]interface{}
	err     error
}

func (f *fakeVerifier) VerifyToken(ctx context.Context, rawToken string) (string, map[string]interface{}, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.subject, f.claims, nil
}

func TestMiddleware_ExtractClaims(t *testing.T) {
	tests := []struct {
		name               string
		authHeader         string
		verifier           *fakeVerifier
		expectedStatusCode int
		expectedUser       string
	}{
		{
			name:               "missing token passes through anonymously",
			authHeader:         "",
			verifier:           &fakeVerifier{},
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "malformed header passes through anonymously",
			authHeader:         "InvalidToken",
			verifier:           &fakeVerifier{},
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "token verification failure rejects request",
			authHeader:         "Bearer invalid-token",
			verifier:           &fakeVerifier{err: errors.New("invalid token")},
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "valid token",
			authHeader:         "Bearer valid-token",
			verifier:           &fakeVerifier{subject: "user-123", claims: map[string]interface{}{"sub": "user-123", "tenant_id": "tenant-1"}},
			expectedStatusCode: http.StatusOK,
			expectedUser:       "user-123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			middleware := NewMiddleware(tt.verifier, tracing.NewNoopTracer(), monitoring.NewNoopMonitor(), logging.NewNoopLogger())

			var gotUser string
			var gotClaims map[string]interface{}
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, _ = GetUserID(r.Context())
				gotClaims, _ = GetClaims(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			middleware.ExtractClaims()(handler).ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatusCode {
				t.Errorf("expected status %d, got %d", tt.expectedStatusCode, rr.Code)
			}
			if tt.expectedUser != "" {
				if gotUser != tt.expectedUser {
					t.Errorf("expected user %q in context, got %q", tt.expectedUser, gotUser)
				}
				if gotClaims == nil || gotClaims["tenant_id"] != "tenant-1" {
					t.Errorf("expected claims in context, got %v", gotClaims)
				}
			}
			if tt.expectedUser == "" && rr.Code == http.StatusOK && gotUser != "" {
				t.Errorf("expected no identity for anonymous pass-through, got %q", gotUser)
			}
		})
	}
}

func TestMiddleware_GetBearerToken(t *testing.T) {
	tests := []struct {
		name          string
		authHeader    string
		expectedToken string
		expectedFound bool
	}{
		{
			name:          "no Authorization header",
			authHeader:    "",
			expectedToken: "",
			expectedFound: false,
		},
		{
			name:          "bearer token",
			authHeader:    "Bearer my-token-123",
			expectedToken: "my-token-123",
			expectedFound: true,
		},
		{
			name:          "raw token without Bearer prefix",
			authHeader:    "my-token-123",
			expectedToken: "",
			expectedFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			middleware := NewMiddleware(&fakeVerifier{}, tracing.NewNoopTracer(), monitoring.NewNoopMonitor(), logging.NewNoopLogger())

			headers := http.Header{}
			if tt.authHeader != "" {
				headers.Set("Authorization", tt.authHeader)
			}

			token, found := middleware.getBearerToken(headers)

			if token != tt.expectedToken {
				t.Errorf("expected token %q, got %q", tt.expectedToken, token)
			}
			if found != tt.expectedFound {
				t.Errorf("expected found %v, got %v", tt.expectedFound, found)
			}
		})
	}
}
