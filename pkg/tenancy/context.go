// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"context"

	"github.com/canonical/session-gateway/internal/types"
)

// Define a private custom type to avoid collisions
type contextKey struct{}

var principalContextKey = contextKey{}

// Principal is the per-request identity snapshot the resolver reads.
// The middleware builds it once per request; nothing downstream mutates
// it, so two concurrent requests can never observe each other's tenant.
type Principal struct {
	SessionID string
	Session   *types.SessionData
	// Claims holds the verified token claims, used as a fallback when
	// the session carries no tenant.
	Claims map[string]interface{}
}

// WithPrincipal returns a new context carrying the request's principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext retrieves the principal from the context.
// Returns nil and false if no principal is present.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	return p, ok
}
