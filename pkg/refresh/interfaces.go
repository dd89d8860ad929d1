// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package refresh

import (
	"context"
	"time"

	"github.com/canonical/session-gateway/internal/types"
)

// TokenClientInterface performs a single refresh-token grant against the
// identity provider's token endpoint.
type TokenClientInterface interface {
	RefreshGrant(ctx context.Context, refreshToken string) (*types.TokenBundle, error)
}

// RefresherInterface wraps the grant with the retry policy.
type RefresherInterface interface {
	Refresh(ctx context.Context, refreshToken string) (*types.TokenBundle, error)
}

// SessionStoreInterface is the subset of the session store the middleware
// needs.
type SessionStoreInterface interface {
	GetTokens(ctx context.Context, sessionID string) (*types.TokenBundle, error)
	StoreTokens(ctx context.Context, sessionID string, bundle *types.TokenBundle) error
	ExtendSession(ctx context.Context, sessionID string, extension time.Duration) error
}
