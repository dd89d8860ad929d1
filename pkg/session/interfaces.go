// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package session

import (
	"context"
	"time"

	"github.com/canonical/session-gateway/internal/types"
)

// StoreInterface owns the only durable representation of a session: an
// encrypted token blob and a plaintext metadata document, both keyed by the
// opaque session id. Consumers read fresh snapshots per use and never keep
// durable copies.
type StoreInterface interface {
	StoreTokens(ctx context.Context, sessionID string, bundle *types.TokenBundle) error
	// GetTokens returns (nil, nil) when the key is missing or the blob
	// cannot be decrypted or decoded. Only infrastructure failures
	// surface as errors.
	GetTokens(ctx context.Context, sessionID string) (*types.TokenBundle, error)
	StoreSessionData(ctx context.Context, sessionID string, data *types.SessionData) error
	GetSessionData(ctx context.Context, sessionID string) (*types.SessionData, error)
	IsSessionValid(ctx context.Context, sessionID string) bool
	ExtendSession(ctx context.Context, sessionID string, extension time.Duration) error
	RemoveSession(ctx context.Context, sessionID string) error
}
