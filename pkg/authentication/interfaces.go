// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/canonical/session-gateway/internal/types"
)

type ProviderInterface interface {
	// Verifier returns the token verifier associated with the specified OIDC issuer
	Verifier(*oidc.Config) *oidc.IDTokenVerifier
}

type TokenVerifierInterface interface {
	// VerifyToken verifies a raw JWT string and validates authorization claims.
	// Returns the subject (user ID) and the token claims if the token is
	// valid and authorized, otherwise an error.
	VerifyToken(ctx context.Context, rawToken string) (string, map[string]interface{}, error)
}

// FlowInterface is the OIDC authorization-code flow against the identity
// provider, abstracted so handlers can be tested without a live issuer.
type FlowInterface interface {
	AuthCodeURL(state, nonce, challenge string) string
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	// VerifyIDToken validates the raw ID token and returns its claims.
	VerifyIDToken(ctx context.Context, rawIDToken string) (map[string]interface{}, error)
	// EndSessionURL returns the provider's RP-initiated logout URL, or ""
	// when the provider does not advertise one.
	EndSessionURL(idTokenHint, postLogoutRedirectURI string) string
}

// SessionManagerInterface is the slice of the session store the login
// flow drives.
type SessionManagerInterface interface {
	StoreTokens(ctx context.Context, sessionID string, bundle *types.TokenBundle) error
	GetTokens(ctx context.Context, sessionID string) (*types.TokenBundle, error)
	StoreSessionData(ctx context.Context, sessionID string, data *types.SessionData) error
	GetSessionData(ctx context.Context, sessionID string) (*types.SessionData, error)
	IsSessionValid(ctx context.Context, sessionID string) bool
	RemoveSession(ctx context.Context, sessionID string) error
}
