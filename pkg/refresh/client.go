// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package refresh

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"

	"github.com/canonical/session-gateway/internal/tracing"
	"github.com/canonical/session-gateway/internal/types"
)

var _ TokenClientInterface = (*OAuth2Client)(nil)

// OAuth2Client performs the refresh_token grant through x/oauth2.
type OAuth2Client struct {
	config *oauth2.Config
	tracer tracing.TracingInterface
}

func NewOAuth2Client(config *oauth2.Config, tracer tracing.TracingInterface) *OAuth2Client {
	return &OAuth2Client{
		config: config,
		tracer: tracer,
	}
}

func (c *OAuth2Client) RefreshGrant(ctx context.Context, refreshToken string) (*types.TokenBundle, error) {
	ctx, span := c.tracer.Start(ctx, "refresh.OAuth2Client.RefreshGrant")
	defer span.End()

	// A TokenSource seeded with only a refresh token always hits the
	// token endpoint.
	src := c.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh grant failed: %w", err)
	}

	return bundleFromToken(token), nil
}

func bundleFromToken(token *oauth2.Token) *types.TokenBundle {
	bundle := &types.TokenBundle{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry.UTC(),
	}

	if idToken, ok := token.Extra("id_token").(string); ok {
		bundle.IDToken = idToken
	}
	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		bundle.Scopes = strings.Fields(scope)
	}

	return bundle
}
