// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"
	"fmt"
	"net/url"
	"slices"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

var _ FlowInterface = (*OAuth2Flow)(nil)

// OAuth2Flow drives the authorization-code flow against the configured
// OIDC provider. Offline access is always requested so sessions can be
// refreshed server side.
type OAuth2Flow struct {
	config        oauth2.Config
	verifier      *oidc.IDTokenVerifier
	endSessionURL string
}

func NewOAuth2Flow(ctx context.Context, issuer, clientID, clientSecret, redirectURL string, scopes []string) (*OAuth2Flow, error) {
	ctx = oidc.ClientContext(ctx, &otelHTTPClient)

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %v", err)
	}

	// end_session_endpoint is optional in discovery
	var discovery struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	_ = provider.Claims(&discovery)

	if !slices.Contains(scopes, oidc.ScopeOpenID) {
		scopes = append([]string{oidc.ScopeOpenID}, scopes...)
	}

	f := new(OAuth2Flow)
	f.config = oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  redirectURL,
		Scopes:       scopes,
	}
	f.verifier = provider.Verifier(&oidc.Config{ClientID: clientID})
	f.endSessionURL = discovery.EndSessionEndpoint

	return f, nil
}

// OAuth2Config returns a copy of the underlying client configuration, for
// components that drive their own grants against the same provider.
func (f *OAuth2Flow) OAuth2Config() *oauth2.Config {
	cfg := f.config
	return &cfg
}

func (f *OAuth2Flow) AuthCodeURL(state, nonce, challenge string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oidc.Nonce(nonce),
	}
	if challenge != "" {
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", challenge),
			oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		)
	}

	return f.config.AuthCodeURL(state, opts...)
}

func (f *OAuth2Flow) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &otelHTTPClient)

	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	return f.config.Exchange(ctx, code, opts...)
}

func (f *OAuth2Flow) VerifyIDToken(ctx context.Context, rawIDToken string) (map[string]interface{}, error) {
	ctx = oidc.ClientContext(ctx, &otelHTTPClient)

	token, err := f.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}

	var claims map[string]interface{}
	if err := token.Claims(&claims); err != nil {
		return nil, err
	}

	return claims, nil
}

func (f *OAuth2Flow) EndSessionURL(idTokenHint, postLogoutRedirectURI string) string {
	if f.endSessionURL == "" {
		return ""
	}

	u, err := url.Parse(f.endSessionURL)
	if err != nil {
		return ""
	}

	q := u.Query()
	if idTokenHint != "" {
		q.Set("id_token_hint", idTokenHint)
	}
	if postLogoutRedirectURI != "" {
		q.Set("post_logout_redirect_uri", postLogoutRedirectURI)
	}
	u.RawQuery = q.Encode()

	return u.String()
}
