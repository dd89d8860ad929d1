// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"

	httpTypes "github.com/canonical/session-gateway/internal/http/types"
	"github.com/canonical/session-gateway/internal/logging"
	"github.com/canonical/session-gateway/internal/monitoring"
	"github.com/canonical/session-gateway/internal/tracing"
	"github.com/canonical/session-gateway/internal/types"
	"github.com/canonical/session-gateway/pkg/session"
)

const flowCookieMaxAge = 300

type Config struct {
	CookieName            string
	CookieDomain          string
	CookieSecure          bool
	SessionLifetime       time.Duration
	PostLoginRedirectURL  string
	PostLogoutRedirectURL string
}

type sessionUser struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

type sessionTenant struct {
	ID              string   `json:"id"`
	Name            string   `json:"name,omitempty"`
	Roles           []string `json:"roles,omitempty"`
	IsPlatformAdmin bool     `json:"is_platform_admin"`
}

type sessionResponse struct {
	IsAuthenticated bool           `json:"is_authenticated"`
	User            *sessionUser   `json:"user,omitempty"`
	ExpiresAt       *time.Time     `json:"expires_at,omitempty"`
	SelectedTenant  *sessionTenant `json:"selected_tenant,omitempty"`
}

type API struct {
	flow     FlowInterface
	sessions SessionManagerInterface
	cfg      Config

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewAPI(flow FlowInterface, sessions SessionManagerInterface, cfg Config, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *API {
	a := new(API)

	a.flow = flow
	a.sessions = sessions
	a.cfg = cfg
	if a.cfg.PostLoginRedirectURL == "" {
		a.cfg.PostLoginRedirectURL = "/"
	}
	if a.cfg.PostLogoutRedirectURL == "" {
		a.cfg.PostLogoutRedirectURL = "/"
	}

	a.tracer = tracer
	a.monitor = monitor
	a.logger = logger

	return a
}

func (a *API) RegisterEndpoints(mux *chi.Mux) {
	mux.Post("/api/v1/auth/login", a.handleLogin)
	mux.Get("/api/v1/auth/callback", a.handleCallback)
	mux.Post("/api/v1/auth/logout", a.handleLogout)
	mux.Get("/api/v1/auth/signout-callback", a.handleSignoutCallback)
	mux.Get("/api/v1/session", a.handleSession)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	_, span := a.tracer.Start(r.Context(), "authentication.API.handleLogin")
	defer span.End()

	state, err := randomToken()
	if err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusInternalServerError, "failed to start login")
		return
	}
	nonce, err := randomToken()
	if err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusInternalServerError, "failed to start login")
		return
	}
	verifier := oauth2.GenerateVerifier()

	a.setFlowCookie(w, "state", state)
	a.setFlowCookie(w, "nonce", nonce)
	a.setFlowCookie(w, "verifier", verifier)

	http.Redirect(w, r, a.flow.AuthCodeURL(state, nonce, oauth2.S256ChallengeFromVerifier(verifier)), http.StatusFound)
}

func (a *API) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "authentication.API.handleCallback")
	defer span.End()

	defer a.clearFlowCookies(w)

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		a.logger.Security().AuthFailure("", errParam)
		httpTypes.WriteErrorResponse(w, http.StatusUnauthorized, "authentication rejected by identity provider")
		return
	}

	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(a.flowCookieName("state"))
	if err != nil || state == "" || state != stateCookie.Value {
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, "state mismatch")
		return
	}

	var verifier string
	if c, err := r.Cookie(a.flowCookieName("verifier")); err == nil {
		verifier = c.Value
	}

	token, err := a.flow.Exchange(ctx, r.URL.Query().Get("code"), verifier)
	if err != nil {
		a.logger.Errorf("code exchange failed: %v", err)
		a.logger.Security().AuthFailure("", "code exchange failed")
		httpTypes.WriteErrorResponse(w, http.StatusUnauthorized, "authentication failed")
		return
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		httpTypes.WriteErrorResponse(w, http.StatusUnauthorized, "no id_token in token response")
		return
	}

	claims, err := a.flow.VerifyIDToken(ctx, rawIDToken)
	if err != nil {
		a.logger.Errorf("id token verification failed: %v", err)
		a.logger.Security().AuthFailure("", "invalid id token")
		httpTypes.WriteErrorResponse(w, http.StatusUnauthorized, "authentication failed")
		return
	}

	if nonceCookie, err := r.Cookie(a.flowCookieName("nonce")); err == nil {
		if nonce, _ := claims["nonce"].(string); nonce != nonceCookie.Value {
			httpTypes.WriteErrorResponse(w, http.StatusBadRequest, "nonce mismatch")
			return
		}
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		httpTypes.WriteErrorResponse(w, http.StatusUnauthorized, "no subject in id token")
		return
	}

	sessionID, err := session.NewSessionID()
	if err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	now := time.Now().UTC()
	username, _ := claims["preferred_username"].(string)
	email, _ := claims["email"].(string)

	data := &types.SessionData{
		ID:             sessionID,
		UserID:         subject,
		Username:       username,
		Email:          email,
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(a.cfg.SessionLifetime),
		IPAddress:      r.RemoteAddr,
		UserAgent:      r.UserAgent(),
	}

	bundle := &types.TokenBundle{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		IDToken:      rawIDToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
	}
	if scope, _ := token.Extra("scope").(string); scope != "" {
		bundle.Scopes = strings.Fields(scope)
	}

	if err := a.sessions.StoreTokens(ctx, sessionID, bundle); err != nil {
		a.logger.Errorf("failed to store tokens: %v", err)
		httpTypes.WriteErrorResponse(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	if err := a.sessions.StoreSessionData(ctx, sessionID, data); err != nil {
		a.logger.Errorf("failed to store session data: %v", err)
		_ = a.sessions.RemoveSession(ctx, sessionID)
		httpTypes.WriteErrorResponse(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	a.setSessionCookie(w, sessionID)
	a.logger.Security().AuthSuccess(subject)
	a.logger.Security().SessionCreated(sessionID, subject)

	http.Redirect(w, r, a.cfg.PostLoginRedirectURL, http.StatusFound)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "authentication.API.handleLogout")
	defer span.End()

	cookie, err := r.Cookie(a.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		http.Redirect(w, r, a.cfg.PostLogoutRedirectURL, http.StatusFound)
		return
	}

	var idTokenHint string
	if bundle, err := a.sessions.GetTokens(ctx, cookie.Value); err == nil && bundle != nil {
		idTokenHint = bundle.IDToken
	}

	if err := a.sessions.RemoveSession(ctx, cookie.Value); err != nil {
		a.logger.Errorf("failed to remove session: %v", err)
	}
	a.clearSessionCookie(w)

	if endSession := a.flow.EndSessionURL(idTokenHint, a.cfg.PostLogoutRedirectURL); endSession != "" {
		http.Redirect(w, r, endSession, http.StatusFound)
		return
	}

	http.Redirect(w, r, a.cfg.PostLogoutRedirectURL, http.StatusFound)
}

func (a *API) handleSignoutCallback(w http.ResponseWriter, r *http.Request) {
	_, span := a.tracer.Start(r.Context(), "authentication.API.handleSignoutCallback")
	defer span.End()

	a.clearSessionCookie(w)
	http.Redirect(w, r, a.cfg.PostLogoutRedirectURL, http.StatusFound)
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "authentication.API.handleSession")
	defer span.End()

	cookie, err := r.Cookie(a.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		httpTypes.WriteResponse(w, http.StatusOK, sessionResponse{}, "")
		return
	}

	if !a.sessions.IsSessionValid(ctx, cookie.Value) {
		a.clearSessionCookie(w)
		httpTypes.WriteResponse(w, http.StatusOK, sessionResponse{}, "")
		return
	}

	data, err := a.sessions.GetSessionData(ctx, cookie.Value)
	if err != nil || data == nil {
		httpTypes.WriteResponse(w, http.StatusOK, sessionResponse{}, "")
		return
	}

	resp := sessionResponse{
		IsAuthenticated: true,
		User: &sessionUser{
			ID:       data.UserID,
			Username: data.Username,
			Email:    data.Email,
		},
		ExpiresAt: &data.ExpiresAt,
	}
	if data.TenantID != nil {
		resp.SelectedTenant = &sessionTenant{
			ID:              *data.TenantID,
			Name:            data.TenantName,
			Roles:           data.TenantRoles,
			IsPlatformAdmin: data.IsPlatformAdmin,
		}
	}

	httpTypes.WriteResponse(w, http.StatusOK, resp, "")
}

func (a *API) flowCookieName(suffix string) string {
	return a.cfg.CookieName + "_" + suffix
}

func (a *API) setFlowCookie(w http.ResponseWriter, suffix, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.flowCookieName(suffix),
		Value:    value,
		Path:     "/",
		Domain:   a.cfg.CookieDomain,
		MaxAge:   flowCookieMaxAge,
		HttpOnly: true,
		Secure:   a.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearFlowCookies(w http.ResponseWriter) {
	for _, suffix := range []string{"state", "nonce", "verifier"} {
		http.SetCookie(w, &http.Cookie{
			Name:     a.flowCookieName(suffix),
			Value:    "",
			Path:     "/",
			Domain:   a.cfg.CookieDomain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   a.cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (a *API) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   a.cfg.CookieDomain,
		MaxAge:   int(a.cfg.SessionLifetime.Seconds()),
		HttpOnly: true,
		Secure:   a.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   a.cfg.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
