// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package config

import (
	"time"
)

// EnvSpec is the basic environment configuration setup needed for the app to start
type EnvSpec struct {
	OtelGRPCEndpoint string `envconfig:"otel_grpc_endpoint"`
	OtelHTTPEndpoint string `envconfig:"otel_http_endpoint"`
	TracingEnabled   bool   `envconfig:"tracing_enabled" default:"true"`

	LogLevel string `envconfig:"log_level" default:"error"`
	Debug    bool   `envconfig:"debug" default:"false"`

	Port int `envconfig:"port" default:"8080"`

	DSN string `envconfig:"DSN" required:"true"`

	DBMaxConns        int32         `envconfig:"db_max_conns" default:"25"`
	DBMinConns        int32         `envconfig:"db_min_conns" default:"2"`
	DBMaxConnLifetime time.Duration `envconfig:"db_max_conn_lifetime" default:"1h"`
	DBMaxConnIdleTime time.Duration `envconfig:"db_max_conn_idle_time" default:"30m"`

	RedisAddr     string `envconfig:"redis_addr" required:"true"`
	RedisUsername string `envconfig:"redis_username"`
	RedisPassword string `envconfig:"redis_password"`
	RedisDB       int    `envconfig:"redis_db" default:"0"`

	// SessionEncryptionKey is the base64-encoded 32-byte key protecting
	// token blobs at rest. The process refuses to start without it.
	SessionEncryptionKey string `envconfig:"session_encryption_key" required:"true"`

	CookieName     string        `envconfig:"cookie_name" default:"gateway_session"`
	CookieDomain   string        `envconfig:"cookie_domain"`
	CookieSecure   bool          `envconfig:"cookie_secure" default:"true"`
	SessionTimeout time.Duration `envconfig:"session_timeout" default:"2h"`

	PostLoginRedirectURL  string `envconfig:"post_login_redirect_url" default:"/"`
	PostLogoutRedirectURL string `envconfig:"post_logout_redirect_url" default:"/"`

	RefreshThreshold time.Duration `envconfig:"refresh_threshold" default:"5m"`
	RefreshAttempts  int           `envconfig:"refresh_attempts" default:"3"`

	OIDCIssuer       string `envconfig:"oidc_issuer" required:"true"`
	OIDCClientID     string `envconfig:"oidc_client_id" required:"true"`
	OIDCClientSecret string `envconfig:"oidc_client_secret" required:"true"`
	OIDCRedirectURL  string `envconfig:"oidc_redirect_url" required:"true"`
	OIDCScopes       string `envconfig:"oidc_scopes" default:"openid,profile,email,offline_access"`

	PlatformTenantID string `envconfig:"platform_tenant_id" required:"true"`
}
