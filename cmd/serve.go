// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/canonical/session-gateway/internal/cache"
	"github.com/canonical/session-gateway/internal/config"
	"github.com/canonical/session-gateway/internal/crypto"
	"github.com/canonical/session-gateway/internal/db"
	"github.com/canonical/session-gateway/internal/logging"
	"github.com/canonical/session-gateway/internal/monitoring/prometheus"
	"github.com/canonical/session-gateway/internal/storage"
	"github.com/canonical/session-gateway/internal/tracing"
	"github.com/canonical/session-gateway/pkg/authentication"
	"github.com/canonical/session-gateway/pkg/refresh"
	"github.com/canonical/session-gateway/pkg/session"
	"github.com/canonical/session-gateway/pkg/tenancy"
	"github.com/canonical/session-gateway/pkg/web"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve starts the web server",
	Long:  `Launch the web application, list of environment variables is available in the readme`,
	Run: func(cmd *cobra.Command, args []string) {
		main()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	specs := new(config.EnvSpec)
	if err := envconfig.Process("", specs); err != nil {
		panic(fmt.Errorf("issues with environment sourcing: %s", err))
	}

	logger := logging.NewLogger(specs.LogLevel)
	defer logger.Sync()

	monitor := prometheus.NewMonitor("session-gateway", logger)
	tracer := tracing.NewTracer(tracing.NewConfig(specs.TracingEnabled, specs.OtelGRPCEndpoint, specs.OtelHTTPEndpoint, logger))

	dbConfig := db.Config{
		DSN:             specs.DSN,
		MaxConns:        specs.DBMaxConns,
		MinConns:        specs.DBMinConns,
		MaxConnLifetime: specs.DBMaxConnLifetime,
		MaxConnIdleTime: specs.DBMaxConnIdleTime,
		TracingEnabled:  specs.TracingEnabled,
	}
	dbClient, err := db.NewDBClient(dbConfig, tracer, monitor, logger)
	if err != nil {
		return fmt.Errorf("failed to create database client: %v", err)
	}
	defer dbClient.Close()

	// One resolver backs every tenant-scoped repository; it reads the
	// acting tenant and user from the request context on each call.
	resolver := tenancy.NewResolver(specs.PlatformTenantID, tracer, monitor, logger)
	tenancyStorage := storage.NewTenancyStorage(dbClient, resolver, tracer, monitor, logger)

	cacheClient, err := cache.NewClient(
		cache.Config{
			Addr:     specs.RedisAddr,
			Username: specs.RedisUsername,
			Password: specs.RedisPassword,
			DB:       specs.RedisDB,
		},
		tracer,
		monitor,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %v", err)
	}
	defer cacheClient.Close()

	protector, err := crypto.NewProtector(specs.SessionEncryptionKey, "session:tokens")
	if err != nil {
		return fmt.Errorf("failed to initialize token protection: %v", err)
	}
	sessionStore := session.NewStore(cacheClient, protector, tracer, monitor, logger)

	flow, err := authentication.NewOAuth2Flow(
		context.Background(),
		specs.OIDCIssuer,
		specs.OIDCClientID,
		specs.OIDCClientSecret,
		specs.OIDCRedirectURL,
		strings.Split(specs.OIDCScopes, ","),
	)
	if err != nil {
		return fmt.Errorf("failed to configure OIDC provider: %v", err)
	}

	authAPI := authentication.NewAPI(
		flow,
		sessionStore,
		authentication.Config{
			CookieName:            specs.CookieName,
			CookieDomain:          specs.CookieDomain,
			CookieSecure:          specs.CookieSecure,
			SessionLifetime:       specs.SessionTimeout,
			PostLoginRedirectURL:  specs.PostLoginRedirectURL,
			PostLogoutRedirectURL: specs.PostLogoutRedirectURL,
		},
		tracer,
		monitor,
		logger,
	)

	verifier, err := authentication.NewJWTAuthenticator(
		context.Background(),
		specs.OIDCIssuer,
		"",
		nil,
		"",
		tracer,
		monitor,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to configure token verification: %v", err)
	}
	claimsMiddleware := authentication.NewMiddleware(verifier, tracer, monitor, logger)

	refresher := refresh.NewRefresher(
		refresh.NewOAuth2Client(flow.OAuth2Config(), tracer),
		specs.RefreshAttempts,
		tracer,
		monitor,
		logger,
	)
	refreshMiddleware := refresh.NewMiddleware(sessionStore, refresher, specs.CookieName, specs.RefreshThreshold, tracer, monitor, logger)

	tenancyService := tenancy.NewService(tenancyStorage, sessionStore, specs.PlatformTenantID, tracer, monitor, logger)
	tenancyAPI := tenancy.NewAPI(tenancyService, tracer, monitor, logger)
	principalMiddleware := tenancy.NewMiddleware(sessionStore, specs.CookieName, tracer, monitor, logger)

	router := web.NewRouter(
		authAPI,
		tenancyAPI,
		claimsMiddleware,
		principalMiddleware,
		refreshMiddleware,
		dbClient,
		tracer,
		monitor,
		logger,
	)
	logger.Infof("Starting HTTP server on port %v", specs.Port)

	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%v", specs.Port),
		WriteTimeout: time.Second * 60,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      router,
	}

	var serverError error
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Security().SystemStartup()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError = fmt.Errorf("server error: %w", err)
			c <- os.Interrupt
		}
	}()

	<-c

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Security().SystemShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		serverError = fmt.Errorf("server shutdown error: %w", err)
	}

	return serverError
}

func main() {
	if err := serve(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}
