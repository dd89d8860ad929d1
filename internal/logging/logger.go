// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ LoggerInterface = (*Logger)(nil)

type Logger struct {
	*zap.SugaredLogger

	security *SecurityLogger
}

func (l *Logger) Security() SecurityLoggerInterface {
	return l.security
}

// NewLogger creates a production logger at the given level. An invalid level
// falls back to error.
func NewLogger(level string) *Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.ErrorLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}

	return &Logger{
		SugaredLogger: logger.Sugar(),
		security:      &SecurityLogger{l: logger.Named("security")},
	}
}

// SecurityLogger writes structured audit events. Fields are stable so
// downstream alerting can key on them.
type SecurityLogger struct {
	l *zap.Logger
}

func (s *SecurityLogger) AuthSuccess(subject string) {
	s.l.Info("authentication succeeded",
		zap.String("event", "auth_success"),
		zap.String("subject", subject),
	)
}

func (s *SecurityLogger) AuthFailure(subject, reason string) {
	s.l.Warn("authentication failed",
		zap.String("event", "auth_failure"),
		zap.String("subject", subject),
		zap.String("reason", reason),
	)
}

func (s *SecurityLogger) AuthzFailure(subject, action string) {
	s.l.Warn("authorization denied",
		zap.String("event", "authz_failure"),
		zap.String("subject", subject),
		zap.String("action", action),
	)
}

func (s *SecurityLogger) SessionCreated(sessionID, subject string) {
	s.l.Info("session created",
		zap.String("event", "session_created"),
		zap.String("session_id", sessionID),
		zap.String("subject", subject),
	)
}

func (s *SecurityLogger) SessionDestroyed(sessionID string) {
	s.l.Info("session destroyed",
		zap.String("event", "session_destroyed"),
		zap.String("session_id", sessionID),
	)
}

func (s *SecurityLogger) TenantSelected(subject, tenantID string) {
	s.l.Info("tenant selected",
		zap.String("event", "tenant_selected"),
		zap.String("subject", subject),
		zap.String("tenant_id", tenantID),
	)
}

func (s *SecurityLogger) TokenRefreshed(sessionID string) {
	s.l.Info("tokens refreshed",
		zap.String("event", "token_refreshed"),
		zap.String("session_id", sessionID),
	)
}

func (s *SecurityLogger) SystemStartup() {
	s.l.Info("system startup", zap.String("event", "system_startup"))
}

func (s *SecurityLogger) SystemShutdown() {
	s.l.Info("system shutdown", zap.String("event", "system_shutdown"))
}
