// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package logging

type LoggerInterface interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Fatal(args ...interface{})

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})

	Security() SecurityLoggerInterface
	Sync() error
}

// SecurityLoggerInterface emits audit events on a dedicated channel so they
// can be shipped to a SIEM independently of application logs.
type SecurityLoggerInterface interface {
	AuthSuccess(subject string)
	AuthFailure(subject, reason string)
	AuthzFailure(subject, action string)
	SessionCreated(sessionID, subject string)
	SessionDestroyed(sessionID string)
	TenantSelected(subject, tenantID string)
	TokenRefreshed(sessionID string)
	SystemStartup()
	SystemShutdown()
}
