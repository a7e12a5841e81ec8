// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package logging

import (
	"go.uber.org/zap"
)

// SecurityLogger is a dedicated channel for audit events. Entries always
// log at info level regardless of the application log level so that audit
// trails survive log-level tuning.
type SecurityLogger struct {
	l *zap.Logger
}

func NewSecurityLogger(l *zap.Logger) *SecurityLogger {
	return &SecurityLogger{l: l.With(zap.String("log_type", "security"))}
}

func (s *SecurityLogger) AuthSuccess(subject string) {
	s.l.Info("authentication succeeded", zap.String("subject", subject), zap.String("event", "auth_success"))
}

func (s *SecurityLogger) AuthFailure(subject, reason string) {
	s.l.Info("authentication failed", zap.String("subject", subject), zap.String("reason", reason), zap.String("event", "auth_failure"))
}

func (s *SecurityLogger) AuthzFailure(subject, permission string) {
	s.l.Info("authorization denied", zap.String("subject", subject), zap.String("permission", permission), zap.String("event", "authz_failure"))
}

func (s *SecurityLogger) SessionEstablished(subject string) {
	s.l.Info("session established", zap.String("subject", subject), zap.String("event", "session_established"))
}

func (s *SecurityLogger) SessionCleared(subject string) {
	s.l.Info("session cleared", zap.String("subject", subject), zap.String("event", "session_cleared"))
}

func (s *SecurityLogger) SystemStartup() {
	s.l.Info("system startup", zap.String("event", "system_startup"))
}

func (s *SecurityLogger) SystemShutdown() {
	s.l.Info("system shutdown", zap.String("event", "system_shutdown"))
}
