// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// SecurityEvent is an authentication or authorization outcome worth auditing.
type SecurityEvent struct {
	Event     string
	Username  string
	Role      string
	Resource  string
	Action    string
	IPAddress string
	Success   bool
	Reason    string
}

// SecurityLogger writes SecurityEvents with sensitive values masked.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a security logger tagged component=auth.
func NewSecurityLogger() *SecurityLogger {
	return NewSecurityLoggerWithLogger(Logger())
}

// NewSecurityLoggerWithLogger is NewSecurityLogger with an explicit base logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{logger: logger.With().Str("component", "auth").Logger()}
}

// LogEvent writes ev at info on success and warn on failure.
func (l *SecurityLogger) LogEvent(ev *SecurityEvent) {
	e := l.logger.Info()
	if !ev.Success {
		e = l.logger.Warn()
	}
	e = e.Str("event", ev.Event).Bool("success", ev.Success)
	if ev.Username != "" {
		e = e.Str("username", SanitizeUsername(ev.Username))
	}
	if ev.Role != "" {
		e = e.Str("role", ev.Role)
	}
	if ev.Resource != "" {
		e = e.Str("resource", ev.Resource).Str("action", ev.Action)
	}
	if ev.IPAddress != "" {
		e = e.Str("ip", ev.IPAddress)
	}
	if ev.Reason != "" {
		e = e.Str("reason", truncateString(ev.Reason, 200))
	}
	e.Msg("Security event")
}

// LogAuthFailure records a rejected bearer token.
func (l *SecurityLogger) LogAuthFailure(ip, reason string) {
	l.LogEvent(&SecurityEvent{Event: "auth_failure", IPAddress: ip, Reason: reason})
}

// LogAccessDenied records a casbin deny.
func (l *SecurityLogger) LogAccessDenied(username, role, resource, action, ip string) {
	l.LogEvent(&SecurityEvent{
		Event:     "access_denied",
		Username:  username,
		Role:      role,
		Resource:  resource,
		Action:    action,
		IPAddress: ip,
	})
}

// LogTokenIssued records a token minted by the CLI or an admin.
func (l *SecurityLogger) LogTokenIssued(username, role string) {
	l.LogEvent(&SecurityEvent{Event: "token_issued", Username: username, Role: role, Success: true})
}

// SanitizeToken keeps the first and last four characters of a token.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeUsername keeps the first two characters.
func SanitizeUsername(username string) string {
	if len(username) <= 2 {
		return username
	}
	return username[:2] + strings.Repeat("*", min(len(username)-2, 6))
}

// SanitizeValue masks value when key looks like a credential.
func SanitizeValue(key, value string) string {
	k := strings.ToLower(key)
	for _, s := range []string{"secret", "password", "token", "authorization", "key"} {
		if strings.Contains(k, s) {
			return SanitizeToken(value)
		}
	}
	return value
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
