// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package alerting defines the collaborator that surfaces the relay's
// operator-visible events: lost commands, connectivity loss and
// policy-flagged critical breaches. Delivery guarantees are the
// collaborator's own responsibility.
package alerting

import (
	"context"
	"log/slog"
)

// Severity grades a notification.
type Severity uint8

const (
	Info Severity = iota
	Warning
	Critical
)

var severityToString = [...]string{"info", "warning", "critical"}

func (s Severity) String() string {
	if int(s) >= len(severityToString) {
		return "unknown"
	}
	return severityToString[s]
}

// Notifier represents an API for sending notifications.
type Notifier interface {
	// Notify sends the message at the given severity.
	Notify(ctx context.Context, severity Severity, message string) error
}

type logNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that records notifications in the
// service log. It backs deployments without a configured alert channel.
func NewLogNotifier(logger *slog.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Notify(ctx context.Context, severity Severity, message string) error {
	switch severity {
	case Critical:
		n.logger.ErrorContext(ctx, message, slog.String("severity", severity.String()))
	case Warning:
		n.logger.WarnContext(ctx, message, slog.String("severity", severity.String()))
	default:
		n.logger.InfoContext(ctx, message, slog.String("severity", severity.String()))
	}
	return nil
}
