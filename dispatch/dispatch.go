// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package dispatch delivers commands to devices and tracks them until
// the matching ack arrives. Commands whose deadline passes without an
// ack are marked lost and surfaced through the alerting collaborator,
// never retried silently.
package dispatch

import (
	"context"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/ticker"
)

// Status of an outstanding command.
type Status uint8

const (
	// Pending commands were published and await their ack.
	Pending Status = iota

	// Acked commands were confirmed by the device.
	Acked

	// Lost commands expired without an ack.
	Lost
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Acked:
		return "acked"
	case Lost:
		return "lost"
	default:
		return "unknown"
	}
}

// Outstanding is the tracked view of one dispatched command.
type Outstanding struct {
	Command messaging.Command `json:"command"`
	SentAt  time.Time         `json:"sent_at"`
	Status  Status            `json:"status"`
}

// Service dispatches commands downstream and settles their acks.
type Service interface {
	// Dispatch publishes the command at-least-once and starts tracking
	// it. Re-dispatching a known command id returns ErrDuplicateCommand.
	Dispatch(ctx context.Context, cmd messaging.Command) error

	// Acknowledge settles the outstanding command the ack refers to.
	// Acks for unknown or already settled commands are ignored.
	Acknowledge(ctx context.Context, ack messaging.Ack) error

	// Outstanding lists commands that are still awaiting their ack.
	Outstanding(ctx context.Context) ([]Outstanding, error)

	// StartSweeper marks expired commands as lost on every tick until
	// the context is canceled. Intended to run as its own goroutine.
	StartSweeper(ctx context.Context, tick ticker.Ticker)
}
