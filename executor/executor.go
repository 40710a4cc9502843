// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package executor applies cloud commands on the device. Application is
// idempotent: command parameters carry absolute target state, and a
// bounded history of settled command ids lets redelivered commands be
// re-acked without touching the actuator again.
package executor

import (
	"context"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
)

// Actuator writes absolute target state to the device hardware.
// Implementations must tolerate repeated writes of the same state.
type Actuator interface {
	Apply(ctx context.Context, action string, parameters map[string]interface{}) error
}

// AckSink carries command outcomes back upstream.
type AckSink interface {
	SendAck(ctx context.Context, ack messaging.Ack) error
}

// Service consumes command envelopes addressed to this device.
type Service interface {
	// OnCommand unwraps and applies one command envelope, always
	// answering with an ack: applied, rejected for expired commands, or
	// failed when the actuator errors. Redelivered commands re-send the
	// original ack.
	OnCommand(ctx context.Context, env messaging.Envelope) error
}
