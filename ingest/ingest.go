// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package ingest is the cloud-side entry point for device envelopes. It
// deduplicates deliveries, folds telemetry into per-device state, hands
// accepted envelopes to the configured stores and drives the decision
// engine that may answer with a command.
package ingest

import (
	"context"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/decision"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
)

// State is the ingestor's view of one device.
type State struct {
	DeviceID      string             `json:"device_id"`
	LastSequence  uint64             `json:"last_sequence"`
	LastSeen      time.Time          `json:"last_seen"`
	Telemetry     messaging.Payload  `json:"telemetry,omitempty"`
	LastCommand   *messaging.Command `json:"last_command,omitempty"`
	LastCommandAt time.Time          `json:"last_command_at,omitempty"`
	LastAck       *messaging.Ack     `json:"last_ack,omitempty"`
}

// Service handles upstream envelopes and serves device state.
type Service interface {
	// OnEnvelope processes one delivery. Duplicate deliveries return
	// ErrDuplicateEnvelope and have no further effect.
	OnEnvelope(ctx context.Context, env messaging.Envelope) error

	// RecordCommand settles an operator-issued command into the device
	// state so policy cooldown and hysteresis account for it the same
	// way they do for engine-decided commands.
	RecordCommand(ctx context.Context, cmd messaging.Command) error

	// ViewState returns the current state of a device.
	ViewState(ctx context.Context, deviceID string) (State, error)

	// ListStates returns the state of every known device.
	ListStates(ctx context.Context) ([]State, error)
}

// StateRepository persists per-device state.
type StateRepository interface {
	Retrieve(ctx context.Context, deviceID string) (State, error)
	Save(ctx context.Context, state State) error
	RetrieveAll(ctx context.Context) ([]State, error)
}

// EnvelopeStore archives accepted envelopes. Stores are best effort on
// the hot path: a failing store is logged, never blocks ingestion.
type EnvelopeStore interface {
	Save(ctx context.Context, env messaging.Envelope) error
}

// Dispatcher delivers decided commands to devices and consumes the acks
// that flow back upstream.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd messaging.Command) error
	Acknowledge(ctx context.Context, ack messaging.Ack) error
}

// PolicyProvider resolves the decision policy for a device.
type PolicyProvider interface {
	PolicyFor(deviceID string) (decision.Policy, bool)
}

// StaticPolicies is a PolicyProvider backed by configuration: optional
// per-device overrides over one default policy.
type StaticPolicies struct {
	Default   *decision.Policy
	PerDevice map[string]decision.Policy
}

func (sp StaticPolicies) PolicyFor(deviceID string) (decision.Policy, bool) {
	if p, ok := sp.PerDevice[deviceID]; ok {
		return p, true
	}
	if sp.Default != nil {
		return *sp.Default, true
	}
	return decision.Policy{}, false
}
