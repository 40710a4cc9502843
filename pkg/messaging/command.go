// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/mitchellh/mapstructure"
)

var (
	// ErrMissingCommandID indicates a command envelope without an id.
	ErrMissingCommandID = errors.New("missing command id")

	// ErrMissingAction indicates a command envelope without an action.
	ErrMissingAction = errors.New("missing command action")
)

// Command is a directive from cloud to device. Parameters describe
// absolute target state, never relative deltas, so duplicate delivery
// is safe to apply.
type Command struct {
	CommandID  string                 `json:"command_id"  mapstructure:"command_id"`
	DeviceID   string                 `json:"device_id"   mapstructure:"device_id"`
	Action     string                 `json:"action"      mapstructure:"action"`
	Parameters map[string]interface{} `json:"parameters,omitempty" mapstructure:"parameters"`
	IssuedAt   time.Time              `json:"issued_at"   mapstructure:"-"`
	ExpiresAt  time.Time              `json:"expires_at"  mapstructure:"-"`
}

// Expired reports whether the command deadline has passed at the given
// instant. Commands without a deadline never expire.
func (c Command) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Ack is the executor's report of a command outcome. It travels back to
// the cloud inside a telemetry-kind envelope.
type Ack struct {
	CommandID    string    `json:"command_id"`
	AppliedAt    time.Time `json:"applied_at"`
	ResultStatus string    `json:"result_status"`
}

// Ack result statuses.
const (
	ResultApplied  = "applied"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

const timeLayout = time.RFC3339Nano

// Wrap packs the command into a command-kind envelope carrying the given
// per-device sequence number.
func (c Command) Wrap(seq uint64) Envelope {
	payload := Payload{
		"command_id": c.CommandID,
		"action":     c.Action,
		"issued_at":  c.IssuedAt.UTC().Format(timeLayout),
	}
	if len(c.Parameters) != 0 {
		payload["parameters"] = map[string]interface{}(c.Parameters)
	}
	if !c.ExpiresAt.IsZero() {
		payload["expires_at"] = c.ExpiresAt.UTC().Format(timeLayout)
	}
	return Envelope{
		DeviceID:  c.DeviceID,
		Sequence:  seq,
		Kind:      CommandKind,
		Timestamp: c.IssuedAt,
		Payload:   payload,
	}
}

// UnwrapCommand extracts a command from a command-kind envelope.
func UnwrapCommand(e Envelope) (Command, error) {
	if e.Kind != CommandKind {
		return Command{}, errors.Wrap(errors.ErrMalformedEnvelope, errors.New("not a command envelope"))
	}
	var cmd Command
	if err := mapstructure.Decode(map[string]interface{}(e.Payload), &cmd); err != nil {
		return Command{}, errors.Wrap(errors.ErrMalformedEnvelope, err)
	}
	cmd.DeviceID = e.DeviceID
	if cmd.CommandID == "" {
		return Command{}, errors.Wrap(errors.ErrMalformedEnvelope, ErrMissingCommandID)
	}
	if cmd.Action == "" {
		return Command{}, errors.Wrap(errors.ErrMalformedEnvelope, ErrMissingAction)
	}
	cmd.IssuedAt = parseTime(e.Payload, "issued_at")
	cmd.ExpiresAt = parseTime(e.Payload, "expires_at")
	return cmd, nil
}

// WrapAck packs the ack into a telemetry-kind envelope so that it rides
// the regular upstream path and is deduplicated like any other envelope.
func WrapAck(deviceID string, seq uint64, ack Ack) Envelope {
	return Envelope{
		DeviceID:  deviceID,
		Sequence:  seq,
		Kind:      TelemetryKind,
		Timestamp: ack.AppliedAt,
		Payload: Payload{
			"command_id":    ack.CommandID,
			"applied_at":    ack.AppliedAt.UTC().Format(timeLayout),
			"result_status": ack.ResultStatus,
		},
	}
}

// UnwrapAck extracts a command ack from a telemetry envelope, reporting
// whether the envelope carries one at all.
func UnwrapAck(e Envelope) (Ack, bool) {
	id, ok := e.Payload["command_id"].(string)
	if !ok || id == "" {
		return Ack{}, false
	}
	status, _ := e.Payload["result_status"].(string)
	return Ack{
		CommandID:    id,
		AppliedAt:    parseTime(e.Payload, "applied_at"),
		ResultStatus: status,
	}, true
}

func parseTime(p Payload, field string) time.Time {
	s, ok := p[field].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
