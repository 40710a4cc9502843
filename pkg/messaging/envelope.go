// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package messaging defines the envelope wire format and the pub/sub
// contracts the relay transports fulfill.
package messaging

import (
	"strings"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
)

// Kind distinguishes the closed set of envelope flavors.
type Kind uint8

const (
	// TelemetryKind marks a device-originated measurement envelope.
	TelemetryKind Kind = iota

	// CommandKind marks a cloud-originated directive envelope.
	CommandKind

	// StatusKind marks a connectivity or lifecycle report envelope.
	StatusKind
)

var (
	kindToString = [...]string{"telemetry", "command", "status"}
	stringToKind = map[string]Kind{
		"telemetry": TelemetryKind,
		"command":   CommandKind,
		"status":    StatusKind,
	}
)

func (k Kind) String() string {
	if int(k) >= len(kindToString) {
		return "unknown"
	}
	return kindToString[k]
}

// ParseKind converts a wire tag to a Kind.
func ParseKind(s string) (Kind, error) {
	k, ok := stringToKind[strings.ToLower(s)]
	if !ok {
		return 0, errors.Wrap(errors.ErrUnsupportedKind, errors.New(s))
	}
	return k, nil
}

// Payload holds the schema-validated envelope body. Values are numbers,
// booleans, strings or nested mappings.
type Payload map[string]interface{}

// Envelope is the unit of transmission between edge and cloud.
//
// (DeviceID, Sequence, Kind) is unique; receivers treat repeats as
// duplicates, never as new events. Timestamp is producer wall-clock and
// is used for display and retention only, not for cross-device ordering.
type Envelope struct {
	DeviceID  string
	Sequence  uint64
	Kind      Kind
	Timestamp time.Time
	Payload   Payload
}

// Key identifies an envelope for deduplication purposes.
type Key struct {
	DeviceID string
	Sequence uint64
	Kind     Kind
}

// Key returns the dedup identity of the envelope.
func (e Envelope) Key() Key {
	return Key{DeviceID: e.DeviceID, Sequence: e.Sequence, Kind: e.Kind}
}
