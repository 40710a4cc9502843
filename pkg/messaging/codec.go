// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/cespare/xxhash/v2"
)

var (
	// ErrMissingDeviceID indicates an envelope without origin device.
	ErrMissingDeviceID = errors.New("missing device id")

	// ErrNegativeSequence indicates a negative sequence number on the wire.
	ErrNegativeSequence = errors.New("negative sequence number")

	// ErrMissingField indicates a field the kind schema requires is absent.
	ErrMissingField = errors.New("missing required payload field")

	// ErrFieldType indicates a payload field of the wrong type.
	ErrFieldType = errors.New("payload field type mismatch")
)

// FieldType enumerates the value types a payload schema can require.
type FieldType uint8

const (
	Number FieldType = iota
	Bool
	String
	Object
)

// Schema maps required payload field names to their expected types.
// Fields not listed in the schema pass through unvalidated.
type Schema map[string]FieldType

// wireEnvelope is the canonical JSON form. Field order is fixed by the
// struct and map keys are sorted by encoding/json, so encoding the same
// logical envelope always yields byte-identical output. That determinism
// is what makes content hashing usable as a dedup fallback for legacy
// devices that do not assign sequence numbers.
type wireEnvelope struct {
	DeviceID  string  `json:"device_id"`
	Sequence  int64   `json:"sequence"`
	Kind      string  `json:"kind"`
	Timestamp string  `json:"timestamp"`
	Payload   Payload `json:"payload,omitempty"`
}

// Codec encodes and decodes envelopes, validating payloads against
// per-kind schemas on decode.
type Codec struct {
	schemas map[Kind]Schema
}

// NewCodec returns a codec without payload schemas: only the envelope
// frame itself is validated.
func NewCodec() *Codec {
	return &Codec{schemas: make(map[Kind]Schema)}
}

// WithSchema registers the payload schema enforced for the given kind.
func (c *Codec) WithSchema(kind Kind, schema Schema) *Codec {
	c.schemas[kind] = schema
	return c
}

// Encode serializes the envelope to its canonical wire form.
func (c *Codec) Encode(e Envelope) ([]byte, error) {
	if e.DeviceID == "" {
		return nil, errors.Wrap(errors.ErrMalformedEnvelope, ErrMissingDeviceID)
	}
	w := wireEnvelope{
		DeviceID:  e.DeviceID,
		Sequence:  int64(e.Sequence),
		Kind:      e.Kind.String(),
		Timestamp: e.Timestamp.UTC().Format(timeLayout),
		Payload:   e.Payload,
	}
	return json.Marshal(w)
}

// Decode parses and validates a wire envelope. All failures come back
// wrapped in ErrMalformedEnvelope so the caller can log, count and drop
// without inspecting the cause.
func (c *Codec) Decode(data []byte) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return Envelope{}, errors.Wrap(errors.ErrMalformedEnvelope, err)
	}
	if w.DeviceID == "" {
		return Envelope{}, errors.Wrap(errors.ErrMalformedEnvelope, ErrMissingDeviceID)
	}
	if w.Sequence < 0 {
		return Envelope{}, errors.Wrap(errors.ErrMalformedEnvelope, ErrNegativeSequence)
	}
	kind, err := ParseKind(w.Kind)
	if err != nil {
		return Envelope{}, errors.Wrap(errors.ErrMalformedEnvelope, err)
	}
	ts, err := time.Parse(timeLayout, w.Timestamp)
	if err != nil {
		return Envelope{}, errors.Wrap(errors.ErrMalformedEnvelope, err)
	}
	if schema, ok := c.schemas[kind]; ok {
		if err := validate(w.Payload, schema); err != nil {
			return Envelope{}, errors.Wrap(errors.ErrMalformedEnvelope, err)
		}
	}
	return Envelope{
		DeviceID:  w.DeviceID,
		Sequence:  uint64(w.Sequence),
		Kind:      kind,
		Timestamp: ts,
		Payload:   w.Payload,
	}, nil
}

// Hash returns the content hash of the canonical encoding, used for
// dedup of envelopes published by devices without sequence counters.
func Hash(data []byte) uint64 {
	return xxhash.Sum64(data)
}

func validate(p Payload, schema Schema) error {
	for field, ft := range schema {
		v, ok := p[field]
		if !ok {
			return errors.Wrap(ErrMissingField, errors.New(field))
		}
		if !typeMatches(v, ft) {
			return errors.Wrap(ErrFieldType, errors.New(field))
		}
	}
	return nil
}

func typeMatches(v interface{}, ft FieldType) bool {
	switch ft {
	case Number:
		_, ok := v.(float64)
		return ok
	case Bool:
		_, ok := v.(bool)
		return ok
	case String:
		_, ok := v.(string)
		return ok
	case Object:
		_, ok := v.(map[string]interface{})
		return ok
	}
	return false
}
