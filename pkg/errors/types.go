// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package errors

var (
	// ErrMalformedEnvelope indicates a malformed wire envelope. Such
	// envelopes are dropped, logged and counted, never reprocessed.
	ErrMalformedEnvelope = New("malformed envelope")

	// ErrUnsupportedKind indicates an envelope kind outside the closed set.
	ErrUnsupportedKind = New("unsupported envelope kind")

	// ErrTransport indicates a transient transport failure. It is retried
	// with backoff by the transport layer.
	ErrTransport = New("transport failure")

	// ErrConnectionLost indicates a permanent loss of the broker session.
	ErrConnectionLost = New("broker connection lost")

	// ErrPublishTimeout indicates publish acknowledgment was not received
	// within the configured deadline.
	ErrPublishTimeout = New("publish not acknowledged before deadline")

	// ErrInferenceTimeout indicates the inference collaborator did not
	// respond within the configured deadline.
	ErrInferenceTimeout = New("inference call timed out")

	// ErrCommandExpired indicates a command was received past its deadline
	// and rejected locally by the executor.
	ErrCommandExpired = New("command past its expiry deadline")

	// ErrDuplicateEnvelope indicates an envelope that was already processed.
	// It marks an idempotent no-op, not a failure.
	ErrDuplicateEnvelope = New("duplicate envelope")

	// ErrDuplicateCommand indicates a command that was already applied.
	// It marks an idempotent no-op, not a failure.
	ErrDuplicateCommand = New("duplicate command")

	// ErrQueueOverflow indicates the durable command queue is full. This is
	// the only fatal condition in the relay: a silently dropped command
	// could leave an actuator in an unsafe state.
	ErrQueueOverflow = New("durable command queue overflow")

	// ErrNotFound indicates a non-existent entity request.
	ErrNotFound = New("entity not found")

	// ErrMalformedEntity indicates a malformed entity specification.
	ErrMalformedEntity = New("malformed entity specification")

	// ErrCreateEntity indicates error in creating entity in the store.
	ErrCreateEntity = New("failed to create entity in the store")

	// ErrViewEntity indicates error in viewing entity or entities.
	ErrViewEntity = New("view entity failed")

	// ErrNotify wraps alerting collaborator delivery errors.
	ErrNotify = New("failed to send notification")
)
