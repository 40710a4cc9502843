// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package messaging

import "context"

// QoS is the delivery guarantee requested for a published envelope.
type QoS uint8

const (
	// AtMostOnce publishes fire-and-forget. Used for high-frequency,
	// low-value telemetry that is lossy by design.
	AtMostOnce QoS = iota

	// AtLeastOnce retries until acknowledged or the retry budget is
	// exhausted, then spills to the durable queue rather than dropping.
	AtLeastOnce
)

// ConnState describes the transport session state machine:
// Disconnected -> Connecting -> Connected, looping back to Connecting
// on failure. No envelope is put on the wire while Disconnected.
type ConnState uint8

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

var connStateToString = [...]string{"disconnected", "connecting", "connected"}

func (s ConnState) String() string {
	if int(s) >= len(connStateToString) {
		return "unknown"
	}
	return connStateToString[s]
}

// ConnStateHandler observes connection state transitions asynchronously.
type ConnStateHandler func(state ConnState)

// Publisher specifies envelope publishing API.
type Publisher interface {
	// Publish publishes the envelope on the topic with the requested QoS.
	Publish(ctx context.Context, topic string, env Envelope, qos QoS) error

	// Close gracefully closes the publisher's connection.
	Close() error
}

// MessageHandler represents an envelope handler for Subscriber. The
// handler is invoked for every delivered envelope, duplicates included;
// receivers own deduplication.
type MessageHandler interface {
	// Handle handles envelopes passed by the underlying implementation.
	Handle(env Envelope) error

	// Cancel is used for cleanup during unsubscribing and it's optional.
	Cancel() error
}

// SubscriberConfig describes a single subscription.
type SubscriberConfig struct {
	ID      string
	Topic   string
	Handler MessageHandler
}

// Subscriber specifies envelope subscription API.
type Subscriber interface {
	// Subscribe subscribes to the topic and consumes delivered envelopes.
	// Per-device order is preserved as long as a single connection is
	// used; order across devices is not guaranteed.
	Subscribe(ctx context.Context, cfg SubscriberConfig) error

	// Unsubscribe unsubscribes from the topic and stops consuming.
	Unsubscribe(ctx context.Context, id, topic string) error

	// Close gracefully closes the subscriber's connection.
	Close() error
}

// PubSub represents an aggregation interface for publisher and subscriber.
type PubSub interface {
	Publisher
	Subscriber
}
