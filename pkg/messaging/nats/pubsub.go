// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package nats provides the cloud-side transport over NATS subjects.
// Relay topics map to subjects by replacing the "/" separator with ".",
// and the "+" single-level wildcard with "*".
package nats

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	broker "github.com/nats-io/nats.go"
)

const (
	// A maximum number of reconnect attempts before NATS connection closes
	// permanently. Value -1 represents an unlimited number of reconnect
	// retries, i.e. the client will never give up on retrying to
	// re-establish connection to NATS server.
	maxReconnects = -1

	subjectPrefix = "relay"
)

var (
	// ErrNotSubscribed indicates an unsubscribe for an unknown topic.
	ErrNotSubscribed = errors.New("not subscribed")

	// ErrEmptyTopic indicates an empty subscription topic.
	ErrEmptyTopic = errors.New("empty topic")

	// ErrEmptyID indicates an empty subscriber id.
	ErrEmptyID = errors.New("empty subscriber id")
)

var _ messaging.PubSub = (*pubsub)(nil)

type pubsub struct {
	conn          *broker.Conn
	codec         *messaging.Codec
	logger        *slog.Logger
	queue         string
	mu            sync.Mutex
	subscriptions map[string]*broker.Subscription
}

// NewPubSub returns a NATS envelope publisher/subscriber. Parameter
// queue specifies the queue group for Subscribe; if non-empty,
// subscribers in the same group load-balance deliveries, which keeps
// per-device order as long as a device sticks to one connection.
func NewPubSub(url, queue string, codec *messaging.Codec, logger *slog.Logger) (messaging.PubSub, error) {
	conn, err := broker.Connect(url, broker.MaxReconnects(maxReconnects))
	if err != nil {
		return nil, errors.Wrap(errors.ErrTransport, err)
	}
	return &pubsub{
		conn:          conn,
		codec:         codec,
		logger:        logger,
		queue:         queue,
		subscriptions: make(map[string]*broker.Subscription),
	}, nil
}

func (ps *pubsub) Publish(ctx context.Context, topic string, env messaging.Envelope, qos messaging.QoS) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	data, err := ps.codec.Encode(env)
	if err != nil {
		return err
	}
	if err := ps.conn.Publish(subject(topic), data); err != nil {
		return errors.Wrap(errors.ErrTransport, err)
	}
	if qos == messaging.AtLeastOnce {
		// Round-trip to the server so the write is known to be accepted.
		if err := ps.conn.FlushWithContext(ctx); err != nil {
			return errors.Wrap(errors.ErrTransport, err)
		}
	}
	return nil
}

func (ps *pubsub) Subscribe(ctx context.Context, cfg messaging.SubscriberConfig) error {
	if cfg.ID == "" {
		return ErrEmptyID
	}
	if cfg.Topic == "" {
		return ErrEmptyTopic
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	nh := ps.natsHandler(cfg.Handler)
	var sub *broker.Subscription
	var err error
	switch ps.queue {
	case "":
		sub, err = ps.conn.Subscribe(subject(cfg.Topic), nh)
	default:
		sub, err = ps.conn.QueueSubscribe(subject(cfg.Topic), ps.queue, nh)
	}
	if err != nil {
		return errors.Wrap(errors.ErrTransport, err)
	}
	ps.subscriptions[cfg.ID+":"+cfg.Topic] = sub
	return nil
}

func (ps *pubsub) Unsubscribe(ctx context.Context, id, topic string) error {
	if id == "" {
		return ErrEmptyID
	}
	if topic == "" {
		return ErrEmptyTopic
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	sub, ok := ps.subscriptions[id+":"+topic]
	if !ok {
		return ErrNotSubscribed
	}
	if err := sub.Unsubscribe(); err != nil {
		return errors.Wrap(errors.ErrTransport, err)
	}
	delete(ps.subscriptions, id+":"+topic)
	return nil
}

func (ps *pubsub) Close() error {
	ps.conn.Close()
	return nil
}

func (ps *pubsub) natsHandler(h messaging.MessageHandler) broker.MsgHandler {
	return func(m *broker.Msg) {
		env, err := ps.codec.Decode(m.Data)
		if err != nil {
			ps.logger.Warn("failed to decode received envelope",
				slog.String("subject", m.Subject),
				slog.Any("error", err),
			)
			return
		}
		if err := h.Handle(env); err != nil {
			ps.logger.Warn("failed to handle received envelope",
				slog.String("subject", m.Subject),
				slog.Any("error", err),
			)
		}
	}
}

func subject(topic string) string {
	s := strings.ReplaceAll(topic, "/", ".")
	s = strings.ReplaceAll(s, "+", "*")
	return subjectPrefix + "." + s
}
