// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mqtt

import (
	"context"
	"log/slog"
	"sync"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/queue"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var (
	// ErrNotSubscribed indicates an unsubscribe for an unknown topic.
	ErrNotSubscribed = errors.New("not subscribed")

	// ErrEmptyTopic indicates an empty subscription topic.
	ErrEmptyTopic = errors.New("empty topic")

	// ErrEmptyID indicates an empty subscriber id.
	ErrEmptyID = errors.New("empty subscriber id")

	errSubscribeTimeout   = errors.New("failed to subscribe due to timeout reached")
	errUnsubscribeTimeout = errors.New("failed to unsubscribe due to timeout reached")
)

// PubSub extends messaging.PubSub with session state observation so the
// edge loops can react to connectivity transitions.
type PubSub interface {
	messaging.PubSub

	// State returns the current session state.
	State() messaging.ConnState

	// OnStateChange registers an asynchronous state transition observer.
	OnStateChange(h messaging.ConnStateHandler)
}

var _ PubSub = (*pubsub)(nil)

type subscription struct {
	topic   string
	handler messaging.MessageHandler
}

type pubsub struct {
	*publisher
	conn          *connection
	codec         *messaging.Codec
	logger        *slog.Logger
	mu            sync.RWMutex
	subscriptions map[string]subscription
}

// NewPubSub returns an MQTT envelope publisher/subscriber sharing a
// single broker session. The connection is established in the
// background; buffered publishes are replayed once it is up.
func NewPubSub(ctx context.Context, cfg Config, codec *messaging.Codec, logger *slog.Logger) (PubSub, error) {
	cfg.fill()

	spill, err := queue.NewDurable(cfg.SpillPath, cfg.SpillSize)
	if err != nil {
		return nil, errors.Wrap(errors.ErrTransport, err)
	}

	conn := newConnection(cfg, logger)
	ps := &pubsub{
		publisher:     newPublisher(conn, codec, spill, logger),
		conn:          conn,
		codec:         codec,
		logger:        logger,
		subscriptions: make(map[string]subscription),
	}
	conn.onUp = func() {
		ps.resubscribe()
		ps.replay(ctx)
	}
	conn.Connect(ctx)

	return ps, nil
}

func (ps *pubsub) Subscribe(ctx context.Context, cfg messaging.SubscriberConfig) error {
	if cfg.ID == "" {
		return ErrEmptyID
	}
	if cfg.Topic == "" {
		return ErrEmptyTopic
	}

	ps.mu.Lock()
	ps.subscriptions[cfg.ID] = subscription{topic: cfg.Topic, handler: cfg.Handler}
	ps.mu.Unlock()

	if ps.conn.State() != messaging.Connected {
		// The broker subscription is installed on (re)connect.
		return nil
	}
	return ps.subscribe(cfg.Topic, cfg.Handler)
}

func (ps *pubsub) Unsubscribe(ctx context.Context, id, topic string) error {
	if id == "" {
		return ErrEmptyID
	}
	if topic == "" {
		return ErrEmptyTopic
	}

	ps.mu.Lock()
	sub, ok := ps.subscriptions[id]
	if !ok || sub.topic != topic {
		ps.mu.Unlock()
		return ErrNotSubscribed
	}
	delete(ps.subscriptions, id)
	ps.mu.Unlock()

	if sub.handler != nil {
		if err := sub.handler.Cancel(); err != nil {
			return err
		}
	}
	token := ps.conn.client.Unsubscribe(topic)
	if !token.WaitTimeout(ps.conn.cfg.Timeout) {
		return errUnsubscribeTimeout
	}
	return token.Error()
}

func (ps *pubsub) State() messaging.ConnState {
	return ps.conn.State()
}

func (ps *pubsub) OnStateChange(h messaging.ConnStateHandler) {
	ps.conn.OnStateChange(h)
}

func (ps *pubsub) subscribe(topic string, handler messaging.MessageHandler) error {
	token := ps.conn.client.Subscribe(topic, pahoAtLeastOnce, ps.mqttHandler(handler))
	if !token.WaitTimeout(ps.conn.cfg.Timeout) {
		return errSubscribeTimeout
	}
	return token.Error()
}

// resubscribe reinstalls all registered subscriptions after a reconnect.
func (ps *pubsub) resubscribe() {
	ps.mu.RLock()
	subs := make([]subscription, 0, len(ps.subscriptions))
	for _, sub := range ps.subscriptions {
		subs = append(subs, sub)
	}
	ps.mu.RUnlock()

	for _, sub := range subs {
		if err := ps.subscribe(sub.topic, sub.handler); err != nil {
			ps.logger.Warn("failed to restore subscription",
				slog.String("topic", sub.topic),
				slog.Any("error", err),
			)
		}
	}
}

func (ps *pubsub) mqttHandler(h messaging.MessageHandler) mqtt.MessageHandler {
	return func(_ mqtt.Client, m mqtt.Message) {
		env, err := ps.codec.Decode(m.Payload())
		if err != nil {
			ps.logger.Warn("failed to decode received envelope",
				slog.String("topic", m.Topic()),
				slog.Any("error", err),
			)
			return
		}
		if err := h.Handle(env); err != nil {
			ps.logger.Warn("failed to handle received envelope",
				slog.String("topic", m.Topic()),
				slog.Any("error", err),
			)
		}
	}
}
