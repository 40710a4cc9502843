// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package rabbitmq provides an alternative cloud-side transport over a
// RabbitMQ topic exchange. Relay topics map to routing keys by replacing
// the "/" separator with "." and the "+" wildcard with "*".
package rabbitmq

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchangeName = "relay"
	contentType  = "application/json"
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

type subscription struct {
	cancel func() error
}

type pubsub struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	codec         *messaging.Codec
	logger        *slog.Logger
	mu            sync.Mutex
	subscriptions map[string]subscription
}

// NewPubSub returns a RabbitMQ envelope publisher/subscriber bound to a
// durable topic exchange.
func NewPubSub(url string, codec *messaging.Codec, logger *slog.Logger) (messaging.PubSub, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(errors.ErrTransport, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Wrap(errors.ErrTransport, err)
	}
	if err := ch.ExchangeDeclare(exchangeName, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, errors.Wrap(errors.ErrTransport, err)
	}
	return &pubsub{
		conn:          conn,
		ch:            ch,
		codec:         codec,
		logger:        logger,
		subscriptions: make(map[string]subscription),
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
	err = ps.ch.PublishWithContext(ctx,
		exchangeName,
		routingKey(topic),
		false,
		false,
		amqp.Publishing{
			Headers:      amqp.Table{},
			ContentType:  contentType,
			DeliveryMode: deliveryMode(qos),
			Body:         data,
		})
	if err != nil {
		return errors.Wrap(errors.ErrTransport, err)
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

	queue, err := ps.ch.QueueDeclare(cfg.ID, true, false, false, false, nil)
	if err != nil {
		return errors.Wrap(errors.ErrTransport, err)
	}
	if err := ps.ch.QueueBind(queue.Name, routingKey(cfg.Topic), exchangeName, false, nil); err != nil {
		return errors.Wrap(errors.ErrTransport, err)
	}
	deliveries, err := ps.ch.Consume(queue.Name, cfg.ID, true, false, false, false, nil)
	if err != nil {
		return errors.Wrap(errors.ErrTransport, err)
	}
	go ps.consume(deliveries, cfg.Handler)

	ps.subscriptions[cfg.ID+":"+cfg.Topic] = subscription{
		cancel: func() error {
			if err := ps.ch.Cancel(cfg.ID, false); err != nil {
				return err
			}
			if cfg.Handler != nil {
				return cfg.Handler.Cancel()
			}
			return nil
		},
	}
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
	if err := sub.cancel(); err != nil {
		return errors.Wrap(errors.ErrTransport, err)
	}
	delete(ps.subscriptions, id+":"+topic)
	return nil
}

func (ps *pubsub) Close() error {
	if err := ps.ch.Close(); err != nil {
		return err
	}
	return ps.conn.Close()
}

func (ps *pubsub) consume(deliveries <-chan amqp.Delivery, h messaging.MessageHandler) {
	for d := range deliveries {
		env, err := ps.codec.Decode(d.Body)
		if err != nil {
			ps.logger.Warn("failed to decode received envelope",
				slog.String("routing_key", d.RoutingKey),
				slog.Any("error", err),
			)
			continue
		}
		if err := h.Handle(env); err != nil {
			ps.logger.Warn("failed to handle received envelope",
				slog.String("routing_key", d.RoutingKey),
				slog.Any("error", err),
			)
		}
	}
}

func deliveryMode(qos messaging.QoS) uint8 {
	if qos == messaging.AtLeastOnce {
		return amqp.Persistent
	}
	return amqp.Transient
}

func routingKey(topic string) string {
	key := strings.ReplaceAll(topic, "/", ".")
	return strings.ReplaceAll(key, "+", "*")
}
