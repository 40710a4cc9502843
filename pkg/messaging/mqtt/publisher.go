// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mqtt

import (
	"context"
	"log/slog"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/queue"
)

var _ messaging.Publisher = (*publisher)(nil)

// publisher implements the publishing half of the transport. While the
// session is down, at-most-once envelopes go to a lossy ring buffer and
// at-least-once envelopes to the durable queue. A full durable queue is
// the one fatal condition of the relay.
type publisher struct {
	conn   *connection
	codec  *messaging.Codec
	ring   *queue.Ring
	spill  *queue.Durable
	logger *slog.Logger
}

func newPublisher(conn *connection, codec *messaging.Codec, spill *queue.Durable, logger *slog.Logger) *publisher {
	return &publisher{
		conn:   conn,
		codec:  codec,
		ring:   queue.NewRing(conn.cfg.RingSize),
		spill:  spill,
		logger: logger,
	}
}

func (pub *publisher) Publish(ctx context.Context, topic string, env messaging.Envelope, qos messaging.QoS) error {
	if topic == "" {
		return errors.Wrap(errors.ErrTransport, messaging.ErrMalformedTopic)
	}

	if pub.conn.State() != messaging.Connected {
		return pub.buffer(queue.Entry{Topic: topic, Envelope: env, QoS: qos})
	}

	data, err := pub.codec.Encode(env)
	if err != nil {
		return err
	}

	switch qos {
	case messaging.AtMostOnce:
		// Fire and forget.
		pub.conn.client.Publish(topic, pahoAtMostOnce, false, data)
		return nil
	default:
		return pub.publishAcked(ctx, topic, env, data)
	}
}

// publishAcked publishes with a bounded retry budget. When the budget is
// exhausted the envelope is spilled to the durable queue instead of
// being dropped; replay happens on the next reconnect.
func (pub *publisher) publishAcked(ctx context.Context, topic string, env messaging.Envelope, data []byte) error {
	var lastErr error
	for attempt := 0; attempt < pub.conn.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(backoffDelay(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				lastErr = ctx.Err()
			case <-timer.C:
			}
			if lastErr != nil && ctx.Err() != nil {
				break
			}
		}
		token := pub.conn.client.Publish(topic, pahoAtLeastOnce, false, data)
		if !token.WaitTimeout(pub.conn.cfg.Timeout) {
			lastErr = errors.ErrPublishTimeout
			continue
		}
		if err := token.Error(); err != nil {
			lastErr = errors.Wrap(errors.ErrTransport, err)
			continue
		}
		return nil
	}

	pub.logger.Warn("publish retry budget exhausted, spilling to durable queue",
		slog.String("topic", topic),
		slog.String("device_id", env.DeviceID),
		slog.Uint64("sequence", env.Sequence),
		slog.Any("error", lastErr),
	)
	return pub.buffer(queue.Entry{Topic: topic, Envelope: env, QoS: messaging.AtLeastOnce})
}

func (pub *publisher) buffer(e queue.Entry) error {
	if e.QoS == messaging.AtMostOnce {
		if evicted := pub.ring.Push(e); evicted {
			pub.logger.Debug("offline ring full, dropped oldest telemetry",
				slog.String("topic", e.Topic),
				slog.Uint64("dropped_total", pub.ring.Dropped()),
			)
		}
		return nil
	}
	if err := pub.spill.Append(e); err != nil {
		if errors.Contains(err, queue.ErrQueueFull) {
			return errors.Wrap(errors.ErrQueueOverflow, err)
		}
		return errors.Wrap(errors.ErrTransport, err)
	}
	return nil
}

// replay flushes buffered envelopes after a reconnect: the durable queue
// first, then the telemetry ring, both in original order so per-device
// ordering is preserved.
func (pub *publisher) replay(ctx context.Context) {
	err := pub.spill.Drain(func(e queue.Entry) error {
		data, err := pub.codec.Encode(e.Envelope)
		if err != nil {
			// Unencodable entries cannot ever succeed; drop them.
			pub.logger.Error("dropping unencodable spilled envelope", slog.Any("error", err))
			return nil
		}
		token := pub.conn.client.Publish(e.Topic, pahoAtLeastOnce, false, data)
		if !token.WaitTimeout(pub.conn.cfg.Timeout) {
			return errors.ErrPublishTimeout
		}
		return token.Error()
	})
	if err != nil {
		pub.logger.Warn("durable queue replay interrupted", slog.Any("error", err))
		return
	}

	for {
		e, ok := pub.ring.Pop()
		if !ok {
			return
		}
		if pub.conn.State() != messaging.Connected {
			pub.ring.Push(e)
			return
		}
		if err := pub.Publish(ctx, e.Topic, e.Envelope, e.QoS); err != nil {
			pub.logger.Warn("buffered telemetry replay failed", slog.Any("error", err))
		}
	}
}

func (pub *publisher) Close() error {
	pub.conn.close()
	return pub.spill.Close()
}

// backoffDelay spaces the retry attempts of a single publish call.
func backoffDelay(attempt int) time.Duration {
	d := backoffBase << uint(attempt)
	if d > backoffCap {
		return backoffCap
	}
	return d
}
