// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package agent is the edge-side relay endpoint. It samples local
// sensors into telemetry envelopes, consumes commands addressed to the
// device and reports command outcomes, all over one shared transport.
package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/executor"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/ticker"
)

// Sampler reads the device sensors into one telemetry payload.
type Sampler interface {
	Sample(ctx context.Context) (messaging.Payload, error)
}

// Config holds the agent identity and cadence.
type Config struct {
	DeviceID       string        `env:"DEVICE_ID"`
	Domain         string        `env:"DOMAIN"          envDefault:"relay"`
	SampleInterval time.Duration `env:"SAMPLE_INTERVAL" envDefault:"10s"`
	TelemetryQoS   messaging.QoS `env:"TELEMETRY_QOS"   envDefault:"0"`
}

// Agent ties the sampling loop and the command executor to a shared
// transport. Envelope sequence numbers are monotonic per device across
// kinds, so acks and telemetry share one counter.
type Agent struct {
	cfg      Config
	pubsub   messaging.PubSub
	actuator executor.Actuator
	logger   *slog.Logger

	mu  sync.Mutex
	seq uint64
}

// New instantiates the agent over an established transport. The
// sequence counter is seeded from the wall clock so numbers stay
// monotonic across restarts and never re-enter the ingestor's dedup
// window as false duplicates.
func New(cfg Config, pubsub messaging.PubSub, actuator executor.Actuator, logger *slog.Logger) (*Agent, error) {
	if cfg.DeviceID == "" {
		return nil, errors.New("missing device id")
	}
	return &Agent{
		cfg:      cfg,
		pubsub:   pubsub,
		actuator: actuator,
		logger:   logger,
		seq:      uint64(time.Now().UnixNano()),
	}, nil
}

// Start subscribes to the device command topic and runs the sampling
// loop until the context is canceled.
func (a *Agent) Start(ctx context.Context, sampler Sampler, tick ticker.Ticker) error {
	exec := executor.New(a.actuator, a, a.logger)
	topic := messaging.Topic(a.cfg.Domain, a.cfg.DeviceID, messaging.CommandKind)
	cfg := messaging.SubscriberConfig{
		ID:      a.cfg.DeviceID,
		Topic:   topic,
		Handler: executor.Handler(exec, a.logger),
	}
	if err := a.pubsub.Subscribe(ctx, cfg); err != nil {
		return errors.Wrap(errors.ErrTransport, err)
	}

	a.publishStatus(ctx, "online")
	defer a.publishStatus(context.Background(), "offline")
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.Tick():
			a.sample(ctx, sampler)
		}
	}
}

func (a *Agent) sample(ctx context.Context, sampler Sampler) {
	payload, err := sampler.Sample(ctx)
	if err != nil {
		a.logger.Warn("sensor sampling failed", slog.Any("error", err))
		return
	}

	env := messaging.Envelope{
		DeviceID:  a.cfg.DeviceID,
		Sequence:  a.nextSeq(),
		Kind:      messaging.TelemetryKind,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	topic := messaging.Topic(a.cfg.Domain, a.cfg.DeviceID, messaging.TelemetryKind)
	if err := a.pubsub.Publish(ctx, topic, env, a.cfg.TelemetryQoS); err != nil {
		a.logger.Warn("failed to publish telemetry",
			slog.Uint64("sequence", env.Sequence),
			slog.Any("error", err),
		)
	}
}

// SendAck implements executor.AckSink. Acks ride upstream inside
// telemetry-kind envelopes and always travel at-least-once.
func (a *Agent) SendAck(ctx context.Context, ack messaging.Ack) error {
	env := messaging.WrapAck(a.cfg.DeviceID, a.nextSeq(), ack)
	topic := messaging.Topic(a.cfg.Domain, a.cfg.DeviceID, messaging.TelemetryKind)
	return a.pubsub.Publish(ctx, topic, env, messaging.AtLeastOnce)
}

func (a *Agent) publishStatus(ctx context.Context, state string) {
	env := messaging.Envelope{
		DeviceID:  a.cfg.DeviceID,
		Sequence:  a.nextSeq(),
		Kind:      messaging.StatusKind,
		Timestamp: time.Now().UTC(),
		Payload:   messaging.Payload{"state": state},
	}
	topic := messaging.Topic(a.cfg.Domain, a.cfg.DeviceID, messaging.StatusKind)
	if err := a.pubsub.Publish(ctx, topic, env, messaging.AtLeastOnce); err != nil {
		a.logger.Warn("failed to publish status", slog.String("state", state), slog.Any("error", err))
	}
}

func (a *Agent) nextSeq() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	return a.seq
}
