// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package mqtt provides the edge-side transport: an MQTT session with
// explicit reconnect backoff, offline buffering and per-QoS delivery
// guarantees.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	defTimeout    = 30 * time.Second
	defMaxRetries = 5
	defRingSize   = 1000

	backoffBase = time.Second
	backoffCap  = 60 * time.Second

	// Paho QoS levels backing the relay guarantees.
	pahoAtMostOnce  byte = 0
	pahoAtLeastOnce byte = 1
)

// newPahoClient is a hook for tests to substitute a fake broker client.
var newPahoClient = func(opts *mqtt.ClientOptions) mqtt.Client {
	return mqtt.NewClient(opts)
}

// Config holds the MQTT transport configuration.
type Config struct {
	Address    string        `env:"ADDRESS"     envDefault:"tcp://localhost:1883"`
	ClientID   string        `env:"CLIENT_ID"   envDefault:""`
	Username   string        `env:"USERNAME"    envDefault:""`
	Password   string        `env:"PASSWORD"    envDefault:""`
	Timeout    time.Duration `env:"TIMEOUT"     envDefault:"30s"`
	MaxRetries int           `env:"MAX_RETRIES" envDefault:"5"`
	RingSize   int           `env:"RING_SIZE"   envDefault:"1000"`
	SpillPath  string        `env:"SPILL_PATH"  envDefault:"relay-spill.q"`
	SpillSize  int           `env:"SPILL_SIZE"  envDefault:"10000"`
}

func (cfg *Config) fill() {
	if cfg.Timeout == 0 {
		cfg.Timeout = defTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defMaxRetries
	}
	if cfg.RingSize == 0 {
		cfg.RingSize = defRingSize
	}
}

// connection owns the paho client and the session state machine:
// Disconnected -> Connecting -> Connected, looping back to Connecting on
// failure. State transitions are observed asynchronously through
// registered handlers; nothing blocks the caller's loop.
type connection struct {
	client   mqtt.Client
	cfg      Config
	logger   *slog.Logger
	mu       sync.RWMutex
	state    messaging.ConnState
	closed   bool
	handlers []messaging.ConnStateHandler
	onUp     func()
}

func newConnection(cfg Config, logger *slog.Logger) *connection {
	conn := &connection{
		cfg:    cfg,
		logger: logger,
		state:  messaging.Disconnected,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Address).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			conn.lost(err)
		})
	conn.client = newPahoClient(opts)

	return conn
}

// Connect drives the session up, retrying with exponential backoff
// (base 1s, cap 60s, full jitter) until the context is canceled. It
// returns immediately; readiness is observed via state handlers.
func (c *connection) Connect(ctx context.Context) {
	c.transition(messaging.Connecting)
	go c.connectLoop(ctx)
}

func (c *connection) connectLoop(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = backoffBase
	bo.MaxInterval = backoffCap
	bo.RandomizationFactor = 1 // full jitter
	bo.MaxElapsedTime = 0

	op := func() error {
		token := c.client.Connect()
		if !token.WaitTimeout(c.cfg.Timeout) {
			return fmt.Errorf("connect timed out after %s", c.cfg.Timeout)
		}
		return token.Error()
	}
	notify := func(err error, next time.Duration) {
		c.logger.Warn("broker connect failed",
			slog.String("address", c.cfg.Address),
			slog.String("retry_in", next.String()),
			slog.Any("error", err),
		)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		c.transition(messaging.Disconnected)
		return
	}

	c.transition(messaging.Connected)
	if c.onUp != nil {
		c.onUp()
	}
}

// lost handles an unexpected session drop. In-flight publishes waiting
// on tokens complete with an error and become retry candidates in the
// publisher, never silent failures.
func (c *connection) lost(err error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}
	c.logger.Warn(errors.ErrConnectionLost.Msg(), slog.Any("error", err))
	c.transition(messaging.Connecting)
	go c.connectLoop(context.Background())
}

func (c *connection) State() messaging.ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// OnStateChange registers a handler observing session transitions.
func (c *connection) OnStateChange(h messaging.ConnStateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

func (c *connection) transition(s messaging.ConnState) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	handlers := make([]messaging.ConnStateHandler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, h := range handlers {
		go h(s)
	}
}

func (c *connection) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.client.Disconnect(uint(c.cfg.Timeout.Milliseconds()))
	c.transition(messaging.Disconnected)
}
