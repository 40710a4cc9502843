// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"golang.org/x/time/rate"
)

var _ messaging.MessageHandler = (*handler)(nil)

// handler bridges transport subscriptions to the ingest service.
type handler struct {
	svc    Service
	logger *slog.Logger
}

// NewHandler returns a MessageHandler that feeds deliveries into the
// service. Duplicates are counted as handled, not failed, so brokers do
// not redeliver them.
func NewHandler(svc Service, logger *slog.Logger) messaging.MessageHandler {
	return &handler{svc: svc, logger: logger}
}

func (h *handler) Handle(env messaging.Envelope) error {
	err := h.svc.OnEnvelope(context.Background(), env)
	if err == nil {
		return nil
	}
	if errors.Contains(err, errors.ErrDuplicateEnvelope) {
		h.logger.Debug("dropped duplicate envelope",
			slog.String("device_id", env.DeviceID),
			slog.Uint64("sequence", env.Sequence),
			slog.String("kind", env.Kind.String()),
		)
		return nil
	}
	return err
}

func (h *handler) Cancel() error {
	return nil
}

// ThrottlingConfig bounds the ingest rate.
type ThrottlingConfig struct {
	RateLimit     int           `env:"RATE_LIMIT"     envDefault:"1000"`
	LoopThreshold int           `env:"LOOP_THRESHOLD" envDefault:"100"`
	LoopWindow    time.Duration `env:"LOOP_WINDOW"    envDefault:"1m"`
}

// ThrottledHandler drops deliveries above the global rate limit and
// detects devices stuck in a publish loop.
type ThrottledHandler struct {
	next        messaging.MessageHandler
	rateLimiter *rate.Limiter
	logger      *slog.Logger

	messageCount map[string]int
	lastSeen     map[string]time.Time
	threshold    int
	window       time.Duration
	mutex        sync.Mutex
}

// NewThrottledHandler wraps a handler with rate limiting and loop
// detection.
func NewThrottledHandler(next messaging.MessageHandler, config ThrottlingConfig, logger *slog.Logger) *ThrottledHandler {
	return &ThrottledHandler{
		next:         next,
		rateLimiter:  rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimit),
		logger:       logger,
		messageCount: make(map[string]int),
		lastSeen:     make(map[string]time.Time),
		threshold:    config.LoopThreshold,
		window:       config.LoopWindow,
	}
}

func (th *ThrottledHandler) Handle(env messaging.Envelope) error {
	if !th.rateLimiter.Allow() {
		th.logger.Warn("Rate limit exceeded, dropping envelope",
			slog.String("device_id", env.DeviceID))
		return nil
	}

	if th.isLoop(env.DeviceID) {
		th.logger.Warn("Potential publish loop detected, dropping envelope",
			slog.String("device_id", env.DeviceID))
		return nil
	}

	return th.next.Handle(env)
}

func (th *ThrottledHandler) Cancel() error {
	return th.next.Cancel()
}

func (th *ThrottledHandler) isLoop(deviceID string) bool {
	th.mutex.Lock()
	defer th.mutex.Unlock()

	now := time.Now()
	lastTime, exists := th.lastSeen[deviceID]

	if !exists || now.Sub(lastTime) > th.window {
		th.messageCount[deviceID] = 1
		th.lastSeen[deviceID] = now
		return false
	}

	th.messageCount[deviceID]++
	th.lastSeen[deviceID] = now

	if th.messageCount[deviceID] > th.threshold {
		th.logger.Warn("Loop threshold exceeded",
			slog.String("device_id", deviceID),
			slog.Int("count", th.messageCount[deviceID]),
			slog.Int("threshold", th.threshold))
		return true
	}

	return false
}

// Cleanup evicts loop-tracking entries for devices that went quiet.
func (th *ThrottledHandler) Cleanup() {
	th.mutex.Lock()
	defer th.mutex.Unlock()

	cutoff := time.Now().Add(-th.window * 2)
	for key, lastTime := range th.lastSeen {
		if lastTime.Before(cutoff) {
			delete(th.messageCount, key)
			delete(th.lastSeen, key)
		}
	}
}

// StartCleanupTask periodically evicts stale loop-tracking entries until
// the context is canceled.
func (th *ThrottledHandler) StartCleanupTask(ctx context.Context) {
	ticker := time.NewTicker(th.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			th.Cleanup()
		}
	}
}
