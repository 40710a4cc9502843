// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/alerting"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/ticker"
)

const (
	defSweepInterval = 10 * time.Second

	// maxSettled bounds the settled id history used to reject
	// re-dispatch of already completed commands.
	maxSettled = 4096
)

type service struct {
	publisher messaging.Publisher
	notifier  alerting.Notifier
	domain    string
	logger    *slog.Logger

	mu           sync.Mutex
	outstanding  map[string]*Outstanding
	sequences    map[string]uint64
	settled      map[string]Status
	settledOrder []string
}

// New instantiates the dispatch service. The notifier may be nil to
// disable lost command alerts.
func New(publisher messaging.Publisher, notifier alerting.Notifier, domain string, logger *slog.Logger) Service {
	return &service{
		publisher:   publisher,
		notifier:    notifier,
		domain:      domain,
		logger:      logger,
		outstanding: make(map[string]*Outstanding),
		sequences:   make(map[string]uint64),
		settled:     make(map[string]Status),
	}
}

func (svc *service) Dispatch(ctx context.Context, cmd messaging.Command) error {
	if cmd.CommandID == "" {
		return messaging.ErrMissingCommandID
	}

	svc.mu.Lock()
	if _, ok := svc.outstanding[cmd.CommandID]; ok {
		svc.mu.Unlock()
		return errors.ErrDuplicateCommand
	}
	if _, ok := svc.settled[cmd.CommandID]; ok {
		svc.mu.Unlock()
		return errors.ErrDuplicateCommand
	}
	svc.sequences[cmd.DeviceID]++
	seq := svc.sequences[cmd.DeviceID]
	svc.outstanding[cmd.CommandID] = &Outstanding{
		Command: cmd,
		SentAt:  time.Now(),
		Status:  Pending,
	}
	svc.mu.Unlock()

	topic := messaging.Topic(svc.domain, cmd.DeviceID, messaging.CommandKind)
	if err := svc.publisher.Publish(ctx, topic, cmd.Wrap(seq), messaging.AtLeastOnce); err != nil {
		svc.forget(cmd.CommandID)
		return errors.Wrap(errors.ErrTransport, err)
	}
	return nil
}

func (svc *service) Acknowledge(_ context.Context, ack messaging.Ack) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	out, ok := svc.outstanding[ack.CommandID]
	if !ok {
		return nil
	}
	delete(svc.outstanding, ack.CommandID)
	svc.settle(ack.CommandID, Acked)

	svc.logger.Info("command settled",
		slog.String("command_id", ack.CommandID),
		slog.String("device_id", out.Command.DeviceID),
		slog.String("result", ack.ResultStatus),
		slog.String("latency", time.Since(out.SentAt).String()),
	)
	return nil
}

func (svc *service) Outstanding(_ context.Context) ([]Outstanding, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	res := make([]Outstanding, 0, len(svc.outstanding))
	for _, out := range svc.outstanding {
		res = append(res, *out)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].SentAt.Before(res[j].SentAt)
	})
	return res, nil
}

// StartSweeper marks expired commands as lost until the context is
// canceled. Intended to run as its own goroutine.
func (svc *service) StartSweeper(ctx context.Context, tick ticker.Ticker) {
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.Tick():
			svc.sweep(ctx, now)
		}
	}
}

// NewSweepTicker returns the default ticker for StartSweeper.
func NewSweepTicker() ticker.Ticker {
	return ticker.NewTicker(defSweepInterval)
}

func (svc *service) sweep(ctx context.Context, now time.Time) {
	svc.mu.Lock()
	var lost []Outstanding
	for id, out := range svc.outstanding {
		if out.Command.Expired(now) {
			out.Status = Lost
			lost = append(lost, *out)
			delete(svc.outstanding, id)
			svc.settle(id, Lost)
		}
	}
	svc.mu.Unlock()

	for _, out := range lost {
		svc.logger.Warn("command lost",
			slog.String("command_id", out.Command.CommandID),
			slog.String("device_id", out.Command.DeviceID),
			slog.String("action", out.Command.Action),
		)
		if svc.notifier == nil {
			continue
		}
		msg := fmt.Sprintf("command %s (%s) to device %s expired without ack", out.Command.CommandID, out.Command.Action, out.Command.DeviceID)
		if err := svc.notifier.Notify(ctx, alerting.Warning, msg); err != nil {
			svc.logger.Warn("failed to notify lost command", slog.Any("error", err))
		}
	}
}

// settle records a terminal status, evicting the oldest entry when the
// history is full. Callers hold the lock.
func (svc *service) settle(commandID string, status Status) {
	if len(svc.settledOrder) == maxSettled {
		oldest := svc.settledOrder[0]
		svc.settledOrder = svc.settledOrder[1:]
		delete(svc.settled, oldest)
	}
	svc.settledOrder = append(svc.settledOrder, commandID)
	svc.settled[commandID] = status
}

func (svc *service) forget(commandID string) {
	svc.mu.Lock()
	delete(svc.outstanding, commandID)
	svc.mu.Unlock()
}
