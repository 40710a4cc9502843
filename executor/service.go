// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
)

// maxHistory bounds the settled command history used for idempotent
// redelivery handling.
const maxHistory = 256

type service struct {
	actuator Actuator
	sink     AckSink
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	history map[string]messaging.Ack
	order   []string
}

// New instantiates the command executor.
func New(actuator Actuator, sink AckSink, logger *slog.Logger) Service {
	return &service{
		actuator: actuator,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
		history:  make(map[string]messaging.Ack, maxHistory),
	}
}

func (svc *service) OnCommand(ctx context.Context, env messaging.Envelope) error {
	cmd, err := messaging.UnwrapCommand(env)
	if err != nil {
		return err
	}

	svc.mu.Lock()
	if prev, ok := svc.history[cmd.CommandID]; ok {
		svc.mu.Unlock()
		svc.logger.Debug("re-acking redelivered command",
			slog.String("command_id", cmd.CommandID),
			slog.String("result", prev.ResultStatus),
		)
		return svc.sink.SendAck(ctx, prev)
	}
	svc.mu.Unlock()

	now := svc.now()
	ack := messaging.Ack{
		CommandID: cmd.CommandID,
		AppliedAt: now,
	}

	switch {
	case cmd.Expired(now):
		ack.ResultStatus = messaging.ResultRejected
		svc.logger.Warn(errors.ErrCommandExpired.Msg(),
			slog.String("command_id", cmd.CommandID),
			slog.String("action", cmd.Action),
			slog.String("expired_at", cmd.ExpiresAt.Format(time.RFC3339Nano)),
		)
	default:
		if err := svc.actuator.Apply(ctx, cmd.Action, cmd.Parameters); err != nil {
			ack.ResultStatus = messaging.ResultFailed
			svc.logger.Error("actuator write failed",
				slog.String("command_id", cmd.CommandID),
				slog.String("action", cmd.Action),
				slog.Any("error", err),
			)
		} else {
			ack.ResultStatus = messaging.ResultApplied
		}
	}

	svc.remember(cmd.CommandID, ack)

	if err := svc.sink.SendAck(ctx, ack); err != nil {
		return errors.Wrap(errors.ErrTransport, err)
	}
	return nil
}

func (svc *service) remember(commandID string, ack messaging.Ack) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if len(svc.order) == maxHistory {
		oldest := svc.order[0]
		svc.order = svc.order[1:]
		delete(svc.history, oldest)
	}
	svc.order = append(svc.order, commandID)
	svc.history[commandID] = ack
}

// Handler adapts the executor to a transport subscription.
func Handler(svc Service, logger *slog.Logger) messaging.MessageHandler {
	return &handler{svc: svc, logger: logger}
}

type handler struct {
	svc    Service
	logger *slog.Logger
}

func (h *handler) Handle(env messaging.Envelope) error {
	if err := h.svc.OnCommand(context.Background(), env); err != nil {
		h.logger.Warn("failed to handle command envelope",
			slog.String("device_id", env.DeviceID),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

func (h *handler) Cancel() error {
	return nil
}
