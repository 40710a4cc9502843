// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
)

var _ ingest.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger  *slog.Logger
	service ingest.Service
}

// LoggingMiddleware adds logging facilities to the ingest service.
func LoggingMiddleware(service ingest.Service, logger *slog.Logger) ingest.Service {
	return &loggingMiddleware{
		logger:  logger,
		service: service,
	}
}

func (lm *loggingMiddleware) OnEnvelope(ctx context.Context, env messaging.Envelope) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("envelope",
				slog.String("device_id", env.DeviceID),
				slog.Uint64("sequence", env.Sequence),
				slog.String("kind", env.Kind.String()),
			),
		}
		switch {
		case err == nil:
			lm.logger.Info("Ingest envelope completed successfully", args...)
		case errors.Contains(err, errors.ErrDuplicateEnvelope):
			lm.logger.Debug("Ingest envelope dropped duplicate", args...)
		default:
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Ingest envelope failed", args...)
		}
	}(time.Now())

	return lm.service.OnEnvelope(ctx, env)
}

func (lm *loggingMiddleware) RecordCommand(ctx context.Context, cmd messaging.Command) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("command",
				slog.String("device_id", cmd.DeviceID),
				slog.String("command_id", cmd.CommandID),
				slog.String("action", cmd.Action),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Record command failed", args...)
			return
		}
		lm.logger.Info("Record command completed successfully", args...)
	}(time.Now())

	return lm.service.RecordCommand(ctx, cmd)
}

func (lm *loggingMiddleware) ViewState(ctx context.Context, deviceID string) (state ingest.State, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("device_id", deviceID),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("View device state failed", args...)
			return
		}
		lm.logger.Info("View device state completed successfully", args...)
	}(time.Now())

	return lm.service.ViewState(ctx, deviceID)
}

func (lm *loggingMiddleware) ListStates(ctx context.Context) (states []ingest.State, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("total", len(states)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List device states failed", args...)
			return
		}
		lm.logger.Info("List device states completed successfully", args...)
	}(time.Now())

	return lm.service.ListStates(ctx)
}
