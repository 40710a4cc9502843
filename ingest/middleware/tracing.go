// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ ingest.Service = (*tracingMiddleware)(nil)

type tracingMiddleware struct {
	tracer  trace.Tracer
	service ingest.Service
}

// TracingMiddleware traces ingest service operations.
func TracingMiddleware(service ingest.Service, tracer trace.Tracer) ingest.Service {
	return &tracingMiddleware{
		tracer:  tracer,
		service: service,
	}
}

func (tm *tracingMiddleware) OnEnvelope(ctx context.Context, env messaging.Envelope) error {
	ctx, span := tm.tracer.Start(ctx, "on_envelope", trace.WithAttributes(
		attribute.String("device_id", env.DeviceID),
		attribute.Int64("sequence", int64(env.Sequence)),
		attribute.String("kind", env.Kind.String()),
	))
	defer span.End()

	return tm.service.OnEnvelope(ctx, env)
}

func (tm *tracingMiddleware) RecordCommand(ctx context.Context, cmd messaging.Command) error {
	ctx, span := tm.tracer.Start(ctx, "record_command", trace.WithAttributes(
		attribute.String("device_id", cmd.DeviceID),
		attribute.String("command_id", cmd.CommandID),
		attribute.String("action", cmd.Action),
	))
	defer span.End()

	return tm.service.RecordCommand(ctx, cmd)
}

func (tm *tracingMiddleware) ViewState(ctx context.Context, deviceID string) (ingest.State, error) {
	ctx, span := tm.tracer.Start(ctx, "view_state", trace.WithAttributes(
		attribute.String("device_id", deviceID),
	))
	defer span.End()

	return tm.service.ViewState(ctx, deviceID)
}

func (tm *tracingMiddleware) ListStates(ctx context.Context) ([]ingest.State, error) {
	ctx, span := tm.tracer.Start(ctx, "list_states")
	defer span.End()

	return tm.service.ListStates(ctx)
}
