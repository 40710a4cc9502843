// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/go-kit/kit/metrics"
)

var _ ingest.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	service ingest.Service
}

// MetricsMiddleware instruments the ingest service by tracking request
// count and latency.
func MetricsMiddleware(service ingest.Service, counter metrics.Counter, latency metrics.Histogram) ingest.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		service: service,
	}
}

func (mm *metricsMiddleware) OnEnvelope(ctx context.Context, env messaging.Envelope) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "on_envelope").Add(1)
		mm.latency.With("method", "on_envelope").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.service.OnEnvelope(ctx, env)
}

func (mm *metricsMiddleware) RecordCommand(ctx context.Context, cmd messaging.Command) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "record_command").Add(1)
		mm.latency.With("method", "record_command").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.service.RecordCommand(ctx, cmd)
}

func (mm *metricsMiddleware) ViewState(ctx context.Context, deviceID string) (ingest.State, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "view_state").Add(1)
		mm.latency.With("method", "view_state").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.service.ViewState(ctx, deviceID)
}

func (mm *metricsMiddleware) ListStates(ctx context.Context) ([]ingest.State, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list_states").Add(1)
		mm.latency.With("method", "list_states").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.service.ListStates(ctx)
}
