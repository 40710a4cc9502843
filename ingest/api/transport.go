// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	relay "github.com/HuebitsTechLearn/Artificial-Internet-of-Things"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/dispatch"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/internal/api"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/apiutil"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Commander exposes the dispatcher to the API surface.
type Commander interface {
	Dispatch(ctx context.Context, cmd messaging.Command) error
	Outstanding(ctx context.Context) ([]dispatch.Outstanding, error)
}

// MakeHandler returns a HTTP API handler with health check and metrics.
func MakeHandler(svc ingest.Service, commander Commander, idp relay.IDProvider, logger *slog.Logger, svcName, instanceID string) http.Handler {
	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux := chi.NewRouter()

	mux.Get("/devices", otelhttp.NewHandler(kithttp.NewServer(
		listStatesEndpoint(svc),
		decodeListStatesReq,
		api.EncodeResponse,
		opts...,
	), "list_device_states").ServeHTTP)

	mux.Get("/devices/{deviceID}", otelhttp.NewHandler(kithttp.NewServer(
		viewStateEndpoint(svc),
		decodeViewStateReq,
		api.EncodeResponse,
		opts...,
	), "view_device_state").ServeHTTP)

	mux.Post("/devices/{deviceID}/commands", otelhttp.NewHandler(kithttp.NewServer(
		sendCommandEndpoint(svc, commander, idp),
		decodeSendCommandReq,
		api.EncodeResponse,
		opts...,
	), "send_command").ServeHTTP)

	mux.Get("/commands", otelhttp.NewHandler(kithttp.NewServer(
		listCommandsEndpoint(commander),
		decodeListCommandsReq,
		api.EncodeResponse,
		opts...,
	), "list_outstanding_commands").ServeHTTP)

	mux.Get("/health", relay.Health(svcName, instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeViewStateReq(_ context.Context, r *http.Request) (interface{}, error) {
	req := viewStateReq{
		deviceID: chi.URLParam(r, "deviceID"),
	}
	return req, nil
}

func decodeListStatesReq(_ context.Context, r *http.Request) (interface{}, error) {
	offset, err := apiutil.ReadNumQuery(r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Wrap(apiutil.ErrValidation, err)
	}
	limit, err := apiutil.ReadNumQuery(r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Wrap(apiutil.ErrValidation, err)
	}

	req := listStatesReq{
		offset: offset,
		limit:  limit,
	}
	return req, nil
}

func decodeSendCommandReq(_ context.Context, r *http.Request) (interface{}, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Wrap(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	req := sendCommandReq{
		deviceID: chi.URLParam(r, "deviceID"),
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Wrap(apiutil.ErrValidation, errors.Wrap(errors.ErrMalformedEntity, err))
	}
	return req, nil
}

func decodeListCommandsReq(_ context.Context, _ *http.Request) (interface{}, error) {
	return listCommandsReq{}, nil
}
