// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package decision_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/decision"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPInferencer(t *testing.T) {
	var gotReq struct {
		ModelID  string                 `json:"model_id"`
		Features map[string]interface{} `json:"features"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"label":"overheat","score":0.93}`))
	}))
	defer srv.Close()

	inf := decision.NewHTTPInferencer(srv.URL, time.Second)
	res, err := inf.Infer(context.Background(), "anomaly-v2", map[string]interface{}{"temperature": 81.0})
	require.NoError(t, err)
	assert.Equal(t, decision.Result{Label: "overheat", Score: 0.93}, res)
	assert.Equal(t, "anomaly-v2", gotReq.ModelID)
	assert.Equal(t, map[string]interface{}{"temperature": 81.0}, gotReq.Features)
}

func TestHTTPInferencerServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	inf := decision.NewHTTPInferencer(srv.URL, time.Second)
	_, err := inf.Infer(context.Background(), "anomaly-v2", nil)
	assert.ErrorContains(t, err, decision.ErrFailedInference.Msg())
}

func TestHTTPInferencerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	inf := decision.NewHTTPInferencer(srv.URL, time.Second)
	_, err := inf.Infer(context.Background(), "anomaly-v2", nil)
	assert.Error(t, err)
}

func TestDecideModelOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"label":"overheat","score":0.97}`))
	}))
	defer srv.Close()

	e := decision.New(decision.NewHTTPInferencer(srv.URL, time.Second), nil, discard)
	p := decision.Policy{
		Kind:       decision.ModelStrategy,
		ModelID:    "anomaly-v2",
		Lookup:     map[string]string{"overheat": "shutdown"},
		Hysteresis: 0.5,
	}

	in := decision.Input{DeviceID: "dev-1", Telemetry: messaging.Payload{"temperature": 80.0}}
	cmd, ok := e.Decide(context.Background(), in, p)
	require.True(t, ok)
	assert.Equal(t, "shutdown", cmd.Action)
}
