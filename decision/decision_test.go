// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package decision_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/decision"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/decision/mocks"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func f(v float64) *float64 { return &v }

func coolingPolicy() decision.Policy {
	return decision.Policy{
		Kind: decision.ThresholdStrategy,
		Bounds: []decision.Bound{
			{
				Metric:          "temperature",
				Lower:           f(18),
				Upper:           f(30),
				ActionIfBelow:   "heat_on",
				ActionIfAbove:   "cool_on",
				ParametersBelow: map[string]interface{}{"set_point": 21.0},
				ParametersAbove: map[string]interface{}{"set_point": 24.0},
				Priority:        1,
			},
		},
		Hysteresis: 0.5,
		Cooldown:   30 * time.Second,
		CommandTTL: time.Minute,
	}
}

func TestDecideThreshold(t *testing.T) {
	e := decision.New(nil, nil, discard)

	cases := []struct {
		desc    string
		input   decision.Input
		expect  string
		emitted bool
	}{
		{
			desc: "value above upper bound triggers the above action",
			input: decision.Input{
				DeviceID:  "dev-1",
				Telemetry: messaging.Payload{"temperature": 31.2},
			},
			expect:  "cool_on",
			emitted: true,
		},
		{
			desc: "value below lower bound triggers the below action",
			input: decision.Input{
				DeviceID:  "dev-1",
				Telemetry: messaging.Payload{"temperature": 12.0},
			},
			expect:  "heat_on",
			emitted: true,
		},
		{
			desc: "value within bounds emits nothing",
			input: decision.Input{
				DeviceID:  "dev-1",
				Telemetry: messaging.Payload{"temperature": 24.0},
			},
			emitted: false,
		},
		{
			desc: "missing metric emits nothing",
			input: decision.Input{
				DeviceID:  "dev-1",
				Telemetry: messaging.Payload{"humidity": 80.0},
			},
			emitted: false,
		},
		{
			desc: "non numeric metric emits nothing",
			input: decision.Input{
				DeviceID:  "dev-1",
				Telemetry: messaging.Payload{"temperature": "hot"},
			},
			emitted: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			cmd, ok := e.Decide(context.Background(), tc.input, coolingPolicy())
			assert.Equal(t, tc.emitted, ok)
			if tc.emitted {
				assert.Equal(t, tc.expect, cmd.Action)
				assert.Equal(t, "dev-1", cmd.DeviceID)
				assert.False(t, cmd.IssuedAt.IsZero())
				assert.True(t, cmd.ExpiresAt.After(cmd.IssuedAt))
			}
		})
	}
}

func TestDecidePriorityTieBreak(t *testing.T) {
	e := decision.New(nil, nil, discard)
	p := decision.Policy{
		Kind: decision.ThresholdStrategy,
		Bounds: []decision.Bound{
			{Metric: "humidity", Upper: f(70), ActionIfAbove: "dehumidify", Priority: 2},
			{Metric: "temperature", Upper: f(30), ActionIfAbove: "cool_on", Priority: 1},
			{Metric: "pressure", Upper: f(1100), ActionIfAbove: "vent_open", Priority: 1},
		},
		Hysteresis: 0.5,
	}

	in := decision.Input{
		DeviceID: "dev-1",
		Telemetry: messaging.Payload{
			"humidity":    90.0,
			"temperature": 35.0,
			"pressure":    1200.0,
		},
	}

	cmd, ok := e.Decide(context.Background(), in, p)
	require.True(t, ok)

	// Lowest priority value wins, declaration order breaks the tie.
	assert.Equal(t, "cool_on", cmd.Action)
}

func TestDecideCooldownSuppression(t *testing.T) {
	e := decision.New(nil, nil, discard)
	p := coolingPolicy()

	last := &messaging.Command{
		DeviceID:   "dev-1",
		Action:     "cool_on",
		Parameters: map[string]interface{}{"set_point": 24.0},
	}

	in := decision.Input{
		DeviceID:      "dev-1",
		Telemetry:     messaging.Payload{"temperature": 31.0},
		LastCommand:   last,
		LastCommandAt: time.Now().Add(-10 * time.Second),
	}
	_, ok := e.Decide(context.Background(), in, p)
	assert.False(t, ok, "identical command inside the cool-down window must be suppressed")

	in.LastCommandAt = time.Now().Add(-time.Minute)
	cmd, ok := e.Decide(context.Background(), in, p)
	assert.True(t, ok, "cool-down expiry re-enables the command")
	assert.Equal(t, "cool_on", cmd.Action)
}

func TestDecideHysteresisBlocksReversal(t *testing.T) {
	e := decision.New(nil, nil, discard)
	p := decision.Policy{
		Kind: decision.ThresholdStrategy,
		Bounds: []decision.Bound{
			{Metric: "temperature", Lower: f(20), Upper: f(21), ActionIfBelow: "heat_on", ActionIfAbove: "cool_on"},
		},
		Hysteresis: 2,
	}

	last := &messaging.Command{DeviceID: "dev-1", Action: "cool_on"}
	in := decision.Input{
		DeviceID:      "dev-1",
		Telemetry:     messaging.Payload{"temperature": 19.5},
		LastCommand:   last,
		LastCommandAt: time.Now().Add(-time.Hour),
	}

	_, ok := e.Decide(context.Background(), in, p)
	assert.False(t, ok, "reversal inside the hysteresis band must not trigger")

	in.Telemetry = messaging.Payload{"temperature": 17.0}
	cmd, ok := e.Decide(context.Background(), in, p)
	assert.True(t, ok, "clearing the band by the margin triggers the reversal")
	assert.Equal(t, "heat_on", cmd.Action)
}

func TestDecideInvalidPolicy(t *testing.T) {
	e := decision.New(nil, nil, discard)
	in := decision.Input{DeviceID: "dev-1", Telemetry: messaging.Payload{"temperature": 99.0}}

	_, ok := e.Decide(context.Background(), in, decision.Policy{Kind: decision.ThresholdStrategy})
	assert.False(t, ok)
}

func TestDecideModel(t *testing.T) {
	inf := new(mocks.Inferencer)
	inf.On("Infer", mock.Anything, "anomaly-v2", mock.Anything).Return(decision.Result{Label: "overheat", Score: 0.97}, nil)

	e := decision.New(inf, nil, discard)
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
	assert.Equal(t, map[string]interface{}{"label": "overheat"}, cmd.Parameters)
	inf.AssertExpectations(t)
}

func TestDecideModelUnknownLabel(t *testing.T) {
	inf := new(mocks.Inferencer)
	inf.On("Infer", mock.Anything, "anomaly-v2", mock.Anything).Return(decision.Result{Label: "nominal"}, nil)

	e := decision.New(inf, nil, discard)
	p := decision.Policy{
		Kind:       decision.ModelStrategy,
		ModelID:    "anomaly-v2",
		Lookup:     map[string]string{"overheat": "shutdown"},
		Hysteresis: 0.5,
	}

	_, ok := e.Decide(context.Background(), decision.Input{DeviceID: "dev-1"}, p)
	assert.False(t, ok)
}

func TestDecideModelDegradesToThresholds(t *testing.T) {
	inf := new(mocks.Inferencer)
	inf.On("Infer", mock.Anything, "anomaly-v2", mock.Anything).Return(decision.Result{}, context.DeadlineExceeded)

	e := decision.New(inf, nil, discard)
	p := decision.Policy{
		Kind:    decision.ModelStrategy,
		ModelID: "anomaly-v2",
		Lookup:  map[string]string{"overheat": "shutdown"},
		Bounds: []decision.Bound{
			{Metric: "temperature", Upper: f(30), ActionIfAbove: "cool_on"},
		},
		Hysteresis: 0.5,
	}

	in := decision.Input{DeviceID: "dev-1", Telemetry: messaging.Payload{"temperature": 35.0}}
	cmd, ok := e.Decide(context.Background(), in, p)
	require.True(t, ok)
	assert.Equal(t, "cool_on", cmd.Action, "inference failure degrades to the threshold rules")
}

func TestDecideScript(t *testing.T) {
	e := decision.New(nil, nil, discard)

	cases := []struct {
		desc    string
		script  string
		expect  string
		emitted bool
	}{
		{
			desc:    "script returning an action string",
			script:  `if message.payload.temperature > 30 then return "cool_on" end`,
			expect:  "cool_on",
			emitted: true,
		},
		{
			desc:    "script returning a table with parameters",
			script:  `return {action = "cool_on", parameters = {set_point = 24}}`,
			expect:  "cool_on",
			emitted: true,
		},
		{
			desc:    "script returning false emits nothing",
			script:  `return false`,
			emitted: false,
		},
		{
			desc:    "script returning nothing emits nothing",
			script:  `local x = 1`,
			emitted: false,
		},
		{
			desc:    "broken script emits nothing",
			script:  `return (`,
			emitted: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			p := decision.Policy{
				Kind:       decision.ScriptStrategy,
				Script:     tc.script,
				Hysteresis: 0.5,
			}
			in := decision.Input{
				DeviceID:  "dev-1",
				Telemetry: messaging.Payload{"temperature": 35.0},
			}
			cmd, ok := e.Decide(context.Background(), in, p)
			assert.Equal(t, tc.emitted, ok)
			if tc.emitted {
				assert.Equal(t, tc.expect, cmd.Action)
			}
		})
	}
}
