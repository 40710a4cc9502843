// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ingest_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/decision"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest/mocks"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func f(v float64) *float64 { return &v }

func telemetry(deviceID string, seq uint64, payload messaging.Payload) messaging.Envelope {
	return messaging.Envelope{
		DeviceID:  deviceID,
		Sequence:  seq,
		Kind:      messaging.TelemetryKind,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

func newService(stores []ingest.EnvelopeStore, dispatcher ingest.Dispatcher, policies ingest.PolicyProvider) ingest.Service {
	engine := decision.New(nil, nil, discard)
	return ingest.New(
		ingest.NewMemoryRepository(),
		stores,
		dispatcher,
		engine,
		policies,
		messaging.NewCodec(),
		uuid.New(),
		0,
		discard,
	)
}

func TestOnEnvelopeUpdatesState(t *testing.T) {
	svc := newService(nil, nil, nil)

	env := telemetry("dev-1", 1, messaging.Payload{"temperature": 21.0})
	require.NoError(t, svc.OnEnvelope(context.Background(), env))

	state, err := svc.ViewState(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), state.LastSequence)
	assert.Equal(t, env.Payload, state.Telemetry)
}

func TestOnEnvelopeIdempotence(t *testing.T) {
	store := new(mocks.EnvelopeStore)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	svc := newService([]ingest.EnvelopeStore{store}, nil, nil)

	env := telemetry("dev-1", 7, messaging.Payload{"temperature": 21.0})
	require.NoError(t, svc.OnEnvelope(context.Background(), env))

	for i := 0; i < 3; i++ {
		err := svc.OnEnvelope(context.Background(), env)
		assert.True(t, errors.Contains(err, errors.ErrDuplicateEnvelope))
	}

	// The store saw the envelope exactly once.
	store.AssertNumberOfCalls(t, "Save", 1)
}

func TestOnEnvelopeDedupWithoutSequence(t *testing.T) {
	svc := newService(nil, nil, nil)

	ts := time.Unix(1700000000, 0).UTC()
	env := messaging.Envelope{
		DeviceID:  "dev-1",
		Kind:      messaging.TelemetryKind,
		Timestamp: ts,
		Payload:   messaging.Payload{"temperature": 21.0},
	}
	require.NoError(t, svc.OnEnvelope(context.Background(), env))

	// Same content again is a duplicate by content hash.
	err := svc.OnEnvelope(context.Background(), env)
	assert.True(t, errors.Contains(err, errors.ErrDuplicateEnvelope))

	// Different content passes.
	next := env
	next.Payload = messaging.Payload{"temperature": 22.0}
	assert.NoError(t, svc.OnEnvelope(context.Background(), next))
}

func TestOnEnvelopeRejectsCommands(t *testing.T) {
	svc := newService(nil, nil, nil)

	env := messaging.Envelope{
		DeviceID: "dev-1",
		Sequence: 1,
		Kind:     messaging.CommandKind,
		Payload:  messaging.Payload{},
	}
	err := svc.OnEnvelope(context.Background(), env)
	assert.True(t, errors.Contains(err, errors.ErrUnsupportedKind))
}

func TestOnEnvelopeStoreFailureIsBestEffort(t *testing.T) {
	store := new(mocks.EnvelopeStore)
	store.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))

	svc := newService([]ingest.EnvelopeStore{store}, nil, nil)

	env := telemetry("dev-1", 1, messaging.Payload{"temperature": 21.0})
	assert.NoError(t, svc.OnEnvelope(context.Background(), env))

	state, err := svc.ViewState(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), state.LastSequence)
}

func TestOnEnvelopeDispatchesCommand(t *testing.T) {
	dispatcher := new(mocks.Dispatcher)
	dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(cmd messaging.Command) bool {
		return cmd.DeviceID == "dev-1" && cmd.Action == "cool_on" && cmd.CommandID != ""
	})).Return(nil)

	policies := ingest.StaticPolicies{
		Default: &decision.Policy{
			Kind: decision.ThresholdStrategy,
			Bounds: []decision.Bound{
				{Metric: "temperature", Upper: f(30), ActionIfAbove: "cool_on"},
			},
			Hysteresis: 0.5,
		},
	}
	svc := newService(nil, dispatcher, policies)

	env := telemetry("dev-1", 1, messaging.Payload{"temperature": 35.0})
	require.NoError(t, svc.OnEnvelope(context.Background(), env))
	dispatcher.AssertExpectations(t)

	state, err := svc.ViewState(context.Background(), "dev-1")
	require.NoError(t, err)
	require.NotNil(t, state.LastCommand)
	assert.Equal(t, "cool_on", state.LastCommand.Action)

	// The same breach right after is inside the cool-down window.
	env2 := telemetry("dev-1", 2, messaging.Payload{"temperature": 35.5})
	require.NoError(t, svc.OnEnvelope(context.Background(), env2))
	dispatcher.AssertNumberOfCalls(t, "Dispatch", 1)
}

func TestOnEnvelopeSettlesAck(t *testing.T) {
	dispatcher := new(mocks.Dispatcher)
	dispatcher.On("Acknowledge", mock.Anything, mock.MatchedBy(func(ack messaging.Ack) bool {
		return ack.CommandID == "cmd-1" && ack.ResultStatus == messaging.ResultApplied
	})).Return(nil)

	svc := newService(nil, dispatcher, nil)

	ack := messaging.Ack{
		CommandID:    "cmd-1",
		AppliedAt:    time.Now().UTC(),
		ResultStatus: messaging.ResultApplied,
	}
	env := messaging.WrapAck("dev-1", 9, ack)
	require.NoError(t, svc.OnEnvelope(context.Background(), env))
	dispatcher.AssertExpectations(t)

	state, err := svc.ViewState(context.Background(), "dev-1")
	require.NoError(t, err)
	require.NotNil(t, state.LastAck)
	assert.Equal(t, "cmd-1", state.LastAck.CommandID)
}

func TestViewStateUnknownDevice(t *testing.T) {
	svc := newService(nil, nil, nil)

	_, err := svc.ViewState(context.Background(), "unknown")
	assert.True(t, errors.Contains(err, errors.ErrNotFound))
}

func TestListStates(t *testing.T) {
	svc := newService(nil, nil, nil)

	for i, id := range []string{"dev-1", "dev-2", "dev-3"} {
		env := telemetry(id, uint64(i+1), messaging.Payload{"temperature": 20.0})
		require.NoError(t, svc.OnEnvelope(context.Background(), env))
	}

	states, err := svc.ListStates(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 3)
	assert.Equal(t, "dev-1", states[0].DeviceID)
}

// flakyRepository fails a fixed number of operations before recovering,
// imitating a state store that drops connections transiently.
type flakyRepository struct {
	ingest.StateRepository
	retrieveFailures int
	saveFailures     int
}

func (r *flakyRepository) Retrieve(ctx context.Context, deviceID string) (ingest.State, error) {
	if r.retrieveFailures > 0 {
		r.retrieveFailures--
		return ingest.State{}, errors.New("connection refused")
	}
	return r.StateRepository.Retrieve(ctx, deviceID)
}

func (r *flakyRepository) Save(ctx context.Context, state ingest.State) error {
	if r.saveFailures > 0 {
		r.saveFailures--
		return errors.New("connection refused")
	}
	return r.StateRepository.Save(ctx, state)
}

func TestOnEnvelopeRedeliveryAfterTransientFailure(t *testing.T) {
	cases := []struct {
		desc string
		repo *flakyRepository
	}{
		{
			desc: "retrieve fails once",
			repo: &flakyRepository{StateRepository: ingest.NewMemoryRepository(), retrieveFailures: 1},
		},
		{
			desc: "save fails once",
			repo: &flakyRepository{StateRepository: ingest.NewMemoryRepository(), saveFailures: 1},
		},
	}
	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			engine := decision.New(nil, nil, discard)
			svc := ingest.New(tc.repo, nil, nil, engine, nil, messaging.NewCodec(), uuid.New(), 0, discard)

			env := telemetry("dev-1", 3, messaging.Payload{"temperature": 21.0})

			err := svc.OnEnvelope(context.Background(), env)
			require.Error(t, err)
			assert.False(t, errors.Contains(err, errors.ErrDuplicateEnvelope))

			// The broker redelivers: the envelope must be processed, not
			// swallowed as a duplicate.
			require.NoError(t, svc.OnEnvelope(context.Background(), env))

			state, err := svc.ViewState(context.Background(), "dev-1")
			require.NoError(t, err)
			assert.Equal(t, uint64(3), state.LastSequence)
			assert.Equal(t, env.Payload, state.Telemetry)

			// Once processed, further redeliveries are duplicates.
			err = svc.OnEnvelope(context.Background(), env)
			assert.True(t, errors.Contains(err, errors.ErrDuplicateEnvelope))
		})
	}
}

func TestAckRedeliveryAfterTransientFailure(t *testing.T) {
	repo := &flakyRepository{StateRepository: ingest.NewMemoryRepository(), saveFailures: 1}
	dispatcher := new(mocks.Dispatcher)
	dispatcher.On("Acknowledge", mock.Anything, mock.Anything).Return(nil)

	engine := decision.New(nil, nil, discard)
	svc := ingest.New(repo, nil, dispatcher, engine, nil, messaging.NewCodec(), uuid.New(), 0, discard)

	ack := messaging.Ack{
		CommandID:    "cmd-1",
		AppliedAt:    time.Now().UTC(),
		ResultStatus: messaging.ResultApplied,
	}
	env := messaging.WrapAck("dev-1", 9, ack)

	require.Error(t, svc.OnEnvelope(context.Background(), env))
	require.NoError(t, svc.OnEnvelope(context.Background(), env))

	state, err := svc.ViewState(context.Background(), "dev-1")
	require.NoError(t, err)
	require.NotNil(t, state.LastAck)
	assert.Equal(t, "cmd-1", state.LastAck.CommandID)
}

func TestRecordCommandSuppressesDecision(t *testing.T) {
	dispatcher := new(mocks.Dispatcher)

	policies := ingest.StaticPolicies{
		Default: &decision.Policy{
			Kind: decision.ThresholdStrategy,
			Bounds: []decision.Bound{
				{Metric: "temperature", Upper: f(30), ActionIfAbove: "cool_on"},
			},
			Hysteresis: 0.5,
			Cooldown:   time.Minute,
		},
	}
	svc := newService(nil, dispatcher, policies)

	// An operator sends the same command the policy would decide.
	cmd := messaging.Command{
		CommandID: "cmd-op-1",
		DeviceID:  "dev-1",
		Action:    "cool_on",
		IssuedAt:  time.Now().UTC(),
	}
	require.NoError(t, svc.RecordCommand(context.Background(), cmd))

	state, err := svc.ViewState(context.Background(), "dev-1")
	require.NoError(t, err)
	require.NotNil(t, state.LastCommand)
	assert.Equal(t, "cmd-op-1", state.LastCommand.CommandID)

	// The breach right after falls inside the cool-down window, so the
	// engine must not repeat the operator's command.
	env := telemetry("dev-1", 1, messaging.Payload{"temperature": 35.0})
	require.NoError(t, svc.OnEnvelope(context.Background(), env))
	dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestRecordCommandMissingDevice(t *testing.T) {
	svc := newService(nil, nil, nil)

	err := svc.RecordCommand(context.Background(), messaging.Command{Action: "cool_on"})
	assert.True(t, errors.Contains(err, errors.ErrMalformedEnvelope))
}
