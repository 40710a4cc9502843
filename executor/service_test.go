// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package executor_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/executor"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/executor/mocks"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func commandEnvelope(id string, expiresAt time.Time) messaging.Envelope {
	cmd := messaging.Command{
		CommandID:  id,
		DeviceID:   "dev-1",
		Action:     "cool_on",
		Parameters: map[string]interface{}{"set_point": 24.0},
		IssuedAt:   time.Now(),
		ExpiresAt:  expiresAt,
	}
	return cmd.Wrap(1)
}

func TestOnCommandApplies(t *testing.T) {
	actuator := new(mocks.Actuator)
	actuator.On("Apply", mock.Anything, "cool_on", mock.Anything).Return(nil)

	sink := new(mocks.AckSink)
	sink.On("SendAck", mock.Anything, mock.MatchedBy(func(ack messaging.Ack) bool {
		return ack.CommandID == "cmd-1" && ack.ResultStatus == messaging.ResultApplied
	})).Return(nil)

	svc := executor.New(actuator, sink, discard)

	env := commandEnvelope("cmd-1", time.Now().Add(time.Minute))
	require.NoError(t, svc.OnCommand(context.Background(), env))
	actuator.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestOnCommandRejectsExpired(t *testing.T) {
	actuator := new(mocks.Actuator)

	sink := new(mocks.AckSink)
	sink.On("SendAck", mock.Anything, mock.MatchedBy(func(ack messaging.Ack) bool {
		return ack.ResultStatus == messaging.ResultRejected
	})).Return(nil)

	svc := executor.New(actuator, sink, discard)

	env := commandEnvelope("cmd-1", time.Now().Add(-time.Minute))
	require.NoError(t, svc.OnCommand(context.Background(), env))

	// The actuator was never touched.
	actuator.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything)
	sink.AssertExpectations(t)
}

func TestOnCommandActuatorFailure(t *testing.T) {
	actuator := new(mocks.Actuator)
	actuator.On("Apply", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bus stuck"))

	sink := new(mocks.AckSink)
	sink.On("SendAck", mock.Anything, mock.MatchedBy(func(ack messaging.Ack) bool {
		return ack.ResultStatus == messaging.ResultFailed
	})).Return(nil)

	svc := executor.New(actuator, sink, discard)

	env := commandEnvelope("cmd-1", time.Now().Add(time.Minute))
	require.NoError(t, svc.OnCommand(context.Background(), env))
	sink.AssertExpectations(t)
}

func TestOnCommandIdempotentRedelivery(t *testing.T) {
	actuator := new(mocks.Actuator)
	actuator.On("Apply", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	sink := new(mocks.AckSink)
	sink.On("SendAck", mock.Anything, mock.Anything).Return(nil)

	svc := executor.New(actuator, sink, discard)

	env := commandEnvelope("cmd-1", time.Now().Add(time.Minute))
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.OnCommand(context.Background(), env))
	}

	// One actuator write, three acks.
	actuator.AssertNumberOfCalls(t, "Apply", 1)
	sink.AssertNumberOfCalls(t, "SendAck", 3)
}

func TestOnCommandMalformedEnvelope(t *testing.T) {
	svc := executor.New(new(mocks.Actuator), new(mocks.AckSink), discard)

	env := messaging.Envelope{
		DeviceID: "dev-1",
		Sequence: 1,
		Kind:     messaging.TelemetryKind,
		Payload:  messaging.Payload{"temperature": 21.0},
	}
	err := svc.OnCommand(context.Background(), env)
	assert.True(t, errors.Contains(err, errors.ErrMalformedEnvelope))
}
