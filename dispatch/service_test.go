// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package dispatch_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/alerting"
	alertmocks "github.com/HuebitsTechLearn/Artificial-Internet-of-Things/alerting/mocks"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/dispatch"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeTicker struct {
	ch chan time.Time
}

func (t *fakeTicker) Tick() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()                  {}

func command(id string) messaging.Command {
	return messaging.Command{
		CommandID:  id,
		DeviceID:   "dev-1",
		Action:     "cool_on",
		IssuedAt:   time.Now(),
		ExpiresAt:  time.Now().Add(time.Minute),
		Parameters: map[string]interface{}{"set_point": 24.0},
	}
}

func TestDispatchPublishesCommandEnvelope(t *testing.T) {
	pub := new(mocks.Publisher)
	pub.On("Publish", mock.Anything, "factory/dev-1/command", mock.MatchedBy(func(env messaging.Envelope) bool {
		return env.Kind == messaging.CommandKind && env.DeviceID == "dev-1" && env.Sequence == 1
	}), messaging.AtLeastOnce).Return(nil)

	svc := dispatch.New(pub, nil, "factory", discard)

	require.NoError(t, svc.Dispatch(context.Background(), command("cmd-1")))
	pub.AssertExpectations(t)

	out, err := svc.Outstanding(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, dispatch.Pending, out[0].Status)
}

func TestDispatchDuplicateCommand(t *testing.T) {
	pub := new(mocks.Publisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := dispatch.New(pub, nil, "factory", discard)

	require.NoError(t, svc.Dispatch(context.Background(), command("cmd-1")))
	err := svc.Dispatch(context.Background(), command("cmd-1"))
	assert.True(t, errors.Contains(err, errors.ErrDuplicateCommand))
}

func TestDispatchPublishFailureForgets(t *testing.T) {
	pub := new(mocks.Publisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := dispatch.New(pub, nil, "factory", discard)

	err := svc.Dispatch(context.Background(), command("cmd-1"))
	assert.True(t, errors.Contains(err, errors.ErrTransport))

	// A failed dispatch is not a duplicate.
	assert.NoError(t, svc.Dispatch(context.Background(), command("cmd-1")))
}

func TestAcknowledgeSettles(t *testing.T) {
	pub := new(mocks.Publisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := dispatch.New(pub, nil, "factory", discard)
	require.NoError(t, svc.Dispatch(context.Background(), command("cmd-1")))

	ack := messaging.Ack{CommandID: "cmd-1", AppliedAt: time.Now(), ResultStatus: messaging.ResultApplied}
	require.NoError(t, svc.Acknowledge(context.Background(), ack))

	out, err := svc.Outstanding(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out)

	// Settled ids stay rejected.
	err = svc.Dispatch(context.Background(), command("cmd-1"))
	assert.True(t, errors.Contains(err, errors.ErrDuplicateCommand))
}

func TestAcknowledgeUnknownIsIgnored(t *testing.T) {
	svc := dispatch.New(new(mocks.Publisher), nil, "factory", discard)

	ack := messaging.Ack{CommandID: "nope", AppliedAt: time.Now(), ResultStatus: messaging.ResultApplied}
	assert.NoError(t, svc.Acknowledge(context.Background(), ack))
}

func TestSweeperMarksExpiredLost(t *testing.T) {
	pub := new(mocks.Publisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	notifier := new(alertmocks.Notifier)
	notified := make(chan struct{})
	notifier.On("Notify", mock.Anything, alerting.Warning, mock.Anything).Run(func(mock.Arguments) {
		close(notified)
	}).Return(nil)

	svc := dispatch.New(pub, notifier, "factory", discard)

	cmd := command("cmd-1")
	cmd.ExpiresAt = time.Now().Add(-time.Second)
	require.NoError(t, svc.Dispatch(context.Background(), cmd))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tick := &fakeTicker{ch: make(chan time.Time, 1)}
	go svc.StartSweeper(ctx, tick)
	tick.ch <- time.Now()

	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("expected a lost command notification")
	}

	out, err := svc.Outstanding(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out)
	notifier.AssertExpectations(t)
}
