// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"log/slog"
	"sync"

	relay "github.com/HuebitsTechLearn/Artificial-Internet-of-Things"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/decision"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
)

type device struct {
	mu     sync.Mutex
	window *window
}

type service struct {
	states     StateRepository
	stores     []EnvelopeStore
	dispatcher Dispatcher
	engine     *decision.Engine
	policies   PolicyProvider
	codec      *messaging.Codec
	idProvider relay.IDProvider
	logger     *slog.Logger

	windowSize int
	mu         sync.Mutex
	devices    map[string]*device
}

// New instantiates the ingest service. The stores slice may be empty;
// the dispatcher and policies may be nil to run ingestion without
// decisioning.
func New(states StateRepository, stores []EnvelopeStore, dispatcher Dispatcher, engine *decision.Engine, policies PolicyProvider, codec *messaging.Codec, idp relay.IDProvider, windowSize int, logger *slog.Logger) Service {
	return &service{
		states:     states,
		stores:     stores,
		dispatcher: dispatcher,
		engine:     engine,
		policies:   policies,
		codec:      codec,
		idProvider: idp,
		logger:     logger,
		windowSize: windowSize,
		devices:    make(map[string]*device),
	}
}

func (svc *service) OnEnvelope(ctx context.Context, env messaging.Envelope) error {
	if env.Kind == messaging.CommandKind {
		return errors.Wrap(errors.ErrUnsupportedKind, errors.New("commands do not flow upstream"))
	}
	if env.DeviceID == "" {
		return errors.Wrap(errors.ErrMalformedEnvelope, errors.New("missing device id"))
	}

	dev := svc.device(env.DeviceID)
	dev.mu.Lock()
	defer dev.mu.Unlock()

	id, err := svc.identity(env)
	if err != nil {
		return errors.Wrap(errors.ErrMalformedEnvelope, err)
	}
	if dev.window.contains(id) {
		return errors.ErrDuplicateEnvelope
	}

	svc.archive(ctx, env)

	state, err := svc.states.Retrieve(ctx, env.DeviceID)
	if err != nil && !errors.Contains(err, errors.ErrNotFound) {
		return errors.Wrap(errors.ErrViewEntity, err)
	}
	state.DeviceID = env.DeviceID
	if env.Sequence > state.LastSequence {
		state.LastSequence = env.Sequence
	}
	if env.Timestamp.After(state.LastSeen) {
		state.LastSeen = env.Timestamp
	}

	if ack, ok := messaging.UnwrapAck(env); ok {
		state.LastAck = &ack
		if svc.dispatcher != nil {
			if err := svc.dispatcher.Acknowledge(ctx, ack); err != nil {
				svc.logger.Warn("failed to settle command ack",
					slog.String("device_id", env.DeviceID),
					slog.String("command_id", ack.CommandID),
					slog.Any("error", err),
				)
			}
		}
		if err := svc.saveState(ctx, state); err != nil {
			return err
		}
		dev.window.remember(id)
		return nil
	}

	if env.Kind == messaging.TelemetryKind {
		state.Telemetry = env.Payload
	}
	if err := svc.saveState(ctx, state); err != nil {
		return err
	}
	// The identity is committed only now: a transient failure above
	// leaves the envelope eligible for broker redelivery.
	dev.window.remember(id)
	if env.Kind != messaging.TelemetryKind {
		return nil
	}

	return svc.decide(ctx, &state)
}

// decide runs the policy over the fresh state and dispatches the
// resulting command, if any. The device lock is held by the caller, so
// decisioning for one device is serialized.
func (svc *service) decide(ctx context.Context, state *State) error {
	if svc.engine == nil || svc.dispatcher == nil || svc.policies == nil {
		return nil
	}
	policy, ok := svc.policies.PolicyFor(state.DeviceID)
	if !ok {
		return nil
	}

	in := decision.Input{
		DeviceID:      state.DeviceID,
		Telemetry:     state.Telemetry,
		LastCommand:   state.LastCommand,
		LastCommandAt: state.LastCommandAt,
	}
	cmd, ok := svc.engine.Decide(ctx, in, policy)
	if !ok {
		return nil
	}

	id, err := svc.idProvider.ID()
	if err != nil {
		return err
	}
	cmd.CommandID = id

	if err := svc.dispatcher.Dispatch(ctx, cmd); err != nil {
		return errors.Wrap(errors.ErrCreateEntity, err)
	}

	state.LastCommand = &cmd
	state.LastCommandAt = cmd.IssuedAt
	return svc.saveState(ctx, *state)
}

// RecordCommand settles a command issued outside the decision loop so
// the next telemetry evaluation sees it for cooldown and hysteresis.
func (svc *service) RecordCommand(ctx context.Context, cmd messaging.Command) error {
	if cmd.DeviceID == "" {
		return errors.Wrap(errors.ErrMalformedEnvelope, errors.New("missing device id"))
	}

	dev := svc.device(cmd.DeviceID)
	dev.mu.Lock()
	defer dev.mu.Unlock()

	state, err := svc.states.Retrieve(ctx, cmd.DeviceID)
	if err != nil && !errors.Contains(err, errors.ErrNotFound) {
		return errors.Wrap(errors.ErrViewEntity, err)
	}
	state.DeviceID = cmd.DeviceID
	state.LastCommand = &cmd
	state.LastCommandAt = cmd.IssuedAt
	return svc.saveState(ctx, state)
}

func (svc *service) ViewState(ctx context.Context, deviceID string) (State, error) {
	state, err := svc.states.Retrieve(ctx, deviceID)
	if err != nil {
		return State{}, errors.Wrap(errors.ErrViewEntity, err)
	}
	return state, nil
}

func (svc *service) ListStates(ctx context.Context) ([]State, error) {
	states, err := svc.states.RetrieveAll(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrViewEntity, err)
	}
	return states, nil
}

func (svc *service) device(deviceID string) *device {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	dev, ok := svc.devices[deviceID]
	if !ok {
		dev = &device{window: newWindow(svc.windowSize)}
		svc.devices[deviceID] = dev
	}
	return dev
}

// archive fans the envelope out to the configured stores. Store errors
// are logged and swallowed so that a degraded store never stalls the
// ingest path.
func (svc *service) archive(ctx context.Context, env messaging.Envelope) {
	for _, store := range svc.stores {
		if err := store.Save(ctx, env); err != nil {
			svc.logger.Warn("failed to archive envelope",
				slog.String("device_id", env.DeviceID),
				slog.Uint64("sequence", env.Sequence),
				slog.Any("error", err),
			)
		}
	}
}

func (svc *service) saveState(ctx context.Context, state State) error {
	if err := svc.states.Save(ctx, state); err != nil {
		return errors.Wrap(errors.ErrCreateEntity, err)
	}
	return nil
}
