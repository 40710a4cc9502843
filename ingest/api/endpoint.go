// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"time"

	relay "github.com/HuebitsTechLearn/Artificial-Internet-of-Things"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/apiutil"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/go-kit/kit/endpoint"
)

func viewStateEndpoint(svc ingest.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(viewStateReq)
		if err := req.validate(); err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}

		state, err := svc.ViewState(ctx, req.deviceID)
		if err != nil {
			return nil, err
		}

		return stateRes{State: state}, nil
	}
}

func listStatesEndpoint(svc ingest.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(listStatesReq)
		if err := req.validate(); err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}

		states, err := svc.ListStates(ctx)
		if err != nil {
			return nil, err
		}

		total := uint64(len(states))
		if req.offset > total {
			states = nil
		} else {
			states = states[req.offset:]
		}
		if uint64(len(states)) > req.limit {
			states = states[:req.limit]
		}

		return statesPageRes{
			Total:  total,
			Offset: req.offset,
			Limit:  req.limit,
			States: states,
		}, nil
	}
}

func sendCommandEndpoint(svc ingest.Service, commander Commander, idp relay.IDProvider) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(sendCommandReq)
		if err := req.validate(); err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}

		id, err := idp.ID()
		if err != nil {
			return nil, err
		}

		now := time.Now()
		cmd := messaging.Command{
			CommandID:  id,
			DeviceID:   req.deviceID,
			Action:     req.Action,
			Parameters: req.Parameters,
			IssuedAt:   now,
		}
		if req.TTL != "" {
			ttl, err := time.ParseDuration(req.TTL)
			if err != nil {
				return nil, errors.Wrap(apiutil.ErrValidation, err)
			}
			cmd.ExpiresAt = now.Add(ttl)
		}

		if err := commander.Dispatch(ctx, cmd); err != nil {
			return nil, err
		}

		// Settle the command into the device state so the policy
		// cooldown sees operator commands too.
		if err := svc.RecordCommand(ctx, cmd); err != nil {
			return nil, err
		}

		return commandRes{CommandID: id}, nil
	}
}

func listCommandsEndpoint(commander Commander) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(listCommandsReq)
		if err := req.validate(); err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}

		outstanding, err := commander.Outstanding(ctx)
		if err != nil {
			return nil, err
		}

		return commandsPageRes{
			Total:    uint64(len(outstanding)),
			Commands: outstanding,
		}, nil
	}
}
