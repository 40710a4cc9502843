// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package redis holds a Redis-backed device state repository, used when
// several relay instances share ingestion for the same fleet.
package redis

import (
	"context"
	"encoding/json"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/go-redis/redis/v8"
)

const keyPrefix = "relay:state:"

var _ ingest.StateRepository = (*repository)(nil)

type repository struct {
	client *redis.Client
}

// NewRepository instantiates a Redis device state repository.
func NewRepository(client *redis.Client) ingest.StateRepository {
	return &repository{client: client}
}

func (repo *repository) Retrieve(ctx context.Context, deviceID string) (ingest.State, error) {
	data, err := repo.client.Get(ctx, keyPrefix+deviceID).Bytes()
	if err == redis.Nil {
		return ingest.State{}, errors.ErrNotFound
	}
	if err != nil {
		return ingest.State{}, errors.Wrap(errors.ErrViewEntity, err)
	}

	var state ingest.State
	if err := json.Unmarshal(data, &state); err != nil {
		return ingest.State{}, errors.Wrap(errors.ErrMalformedEntity, err)
	}
	return state, nil
}

func (repo *repository) Save(ctx context.Context, state ingest.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(errors.ErrMalformedEntity, err)
	}
	if err := repo.client.Set(ctx, keyPrefix+state.DeviceID, data, 0).Err(); err != nil {
		return errors.Wrap(errors.ErrCreateEntity, err)
	}
	return nil
}

func (repo *repository) RetrieveAll(ctx context.Context) ([]ingest.State, error) {
	var states []ingest.State
	iter := repo.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := repo.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrViewEntity, err)
		}
		var state ingest.State
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, errors.Wrap(errors.ErrMalformedEntity, err)
		}
		states = append(states, state)
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrViewEntity, err)
	}
	return states, nil
}
