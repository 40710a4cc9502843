// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"sort"
	"sync"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
)

type memoryRepository struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewMemoryRepository returns a process-local StateRepository. Suitable
// for single-instance deployments and tests; multi-instance relays use
// the Redis-backed repository instead.
func NewMemoryRepository() StateRepository {
	return &memoryRepository{states: make(map[string]State)}
}

func (repo *memoryRepository) Retrieve(_ context.Context, deviceID string) (State, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	state, ok := repo.states[deviceID]
	if !ok {
		return State{}, errors.ErrNotFound
	}
	return state, nil
}

func (repo *memoryRepository) Save(_ context.Context, state State) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.states[state.DeviceID] = state
	return nil
}

func (repo *memoryRepository) RetrieveAll(_ context.Context) ([]State, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	states := make([]State, 0, len(repo.states))
	for _, state := range repo.states {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].DeviceID < states[j].DeviceID
	})
	return states, nil
}
