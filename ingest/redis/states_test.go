// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest"
	ingestredis "github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest/redis"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) ingest.StateRepository {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return ingestredis.NewRepository(client)
}

func TestRetrieveUnknownDevice(t *testing.T) {
	repo := setup(t)

	_, err := repo.Retrieve(context.Background(), "unknown")
	assert.True(t, errors.Contains(err, errors.ErrNotFound))
}

func TestSaveRetrieve(t *testing.T) {
	repo := setup(t)

	state := ingest.State{
		DeviceID:     "dev-1",
		LastSequence: 42,
		LastSeen:     time.Unix(1700000000, 0).UTC(),
		Telemetry:    messaging.Payload{"temperature": 21.5},
	}
	require.NoError(t, repo.Save(context.Background(), state))

	got, err := repo.Retrieve(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestRetrieveAll(t *testing.T) {
	repo := setup(t)

	for _, id := range []string{"dev-1", "dev-2", "dev-3"} {
		require.NoError(t, repo.Save(context.Background(), ingest.State{DeviceID: id}))
	}

	states, err := repo.RetrieveAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, states, 3)
}
