// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package queue_test

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(device string, seq uint64) queue.Entry {
	return queue.Entry{
		Topic: "aiot/" + device + "/telemetry",
		QoS:   messaging.AtLeastOnce,
		Envelope: messaging.Envelope{
			DeviceID:  device,
			Sequence:  seq,
			Kind:      messaging.TelemetryKind,
			Timestamp: time.Unix(1700000000, 0).UTC(),
			Payload:   messaging.Payload{"temp": 21.5},
		},
	}
}

func TestRingOverflowDropsOldest(t *testing.T) {
	r := queue.NewRing(3)

	for i := uint64(0); i < 3; i++ {
		evicted := r.Push(entry("d1", i))
		assert.False(t, evicted, fmt.Sprintf("push %d: unexpected eviction", i))
	}
	evicted := r.Push(entry("d1", 3))
	assert.True(t, evicted, "push beyond capacity: expected eviction")
	assert.Equal(t, uint64(1), r.Dropped())

	e, ok := r.Pop()
	require.True(t, ok)
	assert.Equal(t, uint64(1), e.Envelope.Sequence, "oldest surviving entry should be sequence 1")
}

func TestRingPreservesOrder(t *testing.T) {
	r := queue.NewRing(10)
	for i := uint64(0); i < 5; i++ {
		r.Push(entry("d1", i))
	}
	for i := uint64(0); i < 5; i++ {
		e, ok := r.Pop()
		require.True(t, ok)
		assert.Equal(t, i, e.Envelope.Sequence)
	}
	_, ok := r.Pop()
	assert.False(t, ok, "drained ring should be empty")
}

func TestDurableAppendDrain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spill.q")
	d, err := queue.NewDurable(path, 100)
	require.NoError(t, err)
	defer d.Close()

	for i := uint64(0); i < 4; i++ {
		require.NoError(t, d.Append(entry("d2", i)))
	}
	assert.Equal(t, 4, d.Len())

	var got []uint64
	err = d.Drain(func(e queue.Entry) error {
		got = append(got, e.Envelope.Sequence)
		assert.Equal(t, "d2", e.Envelope.DeviceID)
		assert.Equal(t, messaging.AtLeastOnce, e.QoS)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1, 2, 3}, got, "drain should replay in append order")
	assert.Equal(t, 0, d.Len())
}

func TestDurableDrainStopsOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spill.q")
	d, err := queue.NewDurable(path, 100)
	require.NoError(t, err)
	defer d.Close()

	for i := uint64(0); i < 3; i++ {
		require.NoError(t, d.Append(entry("d3", i)))
	}

	calls := 0
	err = d.Drain(func(e queue.Entry) error {
		calls++
		if e.Envelope.Sequence == 1 {
			return fmt.Errorf("broker away")
		}
		return nil
	})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, d.Len(), "failed and unvisited entries stay queued")
}

func TestDurableSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spill.q")
	d, err := queue.NewDurable(path, 100)
	require.NoError(t, err)
	require.NoError(t, d.Append(entry("d4", 7)))
	require.NoError(t, d.Close())

	d2, err := queue.NewDurable(path, 100)
	require.NoError(t, err)
	defer d2.Close()
	assert.Equal(t, 1, d2.Len())

	err = d2.Drain(func(e queue.Entry) error {
		assert.Equal(t, uint64(7), e.Envelope.Sequence)
		assert.Equal(t, 21.5, e.Envelope.Payload["temp"])
		return nil
	})
	require.NoError(t, err)
}

func TestDurableBound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spill.q")
	d, err := queue.NewDurable(path, 2)
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Append(entry("d5", 0)))
	require.NoError(t, d.Append(entry("d5", 1)))
	err = d.Append(entry("d5", 2))
	assert.ErrorIs(t, err, queue.ErrQueueFull)
}
