// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package queue provides the offline buffers backing the edge transport:
// a bounded in-memory ring for lossy telemetry and a file-backed durable
// queue for envelopes that must survive process restarts.
package queue

import (
	"sync"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
)

// Entry is a single buffered publish.
type Entry struct {
	Topic    string
	Envelope messaging.Envelope
	QoS      messaging.QoS
}

// Ring is a bounded FIFO buffer that drops the oldest entry on overflow.
// Telemetry buffered while the transport is disconnected is lossy by
// design, so overflow is not an error.
type Ring struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	dropped  uint64
}

// NewRing returns a ring buffer holding at most capacity entries.
func NewRing(capacity int) *Ring {
	return &Ring{capacity: capacity}
}

// Push appends the entry, evicting the oldest one when full. It reports
// whether an entry was evicted.
func (r *Ring) Push(e Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := false
	if len(r.entries) == r.capacity {
		r.entries = r.entries[1:]
		r.dropped++
		evicted = true
	}
	r.entries = append(r.entries, e)
	return evicted
}

// Pop removes and returns the oldest entry.
func (r *Ring) Pop() (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) == 0 {
		return Entry{}, false
	}
	e := r.entries[0]
	r.entries = r.entries[1:]
	return e, true
}

// Len returns the number of buffered entries.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Dropped returns the number of entries evicted on overflow since creation.
func (r *Ring) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
