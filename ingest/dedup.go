// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"sync"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
)

const defWindowSize = 256

// window remembers recently seen envelope identities for one device.
// Identity is the (sequence, kind) pair, or the content hash for
// devices that publish without sequence numbers. Oldest entries are
// evicted once the window is full, so replays older than the window
// are not caught. Rebuilt empty on restart.
type window struct {
	mu    sync.Mutex
	order []uint64
	seen  map[uint64]struct{}
	size  int
}

func newWindow(size int) *window {
	if size <= 0 {
		size = defWindowSize
	}
	return &window{
		seen: make(map[uint64]struct{}, size),
		size: size,
	}
}

// contains reports whether the identity was already processed.
func (w *window) contains(id uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, ok := w.seen[id]
	return ok
}

// remember commits the identity. Called only once processing succeeded,
// so a transiently failed envelope stays eligible for redelivery.
func (w *window) remember(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.seen[id]; ok {
		return
	}
	if len(w.order) == w.size {
		oldest := w.order[0]
		w.order = w.order[1:]
		delete(w.seen, oldest)
	}
	w.order = append(w.order, id)
	w.seen[id] = struct{}{}
}

// identity derives the dedup id of an envelope. Sequenced envelopes use
// the (sequence, kind) pair; unsequenced ones fall back to the content
// hash of their canonical encoding.
func (svc *service) identity(env messaging.Envelope) (uint64, error) {
	if env.Sequence != 0 {
		return env.Sequence<<8 | uint64(env.Kind), nil
	}
	data, err := svc.codec.Encode(env)
	if err != nil {
		return 0, err
	}
	return messaging.Hash(data), nil
}
