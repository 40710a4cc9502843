// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package ticker abstracts periodic scheduling so sampling loops can be
// driven by a fake clock in tests.
package ticker

import "time"

// Ticker delivers periodic ticks.
type Ticker interface {
	Tick() <-chan time.Time
	Stop()
}

type timeTicker struct {
	*time.Ticker
}

// NewTicker returns a real-time ticker with the given period.
func NewTicker(d time.Duration) Ticker {
	return &timeTicker{time.NewTicker(d)}
}

func (t *timeTicker) Tick() <-chan time.Time {
	return t.C
}
