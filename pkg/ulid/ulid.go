// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package ulid provides a ULID identity provider. ULIDs sort
// lexicographically by creation time, which keeps store keys and queue
// record ids naturally ordered.
package ulid

import (
	"sync"
	"time"

	relay "github.com/HuebitsTechLearn/Artificial-Internet-of-Things"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/oklog/ulid/v2"

	mathrand "math/rand"
)

// ErrGeneratingID indicates error in generating ULID.
var ErrGeneratingID = errors.New("generating id failed")

var _ relay.IDProvider = (*ulidProvider)(nil)

type ulidProvider struct {
	mu      sync.Mutex
	entropy *mathrand.Rand
}

// New instantiates a ULID provider.
func New() relay.IDProvider {
	seed := time.Now().UnixNano()
	source := mathrand.NewSource(seed)
	return &ulidProvider{
		entropy: mathrand.New(source),
	}
}

func (up *ulidProvider) ID() (string, error) {
	up.mu.Lock()
	defer up.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now()), up.entropy)
	if err != nil {
		return "", errors.Wrap(ErrGeneratingID, err)
	}

	return id.String(), nil
}
