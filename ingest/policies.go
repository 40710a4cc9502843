// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"encoding/json"
	"os"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/decision"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
)

var errLoadPolicies = errors.New("failed to load the policy file")

type policyFile struct {
	Default *decision.Policy           `json:"default,omitempty"`
	Devices map[string]decision.Policy `json:"devices,omitempty"`
}

// LoadPolicies reads a JSON policy file into a static provider. Every
// policy in the file is validated up front so a malformed file fails
// the service at startup instead of at decision time.
func LoadPolicies(path string) (StaticPolicies, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StaticPolicies{}, errors.Wrap(errLoadPolicies, err)
	}
	var pf policyFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return StaticPolicies{}, errors.Wrap(errLoadPolicies, err)
	}

	sp := StaticPolicies{PerDevice: make(map[string]decision.Policy, len(pf.Devices))}
	if pf.Default != nil {
		if err := pf.Default.Validate(); err != nil {
			return StaticPolicies{}, errors.Wrap(errLoadPolicies, err)
		}
		sp.Default = pf.Default
	}
	for id, p := range pf.Devices {
		if err := p.Validate(); err != nil {
			return StaticPolicies{}, errors.Wrap(errLoadPolicies, err)
		}
		sp.PerDevice[id] = p
	}
	return sp, nil
}
