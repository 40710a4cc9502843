// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ingest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/decision"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicies(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policies.json")
	require.Nil(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadPolicies(t *testing.T) {
	path := writePolicies(t, `{
		"default": {
			"kind": "threshold",
			"hysteresis": 0.5,
			"bounds": [{"metric": "temperature", "upper": 30, "action_if_above": "cool_on"}]
		},
		"devices": {
			"dev-1": {"kind": "script", "hysteresis": 1, "script": "return nil"}
		}
	}`)

	sp, err := ingest.LoadPolicies(path)
	require.Nil(t, err)

	require.NotNil(t, sp.Default)
	assert.Equal(t, decision.ThresholdStrategy, sp.Default.Kind)
	assert.Len(t, sp.Default.Bounds, 1)

	p, ok := sp.PolicyFor("dev-1")
	require.True(t, ok)
	assert.Equal(t, decision.ScriptStrategy, p.Kind)

	p, ok = sp.PolicyFor("dev-2")
	require.True(t, ok)
	assert.Equal(t, decision.ThresholdStrategy, p.Kind)
}

func TestLoadPoliciesInvalid(t *testing.T) {
	cases := []struct {
		desc    string
		content string
	}{
		{
			desc:    "malformed JSON",
			content: `{"default":`,
		},
		{
			desc:    "unknown strategy kind",
			content: `{"default": {"kind": "genetic", "hysteresis": 1}}`,
		},
		{
			desc:    "missing hysteresis",
			content: `{"devices": {"dev-1": {"kind": "threshold"}}}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := ingest.LoadPolicies(writePolicies(t, tc.content))
			assert.NotNil(t, err)
		})
	}
}

func TestLoadPoliciesMissingFile(t *testing.T) {
	_, err := ingest.LoadPolicies(filepath.Join(t.TempDir(), "nope.json"))
	assert.NotNil(t, err)
}
