// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package decision

import "github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"

// decideThreshold evaluates the policy bounds against the telemetry and
// returns the winning breach, or nil when every metric is in band. Only
// numeric payload fields are considered.
func decideThreshold(in Input, p Policy) *candidate {
	var best *candidate
	bestPriority := 0
	for _, b := range p.Bounds {
		cand := evalBound(in, p, b)
		if cand == nil {
			continue
		}
		if best == nil || b.Priority < bestPriority {
			best = cand
			bestPriority = b.Priority
		}
	}
	return best
}

// evalBound checks a single bound. Reversing direction relative to the
// previous command requires the value to clear the bound by the
// hysteresis margin, which keeps a value oscillating inside the band
// from flip-flopping the actuator.
func evalBound(in Input, p Policy, b Bound) *candidate {
	v, ok := metricValue(in.Telemetry, b.Metric)
	if !ok {
		return nil
	}

	if b.Upper != nil && b.ActionIfAbove != "" {
		limit := *b.Upper
		if reversal(in, b.ActionIfAbove) {
			limit += p.Hysteresis
		}
		if v > limit {
			return &candidate{
				action:     b.ActionIfAbove,
				parameters: b.ParametersAbove,
				critical:   b.Critical,
			}
		}
	}
	if b.Lower != nil && b.ActionIfBelow != "" {
		limit := *b.Lower
		if reversal(in, b.ActionIfBelow) {
			limit -= p.Hysteresis
		}
		if v < limit {
			return &candidate{
				action:     b.ActionIfBelow,
				parameters: b.ParametersBelow,
				critical:   b.Critical,
			}
		}
	}
	return nil
}

// reversal reports whether emitting the action would reverse the most
// recent command sent to the device.
func reversal(in Input, action string) bool {
	return in.LastCommand != nil && in.LastCommand.Action != action
}

// metricValue fetches a numeric telemetry field. Decoded JSON numbers
// arrive as float64; integers placed directly by edge code are accepted
// as well.
func metricValue(p messaging.Payload, metric string) (float64, bool) {
	raw, ok := p[metric]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
