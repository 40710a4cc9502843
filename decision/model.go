// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package decision

import (
	"context"
	"log/slog"
	"slices"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
)

// decideModel consults the inference collaborator under a bounded
// deadline. When the model is unavailable, errors out or times out, the
// engine degrades to the policy thresholds rather than stalling the
// ingest path.
func (e *Engine) decideModel(ctx context.Context, in Input, p Policy) *candidate {
	if e.inferencer == nil {
		e.logger.Warn("model strategy without inferencer, degrading to thresholds",
			slog.String("device_id", in.DeviceID),
		)
		return decideThreshold(in, p)
	}

	ctx, cancel := context.WithTimeout(ctx, p.inferTimeout())
	defer cancel()

	res, err := e.inferencer.Infer(ctx, p.ModelID, in.Telemetry)
	if err != nil {
		if ctx.Err() != nil {
			err = errors.Wrap(errors.ErrInferenceTimeout, err)
		}
		e.logger.Warn("inference failed, degrading to thresholds",
			slog.String("device_id", in.DeviceID),
			slog.String("model_id", p.ModelID),
			slog.Any("error", err),
		)
		return decideThreshold(in, p)
	}

	action, ok := p.Lookup[res.Label]
	if !ok || action == "" {
		return nil
	}
	return &candidate{
		action:     action,
		parameters: map[string]interface{}{"label": res.Label},
		critical:   slices.Contains(p.CriticalActions, action),
	}
}
