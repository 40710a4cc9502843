// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package decision maps telemetry and policy to optional device
// commands. Strategies are interchangeable: rule thresholds, an external
// inference model with threshold fallback, or a Lua script. All of them
// share cool-down suppression so noisy telemetry near a bound cannot
// flap an actuator.
package decision

import (
	"context"
	"encoding/json"
	"log/slog"
	"reflect"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/alerting"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
)

// StrategyKind selects the decision strategy a policy uses.
type StrategyKind uint8

const (
	// ThresholdStrategy evaluates metric bounds in policy-declared order.
	ThresholdStrategy StrategyKind = iota

	// ModelStrategy delegates to the inference collaborator and maps its
	// result to an action through the policy lookup table.
	ModelStrategy

	// ScriptStrategy runs a policy-carried Lua script over the telemetry.
	ScriptStrategy
)

var (
	strategyToString = [...]string{"threshold", "model", "script"}
	stringToStrategy = map[string]StrategyKind{
		"threshold": ThresholdStrategy,
		"model":     ModelStrategy,
		"script":    ScriptStrategy,
	}
)

func (k StrategyKind) String() string {
	if int(k) >= len(strategyToString) {
		return "unknown"
	}
	return strategyToString[k]
}

// MarshalJSON encodes the strategy kind as its textual name.
func (k StrategyKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a textual strategy kind. An empty value keeps
// the threshold default.
func (k *StrategyKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*k = ThresholdStrategy
		return nil
	}
	kind, ok := stringToStrategy[s]
	if !ok {
		return errors.Wrap(errUnknownStrategy, errors.New(s))
	}
	*k = kind
	return nil
}

const (
	defCooldown     = 30 * time.Second
	defInferTimeout = 2 * time.Second
)

// ErrMissingHysteresis indicates a policy without the mandatory
// hysteresis band.
var ErrMissingHysteresis = errors.New("policy hysteresis band is required")

var errUnknownStrategy = errors.New("unknown strategy kind")

// Bound configures one metric rule of a threshold policy. A nil side is
// unbounded. Priority resolves simultaneous breaches: lower value wins,
// with policy-declared order as the final tie-break, so evaluation is
// deterministic regardless of discovery order.
type Bound struct {
	Metric          string                 `json:"metric"`
	Lower           *float64               `json:"lower,omitempty"`
	Upper           *float64               `json:"upper,omitempty"`
	ActionIfBelow   string                 `json:"action_if_below,omitempty"`
	ActionIfAbove   string                 `json:"action_if_above,omitempty"`
	ParametersBelow map[string]interface{} `json:"parameters_below,omitempty"`
	ParametersAbove map[string]interface{} `json:"parameters_above,omitempty"`
	Priority        int                    `json:"priority"`
	Critical        bool                   `json:"critical"`
}

// Policy configures decisioning for a device domain.
type Policy struct {
	Kind StrategyKind `json:"kind"`

	// Threshold strategy, also the fallback of the model strategy.
	Bounds []Bound `json:"bounds,omitempty"`

	// Hysteresis is the margin a value must clear beyond a bound before
	// the opposite action of the previous command can trigger. Required.
	Hysteresis float64 `json:"hysteresis"`

	// Cooldown suppresses repeating the same command to the same device.
	Cooldown time.Duration `json:"cooldown"`

	// Model strategy.
	ModelID      string            `json:"model_id,omitempty"`
	Lookup       map[string]string `json:"lookup,omitempty"`
	InferTimeout time.Duration     `json:"infer_timeout,omitempty"`

	// Script strategy.
	Script string `json:"script,omitempty"`

	// CriticalActions are surfaced to the alerting collaborator when
	// emitted by the model or script strategies.
	CriticalActions []string `json:"critical_actions,omitempty"`

	// CommandTTL bounds how long an emitted command stays applicable.
	CommandTTL time.Duration `json:"command_ttl,omitempty"`
}

// Validate checks the mandatory policy fields.
func (p Policy) Validate() error {
	if p.Hysteresis <= 0 {
		return ErrMissingHysteresis
	}
	return nil
}

func (p Policy) cooldown() time.Duration {
	if p.Cooldown == 0 {
		return defCooldown
	}
	return p.Cooldown
}

func (p Policy) inferTimeout() time.Duration {
	if p.InferTimeout == 0 {
		return defInferTimeout
	}
	return p.InferTimeout
}

// Input is the decision engine's view of a device: the freshest
// telemetry and the command history needed for flap suppression.
type Input struct {
	DeviceID      string
	Telemetry     messaging.Payload
	LastCommand   *messaging.Command
	LastCommandAt time.Time
}

// Result is the inference collaborator's answer.
type Result struct {
	Label string
	Score float64
}

// Inferencer is the external model collaborator. Calls must respect the
// context deadline; the engine never waits on it unboundedly.
type Inferencer interface {
	Infer(ctx context.Context, modelID string, features map[string]interface{}) (Result, error)
}

// candidate is an action picked by a strategy before suppression.
type candidate struct {
	action     string
	parameters map[string]interface{}
	critical   bool
}

// Engine evaluates policies. It is safe for concurrent use: all mutable
// state lives in the caller-owned Input.
type Engine struct {
	inferencer Inferencer
	notifier   alerting.Notifier
	logger     *slog.Logger
	now        func() time.Time
}

// New instantiates the decision engine. The inferencer may be nil when
// no model strategy is configured; the notifier may be nil to disable
// critical breach alerts.
func New(inferencer Inferencer, notifier alerting.Notifier, logger *slog.Logger) *Engine {
	return &Engine{
		inferencer: inferencer,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
}

// Decide maps the device input and policy to at most one command. The
// returned bool reports whether a command was emitted.
func (e *Engine) Decide(ctx context.Context, in Input, p Policy) (messaging.Command, bool) {
	if err := p.Validate(); err != nil {
		e.logger.Error("invalid policy", slog.Any("error", err))
		return messaging.Command{}, false
	}

	var cand *candidate
	switch p.Kind {
	case ModelStrategy:
		cand = e.decideModel(ctx, in, p)
	case ScriptStrategy:
		cand = e.decideScript(in, p)
	default:
		cand = decideThreshold(in, p)
	}
	if cand == nil {
		return messaging.Command{}, false
	}

	now := e.now()
	if suppressed(in, p, *cand, now) {
		e.logger.Debug("command suppressed by cool-down",
			slog.String("device_id", in.DeviceID),
			slog.String("action", cand.action),
		)
		return messaging.Command{}, false
	}

	if cand.critical && e.notifier != nil {
		if err := e.notifier.Notify(ctx, alerting.Critical, "critical breach on device "+in.DeviceID+": "+cand.action); err != nil {
			e.logger.Warn("failed to notify critical breach", slog.Any("error", err))
		}
	}

	cmd := messaging.Command{
		DeviceID:   in.DeviceID,
		Action:     cand.action,
		Parameters: cand.parameters,
		IssuedAt:   now,
	}
	if p.CommandTTL > 0 {
		cmd.ExpiresAt = now.Add(p.CommandTTL)
	}
	return cmd, true
}

// suppressed reports whether the candidate repeats the most recent
// command to the device while its cool-down window is still open.
func suppressed(in Input, p Policy, cand candidate, now time.Time) bool {
	last := in.LastCommand
	if last == nil || last.Action != cand.action {
		return false
	}
	if !reflect.DeepEqual(last.Parameters, cand.parameters) {
		return false
	}
	return now.Sub(in.LastCommandAt) < p.cooldown()
}
