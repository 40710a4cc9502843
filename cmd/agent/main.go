// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package main contains agent main function to start the edge-side
// device agent.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/agent"
	relaylog "github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/logger"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging/mqtt"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/ticker"
	"github.com/caarlos0/env/v11"
)

const (
	svcName       = "agent"
	envPrefix     = "AIOT_AGENT_"
	envPrefixMQTT = "AIOT_AGENT_MQTT_"
)

type config struct {
	LogLevel string `env:"AIOT_AGENT_LOG_LEVEL" envDefault:"info"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load %s configuration : %s", svcName, err)
	}

	logger, err := relaylog.New(os.Stdout, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %s", err)
	}

	var exitCode int
	defer relaylog.ExitWithError(&exitCode)

	agentCfg := agent.Config{}
	if err := env.ParseWithOptions(&agentCfg, env.Options{Prefix: envPrefix}); err != nil {
		logger.Error(fmt.Sprintf("failed to load agent configuration : %s", err))
		exitCode = 1
		return
	}

	mqttCfg := mqtt.Config{}
	if err := env.ParseWithOptions(&mqttCfg, env.Options{Prefix: envPrefixMQTT}); err != nil {
		logger.Error(fmt.Sprintf("failed to load MQTT configuration : %s", err))
		exitCode = 1
		return
	}
	if mqttCfg.ClientID == "" {
		mqttCfg.ClientID = svcName + "-" + agentCfg.DeviceID
	}

	pubsub, err := mqtt.NewPubSub(ctx, mqttCfg, messaging.NewCodec(), logger)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to connect to MQTT broker: %s", err))
		exitCode = 1
		return
	}
	defer pubsub.Close()

	a, err := agent.New(agentCfg, pubsub, &logActuator{logger: logger}, logger)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to create agent: %s", err))
		exitCode = 1
		return
	}

	logger.Info("agent started", slog.String("device_id", agentCfg.DeviceID))

	sampler := &simSampler{temperature: 22, humidity: 45}
	if err := a.Start(ctx, sampler, ticker.NewTicker(agentCfg.SampleInterval)); err != nil && ctx.Err() == nil {
		logger.Error(fmt.Sprintf("%s terminated: %s", svcName, err))
		exitCode = 1
	}
}

// simSampler produces a slow random walk around ambient conditions. It
// stands in for device sensors on deployments without real hardware.
type simSampler struct {
	temperature float64
	humidity    float64
}

func (s *simSampler) Sample(_ context.Context) (messaging.Payload, error) {
	s.temperature += rand.Float64() - 0.5
	s.humidity += (rand.Float64() - 0.5) * 2
	return messaging.Payload{
		"temperature": s.temperature,
		"humidity":    s.humidity,
	}, nil
}

// logActuator records applied commands instead of driving hardware.
type logActuator struct {
	logger *slog.Logger
}

func (a *logActuator) Apply(ctx context.Context, action string, parameters map[string]interface{}) error {
	a.logger.InfoContext(ctx, "actuator state set",
		slog.String("action", action),
		slog.Any("parameters", parameters),
	)
	return nil
}
