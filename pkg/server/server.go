// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package server provides the lifecycle shared by the relay's network
// servers: configuration, graceful stop and signal handling.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// StopWaitTime is the graceful shutdown deadline.
const StopWaitTime = 5 * time.Second

// Server defines the lifecycle every relay server fulfills.
type Server interface {
	Start() error
	Stop() error
}

// Config holds server address and TLS material.
type Config struct {
	Host     string `env:"HOST"        envDefault:"localhost"`
	Port     string `env:"PORT"        envDefault:""`
	CertFile string `env:"SERVER_CERT" envDefault:""`
	KeyFile  string `env:"SERVER_KEY"  envDefault:""`
}

// BaseServer carries the state common to all server implementations.
type BaseServer struct {
	Ctx      context.Context
	Cancel   context.CancelFunc
	Name     string
	Address  string
	Config   Config
	Logger   *slog.Logger
	Protocol string
}

// NewBaseServer populates the shared server state.
func NewBaseServer(ctx context.Context, cancel context.CancelFunc, name string, config Config, logger *slog.Logger) BaseServer {
	return BaseServer{
		Ctx:     ctx,
		Cancel:  cancel,
		Name:    name,
		Address: fmt.Sprintf("%s:%s", config.Host, config.Port),
		Config:  config,
		Logger:  logger,
	}
}

// StopSignalHandler stops all servers on SIGINT/SIGABRT or context
// cancellation, whichever comes first.
func StopSignalHandler(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger, svcName string, servers ...Server) error {
	c := make(chan os.Signal, 2)
	signal.Notify(c, syscall.SIGINT, syscall.SIGABRT)
	select {
	case sig := <-c:
		defer cancel()
		err := stopAllServer(servers...)
		if err != nil {
			logger.Error(fmt.Sprintf("%s service error during shutdown: %v", svcName, err))
		}
		logger.Info(fmt.Sprintf("%s service shutdown by signal: %s", svcName, sig))
		return err
	case <-ctx.Done():
		return nil
	}
}

func stopAllServer(servers ...Server) error {
	var err error
	for _, server := range servers {
		if err1 := server.Stop(); err1 != nil {
			if err == nil {
				err = fmt.Errorf("%w", err1)
			} else {
				err = fmt.Errorf("%v ; %w", err, err1)
			}
		}
	}
	return err
}
