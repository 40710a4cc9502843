// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/server"
)

const (
	httpProtocol  = "http"
	httpsProtocol = "https"
)

type httpServer struct {
	server.BaseServer
	server *http.Server
}

var _ server.Server = (*httpServer)(nil)

// NewServer returns an HTTP server wired into the shared lifecycle.
func NewServer(ctx context.Context, cancel context.CancelFunc, name string, config server.Config, handler http.Handler, logger *slog.Logger) server.Server {
	base := server.NewBaseServer(ctx, cancel, name, config, logger)

	return &httpServer{
		BaseServer: base,
		server:     &http.Server{Addr: base.Address, Handler: handler},
	}
}

func (s *httpServer) Start() error {
	errCh := make(chan error)
	s.Protocol = httpProtocol
	if s.Config.CertFile != "" || s.Config.KeyFile != "" {
		s.Protocol = httpsProtocol
	}

	s.Logger.Info("server listening",
		slog.String("service", s.Name),
		slog.String("protocol", s.Protocol),
		slog.String("address", s.Address),
	)
	go func() {
		if s.Protocol == httpsProtocol {
			errCh <- s.server.ListenAndServeTLS(s.Config.CertFile, s.Config.KeyFile)
			return
		}
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-s.Ctx.Done():
		return s.Stop()
	case err := <-errCh:
		return err
	}
}

func (s *httpServer) Stop() error {
	defer s.Cancel()
	ctx, cancel := context.WithTimeout(context.Background(), server.StopWaitTime)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.Logger.Error("server shutdown failed",
			slog.String("service", s.Name),
			slog.String("address", s.Address),
			slog.Any("error", err),
		)
		return err
	}
	s.Logger.Info("server stopped",
		slog.String("service", s.Name),
		slog.String("address", s.Address),
	)
	return nil
}
