// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package logger provides a structured logger shared by all relay services.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
)

// ErrInvalidLogLevel indicates an unrecognized log level name.
var ErrInvalidLogLevel = errors.New("invalid log level")

// RunInfo carries the outcome of a single processing run so that the
// caller can emit it at the level the run deserves.
type RunInfo struct {
	Level   slog.Level
	Message string
	Details []slog.Attr
}

// New returns a JSON slog logger writing to w at the given level.
func New(w io.Writer, levelText string) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(levelText))); err != nil {
		return nil, errors.Wrap(ErrInvalidLogLevel, err)
	}

	logHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})

	return slog.New(logHandler), nil
}

// Handle emits the run info on the provided logger.
func Handle(logger *slog.Logger, ri RunInfo) {
	args := make([]any, 0, len(ri.Details))
	for _, d := range ri.Details {
		args = append(args, d)
	}
	logger.Log(context.Background(), ri.Level, ri.Message, args...)
}

// ExitWithError terminates the process with the given code once deferred
// cleanups have run. Intended usage:
//
//	var exitCode int
//	defer logger.ExitWithError(&exitCode)
func ExitWithError(exitCode *int) {
	os.Exit(*exitCode)
}
