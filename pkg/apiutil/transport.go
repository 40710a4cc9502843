// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package apiutil

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	kithttp "github.com/go-kit/kit/transport/http"
)

// LoggingErrorEncoder is a go-kit error encoder logging decorator.
func LoggingErrorEncoder(logger *slog.Logger, enc kithttp.ErrorEncoder) kithttp.ErrorEncoder {
	return func(ctx context.Context, err error, w http.ResponseWriter) {
		if errors.Contains(err, ErrValidation) {
			logger.Error(err.Error())
		}
		enc(ctx, err, w)
	}
}

// ReadStringQuery reads the value of string http query parameters for a given key.
func ReadStringQuery(r *http.Request, key, def string) (string, error) {
	vals := r.URL.Query()[key]
	if len(vals) > 1 {
		return "", ErrInvalidQueryParams
	}
	if len(vals) == 0 {
		return def, nil
	}
	return vals[0], nil
}

// ReadNumQuery returns a numeric value of the http query parameter for a
// given key, or the default when the parameter is absent.
func ReadNumQuery(r *http.Request, key string, def uint64) (uint64, error) {
	vals := r.URL.Query()[key]
	if len(vals) > 1 {
		return 0, ErrInvalidQueryParams
	}
	if len(vals) == 0 {
		return def, nil
	}
	v, err := strconv.ParseUint(vals[0], 10, 64)
	if err != nil {
		return 0, ErrInvalidQueryParams
	}
	return v, nil
}
