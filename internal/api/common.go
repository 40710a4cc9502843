// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"encoding/json"
	"net/http"

	relay "github.com/HuebitsTechLearn/Artificial-Internet-of-Things"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/apiutil"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
)

const (
	// ContentType represents JSON content type.
	ContentType = "application/json"

	// LimitKey is the query parameter bounding list sizes.
	LimitKey = "limit"

	// OffsetKey is the query parameter skipping list prefixes.
	OffsetKey = "offset"

	DefOffset = 0
	DefLimit  = 10

	// MaxLimitSize bounds the requested page size.
	MaxLimitSize = 100
)

// EncodeResponse encodes successful response.
func EncodeResponse(_ context.Context, w http.ResponseWriter, response interface{}) error {
	if ar, ok := response.(relay.Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

// EncodeError encodes an error response.
func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	if errors.Contains(err, apiutil.ErrValidation) {
		_, err = errors.Unwrap(err)
	}

	w.Header().Set("Content-Type", ContentType)
	switch {
	case errors.Contains(err, errors.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)

	case errors.Contains(err, errors.ErrMalformedEntity),
		errors.Contains(err, errors.ErrMalformedEnvelope),
		errors.Contains(err, apiutil.ErrMissingID),
		errors.Contains(err, apiutil.ErrInvalidQueryParams),
		errors.Contains(err, apiutil.ErrLimitSize):
		w.WriteHeader(http.StatusBadRequest)

	case errors.Contains(err, apiutil.ErrUnsupportedContentType):
		w.WriteHeader(http.StatusUnsupportedMediaType)

	case errors.Contains(err, errors.ErrQueueOverflow):
		w.WriteHeader(http.StatusServiceUnavailable)

	default:
		w.WriteHeader(http.StatusInternalServerError)
	}

	if errorVal, ok := err.(errors.Error); ok {
		if err := json.NewEncoder(w).Encode(errorVal); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
}
