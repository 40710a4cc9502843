// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package apiutil

import "github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"

// Errors defined in this file are used by the LoggingErrorEncoder decorator
// to distinguish and log client-side request errors.
var (
	// ErrValidation indicates that an error was returned by the API.
	ErrValidation = errors.New("something went wrong with the request")

	// ErrMissingID indicates missing entity ID.
	ErrMissingID = errors.New("missing entity id")

	// ErrInvalidQueryParams indicates invalid query parameters.
	ErrInvalidQueryParams = errors.New("invalid query parameters")

	// ErrLimitSize indicates an invalid limit.
	ErrLimitSize = errors.New("invalid limit size")

	// ErrUnsupportedContentType indicates an unacceptable or absent Content-Type.
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrEmptyList indicates that entity data is empty.
	ErrEmptyList = errors.New("empty list provided")
)
