// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/internal/api"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/apiutil"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
)

type viewStateReq struct {
	deviceID string
}

func (req viewStateReq) validate() error {
	if req.deviceID == "" {
		return apiutil.ErrMissingID
	}
	return nil
}

type listStatesReq struct {
	offset uint64
	limit  uint64
}

func (req listStatesReq) validate() error {
	if req.limit > api.MaxLimitSize {
		return apiutil.ErrLimitSize
	}
	return nil
}

type sendCommandReq struct {
	deviceID string

	Action     string                 `json:"action"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	TTL        string                 `json:"ttl,omitempty"`
}

func (req sendCommandReq) validate() error {
	if req.deviceID == "" {
		return apiutil.ErrMissingID
	}
	if req.Action == "" {
		return errors.Wrap(errors.ErrMalformedEntity, messaging.ErrMissingAction)
	}
	if req.TTL != "" {
		if _, err := time.ParseDuration(req.TTL); err != nil {
			return errors.Wrap(errors.ErrMalformedEntity, err)
		}
	}
	return nil
}

type listCommandsReq struct{}

func (req listCommandsReq) validate() error {
	return nil
}
