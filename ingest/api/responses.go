// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"

	relay "github.com/HuebitsTechLearn/Artificial-Internet-of-Things"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/dispatch"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest"
)

var (
	_ relay.Response = (*stateRes)(nil)
	_ relay.Response = (*statesPageRes)(nil)
	_ relay.Response = (*commandRes)(nil)
	_ relay.Response = (*commandsPageRes)(nil)
)

type stateRes struct {
	ingest.State
}

func (res stateRes) Code() int {
	return http.StatusOK
}

func (res stateRes) Headers() map[string]string {
	return map[string]string{}
}

func (res stateRes) Empty() bool {
	return false
}

type statesPageRes struct {
	Total  uint64         `json:"total"`
	Offset uint64         `json:"offset"`
	Limit  uint64         `json:"limit"`
	States []ingest.State `json:"states"`
}

func (res statesPageRes) Code() int {
	return http.StatusOK
}

func (res statesPageRes) Headers() map[string]string {
	return map[string]string{}
}

func (res statesPageRes) Empty() bool {
	return false
}

type commandRes struct {
	CommandID string `json:"command_id"`
}

func (res commandRes) Code() int {
	return http.StatusAccepted
}

func (res commandRes) Headers() map[string]string {
	return map[string]string{}
}

func (res commandRes) Empty() bool {
	return false
}

type commandsPageRes struct {
	Total    uint64                 `json:"total"`
	Commands []dispatch.Outstanding `json:"commands"`
}

func (res commandsPageRes) Code() int {
	return http.StatusOK
}

func (res commandsPageRes) Headers() map[string]string {
	return map[string]string{}
}

func (res commandsPageRes) Empty() bool {
	return false
}
