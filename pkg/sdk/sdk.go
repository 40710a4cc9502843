// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package sdk is a thin HTTP client for the relay API, shared by the
// operator CLI and external tooling.
package sdk

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/dispatch"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
)

// CTJSON represents JSON content type.
const CTJSON = "application/json"

var (
	// ErrFailedFetch indicates that fetching of entity data failed.
	ErrFailedFetch = errors.New("failed to fetch entity")

	// ErrFailedDispatch indicates that sending a command failed.
	ErrFailedDispatch = errors.New("failed to dispatch command")
)

// StatesPage is one page of device states.
type StatesPage struct {
	Total  uint64         `json:"total"`
	Offset uint64         `json:"offset"`
	Limit  uint64         `json:"limit"`
	States []ingest.State `json:"states"`
}

// CommandsPage lists outstanding commands.
type CommandsPage struct {
	Total    uint64                 `json:"total"`
	Commands []dispatch.Outstanding `json:"commands"`
}

// CommandRequest describes a command to send to a device.
type CommandRequest struct {
	Action     string                 `json:"action"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	TTL        string                 `json:"ttl,omitempty"`
}

// SDK is the relay API client surface.
type SDK interface {
	// DeviceState returns the current state of a device.
	DeviceState(ctx context.Context, deviceID string) (ingest.State, error)

	// DeviceStates lists the state of known devices.
	DeviceStates(ctx context.Context, offset, limit uint64) (StatesPage, error)

	// SendCommand dispatches a command to a device and returns its id.
	SendCommand(ctx context.Context, deviceID string, req CommandRequest) (string, error)

	// OutstandingCommands lists commands still awaiting their ack.
	OutstandingCommands(ctx context.Context) (CommandsPage, error)

	// Health returns the relay health check.
	Health(ctx context.Context) (HealthInfo, error)
}

// HealthInfo mirrors the relay health endpoint body.
type HealthInfo struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Description string `json:"description"`
	InstanceID  string `json:"instance_id"`
}

// Config holds the SDK target and TLS behavior.
type Config struct {
	RelayURL        string
	TLSVerification bool
}

type relaySDK struct {
	relayURL string
	client   *http.Client
}

var _ SDK = (*relaySDK)(nil)

// NewSDK returns a relay API client.
func NewSDK(conf Config) SDK {
	return &relaySDK{
		relayURL: conf.RelayURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !conf.TLSVerification,
				},
			},
		},
	}
}

func (sdk *relaySDK) DeviceState(ctx context.Context, deviceID string) (ingest.State, error) {
	var state ingest.State
	url := fmt.Sprintf("%s/devices/%s", sdk.relayURL, deviceID)
	if err := sdk.get(ctx, url, &state); err != nil {
		return ingest.State{}, err
	}
	return state, nil
}

func (sdk *relaySDK) DeviceStates(ctx context.Context, offset, limit uint64) (StatesPage, error) {
	var page StatesPage
	url := fmt.Sprintf("%s/devices?offset=%d&limit=%d", sdk.relayURL, offset, limit)
	if err := sdk.get(ctx, url, &page); err != nil {
		return StatesPage{}, err
	}
	return page, nil
}

func (sdk *relaySDK) SendCommand(ctx context.Context, deviceID string, req CommandRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(ErrFailedDispatch, err)
	}

	url := fmt.Sprintf("%s/devices/%s/commands", sdk.relayURL, deviceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(ErrFailedDispatch, err)
	}
	httpReq.Header.Set("Content-Type", CTJSON)

	res, err := sdk.client.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(ErrFailedDispatch, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusAccepted {
		return "", errors.Wrap(ErrFailedDispatch, errors.New(res.Status))
	}

	var body struct {
		CommandID string `json:"command_id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", errors.Wrap(ErrFailedDispatch, err)
	}
	return body.CommandID, nil
}

func (sdk *relaySDK) OutstandingCommands(ctx context.Context) (CommandsPage, error) {
	var page CommandsPage
	if err := sdk.get(ctx, sdk.relayURL+"/commands", &page); err != nil {
		return CommandsPage{}, err
	}
	return page, nil
}

func (sdk *relaySDK) Health(ctx context.Context) (HealthInfo, error) {
	var info HealthInfo
	if err := sdk.get(ctx, sdk.relayURL+"/health", &info); err != nil {
		return HealthInfo{}, err
	}
	return info, nil
}

func (sdk *relaySDK) get(ctx context.Context, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(ErrFailedFetch, err)
	}

	res, err := sdk.client.Do(req)
	if err != nil {
		return errors.Wrap(ErrFailedFetch, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return errors.Wrap(ErrFailedFetch, errors.New(res.Status+": "+string(body)))
	}

	return json.NewDecoder(res.Body).Decode(v)
}
