// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
)

// ErrFailedInference indicates that the inference call failed.
var ErrFailedInference = errors.New("failed to run inference")

var _ Inferencer = (*httpInferencer)(nil)

type inferReq struct {
	ModelID  string                 `json:"model_id"`
	Features map[string]interface{} `json:"features"`
}

type inferRes struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type httpInferencer struct {
	url    string
	client *http.Client
}

// NewHTTPInferencer returns an Inferencer that scores telemetry against a
// model served over HTTP. The endpoint accepts a JSON document with the
// model id and the feature map and answers with a label and a score.
func NewHTTPInferencer(url string, timeout time.Duration) Inferencer {
	return &httpInferencer{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (inf *httpInferencer) Infer(ctx context.Context, modelID string, features map[string]interface{}) (Result, error) {
	data, err := json.Marshal(inferReq{ModelID: modelID, Features: features})
	if err != nil {
		return Result{}, errors.Wrap(ErrFailedInference, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, inf.url, bytes.NewReader(data))
	if err != nil {
		return Result{}, errors.Wrap(ErrFailedInference, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := inf.client.Do(req)
	if err != nil {
		return Result{}, errors.Wrap(ErrFailedInference, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return Result{}, errors.Wrap(ErrFailedInference, errors.New(fmt.Sprintf("%s: %s", res.Status, body)))
	}

	var ir inferRes
	if err := json.NewDecoder(res.Body).Decode(&ir); err != nil {
		return Result{}, errors.Wrap(ErrFailedInference, err)
	}

	return Result{Label: ir.Label, Score: ir.Score}, nil
}
