// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package influxdb persists accepted envelopes as InfluxDB points, one
// field per numeric payload value.
package influxdb

import (
	"context"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

const measurement = "envelopes"

var errSaveEnvelope = errors.New("failed to save envelope to influxdb database")

// RepoConfig addresses the target bucket.
type RepoConfig struct {
	Bucket string
	Org    string
}

var _ ingest.EnvelopeStore = (*influxRepo)(nil)

type influxRepo struct {
	client   influxdb2.Client
	cfg      RepoConfig
	writeAPI api.WriteAPIBlocking
}

// New returns a new InfluxDB envelope store.
func New(client influxdb2.Client, config RepoConfig) ingest.EnvelopeStore {
	return &influxRepo{
		client:   client,
		cfg:      config,
		writeAPI: client.WriteAPIBlocking(config.Org, config.Bucket),
	}
}

func (repo *influxRepo) Save(ctx context.Context, env messaging.Envelope) error {
	fields := map[string]interface{}{
		"sequence": int64(env.Sequence),
	}
	for name, value := range env.Payload {
		switch value.(type) {
		case float64, bool, string, int, int64, uint64:
			fields[name] = value
		}
	}

	pt := influxdb2.NewPoint(measurement, map[string]string{
		"device_id": env.DeviceID,
		"kind":      env.Kind.String(),
	}, fields, env.Timestamp)

	if err := repo.writeAPI.WritePoint(ctx, pt); err != nil {
		return errors.Wrap(errSaveEnvelope, err)
	}
	return nil
}
