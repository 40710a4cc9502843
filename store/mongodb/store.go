// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package mongodb persists accepted envelopes as MongoDB documents.
package mongodb

import (
	"context"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"go.mongodb.org/mongo-driver/mongo"
)

const envelopesCollection = "envelopes"

var errSaveEnvelope = errors.New("failed to save envelope to mongodb database")

var _ ingest.EnvelopeStore = (*mongoRepo)(nil)

type mongoRepo struct {
	db *mongo.Database
}

// New returns a new MongoDB envelope store.
func New(db *mongo.Database) ingest.EnvelopeStore {
	return &mongoRepo{db}
}

func (repo *mongoRepo) Save(ctx context.Context, env messaging.Envelope) error {
	coll := repo.db.Collection(envelopesCollection)

	doc := struct {
		DeviceID string            `bson:"device_id"`
		Sequence int64             `bson:"sequence"`
		Kind     string            `bson:"kind"`
		Time     int64             `bson:"time"`
		Payload  messaging.Payload `bson:"payload"`
	}{
		DeviceID: env.DeviceID,
		Sequence: int64(env.Sequence),
		Kind:     env.Kind.String(),
		Time:     env.Timestamp.UnixNano(),
		Payload:  env.Payload,
	}

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return errors.Wrap(errSaveEnvelope, err)
	}
	return nil
}
