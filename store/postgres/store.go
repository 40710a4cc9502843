// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package postgres persists accepted envelopes into PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

var (
	errInvalidEnvelope = errors.New("invalid envelope representation")
	errSaveEnvelope    = errors.New("failed to save envelope to postgres database")
)

var _ ingest.EnvelopeStore = (*postgresRepo)(nil)

type postgresRepo struct {
	db *sqlx.DB
}

// New returns a new PostgreSQL envelope store.
func New(db *sqlx.DB) ingest.EnvelopeStore {
	return &postgresRepo{db: db}
}

func (pr *postgresRepo) Save(ctx context.Context, env messaging.Envelope) error {
	q := `INSERT INTO envelopes (id, device_id, sequence, kind, time, payload)
          VALUES (:id, :device_id, :sequence, :kind, :time, :payload);`

	id, err := uuid.NewV4()
	if err != nil {
		return errors.Wrap(errSaveEnvelope, err)
	}

	payload, err := json.Marshal(env.Payload)
	if err != nil {
		return errors.Wrap(errInvalidEnvelope, err)
	}

	row := dbEnvelope{
		ID:       id.String(),
		DeviceID: env.DeviceID,
		Sequence: int64(env.Sequence),
		Kind:     env.Kind.String(),
		Time:     env.Timestamp,
		Payload:  payload,
	}
	if _, err := pr.db.NamedExecContext(ctx, q, row); err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok {
			if pgErr.Code == pgerrcode.InvalidTextRepresentation {
				return errors.Wrap(errSaveEnvelope, errInvalidEnvelope)
			}
		}
		return errors.Wrap(errSaveEnvelope, err)
	}
	return nil
}

type dbEnvelope struct {
	ID       string    `db:"id"`
	DeviceID string    `db:"device_id"`
	Sequence int64     `db:"sequence"`
	Kind     string    `db:"kind"`
	Time     time.Time `db:"time"`
	Payload  []byte    `db:"payload"`
}
