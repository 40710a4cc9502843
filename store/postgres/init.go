// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package postgres

import migrate "github.com/rubenv/sql-migrate"

// Migration of the envelope store.
func Migration() *migrate.MemoryMigrationSource {
	return &migrate.MemoryMigrationSource{
		Migrations: []*migrate.Migration{
			{
				Id: "envelopes_1",
				Up: []string{
					`CREATE TABLE IF NOT EXISTS envelopes (
                        id         UUID,
                        device_id  VARCHAR(254) NOT NULL,
                        sequence   BIGINT       NOT NULL,
                        kind       TEXT         NOT NULL,
                        time       TIMESTAMPTZ  NOT NULL,
                        payload    JSONB,
                        PRIMARY KEY (id)
                    )`,
					`CREATE INDEX IF NOT EXISTS envelopes_device_time_idx
                        ON envelopes (device_id, time)`,
				},
				Down: []string{
					"DROP TABLE envelopes",
				},
			},
		},
	}
}
