package database

import (
	"context"
	"fmt"
)

// Schema for the normalized listing shape: one canonical bus row per
// fingerprint, a 1:1 overview row and 1:N ordered image rows.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS buses (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		fingerprint TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		source_url TEXT NOT NULL DEFAULT '',
		sold BOOLEAN NOT NULL DEFAULT FALSE,
		price TEXT NOT NULL DEFAULT '',
		first_seen_at TIMESTAMPTZ NOT NULL,
		last_seen_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS buses_overview (
		bus_id BIGINT PRIMARY KEY REFERENCES buses(id) ON DELETE CASCADE,
		air_conditioning BOOLEAN NOT NULL DEFAULT FALSE,
		passenger_capacity INT NOT NULL DEFAULT 0,
		mileage TEXT NOT NULL DEFAULT '',
		engine TEXT NOT NULL DEFAULT '',
		transmission TEXT NOT NULL DEFAULT '',
		gross_weight TEXT NOT NULL DEFAULT '',
		wheelchair_accessible BOOLEAN NOT NULL DEFAULT FALSE,
		luggage_capacity TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS buses_image (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		bus_id BIGINT NOT NULL REFERENCES buses(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		position INT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_buses_image_bus_id ON buses_image (bus_id)`,
}

// EnsureSchema creates the three tables if they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
