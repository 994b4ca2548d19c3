package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/buslistings/bus-scraper/internal/models"
)

// BusRepo persists canonical buses with their overview and image rows.
// All writes go through InTx so one listing is always all-or-nothing.
type BusRepo struct {
	db *DB
	tx pgx.Tx
}

func NewBusRepo(db *DB) *BusRepo {
	return &BusRepo{db: db}
}

func (r *BusRepo) exec(ctx context.Context, sql string, args ...any) error {
	var err error
	if r.tx != nil {
		_, err = r.tx.Exec(ctx, sql, args...)
	} else {
		_, err = r.db.Exec(ctx, sql, args...)
	}
	return err
}

func (r *BusRepo) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if r.tx != nil {
		return r.tx.QueryRow(ctx, sql, args...)
	}
	return r.db.QueryRow(ctx, sql, args...)
}

func (r *BusRepo) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if r.tx != nil {
		return r.tx.Query(ctx, sql, args...)
	}
	return r.db.Query(ctx, sql, args...)
}

// InTx runs fn against a repository bound to one transaction.
func (r *BusRepo) InTx(ctx context.Context, fn func(Repo) error) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&BusRepo{db: r.db, tx: tx})
	})
}

// Repo is the store surface the persistence pipeline writes through.
type Repo interface {
	UpsertBus(ctx context.Context, fingerprint string, record models.ListingRecord, now time.Time) (int64, error)
	ReplaceOverview(ctx context.Context, busID int64, overview models.BusOverview) error
	ReplaceImages(ctx context.Context, busID int64, urls []string) error
}

// UpsertBus inserts the canonical row or, when the fingerprint already
// exists, refreshes its mutable columns. The conflict clause makes the
// insert race-safe: two writers on the same fingerprint converge on one
// row and both get its id back.
func (r *BusRepo) UpsertBus(ctx context.Context, fingerprint string, record models.ListingRecord, now time.Time) (int64, error) {
	query := `
		INSERT INTO buses (fingerprint, title, source_url, sold, price, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (fingerprint) DO UPDATE SET
			title = EXCLUDED.title,
			source_url = EXCLUDED.source_url,
			sold = EXCLUDED.sold,
			price = EXCLUDED.price,
			last_seen_at = EXCLUDED.last_seen_at
		RETURNING id`

	var id int64
	err := r.queryRow(ctx, query,
		fingerprint, record.Title, record.SourceURL, record.Sold, record.Price, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert bus: %w", err)
	}

	return id, nil
}

// ReplaceOverview overwrites the 1:1 overview row wholesale.
func (r *BusRepo) ReplaceOverview(ctx context.Context, busID int64, overview models.BusOverview) error {
	query := `
		INSERT INTO buses_overview (
			bus_id, air_conditioning, passenger_capacity, mileage,
			engine, transmission, gross_weight, wheelchair_accessible, luggage_capacity
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (bus_id) DO UPDATE SET
			air_conditioning = EXCLUDED.air_conditioning,
			passenger_capacity = EXCLUDED.passenger_capacity,
			mileage = EXCLUDED.mileage,
			engine = EXCLUDED.engine,
			transmission = EXCLUDED.transmission,
			gross_weight = EXCLUDED.gross_weight,
			wheelchair_accessible = EXCLUDED.wheelchair_accessible,
			luggage_capacity = EXCLUDED.luggage_capacity`

	err := r.exec(ctx, query,
		busID, overview.AirConditioning, overview.PassengerCapacity, overview.Mileage,
		overview.Engine, overview.Transmission, overview.GrossWeight,
		overview.WheelchairAccessible, overview.LuggageCapacity,
	)
	if err != nil {
		return fmt.Errorf("failed to replace overview: %w", err)
	}

	return nil
}

// ReplaceImages deletes the existing image rows of the bus and inserts the
// new ordered set, keeping positions dense and 0-based.
func (r *BusRepo) ReplaceImages(ctx context.Context, busID int64, urls []string) error {
	if err := r.exec(ctx, `DELETE FROM buses_image WHERE bus_id = $1`, busID); err != nil {
		return fmt.Errorf("failed to delete stale images: %w", err)
	}

	for position, url := range urls {
		err := r.exec(ctx,
			`INSERT INTO buses_image (bus_id, url, position) VALUES ($1, $2, $3)`,
			busID, url, position,
		)
		if err != nil {
			return fmt.Errorf("failed to insert image %d: %w", position, err)
		}
	}

	return nil
}

// GetBus reads one canonical row by id.
func (r *BusRepo) GetBus(ctx context.Context, id int64) (*models.Bus, error) {
	var bus models.Bus
	err := r.queryRow(ctx, `
		SELECT id, fingerprint, title, source_url, sold, price, first_seen_at, last_seen_at
		FROM buses WHERE id = $1`, id,
	).Scan(&bus.ID, &bus.Fingerprint, &bus.Title, &bus.SourceURL,
		&bus.Sold, &bus.Price, &bus.FirstSeenAt, &bus.LastSeenAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get bus %d: %w", id, err)
	}

	return &bus, nil
}

// ListImages returns the image rows of a bus in position order.
func (r *BusRepo) ListImages(ctx context.Context, busID int64) ([]models.BusImage, error) {
	rows, err := r.query(ctx, `
		SELECT id, bus_id, url, position FROM buses_image
		WHERE bus_id = $1 ORDER BY position`, busID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	var images []models.BusImage
	for rows.Next() {
		var img models.BusImage
		if err := rows.Scan(&img.ID, &img.BusID, &img.URL, &img.Position); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read images: %w", err)
	}

	return images, nil
}

// Lookup reads the fingerprint index. It satisfies the
// deduplicator's Index contract and never writes.
func (r *BusRepo) Lookup(ctx context.Context, fingerprint string) (int64, bool, error) {
	var id int64
	err := r.queryRow(ctx, `SELECT id FROM buses WHERE fingerprint = $1`, fingerprint).Scan(&id)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up fingerprint: %w", err)
	}

	return id, true, nil
}
