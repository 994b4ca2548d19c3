// Package pipeline maps deduplicated listing records onto the normalized
// relational shape and performs the idempotent transactional upsert.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/buslistings/bus-scraper/internal/database"
	"github.com/buslistings/bus-scraper/internal/dedup"
	"github.com/buslistings/bus-scraper/internal/models"
)

// Store runs a function against the bus repository inside one transaction.
// Implemented by database.BusRepo; swappable for an in-memory store in
// tests.
type Store interface {
	InTx(ctx context.Context, fn func(database.Repo) error) error
}

// Pipeline is the only writer to the relational store. Each record is
// persisted all-or-nothing: canonical row upsert, overview replacement and
// image replacement share one transaction.
type Pipeline struct {
	store    Store
	resolver *dedup.Resolver
	logger   *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

func New(store Store, resolver *dedup.Resolver, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:    store,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
	}
}

// Ingest resolves the record against the fingerprint index and upserts it.
// This is the Sink the scheduler feeds.
func (p *Pipeline) Ingest(ctx context.Context, record models.ListingRecord) (int64, error) {
	resolution, err := p.resolver.Resolve(ctx, record)
	if err != nil {
		return 0, err
	}
	return p.Upsert(ctx, record, resolution)
}

// Upsert persists one record as a single transaction. The resolution is
// advisory only: a concurrent writer may have inserted the fingerprint
// since the lookup, and the conflict clause in UpsertBus converts the
// losing insert into an update. A failed transaction is retried once
// before the error surfaces to the scheduler.
func (p *Pipeline) Upsert(ctx context.Context, record models.ListingRecord, resolution dedup.Resolution) (int64, error) {
	var busID int64

	apply := func() error {
		return p.store.InTx(ctx, func(repo database.Repo) error {
			id, err := repo.UpsertBus(ctx, resolution.Fingerprint, record, p.now())
			if err != nil {
				return err
			}

			if err := repo.ReplaceOverview(ctx, id, record.Overview()); err != nil {
				return err
			}

			if err := repo.ReplaceImages(ctx, id, record.Images); err != nil {
				return err
			}

			busID = id
			return nil
		})
	}

	err := apply()
	if err != nil && ctx.Err() == nil {
		p.logger.Warn("upsert transaction failed, retrying once",
			"fingerprint", resolution.Fingerprint, "error", err)
		err = apply()
	}
	if err != nil {
		return 0, err
	}

	if resolution.IsNew {
		p.logger.Info("new bus persisted", "bus_id", busID, "source_url", record.SourceURL)
	} else {
		p.logger.Debug("bus refreshed", "bus_id", busID, "source_url", record.SourceURL)
	}

	return busID, nil
}
