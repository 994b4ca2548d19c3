package database

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buslistings/bus-scraper/internal/models"
)

// setupTestDB connects to the database named by TEST_DB_* and applies the
// schema. Tests skip when no test database is configured.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("Test database not configured")
	}

	port := 5432
	if p, err := strconv.Atoi(os.Getenv("TEST_DB_PORT")); err == nil {
		port = p
	}

	ctx := context.Background()
	db, err := New(ctx, Config{
		Host:     host,
		Port:     port,
		User:     envOr("TEST_DB_USER", "postgres"),
		Password: os.Getenv("TEST_DB_PASSWORD"),
		Database: envOr("TEST_DB_NAME", "bus_scraper_test"),
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	require.NoError(t, db.EnsureSchema(ctx))

	t.Cleanup(db.Close)
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func testRecord() models.ListingRecord {
	return models.ListingRecord{
		Title:             "1999 Ford Shuttle Bus",
		SourceURL:         "https://absolutebus.com/buses/" + uuid.New().String() + ".htm",
		Price:             "10000",
		PassengerCapacity: 24,
		Mileage:           "120,000",
		Images: []string{
			"https://absolutebus.com/images/a.jpg",
			"https://absolutebus.com/images/b.jpg",
		},
	}
}

func TestUpsertBusInsertThenUpdate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBusRepo(db)
	ctx := context.Background()

	fp := uuid.New().String()
	record := testRecord()
	now := time.Now()

	first, err := repo.UpsertBus(ctx, fp, record, now)
	require.NoError(t, err)

	record.Price = "9500"
	second, err := repo.UpsertBus(ctx, fp, record, now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, first, second, "same fingerprint converges on one row")

	bus, err := repo.GetBus(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, fp, bus.Fingerprint)
	assert.Equal(t, "9500", bus.Price)
	assert.True(t, bus.LastSeenAt.After(bus.FirstSeenAt))
}

func TestReplaceImagesKeepsPositionsDense(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBusRepo(db)
	ctx := context.Background()

	busID, err := repo.UpsertBus(ctx, uuid.New().String(), testRecord(), time.Now())
	require.NoError(t, err)

	require.NoError(t, repo.ReplaceImages(ctx, busID, []string{"a", "b", "c"}))
	require.NoError(t, repo.ReplaceImages(ctx, busID, []string{"x", "y"}))

	images, err := repo.ListImages(ctx, busID)
	require.NoError(t, err)
	require.Len(t, images, 2)

	for i, img := range images {
		assert.Equal(t, busID, img.BusID)
		assert.Equal(t, i, img.Position)
	}
	assert.Equal(t, "x", images[0].URL)
	assert.Equal(t, "y", images[1].URL)
}

func TestReplaceOverviewUpserts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBusRepo(db)
	ctx := context.Background()

	busID, err := repo.UpsertBus(ctx, uuid.New().String(), testRecord(), time.Now())
	require.NoError(t, err)

	require.NoError(t, repo.ReplaceOverview(ctx, busID, models.BusOverview{PassengerCapacity: 24}))
	require.NoError(t, repo.ReplaceOverview(ctx, busID, models.BusOverview{PassengerCapacity: 30, AirConditioning: true}))

	var capacity int
	var ac bool
	err = db.QueryRow(ctx,
		`SELECT passenger_capacity, air_conditioning FROM buses_overview WHERE bus_id = $1`, busID,
	).Scan(&capacity, &ac)
	require.NoError(t, err)
	assert.Equal(t, 30, capacity)
	assert.True(t, ac)
}

func TestLookup(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBusRepo(db)
	ctx := context.Background()

	fp := uuid.New().String()
	_, found, err := repo.Lookup(ctx, fp)
	require.NoError(t, err)
	assert.False(t, found)

	busID, err := repo.UpsertBus(ctx, fp, testRecord(), time.Now())
	require.NoError(t, err)

	id, found, err := repo.Lookup(ctx, fp)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, busID, id)
}

func TestInTxRollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBusRepo(db)
	ctx := context.Background()

	fp := uuid.New().String()
	boom := errors.New("boom")

	err := repo.InTx(ctx, func(r Repo) error {
		if _, err := r.UpsertBus(ctx, fp, testRecord(), time.Now()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, found, err := repo.Lookup(ctx, fp)
	require.NoError(t, err)
	assert.False(t, found, "rolled-back insert must not be visible")
}
