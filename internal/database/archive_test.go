package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tarifario/price-tracker/internal/pricing"
)

func setupTestDB(t *testing.T) func() {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "Failed to start postgres container")

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	require.NoError(t, Connect(ctx, connStr, 4, 1, time.Hour, 30*time.Minute))
	require.NoError(t, Migrate(ctx))

	return func() {
		Close()
		testcontainers.TerminateContainer(container)
	}
}

func testSet(day time.Time, n int) pricing.DailySet {
	records := make([]pricing.Record, n)
	for i := range records {
		records[i] = pricing.Record{
			Timestamp: day.Add(time.Duration(i) * 15 * time.Minute),
			Price:     0.1,
		}
	}
	return pricing.NewDailySet(day, "Coopérnico Base", "SIMPLE", records)
}

func TestArchiveDayUpsertFollowsSupersedeRule(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	archive := NewPriceArchive()
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, archive.ArchiveDay(ctx, testSet(day, 40)))

	stored, err := archive.GetPriceDay(ctx, "Coopérnico Base", "SIMPLE", day)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 40, stored.RecordCount)
	assert.Len(t, stored.Records, 40)

	// Fewer records must not replace the stored row.
	require.NoError(t, archive.ArchiveDay(ctx, testSet(day, 20)))
	stored, err = archive.GetPriceDay(ctx, "Coopérnico Base", "SIMPLE", day)
	require.NoError(t, err)
	assert.Equal(t, 40, stored.RecordCount)

	// Strictly more records replace it.
	require.NoError(t, archive.ArchiveDay(ctx, testSet(day, 96)))
	stored, err = archive.GetPriceDay(ctx, "Coopérnico Base", "SIMPLE", day)
	require.NoError(t, err)
	assert.Equal(t, 96, stored.RecordCount)
}

func TestListAndCleanup(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	archive := NewPriceArchive()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, archive.ArchiveDay(ctx, testSet(base.AddDate(0, 0, i), 96)))
	}

	days, err := archive.ListPriceDays(ctx, "Coopérnico Base", "SIMPLE", 10, 0)
	require.NoError(t, err)
	require.Len(t, days, 5)
	assert.True(t, days[0].Day.After(days[4].Day), "newest first")

	removed, err := archive.DeletePriceDaysBefore(ctx, base.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
}

func TestGetPriceDayMissingReturnsNil(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	archive := NewPriceArchive()
	pd, err := archive.GetPriceDay(context.Background(), "Nobody", "SIMPLE", time.Now())
	require.NoError(t, err)
	assert.Nil(t, pd)
}

func TestArchiveDisabledWithoutPool(t *testing.T) {
	// No Connect call: archive writes are no-ops, reads report disabled.
	archive := NewPriceArchive()
	assert.False(t, archive.Enabled())

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, archive.ArchiveDay(context.Background(), testSet(day, 4)))

	_, err := archive.GetPriceDay(context.Background(), "Coopérnico Base", "SIMPLE", day)
	assert.ErrorIs(t, err, ErrArchiveDisabled)
}
