package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/retroconsolas/internal/market"
	"sjsage522/retroconsolas/pkg/errors"
)

func price(v float64) *float64 {
	return &v
}

func snapshotFor(date, scrapedAt string, total int) market.DailySnapshot {
	return market.DailySnapshot{
		Date:      date,
		ScrapedAt: scrapedAt,
		Consoles: map[string]market.ConsoleStats{
			"nes": {
				TotalListings:    total,
				AvailableCount:   total,
				AvgOfferPrice:    price(50),
				MedianOfferPrice: price(50),
				MinOfferPrice:    price(40),
				MaxOfferPrice:    price(60),
			},
			"snes": {},
		},
	}
}

func TestFileStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	fileStore := NewFileStore(dir)
	ctx := context.Background()

	require.NoError(t, fileStore.Save(ctx, snapshotFor("2024-01-02", "a", 3)))
	require.NoError(t, fileStore.Save(ctx, snapshotFor("2024-01-01", "b", 1)))
	require.NoError(t, fileStore.Save(ctx, snapshotFor("2024-01-02", "c", 7)))

	latest, err := fileStore.Latest()
	require.NoError(t, err)
	assert.Equal(t, "c", latest.ScrapedAt)

	history, err := fileStore.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2024-01-01", history[0].Date)
	assert.Equal(t, "2024-01-02", history[1].Date)
	assert.Equal(t, 7, history[1].Consoles["nes"].TotalListings)
	assert.Nil(t, history[1].Consoles["snes"].AvgOfferPrice)
}

func TestFileStoreFormatting(t *testing.T) {
	dir := t.TempDir()
	fileStore := NewFileStore(dir)

	require.NoError(t, fileStore.Save(context.Background(), snapshotFor("2024-01-01", "x", 1)))

	data, err := os.ReadFile(filepath.Join(dir, LatestFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"date\": \"2024-01-01\"")
	assert.Contains(t, string(data), `"avg_sold_price": null`)

	_, err = os.Stat(filepath.Join(dir, LatestFile+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreEmptyHistory(t *testing.T) {
	history, err := NewFileStore(t.TempDir()).History(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestFileStoreCorruptHistory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, HistoryFile), []byte("{broken"), 0o644))

	fileStore := NewFileStore(dir)
	err := fileStore.Save(context.Background(), snapshotFor("2024-01-01", "x", 1))
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypePersistence, errors.TypeOf(err))

	// the collected data still reaches latest.json
	latest, err := fileStore.Latest()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", latest.Date)
	assert.Equal(t, 1, latest.Consoles["nes"].TotalListings)

	// the damaged file is left for inspection
	data, err := os.ReadFile(filepath.Join(dir, HistoryFile))
	require.NoError(t, err)
	assert.Equal(t, "{broken", string(data))
}

func TestSQLStoreSQLite(t *testing.T) {
	ctx := context.Background()
	sqlStore, err := NewSQLStore(ctx, DriverSQLite, filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	defer sqlStore.Close()

	require.NoError(t, sqlStore.Save(ctx, snapshotFor("2024-01-02", "a", 3)))
	require.NoError(t, sqlStore.Save(ctx, snapshotFor("2024-01-01", "b", 1)))
	require.NoError(t, sqlStore.Save(ctx, snapshotFor("2024-01-02", "c", 7)))

	history, err := sqlStore.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, "2024-01-01", history[0].Date)
	assert.Equal(t, "c", history[1].ScrapedAt)
	assert.Equal(t, snapshotFor("2024-01-02", "c", 7).Consoles, history[1].Consoles)
}

func TestSQLStoreRerunsMigrations(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stats.db")

	first, err := NewSQLStore(ctx, DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, snapshotFor("2024-01-01", "a", 2)))
	require.NoError(t, first.Close())

	second, err := NewSQLStore(ctx, DriverSQLite, path)
	require.NoError(t, err)
	defer second.Close()

	history, err := second.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSQLStoreUnsupportedDriver(t *testing.T) {
	_, err := NewSQLStore(context.Background(), "mysql", "dsn")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeConfiguration, errors.TypeOf(err))
}

// This test requires a running PostgreSQL instance given by STATS_TEST_POSTGRES_DSN
func TestSQLStorePostgres(t *testing.T) {
	dsn := os.Getenv("STATS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("STATS_TEST_POSTGRES_DSN not set, skipping test")
	}

	ctx := context.Background()
	sqlStore, err := NewSQLStore(ctx, DriverPostgres, dsn)
	require.NoError(t, err)
	defer sqlStore.Close()

	snap := snapshotFor("1999-12-31", "pg", 4)
	require.NoError(t, sqlStore.Save(ctx, snap))

	history, err := sqlStore.History(ctx)
	require.NoError(t, err)

	found := false
	for _, entry := range history {
		if entry.Date == snap.Date {
			found = true
			assert.Equal(t, snap.Consoles, entry.Consoles)
		}
	}
	assert.True(t, found)
}
