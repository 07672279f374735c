package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/retroconsolas/config"
	"sjsage522/retroconsolas/helpers"
	"sjsage522/retroconsolas/internal/crawler"
	"sjsage522/retroconsolas/internal/market"
	"sjsage522/retroconsolas/services/store"
	"sjsage522/retroconsolas/services/worker"
)

// This page mimics the rendered search results of the marketplace
const testHTML = `
<!DOCTYPE html>
<html>
<body>
    <tsl-public-card>
        <a href="https://es.wallapop.com/item/super-nintendo-1">
            <p class="ItemCard__title">Super Nintendo completa</p>
            <span class="ItemCard__price">120 €</span>
        </a>
    </tsl-public-card>
    <tsl-public-card>
        <a href="https://es.wallapop.com/item/super-nintendo-2">
            <p class="ItemCard__title">Super Nintendo PAL</p>
            <span class="ItemCard__price">95 €</span>
            <span>Vendido</span>
        </a>
    </tsl-public-card>
    <tsl-public-card>
        <a href="https://es.wallapop.com/item/snes-mini-3">
            <p class="ItemCard__title">SNES mini classic</p>
            <span class="ItemCard__price">70 €</span>
        </a>
    </tsl-public-card>
</body>
</html>
`

// staticSession serves testHTML for every page
type staticSession struct {
	mu     sync.Mutex
	pages  []string
	closed bool
}

func (s *staticSession) Render(ctx context.Context, pageURL string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, pageURL)
	return testHTML, nil
}

func (s *staticSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	mu    sync.Mutex
	cache map[string][]byte
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache[key], nil
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	return nil
}

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func TestIntegrationRun(t *testing.T) {
	// The API answers for NES and rate-limits Super Nintendo searches
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/general/search", r.URL.Path)
		assert.Equal(t, "https://es.wallapop.com", r.Header.Get("Origin"))

		keywords := r.URL.Query().Get("keywords")
		if strings.Contains(keywords, "SNES") || strings.Contains(keywords, "Super Nintendo") {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if r.URL.Query().Get("start") != "0" {
			w.Write([]byte(`{"search_objects": []}`))
			return
		}
		w.Write([]byte(`{"search_objects": [
			{"id": "nes-1", "title": "Consola NES completa", "price": {"amount": 80, "currency": "EUR"}},
			{"id": "nes-2", "title": "NES mando suelto", "price": {"amount": 10, "currency": "EUR"}},
			{"id": "nes-3", "title": "Consola NES PAL", "price": {"amount": 120, "currency": "EUR"}, "flags": {"sold": true}}
		]}`))
	}))
	defer server.Close()

	cfg := config.LoadConfig()
	cfg.APIBaseURL = server.URL + "/api/v3"
	cfg.RequestTimeout = 2 * time.Second
	cfg.DataDir = filepath.Join(t.TempDir(), "data")

	consoles := config.DefaultConsoles()[:2]

	governor := crawler.NewGovernor(0, 0).WithSleeper(noSleep)
	cacheSvc := &MockCacheService{cache: make(map[string][]byte)}
	primary := crawler.NewAPIStrategy(crawler.APIConfigFrom(cfg), governor, cacheSvc)

	session := &staticSession{}
	fallback := crawler.NewBrowserStrategy(
		cfg.SearchPageURL,
		func(ctx context.Context) (crawler.BrowserSession, error) { return session, nil },
		crawler.NewExtractor(crawler.DefaultExtractorConfig()),
		governor,
	)

	fileStore := store.NewFileStore(cfg.DataDir)
	journal := filepath.Join(t.TempDir(), "error.log")

	w := worker.NewWorker(
		context.Background(),
		consoles,
		primary,
		fallback,
		[]store.SnapshotStore{fileStore},
		nil,
		helpers.NewLogger(journal),
	)

	snap, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	// NES came from the API; the accessory is filtered out
	nes := snap.Consoles["nes"]
	assert.Equal(t, 2, nes.TotalListings)
	assert.Equal(t, 1, nes.AvailableCount)
	assert.Equal(t, 80.0, *nes.AvgOfferPrice)
	assert.Equal(t, 120.0, *nes.AvgSoldPrice)

	// Super Nintendo came from the rendered page; the mini is filtered out
	snes := snap.Consoles["snes"]
	assert.Equal(t, 2, snes.TotalListings)
	assert.Equal(t, 1, snes.SoldCount)
	assert.Equal(t, 120.0, *snes.MedianOfferPrice)
	assert.True(t, session.closed)
	assert.NotEmpty(t, session.pages)

	// Both files are written
	data, err := os.ReadFile(filepath.Join(cfg.DataDir, store.LatestFile))
	require.NoError(t, err)

	var latest market.DailySnapshot
	require.NoError(t, json.Unmarshal(data, &latest))
	assert.Equal(t, snap.Date, latest.Date)

	history, err := fileStore.History(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, 1)

	// The blocked API call is journaled
	journalData, err := os.ReadFile(journal)
	require.NoError(t, err)
	assert.Contains(t, string(journalData), "[snes/api]")
}
