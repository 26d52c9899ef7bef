package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	phttp "github.com/tarifario/price-tracker/internal/http"
	"github.com/tarifario/price-tracker/internal/http/ratelimit"
	"github.com/tarifario/price-tracker/internal/pricing"
	"github.com/tarifario/price-tracker/internal/storage"
)

const (
	testProvider = "Coopérnico Base"
	testTariff   = "SIMPLE"
	testLabel    = "Simples"
)

func testSpec() Spec {
	return Spec{Provider: testProvider, Tariff: testTariff, VATRate: 0.23}
}

// csvForDay builds a comma-delimited tariff table with n quarter-hour
// rows for the given day.
func csvForDay(day time.Time, provider, label string, n int) string {
	var b strings.Builder
	b.WriteString("dia,intervalo,tarifario,opcao,col,omie,tar\n")
	for i := 0; i < n; i++ {
		start := day.Add(time.Duration(i) * 15 * time.Minute)
		end := start.Add(15 * time.Minute)
		fmt.Fprintf(&b, "%s,[%s-%s[,%s,%s,0.1,0.05,0.02\n",
			start.Format("02/01/2006"), start.Format("15:04"), end.Format("15:04"), provider, label)
	}
	return b.String()
}

func testClient() *phttp.Client {
	return phttp.NewClient(ratelimit.Config{
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		AttemptTimeout: 5 * time.Second,
	})
}

func newTestFetcher(t *testing.T, serverURL string) *Fetcher {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	config := DefaultConfig()
	config.RawBaseURL = serverURL
	config.APIBaseURL = serverURL + "/api"
	return NewFetcher(config, testClient(), store, time.UTC)
}

func TestFetchParsesAndCachesInMemory(t *testing.T) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, csvForDay(today, testProvider, testLabel, 4))
	}))
	defer server.Close()

	fetcher := newTestFetcher(t, server.URL)
	ctx := context.Background()

	set, err := fetcher.Fetch(ctx, testSpec(), today, false)
	require.NoError(t, err)
	assert.Equal(t, 4, set.Len())
	assert.Equal(t, testProvider, set.Provider)

	// Second fetch is served from memory.
	set, err = fetcher.Fetch(ctx, testSpec(), today, false)
	require.NoError(t, err)
	assert.Equal(t, 4, set.Len())
	assert.Equal(t, int32(1), calls.Load())
}

func TestSupersedeKeepsLargerCachedFile(t *testing.T) {
	tomorrow := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)

	var mu sync.Mutex
	content := csvForDay(tomorrow, testProvider, testLabel, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprint(w, content)
	}))
	defer server.Close()

	fetcher := newTestFetcher(t, server.URL)
	ctx := context.Background()
	key := storage.CacheKey(tomorrow)

	set, err := fetcher.Fetch(ctx, testSpec(), tomorrow, false)
	require.NoError(t, err)
	require.Equal(t, 8, set.Len())

	cached, err := fetcher.store.Get(ctx, key)
	require.NoError(t, err)
	eightRows := string(cached)

	// A smaller upstream file must not clobber the cached copy.
	mu.Lock()
	content = csvForDay(tomorrow, testProvider, testLabel, 3)
	mu.Unlock()

	set, err = fetcher.Fetch(ctx, testSpec(), tomorrow, true)
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())

	cached, err = fetcher.store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, eightRows, string(cached))

	// A strictly larger file supersedes it.
	mu.Lock()
	content = csvForDay(tomorrow, testProvider, testLabel, 12)
	mu.Unlock()

	set, err = fetcher.Fetch(ctx, testSpec(), tomorrow, true)
	require.NoError(t, err)
	assert.Equal(t, 12, set.Len())

	cached, err = fetcher.store.Get(ctx, key)
	require.NoError(t, err)
	assert.NotEqual(t, eightRows, string(cached))
}

func TestConcurrentFetchesShareOneDownload(t *testing.T) {
	tomorrow := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		fmt.Fprint(w, csvForDay(tomorrow, testProvider, testLabel, 4))
	}))
	defer server.Close()

	fetcher := newTestFetcher(t, server.URL)
	ctx := context.Background()

	specs := []Spec{
		{Provider: testProvider, Tariff: testTariff, VATRate: 0.23},
		{Provider: testProvider, Tariff: "BIHORARIO_DIARIO", VATRate: 0.23},
	}

	var wg sync.WaitGroup
	for _, spec := range specs {
		wg.Add(1)
		go func(s Spec) {
			defer wg.Done()
			_, err := fetcher.Fetch(ctx, s, tomorrow, false)
			assert.NoError(t, err)
		}(spec)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestPastDateFetchesFromCommitHistory(t *testing.T) {
	past := time.Now().UTC().Truncate(24 * time.Hour).Add(-72 * time.Hour)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/commits", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "data/precos-horarios.csv", r.URL.Query().Get("path"))
		assert.NotEmpty(t, r.URL.Query().Get("since"))
		fmt.Fprint(w, `[{"sha":"abc123"}]`)
	})
	mux.HandleFunc("/abc123/data/precos-horarios.csv", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, csvForDay(past, testProvider, testLabel, 96))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher := newTestFetcher(t, server.URL)
	ctx := context.Background()

	set, err := fetcher.Fetch(ctx, testSpec(), past, false)
	require.NoError(t, err)
	assert.Equal(t, 96, set.Len())
	assert.True(t, set.Complete())

	// The historical file lands in the disk cache.
	exists, err := fetcher.store.Exists(ctx, storage.CacheKey(past))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPastDateWithoutHistoryReturnsEmptySet(t *testing.T) {
	past := time.Now().UTC().Truncate(24 * time.Hour).Add(-72 * time.Hour)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/commits", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher := newTestFetcher(t, server.URL)

	set, err := fetcher.Fetch(context.Background(), testSpec(), past, false)
	require.NoError(t, err)
	assert.True(t, set.Empty())
}

func TestZeroMatchingRowsIsNotAnError(t *testing.T) {
	tomorrow := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, csvForDay(tomorrow, "Galp Plano Dinâmico", testLabel, 4))
	}))
	defer server.Close()

	fetcher := newTestFetcher(t, server.URL)

	set, err := fetcher.Fetch(context.Background(), testSpec(), tomorrow, false)
	require.NoError(t, err)
	assert.True(t, set.Empty())
}

func TestNetworkFailureSurfacesNetworkError(t *testing.T) {
	tomorrow := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := newTestFetcher(t, server.URL)

	_, err := fetcher.Fetch(context.Background(), testSpec(), tomorrow, false)
	require.Error(t, err)
	var netErr *NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestMemoryCacheTTL(t *testing.T) {
	cache := newMemoryCache(20 * time.Millisecond)
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []pricing.Record{
		{Timestamp: day, Interval: "[00:00-00:15[", Price: 0.1},
	}
	cache.set("2026-03-01", "a/b", records)

	assert.Len(t, cache.get("2026-03-01", "a/b"), 1)
	assert.Nil(t, cache.get("2026-03-01", "other"))

	time.Sleep(30 * time.Millisecond)
	assert.Nil(t, cache.get("2026-03-01", "a/b"))
}
