package cli

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/hobson/bitcrawl/internal/config"
	"github.com/hobson/bitcrawl/internal/extract"
	"github.com/hobson/bitcrawl/internal/fetch"
	"github.com/hobson/bitcrawl/internal/record"
	"github.com/hobson/bitcrawl/internal/storage"
)

var fixedNow = time.Date(2012, 4, 20, 12, 0, 0, 0, time.UTC)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	fn()

	w.Close()
	os.Stdout = old
	return <-done
}

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*fetch.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	body, ok := f.pages[url]
	if !ok {
		return &fetch.Page{URL: url, Status: http.StatusNotFound}, &fetch.StatusError{URL: url, Status: http.StatusNotFound}
	}
	return &fetch.Page{URL: url, Status: http.StatusOK, Body: []byte(body), FetchedAt: fixedNow}, nil
}

const tickerPage = `<html><body><ul>
<li>Weighted Avg: $4.98</li>
<li>Volume: 12,345</li>
</ul><p>Bitcoin trade and more bitcoin trade.</p></body></html>`

func testFetcher() *fakeFetcher {
	return &fakeFetcher{pages: map[string]string{
		"https://mtgox.test":        tickerPage,
		"https://api.bitfloor.test": `{"bids": [[4.9, 10]], "asks": [[5.1, 2]]}`,
	}}
}

// testConfig mines one page and one endpoint, with a broken source that
// always 404s.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Sources = map[string]config.SourceConfig{
		"mtgox": {
			URL: "https://mtgox.test",
			Fields: extract.Named(
				extract.Field{Name: "average", Rule: extract.Rule{Prefix: `Weighted\s*Avg\s*:`, Value: `\$[0-9]+\.[0-9]+`}},
				extract.Field{Name: "volume", Rule: extract.Rule{Prefix: `Volume\s*:`, Value: `[0-9,]+`}},
				extract.Field{Name: "high", Rule: extract.Rule{Prefix: `High\s*:`, Value: `\$[0-9]+\.[0-9]+`}},
			),
		},
		"down": {URL: "https://down.test", Fields: extract.Single(extract.Rule{Prefix: "x", Value: "y"})},
	}
	cfg.Endpoints = map[string]config.EndpointConfig{
		"bitfloor": {URL: "https://api.bitfloor.test"},
	}
	cfg.Crawls = map[string]config.CrawlTargetConfig{}
	return cfg
}

func openTestJournal(t *testing.T) *storage.SQLiteJournal {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.NewMigrationRunner(db).Run())

	j, err := storage.NewSQLiteJournal(db)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

// testDeps wires a temp log, an in-memory journal and the fake fetcher.
func testDeps(t *testing.T) *deps {
	t.Helper()
	return &deps{
		cfg:     testConfig(),
		log:     storage.NewLogStore(filepath.Join(t.TempDir(), "historical_data.json")),
		journal: openTestJournal(t),
		fetcher: testFetcher(),
		now:     func() time.Time { return fixedNow },
	}
}

// seedLog appends one record per day from 2012-04-10 to 2012-04-16 at noon.
// mtgox.average rises linearly and network.difficulty rises twice as fast.
func seedLog(t *testing.T, d *deps) {
	t.Helper()
	var records []record.Record
	for i := 0; i < 7; i++ {
		ts := time.Date(2012, 4, 10+i, 12, 0, 0, 0, time.UTC).Format(record.Layout)
		records = append(records, record.Record{
			"mtgox":   record.Fields{record.KeyDatetime: ts, "average": fmt.Sprintf("$4.%d0", i)},
			"network": record.Fields{record.KeyDatetime: ts, "difficulty": float64(1000 + 20*i)},
		})
	}
	require.NoError(t, d.log.Append(context.Background(), records...))
}

// seedJournal records one harvest run with a good and a failed fetch.
func seedJournal(t *testing.T, d *deps) (good, failed *storage.Fetch) {
	t.Helper()
	ctx := context.Background()
	run := &storage.Run{ID: "run-1", StartedAt: fixedNow.Add(-time.Hour)}
	require.NoError(t, d.journal.StartRun(ctx, run))

	good = &storage.Fetch{
		RunID: run.ID, Source: "mtgox", Kind: storage.KindPage, URL: "https://mtgox.test/ticker",
		Timestamp: fixedNow.Add(-time.Hour), Status: 200, Bytes: 512, Elapsed: 40 * time.Millisecond, Fields: 2, Misses: 1,
	}
	failed = &storage.Fetch{
		RunID: run.ID, Source: "down", Kind: storage.KindPage, URL: "https://down.test",
		Timestamp: fixedNow.Add(-100 * 24 * time.Hour), Status: 404, Error: "GET https://down.test: status 404 Not Found",
	}
	require.NoError(t, d.journal.AddFetch(ctx, good))
	require.NoError(t, d.journal.AddFetch(ctx, failed))

	run.FinishedAt = fixedNow
	run.Sources = 2
	run.Failed = 1
	require.NoError(t, d.journal.FinishRun(ctx, run))
	return good, failed
}
