package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hobson/bitcrawl/internal/config"
	"github.com/hobson/bitcrawl/internal/fetch"
	"github.com/hobson/bitcrawl/internal/logging"
	"github.com/hobson/bitcrawl/internal/record"
	"github.com/hobson/bitcrawl/internal/series"
	"github.com/hobson/bitcrawl/internal/stats"
	"github.com/hobson/bitcrawl/internal/storage"
)

// deps is everything a command may touch. Tests build one directly.
type deps struct {
	cfg         *config.Config
	log         *storage.LogStore
	journal     *storage.SQLiteJournal
	journalPath string
	fetcher     fetch.Fetcher
	now         func() time.Time
}

type need int

const (
	needLog need = 1 << iota
	needJournal
	needFetcher
)

// resolve returns injected when set, otherwise loads the configuration,
// installs the logger and opens what the command needs. The returned func
// releases everything opened.
func resolve(g *GlobalFlags, injected *deps, n need) (*deps, func(), error) {
	if injected != nil {
		if injected.cfg == nil {
			injected.cfg = config.DefaultConfig()
		}
		if injected.now == nil {
			injected.now = time.Now
		}
		return injected, func() {}, nil
	}
	if g == nil {
		g = &GlobalFlags{}
	}

	cfg, err := loadConfig(g.Config)
	if err != nil {
		return nil, nil, err
	}
	if _, err := logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format, g.Verbose); err != nil {
		return nil, nil, fmt.Errorf("setup logging: %w", err)
	}

	d := &deps{cfg: cfg, now: time.Now}
	var closers []func()
	done := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if n&needLog != 0 {
		path := g.LogFile
		if path == "" {
			if path, err = cfg.LogPath(); err != nil {
				return nil, nil, err
			}
		}
		d.log = storage.NewLogStore(path)
	}

	if n&needJournal != 0 {
		path := g.Journal
		if path == "" {
			if path, err = cfg.JournalPath(); err != nil {
				return nil, nil, err
			}
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, fmt.Errorf("create journal directory: %w", err)
		}
		j, db, err := storage.OpenJournal(path)
		if err != nil {
			return nil, nil, err
		}
		d.journal = j
		d.journalPath = path
		closers = append(closers, func() { db.Close() }, func() { j.Close() })
	}

	if n&needFetcher != 0 {
		c, err := fetch.NewClient(cfg.FetchOptions())
		if err != nil {
			done()
			return nil, nil, err
		}
		d.fetcher = c
	}

	return d, done, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadOrCreate()
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	return config.LoadOrCreateAt(expanded)
}

func jsonOutput(g *GlobalFlags) bool {
	return g != nil && g.JSON
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// jsonFloat encodes NaN and infinities as null.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func jsonFloats(vs []float64) []jsonFloat {
	out := make([]jsonFloat, len(vs))
	for i, v := range vs {
		out[i] = jsonFloat(v)
	}
	return out
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetOutputMirror(os.Stdout)
	return t
}

// readPage returns the page text from file when set, otherwise fetches url.
func readPage(ctx context.Context, d *deps, url, file string) (string, error) {
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading page file: %w", err)
		}
		return string(data), nil
	case url != "":
		page, err := d.fetcher.Fetch(ctx, url)
		if err != nil {
			return "", err
		}
		return page.Text(), nil
	default:
		return "", fmt.Errorf("one of --url or --file is required")
	}
}

func timeField(d *deps, override string) string {
	if override != "" {
		return override
	}
	if d.cfg.Analysis.TimeField != "" {
		return d.cfg.Analysis.TimeField
	}
	return record.KeyDatetime
}

func divisor(d *deps, override string) (stats.Divisor, error) {
	if override != "" {
		return stats.ParseDivisor(override)
	}
	return d.cfg.Divisor(), nil
}

// loadSeries reads the log and reconstructs the series named by query.
// raw keeps the samples in record order without resampling.
func loadSeries(ctx context.Context, d *deps, query, field string, raw bool) (series.Query, series.Series, []series.Skip, error) {
	records, err := d.log.Load(ctx)
	if err != nil {
		return series.Query{}, series.Series{}, nil, err
	}
	return buildSeries(records, query, field, raw)
}

// buildSeries reconstructs the series named by query from records already
// loaded from the log.
func buildSeries(records []record.Record, query, field string, raw bool) (series.Query, series.Series, []series.Skip, error) {
	q, err := series.ParseQuery(query)
	if err != nil {
		return series.Query{}, series.Series{}, nil, err
	}
	if raw {
		s, skips := series.Select(records, q.Selector, field)
		return q, s, skips, nil
	}
	s, skips, err := q.Resample(records, field)
	return q, s, skips, err
}

// ordinalLabel formats a day-ordinal for display.
func ordinalLabel(x float64) string {
	return series.OrdinalTime(x).Format("2006-01-02 15:04")
}

// parseDuration parses a human-friendly duration string like "30d", "7d", "24h", "2w".
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid duration: empty string")
	}

	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]

	n, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid duration: %q (duration must be positive)", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 's':
		return time.Duration(n) * time.Second, nil
	default:
		return 0, fmt.Errorf("invalid duration: %q (use d, h, w, m or s suffix)", s)
	}
}

// formatDurationHuman formats a duration into a human-readable string like "30 days".
func formatDurationHuman(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	hours := int(d.Hours())
	if hours > 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	if strings.HasSuffix(word, "ch") || strings.HasSuffix(word, "s") {
		return fmt.Sprintf("%d %ses", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
