// Package harvest runs every configured source once and assembles the
// results into a single record.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/hobson/bitcrawl/internal/extract"
	"github.com/hobson/bitcrawl/internal/fetch"
	"github.com/hobson/bitcrawl/internal/record"
	"github.com/hobson/bitcrawl/internal/storage"
)

var tracer = otel.Tracer("bitcrawl/harvest")

// ErrEmptyPage is reported for a page with no body.
var ErrEmptyPage = errors.New("empty page")

// Source is a page mined with an extraction spec.
type Source struct {
	Name string
	URL  string
	Spec extract.Spec
}

// Endpoint is a REST URL whose JSON body is stored as the field-dict.
type Endpoint struct {
	Name string
	URL  string
}

// CrawlTarget is a URL whose link graph is counted.
type CrawlTarget struct {
	Name     string
	URL      string
	MaxDepth int
	MaxPages int
}

// Plan lists everything fetched by one run.
type Plan struct {
	Sources   []Source
	Endpoints []Endpoint
	Crawls    []CrawlTarget
	DenyHosts []string
}

// Len returns the number of sources in the plan.
func (p Plan) Len() int {
	return len(p.Sources) + len(p.Endpoints) + len(p.Crawls)
}

// Outcome is the result for one source of a run.
type Outcome struct {
	Name    string
	Kind    string
	URL     string
	Status  int
	Bytes   int64
	Elapsed time.Duration
	Fields  int
	Misses  []extract.Miss
	Err     error
}

// Failed reports whether the source produced no field-dict.
func (o Outcome) Failed() bool { return o.Err != nil }

// Report summarizes a run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []Outcome
}

// Failed returns the number of sources that failed.
func (r *Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}

// Harvester fetches and mines the sources of a plan.
type Harvester struct {
	fetcher     fetch.Fetcher
	journal     storage.Journal
	concurrency int
	now         func() time.Time
}

// Option configures a Harvester.
type Option func(*Harvester)

// WithConcurrency bounds the number of sources fetched at once.
func WithConcurrency(n int) Option {
	return func(h *Harvester) {
		if n > 0 {
			h.concurrency = n
		}
	}
}

// WithClock overrides the time source used to stamp field-dicts.
func WithClock(now func() time.Time) Option {
	return func(h *Harvester) { h.now = now }
}

// New returns a Harvester. journal may be nil, in which case fetches are not
// journaled.
func New(f fetch.Fetcher, journal storage.Journal, opts ...Option) *Harvester {
	h := &Harvester{
		fetcher:     f,
		journal:     journal,
		concurrency: 4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type result struct {
	fields record.Fields
	out    Outcome
}

// Run fetches every source of plan concurrently. Sources that fail are left
// out of the record and reported. Run only returns an error when the
// context is canceled or the journal cannot be written.
func (h *Harvester) Run(ctx context.Context, plan Plan) (record.Record, *Report, error) {
	ctx, span := tracer.Start(ctx, "harvest")
	defer span.End()

	report := &Report{StartedAt: h.now()}
	run := &storage.Run{StartedAt: report.StartedAt, Sources: plan.Len()}
	if h.journal != nil {
		if err := h.journal.StartRun(ctx, run); err != nil {
			return nil, nil, fmt.Errorf("start run: %w", err)
		}
		report.RunID = run.ID
	}

	results := make([]result, plan.Len())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.concurrency)

	i := 0
	for _, src := range plan.Sources {
		src, slot := src, i
		g.Go(func() error {
			results[slot] = h.mine(gctx, src)
			return gctx.Err()
		})
		i++
	}
	for _, ep := range plan.Endpoints {
		ep, slot := ep, i
		g.Go(func() error {
			results[slot] = h.rest(gctx, ep)
			return gctx.Err()
		})
		i++
	}
	for _, ct := range plan.Crawls {
		ct, slot := ct, i
		g.Go(func() error {
			results[slot] = h.crawl(gctx, ct, plan.DenyHosts)
			return gctx.Err()
		})
		i++
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	rec := record.Record{}
	for _, r := range results {
		report.Outcomes = append(report.Outcomes, r.out)
		if r.out.Failed() {
			slog.Warn("source failed", "source", r.out.Name, "url", r.out.URL, "err", r.out.Err)
		} else {
			if _, dup := rec[r.out.Name]; dup {
				slog.Warn("duplicate source name, keeping the last", "source", r.out.Name)
			}
			rec[r.out.Name] = r.fields
		}
		if err := h.journalFetch(ctx, report.RunID, r.out); err != nil {
			return nil, nil, err
		}
	}

	report.FinishedAt = h.now()
	if h.journal != nil {
		run.FinishedAt = report.FinishedAt
		run.Failed = report.Failed()
		if err := h.journal.FinishRun(ctx, run); err != nil {
			return nil, nil, fmt.Errorf("finish run: %w", err)
		}
	}

	span.SetAttributes(
		attribute.Int("harvest.sources", plan.Len()),
		attribute.Int("harvest.failed", report.Failed()),
	)
	return rec, report, nil
}

// MarkAppended records that the record of a run was written to the log.
func (h *Harvester) MarkAppended(ctx context.Context, report *Report) error {
	if h.journal == nil || report.RunID == "" {
		return nil
	}
	return h.journal.FinishRun(ctx, &storage.Run{
		ID:         report.RunID,
		FinishedAt: report.FinishedAt,
		Sources:    len(report.Outcomes),
		Failed:     report.Failed(),
		Appended:   true,
	})
}

func (h *Harvester) journalFetch(ctx context.Context, runID string, o Outcome) error {
	if h.journal == nil {
		return nil
	}
	f := &storage.Fetch{
		RunID:   runID,
		Source:  o.Name,
		Kind:    o.Kind,
		URL:     o.URL,
		Status:  o.Status,
		Bytes:   o.Bytes,
		Elapsed: o.Elapsed,
		Fields:  o.Fields,
		Misses:  len(o.Misses),
	}
	if o.Err != nil {
		f.Error = o.Err.Error()
	}
	if err := h.journal.AddFetch(ctx, f); err != nil {
		return fmt.Errorf("journal fetch %s: %w", o.Name, err)
	}
	return nil
}

// get fetches url and fills the transport part of out.
func (h *Harvester) get(ctx context.Context, url string, out *Outcome) *fetch.Page {
	start := time.Now()
	page, err := h.fetcher.Fetch(ctx, url)
	out.Elapsed = time.Since(start)
	if page != nil {
		out.Status = page.Status
		out.Bytes = int64(len(page.Body))
		if page.Elapsed > 0 {
			out.Elapsed = page.Elapsed
		}
	}
	if err != nil {
		out.Err = err
		return nil
	}
	if len(page.Body) == 0 {
		out.Err = ErrEmptyPage
		return nil
	}
	return page
}

func (h *Harvester) mine(ctx context.Context, src Source) result {
	out := Outcome{Name: src.Name, Kind: storage.KindPage, URL: src.URL}
	page := h.get(ctx, src.URL, &out)
	if page == nil {
		return result{out: out}
	}

	fields, misses := extract.Mine(page.Text(), src.URL, src.Spec, extract.DefaultName, h.now())
	if fields == nil {
		out.Err = ErrEmptyPage
		return result{out: out}
	}
	out.Misses = misses
	out.Fields = len(fields.Mined())
	return result{fields: fields, out: out}
}

func (h *Harvester) rest(ctx context.Context, ep Endpoint) result {
	out := Outcome{Name: ep.Name, Kind: storage.KindREST, URL: ep.URL}
	page := h.get(ctx, ep.URL, &out)
	if page == nil {
		return result{out: out}
	}

	fields, err := fetch.DecodeJSON(page, extract.DefaultName, h.now())
	if err != nil {
		out.Err = err
		return result{out: out}
	}
	out.Fields = len(fields.Mined())
	return result{fields: fields, out: out}
}

func (h *Harvester) crawl(ctx context.Context, ct CrawlTarget, deny []string) result {
	out := Outcome{Name: ct.Name, Kind: storage.KindCrawl, URL: ct.URL}
	start := time.Now()
	res, err := fetch.Crawl(ctx, h.fetcher, ct.URL, fetch.CrawlOptions{
		MaxDepth:  ct.MaxDepth,
		MaxPages:  ct.MaxPages,
		DenyHosts: deny,
	})
	out.Elapsed = time.Since(start)
	if err != nil {
		out.Err = err
		return result{out: out}
	}
	fields := res.Fields(h.now())
	out.Fields = len(fields.Mined())
	return result{fields: fields, out: out}
}
