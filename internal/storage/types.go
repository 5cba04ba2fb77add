package storage

import "time"

// Fetch kinds recorded in the journal.
const (
	KindPage  = "page"
	KindREST  = "rest"
	KindCrawl = "crawl"
)

// Fetch is one retrieval of a source page, REST endpoint or crawl target.
type Fetch struct {
	ID        string
	RunID     string
	Source    string
	Kind      string
	URL       string
	Domain    string
	Timestamp time.Time
	Status    int
	Bytes     int64
	Elapsed   time.Duration
	Fields    int // values mined from the response
	Misses    int // rules that matched nothing
	Error     string
}

// Failed reports whether the fetch or its decoding failed.
func (f Fetch) Failed() bool { return f.Error != "" }

// Run groups the fetches of one harvest.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Sources    int
	Failed     int
	Appended   bool
}

// SearchQuery defines filters for searching the fetch journal.
type SearchQuery struct {
	Query      string // substring of the URL
	Source     string
	Domain     string
	RunID      string
	Since      time.Time
	Until      time.Time
	FailedOnly bool
	Limit      int
	Offset     int
}

// Stats holds aggregate statistics about the fetch journal.
type Stats struct {
	TotalRuns     int64
	TotalFetches  int64
	FailedFetches int64
	OldestFetch   time.Time
	NewestFetch   time.Time
	AvgElapsed    time.Duration
	TopSources    []SourceCount
}

// SourceCount pairs a source with its fetch and failure counts.
type SourceCount struct {
	Source string
	Count  int64
	Failed int64
}
