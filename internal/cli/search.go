package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hobson/bitcrawl/internal/storage"
)

// Execute implements the go-flags Commander interface for SearchCommand.
func (c *SearchCommand) Execute(args []string) error {
	d, done, err := resolve(c.globals, c.deps, needJournal)
	if err != nil {
		return err
	}
	defer done()
	return c.run(context.Background(), d, joinArgs(args))
}

func (c *SearchCommand) query(now time.Time, text string) (storage.SearchQuery, error) {
	var since time.Time
	if c.Since != "" {
		dur, err := parseDuration(c.Since)
		if err != nil {
			return storage.SearchQuery{}, fmt.Errorf("invalid --since value %q: %w", c.Since, err)
		}
		since = now.Add(-dur)
	}

	var until time.Time
	if c.Until != "" {
		dur, err := parseDuration(c.Until)
		if err != nil {
			return storage.SearchQuery{}, fmt.Errorf("invalid --until value %q: %w", c.Until, err)
		}
		until = now.Add(-dur)
	}

	return storage.SearchQuery{
		Query:      text,
		Source:     c.Source,
		Domain:     c.Domain,
		RunID:      c.Run,
		Since:      since,
		Until:      until,
		FailedOnly: c.Failed,
		Limit:      c.Limit,
		Offset:     c.Offset,
	}, nil
}

// run searches the journal; text matches a substring of the fetched URL.
func (c *SearchCommand) run(ctx context.Context, d *deps, text string) error {
	sq, err := c.query(d.now(), text)
	if err != nil {
		return err
	}

	results, err := d.journal.SearchFetches(ctx, sq)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput(c.globals) {
		return c.printJSON(text, results)
	}
	return c.printHuman(text, results)
}

func (c *SearchCommand) printHuman(text string, results []storage.Fetch) error {
	scope := fmt.Sprintf("since %s", c.Since)
	if c.Since == "" {
		scope = "all time"
	}
	if len(results) == 0 {
		if text != "" {
			fmt.Printf("No fetches found for %q (%s)\n", text, scope)
		} else {
			fmt.Printf("No fetches found (%s)\n", scope)
		}
		return nil
	}

	if text != "" {
		fmt.Printf("Found %s for %q (%s)\n", plural(len(results), "fetch"), text, scope)
	} else {
		fmt.Printf("Found %s (%s)\n", plural(len(results), "fetch"), scope)
	}

	t := newTable()
	t.AppendHeader(table.Row{"#", "ID", "Time", "Source", "Kind", "Status", "Fields", "Error"})
	for i, f := range results {
		t.AppendRow(table.Row{
			i + 1 + c.Offset,
			shortID(f.ID),
			f.Timestamp.Local().Format("2006-01-02 15:04"),
			f.Source,
			f.Kind,
			f.Status,
			f.Fields,
			f.Error,
		})
	}
	t.Render()
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type fetchJSON struct {
	ID            string `json:"id"`
	RunID         string `json:"run_id"`
	Source        string `json:"source"`
	Kind          string `json:"kind"`
	URL           string `json:"url"`
	Domain        string `json:"domain"`
	Timestamp     string `json:"timestamp"`
	Status        int    `json:"status"`
	Bytes         int64  `json:"bytes"`
	ElapsedMillis int64  `json:"elapsed_ms"`
	Fields        int    `json:"fields"`
	Misses        int    `json:"misses"`
	Error         string `json:"error,omitempty"`
}

func toFetchJSON(f storage.Fetch) fetchJSON {
	return fetchJSON{
		ID:            f.ID,
		RunID:         f.RunID,
		Source:        f.Source,
		Kind:          f.Kind,
		URL:           f.URL,
		Domain:        f.Domain,
		Timestamp:     f.Timestamp.UTC().Format(time.RFC3339),
		Status:        f.Status,
		Bytes:         f.Bytes,
		ElapsedMillis: f.Elapsed.Milliseconds(),
		Fields:        f.Fields,
		Misses:        f.Misses,
		Error:         f.Error,
	}
}

type searchJSON struct {
	Count   int         `json:"count"`
	Query   string      `json:"query"`
	Results []fetchJSON `json:"results"`
}

func (c *SearchCommand) printJSON(text string, results []storage.Fetch) error {
	out := searchJSON{
		Count:   len(results),
		Query:   text,
		Results: make([]fetchJSON, len(results)),
	}
	for i, f := range results {
		out.Results[i] = toFetchJSON(f)
	}
	return printJSON(out)
}
