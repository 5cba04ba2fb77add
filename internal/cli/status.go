package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hobson/bitcrawl/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version          string            `json:"version"`
	LogPath          string            `json:"log_path"`
	LogSizeBytes     int64             `json:"log_size_bytes"`
	Records          int               `json:"records"`
	FirstRecord      string            `json:"first_record,omitempty"`
	LastRecord       string            `json:"last_record,omitempty"`
	Sources          []sourceCountJSON `json:"sources"`
	JournalPath      string            `json:"journal_path,omitempty"`
	JournalSizeBytes int64             `json:"journal_size_bytes"`
	TotalRuns        int64             `json:"total_runs"`
	TotalFetches     int64             `json:"total_fetches"`
	FailedFetches    int64             `json:"failed_fetches"`
	AvgElapsedMillis int64             `json:"avg_elapsed_ms"`
	RetentionDays    int               `json:"retention_days"`
	ConfiguredPlan   int               `json:"configured_sources"`
}

type sourceCountJSON struct {
	Source  string `json:"source"`
	Records int    `json:"records"`
	Fetches int64  `json:"fetches"`
	Failed  int64  `json:"failed"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	d, done, err := resolve(c.globals, c.deps, needLog|needJournal)
	if err != nil {
		return err
	}
	defer done()
	return c.run(context.Background(), d)
}

func (c *StatusCommand) run(ctx context.Context, d *deps) error {
	sum, err := d.log.Summary(ctx)
	if err != nil {
		return fmt.Errorf("read record log: %w", err)
	}
	st, err := d.journal.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	var journalSize int64
	if d.journalPath != "" {
		if info, err := os.Stat(d.journalPath); err == nil {
			journalSize = info.Size()
		}
	}

	if jsonOutput(c.globals) {
		return c.printJSON(d, sum, st, journalSize)
	}
	return c.printHuman(d, sum, st, journalSize)
}

// sourceRows merges per-source record counts with journal fetch counts.
func sourceRows(sum *storage.LogSummary, st *storage.Stats) []sourceCountJSON {
	var rows []sourceCountJSON
	index := make(map[string]int)
	for _, s := range sum.Sources {
		index[s.Source] = len(rows)
		rows = append(rows, sourceCountJSON{Source: s.Source, Records: s.Count})
	}
	for _, s := range st.TopSources {
		i, ok := index[s.Source]
		if !ok {
			i = len(rows)
			index[s.Source] = i
			rows = append(rows, sourceCountJSON{Source: s.Source})
		}
		rows[i].Fetches = s.Count
		rows[i].Failed = s.Failed
	}
	return rows
}

func (c *StatusCommand) printHuman(d *deps, sum *storage.LogSummary, st *storage.Stats, journalSize int64) error {
	fmt.Println("Bitcrawl Status")
	fmt.Println("===============")
	fmt.Printf("Version:       %s\n", c.version)
	fmt.Printf("Record log:    %s (%s)\n", sum.Path, humanize.Bytes(uint64(sum.SizeBytes)))
	fmt.Printf("Records:       %s\n", humanize.Comma(int64(sum.Records)))
	if !sum.First.IsZero() {
		fmt.Printf("First:         %s\n", sum.First.Format("2006-01-02 15:04"))
		fmt.Printf("Last:          %s (%s)\n", sum.Last.Format("2006-01-02 15:04"), humanize.Time(sum.Last))
	}

	fmt.Println()
	if d.journalPath != "" {
		fmt.Printf("Journal:       %s (%s)\n", d.journalPath, humanize.Bytes(uint64(journalSize)))
	}
	fmt.Printf("Runs:          %s\n", humanize.Comma(st.TotalRuns))
	if st.TotalFetches > 0 {
		pct := float64(st.FailedFetches) / float64(st.TotalFetches) * 100
		fmt.Printf("Fetches:       %s (%.1f%% failed)\n", humanize.Comma(st.TotalFetches), pct)
		fmt.Printf("Avg fetch:     %s\n", st.AvgElapsed.Round(time.Millisecond))
		fmt.Printf("Newest fetch:  %s\n", humanize.Time(st.NewestFetch))
	} else {
		fmt.Printf("Fetches:       0\n")
	}
	fmt.Printf("Retention:     %s\n", plural(d.cfg.Retention.JournalDays, "day"))
	fmt.Printf("Configured:    %s\n", plural(d.cfg.Plan().Len(), "source"))

	rows := sourceRows(sum, st)
	if len(rows) > 0 {
		fmt.Println()
		t := newTable()
		t.AppendHeader(table.Row{"Source", "Records", "Fetches", "Failed"})
		for _, r := range rows {
			t.AppendRow(table.Row{r.Source, humanize.Comma(int64(r.Records)), humanize.Comma(r.Fetches), humanize.Comma(r.Failed)})
		}
		t.Render()
	}
	return nil
}

func (c *StatusCommand) printJSON(d *deps, sum *storage.LogSummary, st *storage.Stats, journalSize int64) error {
	out := statusJSON{
		Version:          c.version,
		LogPath:          sum.Path,
		LogSizeBytes:     sum.SizeBytes,
		Records:          sum.Records,
		Sources:          sourceRows(sum, st),
		JournalPath:      d.journalPath,
		JournalSizeBytes: journalSize,
		TotalRuns:        st.TotalRuns,
		TotalFetches:     st.TotalFetches,
		FailedFetches:    st.FailedFetches,
		AvgElapsedMillis: st.AvgElapsed.Milliseconds(),
		RetentionDays:    d.cfg.Retention.JournalDays,
		ConfiguredPlan:   d.cfg.Plan().Len(),
	}
	if out.Sources == nil {
		out.Sources = []sourceCountJSON{}
	}
	if !sum.First.IsZero() {
		out.FirstRecord = sum.First.Format(time.RFC3339)
		out.LastRecord = sum.Last.Format(time.RFC3339)
	}
	return printJSON(out)
}
