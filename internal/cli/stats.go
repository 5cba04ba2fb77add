package cli

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hobson/bitcrawl/internal/stats"
)

// Execute implements the go-flags Commander interface for StatsCommand.
func (c *StatsCommand) Execute(args []string) error {
	d, done, err := resolve(c.globals, c.deps, needLog)
	if err != nil {
		return err
	}
	defer done()
	return c.run(context.Background(), d, joinArgs(args))
}

type summaryJSON struct {
	Query    string    `json:"query"`
	Divisor  string    `json:"variance_divisor"`
	Count    int       `json:"count"`
	Mean     jsonFloat `json:"mean"`
	Variance jsonFloat `json:"variance"`
	StdDev   jsonFloat `json:"stddev"`
	Min      jsonFloat `json:"min"`
	Max      jsonFloat `json:"max"`
}

func (c *StatsCommand) run(ctx context.Context, d *deps, query string) error {
	if query == "" {
		return fmt.Errorf("stats requires a query such as mtgox.average")
	}
	div, err := divisor(d, c.Variance)
	if err != nil {
		return err
	}

	_, s, _, err := loadSeries(ctx, d, query, timeField(d, c.TimeField), c.Raw)
	if err != nil {
		return err
	}
	sum, err := stats.Summarize(s.Values, div)
	if err != nil {
		return fmt.Errorf("%s: %w", query, err)
	}

	if jsonOutput(c.globals) {
		return printJSON(summaryJSON{
			Query:    query,
			Divisor:  div.String(),
			Count:    sum.Count,
			Mean:     jsonFloat(sum.Mean),
			Variance: jsonFloat(sum.Variance),
			StdDev:   jsonFloat(sum.StdDev),
			Min:      jsonFloat(sum.Min),
			Max:      jsonFloat(sum.Max),
		})
	}

	t := newTable()
	t.SetTitle(query)
	t.AppendRows([]table.Row{
		{"Count", sum.Count},
		{"Mean", formatFloat(sum.Mean)},
		{"Variance (" + div.String() + ")", formatFloat(sum.Variance)},
		{"Std dev", formatFloat(sum.StdDev)},
		{"Min", formatFloat(sum.Min)},
		{"Max", formatFloat(sum.Max)},
	})
	t.Render()
	return nil
}
