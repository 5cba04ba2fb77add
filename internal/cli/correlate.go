package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hobson/bitcrawl/internal/series"
	"github.com/hobson/bitcrawl/internal/stats"
)

// Execute implements the go-flags Commander interface for CorrelateCommand.
func (c *CorrelateCommand) Execute(args []string) error {
	d, done, err := resolve(c.globals, c.deps, needLog)
	if err != nil {
		return err
	}
	defer done()
	return c.run(context.Background(), d, args)
}

type matrixJSON struct {
	Lead   int           `json:"lead"`
	Values [][]jsonFloat `json:"values"`
}

type correlateJSON struct {
	Labels   []string     `json:"labels"`
	Variance string       `json:"variance"`
	Samples  int          `json:"samples"`
	First    string       `json:"first"`
	Last     string       `json:"last"`
	Matrices []matrixJSON `json:"matrices"`
}

// run correlates every query against every other on the daily samples
// their series share. Dates given in the first query that names any
// override the shared span.
func (c *CorrelateCommand) run(ctx context.Context, d *deps, queries []string) error {
	if len(queries) < 2 {
		return fmt.Errorf("correlate needs at least two queries")
	}
	div, err := divisor(d, c.Variance)
	if err != nil {
		return err
	}
	leads := c.Lead
	if len(leads) == 0 {
		leads = d.cfg.Analysis.Leads
	}
	if len(leads) == 0 {
		leads = []int{0}
	}

	records, err := d.log.Load(ctx)
	if err != nil {
		return err
	}

	field := timeField(d, c.TimeField)
	list := make([]series.Series, len(queries))
	var targets []float64
	for i, query := range queries {
		q, s, _, err := buildSeries(records, query, field, true)
		if err != nil {
			return err
		}
		if s.Len() == 0 {
			return fmt.Errorf("%s: %w", query, series.ErrEmptySeries)
		}
		list[i] = s
		if targets == nil {
			targets = q.Targets()
		}
	}

	sort.Float64s(targets)
	tbl, err := series.Align(list, queries, targets)
	if err != nil {
		return err
	}

	matrices := make([]stats.Matrix, len(leads))
	for i, lead := range leads {
		m, err := stats.CorrelationMatrix(tbl.Labels, tbl.Columns, lead, div)
		if err != nil {
			return err
		}
		matrices[i] = m
	}

	first, last := tbl.Times[0], tbl.Times[len(tbl.Times)-1]
	if jsonOutput(c.globals) {
		out := correlateJSON{
			Labels:   tbl.Labels,
			Variance: div.String(),
			Samples:  len(tbl.Times),
			First:    ordinalLabel(first),
			Last:     ordinalLabel(last),
			Matrices: make([]matrixJSON, len(matrices)),
		}
		for i, m := range matrices {
			mj := matrixJSON{Lead: m.Lead, Values: make([][]jsonFloat, len(m.Values))}
			for r, row := range m.Values {
				mj.Values[r] = jsonFloats(row)
			}
			out.Matrices[i] = mj
		}
		return printJSON(out)
	}

	fmt.Printf("%s from %s to %s, %s variance\n", plural(len(tbl.Times), "daily sample"), ordinalLabel(first), ordinalLabel(last), div)
	for _, m := range matrices {
		fmt.Printf("\nLead %d:\n", m.Lead)
		t := newTable()
		header := table.Row{""}
		for _, l := range m.Labels {
			header = append(header, l)
		}
		t.AppendHeader(header)
		for r, row := range m.Values {
			line := table.Row{m.Labels[r]}
			for _, v := range row {
				line = append(line, formatFloat(v))
			}
			t.AppendRow(line)
		}
		t.Render()
	}
	return nil
}
