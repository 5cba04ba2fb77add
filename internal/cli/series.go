package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hobson/bitcrawl/internal/series"
)

// Execute implements the go-flags Commander interface for SeriesCommand.
func (c *SeriesCommand) Execute(args []string) error {
	d, done, err := resolve(c.globals, c.deps, needLog)
	if err != nil {
		return err
	}
	defer done()
	return c.run(context.Background(), d, joinArgs(args))
}

type pointJSON struct {
	Ordinal  float64   `json:"ordinal"`
	Datetime string    `json:"datetime"`
	Value    jsonFloat `json:"value"`
}

type seriesJSON struct {
	Query     string      `json:"query"`
	Resampled bool        `json:"resampled"`
	Offset    float64     `json:"offset,omitempty"`
	Span      float64     `json:"span,omitempty"`
	Skipped   int         `json:"skipped"`
	Points    []pointJSON `json:"points"`
}

func (c *SeriesCommand) run(ctx context.Context, d *deps, query string) error {
	if query == "" {
		return fmt.Errorf("series requires a query such as mtgox.average")
	}

	_, s, skips, err := loadSeries(ctx, d, query, timeField(d, c.TimeField), c.Raw)
	if err != nil {
		return err
	}
	if len(skips) > 0 {
		slog.Debug("records skipped", "query", query, "count", len(skips))
	}

	values := s.Values
	var offset, span float64
	if c.Normalize {
		values, offset, span = series.Normalize(values)
	}

	if jsonOutput(c.globals) {
		out := seriesJSON{
			Query:     query,
			Resampled: !c.Raw,
			Offset:    offset,
			Span:      span,
			Skipped:   len(skips),
			Points:    make([]pointJSON, s.Len()),
		}
		for i, x := range s.Times {
			out.Points[i] = pointJSON{Ordinal: x, Datetime: ordinalLabel(x), Value: jsonFloat(values[i])}
		}
		return printJSON(out)
	}

	t := newTable()
	t.AppendHeader(table.Row{"Datetime", "Ordinal", "Value"})
	for i, x := range s.Times {
		t.AppendRow(table.Row{ordinalLabel(x), formatFloat(x), formatFloat(values[i])})
	}
	t.Render()

	fmt.Printf("%s from %s", plural(s.Len(), "point"), query)
	if len(skips) > 0 {
		fmt.Printf(" (%s skipped)", plural(len(skips), "record"))
	}
	fmt.Println()
	if c.Normalize {
		fmt.Printf("Normalized: value = scaled*%s + %s\n", formatFloat(span), formatFloat(offset))
	}
	return nil
}
