package cli

import (
	"context"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hobson/bitcrawl/internal/extract"
)

// Execute implements the go-flags Commander interface for WordsCommand.
func (c *WordsCommand) Execute(args []string) error {
	n := need(0)
	if c.File == "" {
		n = needFetcher
	}
	d, done, err := resolve(c.globals, c.deps, n)
	if err != nil {
		return err
	}
	defer done()
	return c.run(context.Background(), d)
}

func (c *WordsCommand) run(ctx context.Context, d *deps) error {
	page, err := readPage(ctx, d, c.URL, c.File)
	if err != nil {
		return err
	}
	text, err := extract.PageText(page)
	if err != nil {
		return err
	}

	words := extract.WordHistogram(text)
	total := len(words)
	if c.Top > 0 && len(words) > c.Top {
		words = words[:c.Top]
	}

	if jsonOutput(c.globals) {
		return printJSON(struct {
			Distinct int                 `json:"distinct"`
			Words    []extract.WordCount `json:"words"`
		}{total, words})
	}

	t := newTable()
	t.AppendHeader(table.Row{"Word", "Count"})
	for _, w := range words {
		t.AppendRow(table.Row{w.Word, w.Count})
	}
	t.AppendFooter(table.Row{"distinct", total})
	t.Render()
	return nil
}
