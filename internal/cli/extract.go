package cli

import (
	"context"
	"fmt"

	"github.com/hobson/bitcrawl/internal/extract"
)

// Execute implements the go-flags Commander interface for ExtractCommand.
func (c *ExtractCommand) Execute(args []string) error {
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

type extractJSON struct {
	Source  string `json:"source"`
	Prefix  string `json:"prefix"`
	Regex   string `json:"regex"`
	Suffix  string `json:"suffix,omitempty"`
	Matched bool   `json:"matched"`
	Value   string `json:"value,omitempty"`
}

func (c *ExtractCommand) run(ctx context.Context, d *deps) error {
	if c.Prefix == "" || c.Regex == "" {
		return fmt.Errorf("--prefix and --regex are required for extract command")
	}
	rule := extract.Rule{Prefix: c.Prefix, Value: c.Regex, Suffix: c.Suffix}
	if err := rule.Validate(); err != nil {
		return err
	}

	page, err := readPage(ctx, d, c.URL, c.File)
	if err != nil {
		return err
	}

	value, ok, err := rule.Extract(page)
	if err != nil {
		return err
	}

	source := c.URL
	if c.File != "" {
		source = c.File
	}

	if jsonOutput(c.globals) {
		return printJSON(extractJSON{
			Source:  source,
			Prefix:  c.Prefix,
			Regex:   c.Regex,
			Suffix:  c.Suffix,
			Matched: ok,
			Value:   value,
		})
	}

	if !ok {
		return fmt.Errorf("%s: %w", source, extract.ErrExtractionMiss)
	}
	fmt.Println(value)
	return nil
}
