package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/hobson/bitcrawl/internal/storage"
)

// Execute implements the go-flags Commander interface for ShowCommand.
func (c *ShowCommand) Execute(args []string) error {
	d, done, err := resolve(c.globals, c.deps, needJournal)
	if err != nil {
		return err
	}
	defer done()
	return c.run(context.Background(), d)
}

func (c *ShowCommand) run(ctx context.Context, d *deps) error {
	if c.ID == "" {
		return fmt.Errorf("--id is required for show command")
	}

	f, err := d.journal.GetFetch(ctx, c.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("fetch not found: %s", c.ID)
	}
	if err != nil {
		return err
	}

	if jsonOutput(c.globals) || c.Format == "json" {
		return printJSON(toFetchJSON(*f))
	}

	switch c.Format {
	case "url":
		fmt.Println(f.URL)
	case "md", "":
		c.outputMarkdown(f)
	default:
		return fmt.Errorf("unknown format %q (want md, json or url)", c.Format)
	}
	return nil
}

func (c *ShowCommand) outputMarkdown(f *storage.Fetch) {
	fmt.Println("---")
	fmt.Printf("id: %s\n", f.ID)
	fmt.Printf("run: %s\n", f.RunID)
	fmt.Printf("source: %s\n", f.Source)
	fmt.Printf("kind: %s\n", f.Kind)
	fmt.Printf("url: %s\n", f.URL)
	fmt.Printf("domain: %s\n", f.Domain)
	fmt.Printf("fetched: %s\n", f.Timestamp.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Printf("status: %d\n", f.Status)
	fmt.Printf("bytes: %d\n", f.Bytes)
	fmt.Printf("elapsed: %s\n", f.Elapsed)
	fmt.Println("---")
	fmt.Println()
	if f.Failed() {
		fmt.Printf("Failed: %s\n", f.Error)
		return
	}
	fmt.Printf("Mined %s", plural(f.Fields, "field"))
	if f.Misses > 0 {
		fmt.Printf(", %s missed", plural(f.Misses, "rule"))
	}
	fmt.Println(".")
}
