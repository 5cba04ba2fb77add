package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}
	if !c.Force {
		if err := c.confirm(); err != nil {
			return err
		}
	}

	d, done, err := resolve(c.globals, c.deps, needJournal)
	if err != nil {
		return err
	}
	defer done()
	return c.run(context.Background(), d)
}

func (c *PurgeCommand) confirm() error {
	fmt.Println("⚠ WARNING: This will permanently delete the fetch journal.")
	fmt.Println("  - All harvest runs")
	fmt.Println("  - All fetch entries")
	fmt.Println()
	fmt.Println("The record log is not touched. This action cannot be undone.")
	fmt.Println()
	fmt.Print(`Type "PURGE" to confirm: `)

	var in io.Reader = os.Stdin
	if c.in != nil {
		in = c.in
	}
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("aborted: no input received")
	}
	if strings.TrimSpace(scanner.Text()) != "PURGE" {
		return fmt.Errorf("aborted: confirmation text did not match")
	}
	return nil
}

func (c *PurgeCommand) run(ctx context.Context, d *deps) error {
	if err := d.journal.PurgeAll(ctx); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	if jsonOutput(c.globals) {
		return printJSON(map[string]any{
			"purged":  true,
			"message": "fetch journal deleted",
		})
	}
	fmt.Println("Purged the fetch journal. The record log is unchanged.")
	return nil
}
