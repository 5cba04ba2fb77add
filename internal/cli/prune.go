package cli

import (
	"context"
	"fmt"
	"time"
)

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	d, done, err := resolve(c.globals, c.deps, needJournal)
	if err != nil {
		return err
	}
	defer done()
	return c.run(context.Background(), d)
}

func (c *PruneCommand) retention(d *deps) (time.Duration, error) {
	if c.OlderThan != "" {
		dur, err := parseDuration(c.OlderThan)
		if err != nil {
			return 0, fmt.Errorf("invalid --older-than value %q: %w", c.OlderThan, err)
		}
		return dur, nil
	}
	days := d.cfg.Retention.JournalDays
	if days <= 0 {
		return 0, fmt.Errorf("retention.journal_days must be positive to prune without --older-than")
	}
	return time.Duration(days) * 24 * time.Hour, nil
}

// run deletes journal fetches older than the retention period. The record
// log is never pruned.
func (c *PruneCommand) run(ctx context.Context, d *deps) error {
	dur, err := c.retention(d)
	if err != nil {
		return err
	}
	cutoff := d.now().Add(-dur)

	var n int64
	if c.DryRun {
		n, err = d.journal.CountExpired(ctx, cutoff)
	} else {
		n, err = d.journal.PruneExpired(ctx, cutoff)
	}
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}

	if jsonOutput(c.globals) {
		return printJSON(struct {
			DryRun    bool   `json:"dry_run"`
			OlderThan string `json:"older_than"`
			Cutoff    string `json:"cutoff"`
			Fetches   int64  `json:"fetches"`
		}{c.DryRun, formatDurationHuman(dur), cutoff.UTC().Format(time.RFC3339), n})
	}

	if c.DryRun {
		fmt.Printf("Would prune %s older than %s.\n", plural(int(n), "fetch"), formatDurationHuman(dur))
		return nil
	}
	fmt.Printf("Pruned %s older than %s.\n", plural(int(n), "fetch"), formatDurationHuman(dur))
	return nil
}
