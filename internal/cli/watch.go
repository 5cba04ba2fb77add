package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Execute implements the go-flags Commander interface for WatchCommand.
func (c *WatchCommand) Execute(args []string) error {
	d, done, err := resolve(c.globals, c.deps, needLog|needJournal|needFetcher)
	if err != nil {
		return err
	}
	defer done()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.run(ctx, d)
}

func (c *WatchCommand) interval(d *deps) (time.Duration, error) {
	if c.Interval != "" {
		iv, err := time.ParseDuration(c.Interval)
		if err != nil {
			return 0, fmt.Errorf("invalid --interval %q: %w", c.Interval, err)
		}
		if iv <= 0 {
			return 0, fmt.Errorf("--interval must be positive")
		}
		return iv, nil
	}
	if d.cfg.Watch.IntervalMinutes <= 0 {
		return 0, fmt.Errorf("watch.interval_minutes must be positive")
	}
	return time.Duration(d.cfg.Watch.IntervalMinutes) * time.Minute, nil
}

// run harvests once per interval until ctx is done or Count runs finish.
// A failed run is logged and the next one still happens.
func (c *WatchCommand) run(ctx context.Context, d *deps) error {
	iv, err := c.interval(d)
	if err != nil {
		return err
	}
	plan, err := selectSources(d.cfg.Plan(), c.Source)
	if err != nil {
		return err
	}

	slog.Info("watching", "sources", plan.Len(), "interval", iv, "count", c.Count)

	ticker := time.NewTicker(iv)
	defer ticker.Stop()

	for runs := 1; ; runs++ {
		res, err := harvestOnce(ctx, d, plan, c.DryRun)
		switch {
		case errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			slog.Error("harvest run failed", "run", runs, "err", err)
		case jsonOutput(c.globals):
			if err := printJSON(res.toJSON()); err != nil {
				return err
			}
		default:
			fmt.Printf("[%s] run %d\n", d.now().Format(time.DateTime), runs)
			res.printHuman()
		}

		if c.Count > 0 && runs >= c.Count {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
