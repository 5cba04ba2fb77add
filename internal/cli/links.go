package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/hobson/bitcrawl/internal/fetch"
	"github.com/hobson/bitcrawl/internal/record"
)

// Execute implements the go-flags Commander interface for LinksCommand.
func (c *LinksCommand) Execute(args []string) error {
	n := needFetcher
	if c.Append {
		n |= needLog
	}
	d, done, err := resolve(c.globals, c.deps, n)
	if err != nil {
		return err
	}
	defer done()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return c.run(ctx, d)
}

type linksJSON struct {
	Start    string   `json:"start"`
	Pages    int      `json:"pages"`
	Failed   int      `json:"failed"`
	Depth    int      `json:"depth"`
	Count    int      `json:"count"`
	Links    []string `json:"links"`
	Appended bool     `json:"appended"`
}

func (c *LinksCommand) run(ctx context.Context, d *deps) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for links command")
	}

	res, err := fetch.Crawl(ctx, d.fetcher, c.URL, fetch.CrawlOptions{
		MaxDepth:  c.Depth,
		MaxPages:  c.MaxPages,
		DenyHosts: d.cfg.Crawl.DenyHosts,
	})
	if err != nil {
		return err
	}

	name := c.Name
	if name == "" {
		name = "links"
	}
	if c.Append {
		if err := d.log.Append(ctx, record.Record{name: res.Fields(d.now())}); err != nil {
			return err
		}
	}

	if jsonOutput(c.globals) {
		return printJSON(linksJSON{
			Start:    res.Start,
			Pages:    res.Pages,
			Failed:   res.Failed,
			Depth:    res.Depth,
			Count:    len(res.Links),
			Links:    res.Links,
			Appended: c.Append,
		})
	}

	for _, link := range res.Links {
		fmt.Println(link)
	}
	fmt.Printf("\n%s from %s (depth %d", plural(len(res.Links), "link"), plural(res.Pages, "page"), res.Depth)
	if res.Failed > 0 {
		fmt.Printf(", %d failed", res.Failed)
	}
	fmt.Println(")")
	if c.Append {
		fmt.Printf("Appended %s to %s\n", name, d.log.Path())
	}
	return nil
}
