package fetch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hobson/bitcrawl/internal/record"
)

// Crawl field names.
const (
	KeyLinks = "links"
	KeyPages = "pages"
	KeyDepth = "depth"
)

// CrawlOptions bounds a crawl.
type CrawlOptions struct {
	MaxDepth  int
	MaxPages  int
	DenyHosts []string
}

// CrawlResult is the outcome of a crawl.
type CrawlResult struct {
	Start  string
	Links  []string // distinct links found, sorted
	Pages  int      // pages fetched successfully
	Failed int
	Depth  int // deepest level fetched
}

// Fields returns the field-dict stored for a crawl source.
func (r *CrawlResult) Fields(now time.Time) record.Fields {
	f := record.NewFields(r.Start, now)
	f[KeyLinks] = float64(len(r.Links))
	f[KeyPages] = float64(r.Pages)
	f[KeyDepth] = float64(r.Depth)
	return f
}

type queued struct {
	url   string
	depth int
}

// Crawl walks the link graph breadth first from start. Pages deeper than
// MaxDepth are not fetched and no more than MaxPages pages are fetched in
// total. A failure on the start page fails the crawl; later failures are
// counted and skipped.
func Crawl(ctx context.Context, f Fetcher, start string, opts CrawlOptions) (*CrawlResult, error) {
	ctx, span := tracer.Start(ctx, "crawl")
	defer span.End()

	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}

	res := &CrawlResult{Start: start}
	seen := map[string]bool{start: true}
	found := map[string]bool{}
	queue := []queued{{url: start}}

	for len(queue) > 0 && res.Pages+res.Failed < opts.MaxPages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := queue[0]
		queue = queue[1:]

		page, err := f.Fetch(ctx, next.url)
		if err != nil {
			if next.url == start {
				return nil, err
			}
			slog.Warn("crawl fetch failed", "url", next.url, "depth", next.depth, "err", err)
			res.Failed++
			continue
		}
		res.Pages++
		if next.depth > res.Depth {
			res.Depth = next.depth
		}

		base, err := url.Parse(page.URL)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page.URL, err)
		}
		links, err := Links(base, page.Body)
		if err != nil {
			slog.Warn("crawl parse failed", "url", next.url, "err", err)
			continue
		}

		for _, link := range links {
			if denied(link, opts.DenyHosts) {
				continue
			}
			found[link] = true
			if next.depth < opts.MaxDepth && !seen[link] {
				seen[link] = true
				queue = append(queue, queued{url: link, depth: next.depth + 1})
			}
		}
	}

	res.Links = make([]string, 0, len(found))
	for link := range found {
		res.Links = append(res.Links, link)
	}
	sort.Strings(res.Links)

	span.SetAttributes(
		attribute.Int("crawl.pages", res.Pages),
		attribute.Int("crawl.links", len(res.Links)),
		attribute.Int("crawl.depth", res.Depth),
	)
	return res, nil
}

// Links returns the distinct absolute http(s) links of an HTML page in
// document order. Fragments are dropped, as are mailto: and javascript:
// targets.
func Links(base *url.URL, body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var out []string
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		abs.Fragment = ""
		abs.RawFragment = ""
		link := abs.String()
		if !seen[link] {
			seen[link] = true
			out = append(out, link)
		}
	})
	return out, nil
}

// denied reports whether the host of link is one of hosts or a subdomain of one.
func denied(link string, hosts []string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return true
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range hosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
