// Package fetch retrieves pages for mining: plain HTTP pages, REST JSON
// endpoints and breadth-first link crawls.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("bitcrawl/fetch")

// Page is the body of one retrieved URL.
type Page struct {
	URL       string
	Status    int
	Body      []byte
	Truncated bool
	Elapsed   time.Duration
	FetchedAt time.Time
}

// Text returns the body as a string.
func (p *Page) Text() string {
	if p == nil {
		return ""
	}
	return string(p.Body)
}

// Fetcher retrieves the page at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// StatusError is returned for responses with a status of 400 or above.
// The page is still returned alongside it.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d %s", e.URL, e.Status, http.StatusText(e.Status))
}

// Options configures a Client.
type Options struct {
	Timeout           time.Duration
	Retries           int
	RetryWait         time.Duration
	UserAgent         string
	MaxBytes          int64
	MaxRedirects      int
	RequestsPerSecond float64
	Burst             int
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Timeout:           30 * time.Second,
		Retries:           2,
		RetryWait:         time.Second,
		UserAgent:         "bitcrawl/1.0 (+https://github.com/hobson/bitcrawl)",
		MaxBytes:          8 << 20,
		MaxRedirects:      10,
		RequestsPerSecond: 2,
		Burst:             4,
	}
}

// Client is a Fetcher backed by resty. It keeps cookies between requests,
// follows redirects, retries transient failures and throttles requests.
type Client struct {
	http     *resty.Client
	limiter  *rate.Limiter
	maxBytes int64
}

// NewClient builds a Client from opts. A zero RequestsPerSecond disables
// throttling.
func NewClient(opts Options) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	hc := resty.New()
	hc.SetCookieJar(jar)
	hc.SetTimeout(opts.Timeout)
	hc.SetRetryCount(opts.Retries)
	hc.SetRetryWaitTime(opts.RetryWait)
	hc.SetRetryMaxWaitTime(opts.RetryWait * 4)
	hc.AddRetryCondition(retryable)
	hc.SetRedirectPolicy(resty.FlexibleRedirectPolicy(opts.MaxRedirects))
	if opts.UserAgent != "" {
		hc.SetHeader("User-Agent", opts.UserAgent)
	}

	c := &Client{http: hc, maxBytes: opts.MaxBytes}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c, nil
}

func retryable(res *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	code := res.StatusCode()
	return code == http.StatusTooManyRequests || code >= 500
}

// Fetch retrieves url. Bodies longer than MaxBytes are cut and the page is
// marked Truncated.
func (c *Client) Fetch(ctx context.Context, url string) (*Page, error) {
	ctx, span := tracer.Start(ctx, "fetch", trace.WithAttributes(attribute.String("url", url)))
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("throttle: %w", err)
		}
	}

	start := time.Now()
	res, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}

	page := &Page{
		URL:       url,
		Status:    res.StatusCode(),
		Body:      res.Body(),
		Elapsed:   time.Since(start),
		FetchedAt: start,
	}
	if c.maxBytes > 0 && int64(len(page.Body)) > c.maxBytes {
		page.Body = page.Body[:c.maxBytes]
		page.Truncated = true
	}

	span.SetAttributes(
		attribute.Int("http.status_code", page.Status),
		attribute.Int("http.response_size", len(page.Body)),
		attribute.Bool("truncated", page.Truncated),
	)

	if page.Status >= 400 {
		err := &StatusError{URL: url, Status: page.Status}
		span.SetStatus(codes.Error, err.Error())
		return page, err
	}
	return page, nil
}
