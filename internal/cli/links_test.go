package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobson/bitcrawl/internal/fetch"
)

func linkDeps(t *testing.T) *deps {
	d := testDeps(t)
	d.fetcher = &fakeFetcher{pages: map[string]string{
		"https://wiki.test/Trade": `<a href="/A">a</a><a href="/B#top">b</a><a href="https://facebook.com/share">f</a>`,
		"https://wiki.test/A":     `<a href="/C">c</a>`,
	}}
	d.cfg.Crawl.DenyHosts = []string{"facebook.com"}
	return d
}

func TestLinks_CountsAndAppends(t *testing.T) {
	d := linkDeps(t)
	cmd := &LinksCommand{URL: "https://wiki.test/Trade", Name: "trade_links", Depth: 1, MaxPages: 10, Append: true, globals: &GlobalFlags{JSON: true}}

	var err error
	output := captureOutput(t, func() { err = cmd.run(context.Background(), d) })
	require.NoError(t, err)

	var out linksJSON
	require.NoError(t, json.Unmarshal([]byte(output), &out))
	assert.True(t, out.Appended)
	assert.Contains(t, out.Links, "https://wiki.test/B")
	assert.Contains(t, out.Links, "https://wiki.test/C")
	assert.Equal(t, len(out.Links), out.Count)
	assert.Equal(t, 1, out.Failed, "B is not in the fake")

	records, err := d.log.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, float64(out.Count), records[0]["trade_links"][fetch.KeyLinks])
}

func TestLinks_HumanOutput(t *testing.T) {
	d := linkDeps(t)
	cmd := &LinksCommand{URL: "https://wiki.test/Trade", Depth: 0, MaxPages: 10, globals: &GlobalFlags{}}

	var err error
	output := captureOutput(t, func() { err = cmd.run(context.Background(), d) })
	require.NoError(t, err)
	assert.Contains(t, output, "https://wiki.test/A")
	assert.Contains(t, output, "from 1 page (depth 0)")
}

func TestLinks_Errors(t *testing.T) {
	d := linkDeps(t)
	assert.Error(t, (&LinksCommand{}).run(context.Background(), d))
	assert.Error(t, (&LinksCommand{URL: "https://wiki.test/missing", MaxPages: 1}).run(context.Background(), d))
}
