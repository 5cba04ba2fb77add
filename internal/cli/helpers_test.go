package cli

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobson/bitcrawl/internal/stats"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"7d", 7 * 24 * time.Hour},
		{"24h", 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{"15m", 15 * time.Minute},
		{"30s", 30 * time.Second},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "d", "abc", "7y", "-1d", "0d", "-2w"} {
		_, err := parseDuration(bad)
		assert.Error(t, err, bad)
	}

	_, err := parseDuration("-1d")
	assert.ErrorContains(t, err, "must be positive")
}

func TestFormatDurationHuman(t *testing.T) {
	assert.Equal(t, "1 day", formatDurationHuman(24*time.Hour))
	assert.Equal(t, "30 days", formatDurationHuman(30*24*time.Hour))
	assert.Equal(t, "1 hour", formatDurationHuman(time.Hour))
	assert.Equal(t, "5 hours", formatDurationHuman(5*time.Hour))
	assert.Equal(t, "30m0s", formatDurationHuman(30*time.Minute))
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "1 source", plural(1, "source"))
	assert.Equal(t, "0 sources", plural(0, "source"))
	assert.Equal(t, "2 fetches", plural(2, "fetch"))
}

func TestJSONFloat(t *testing.T) {
	data, err := json.Marshal(jsonFloats([]float64{1.5, math.NaN(), math.Inf(1)}))
	require.NoError(t, err)
	assert.JSONEq(t, `[1.5, null, null]`, string(data))
}

func TestResolveInjected(t *testing.T) {
	injected := &deps{}
	d, done, err := resolve(nil, injected, needLog|needJournal)
	require.NoError(t, err)
	done()
	assert.Same(t, injected, d)
	require.NotNil(t, d.cfg)
	assert.NotNil(t, d.now)
}

func TestDefaultsFromConfig(t *testing.T) {
	d := testDeps(t)
	assert.Equal(t, "datetime", timeField(d, ""))
	assert.Equal(t, "ts", timeField(d, "ts"))

	div, err := divisor(d, "")
	require.NoError(t, err)
	assert.Equal(t, stats.Population, div)
	div, err = divisor(d, "sample")
	require.NoError(t, err)
	assert.Equal(t, stats.Sample, div)
}

func TestBuildSeriesSharesOneLoad(t *testing.T) {
	d := testDeps(t)
	seedLog(t, d)
	records, err := d.log.Load(context.Background())
	require.NoError(t, err)

	for _, query := range []string{"mtgox.average", "network.difficulty"} {
		_, want, _, err := loadSeries(context.Background(), d, query, "datetime", true)
		require.NoError(t, err)
		_, got, _, err := buildSeries(records, query, "datetime", true)
		require.NoError(t, err)
		assert.Equal(t, want, got, query)
		assert.Equal(t, 7, got.Len(), query)
	}

	_, _, _, err = buildSeries(records, "", "datetime", true)
	assert.Error(t, err)
}
