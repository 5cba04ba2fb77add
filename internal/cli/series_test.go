package cli

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobson/bitcrawl/internal/series"
)

func runSeries(t *testing.T, cmd *SeriesCommand, query string) (seriesJSON, error) {
	t.Helper()
	d := testDeps(t)
	seedLog(t, d)
	cmd.globals = &GlobalFlags{JSON: true}

	var err error
	output := captureOutput(t, func() { err = cmd.run(context.Background(), d, query) })
	var out seriesJSON
	if err == nil {
		require.NoError(t, json.Unmarshal([]byte(output), &out))
	}
	return out, err
}

func TestSeries_ResamplesDaily(t *testing.T) {
	out, err := runSeries(t, &SeriesCommand{}, "mtgox.average")
	require.NoError(t, err)

	assert.True(t, out.Resampled)
	require.Len(t, out.Points, 7)
	assert.Equal(t, "2012-04-10 00:00", out.Points[0].Datetime)
	assert.Equal(t, "2012-04-16 00:00", out.Points[6].Datetime)

	// Before the first sample the value is held flat.
	assert.InDelta(t, 4.0, float64(out.Points[0].Value), 1e-9)
	// Midnight sits halfway between two noon samples.
	assert.InDelta(t, 4.05, float64(out.Points[1].Value), 1e-9)
}

func TestSeries_Raw(t *testing.T) {
	out, err := runSeries(t, &SeriesCommand{Raw: true}, "network.difficulty")
	require.NoError(t, err)

	assert.False(t, out.Resampled)
	values := make([]float64, len(out.Points))
	for i, p := range out.Points {
		values[i] = float64(p.Value)
	}
	want := []float64{1000, 1020, 1040, 1060, 1080, 1100, 1120}
	if diff := cmp.Diff(want, values, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("raw values mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "2012-04-10 12:00", out.Points[0].Datetime)
}

func TestSeries_DateRange(t *testing.T) {
	out, err := runSeries(t, &SeriesCommand{}, "mtgox.average date:2012-04-12 date:2012-04-14")
	require.NoError(t, err)
	require.Len(t, out.Points, 3)
	assert.Equal(t, "2012-04-12 00:00", out.Points[0].Datetime)
}

func TestSeries_Normalize(t *testing.T) {
	out, err := runSeries(t, &SeriesCommand{Raw: true, Normalize: true}, "network.difficulty")
	require.NoError(t, err)
	assert.InDelta(t, 1000, out.Offset, 1e-9)
	assert.InDelta(t, 120, out.Span, 1e-9)
	assert.InDelta(t, 0, float64(out.Points[0].Value), 1e-9)
	assert.InDelta(t, 1, float64(out.Points[6].Value), 1e-9)
}

func TestSeries_Errors(t *testing.T) {
	_, err := runSeries(t, &SeriesCommand{}, "")
	assert.Error(t, err)

	_, err = runSeries(t, &SeriesCommand{}, "nodot")
	assert.True(t, errors.Is(err, series.ErrBadQuery))

	_, err = runSeries(t, &SeriesCommand{}, "cointron.hash_rate")
	assert.True(t, errors.Is(err, series.ErrEmptySeries))
}

func TestSeries_HumanTable(t *testing.T) {
	d := testDeps(t)
	seedLog(t, d)
	cmd := &SeriesCommand{Raw: true, globals: &GlobalFlags{}}

	var err error
	output := captureOutput(t, func() { err = cmd.run(context.Background(), d, "mtgox.average") })
	require.NoError(t, err)
	assert.Contains(t, output, "2012-04-13 12:00")
	assert.Contains(t, output, "7 points from mtgox.average")
}
