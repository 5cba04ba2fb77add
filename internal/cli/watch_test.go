package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_StopsAfterCount(t *testing.T) {
	d := testDeps(t)
	cmd := &WatchCommand{Interval: "1ms", Count: 3, Source: []string{"mtgox"}, globals: &GlobalFlags{}, deps: d}

	var err error
	output := captureOutput(t, func() { err = cmd.run(context.Background(), d) })
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(output, "Appended 1 source"))

	records, err := d.log.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestWatch_CanceledContextReturnsNil(t *testing.T) {
	d := testDeps(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := &WatchCommand{Interval: "1h", globals: &GlobalFlags{}, deps: d}
	captureOutput(t, func() { assert.NoError(t, cmd.run(ctx, d)) })
}

func TestWatch_Interval(t *testing.T) {
	d := testDeps(t)

	iv, err := (&WatchCommand{}).interval(d)
	require.NoError(t, err)
	assert.Equal(t, 60*time.Minute, iv)

	iv, err = (&WatchCommand{Interval: "90s"}).interval(d)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, iv)

	_, err = (&WatchCommand{Interval: "soon"}).interval(d)
	assert.Error(t, err)
	_, err = (&WatchCommand{Interval: "-1m"}).interval(d)
	assert.Error(t, err)

	d.cfg.Watch.IntervalMinutes = 0
	_, err = (&WatchCommand{}).interval(d)
	assert.Error(t, err)
}
