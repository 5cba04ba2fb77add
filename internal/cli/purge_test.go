package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurge_WithoutAllFlag_Errors(t *testing.T) {
	err := (&PurgeCommand{globals: &GlobalFlags{}, deps: testDeps(t)}).Execute(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purge requires --all flag for safety")
}

func TestPurge_Force(t *testing.T) {
	d := testDeps(t)
	seedLog(t, d)
	seedJournal(t, d)
	cmd := &PurgeCommand{All: true, Force: true, globals: &GlobalFlags{}, deps: d}

	var err error
	output := captureOutput(t, func() { err = cmd.Execute(nil) })
	require.NoError(t, err)
	assert.Contains(t, output, "Purged the fetch journal")
	assert.Zero(t, countFetches(t, d))

	records, err := d.log.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 7, "the record log is never purged")
}

func TestPurge_Confirmed(t *testing.T) {
	d := testDeps(t)
	seedJournal(t, d)
	cmd := &PurgeCommand{All: true, globals: &GlobalFlags{}, deps: d, in: strings.NewReader("PURGE\n")}

	var err error
	output := captureOutput(t, func() { err = cmd.Execute(nil) })
	require.NoError(t, err)
	assert.Contains(t, output, `Type "PURGE" to confirm`)
	assert.Zero(t, countFetches(t, d))
}

func TestPurge_Aborted(t *testing.T) {
	for name, input := range map[string]string{"mismatch": "purge\n", "no input": ""} {
		t.Run(name, func(t *testing.T) {
			d := testDeps(t)
			seedJournal(t, d)
			cmd := &PurgeCommand{All: true, globals: &GlobalFlags{}, deps: d, in: strings.NewReader(input)}

			var err error
			captureOutput(t, func() { err = cmd.Execute(nil) })
			require.Error(t, err)
			assert.Contains(t, err.Error(), "aborted")
			assert.Equal(t, 2, countFetches(t, d))
		})
	}
}

func TestPurge_JSONOutput(t *testing.T) {
	d := testDeps(t)
	cmd := &PurgeCommand{All: true, Force: true, globals: &GlobalFlags{JSON: true}, deps: d}

	var err error
	output := captureOutput(t, func() { err = cmd.Execute(nil) })
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &out))
	assert.Equal(t, true, out["purged"])
}
