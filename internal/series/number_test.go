package series

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"$5.125 M USD", 5125000},
		{"1,234", 1234},
		{"42", 42},
		{" 42 ", 42},
		{"$4.91234", 4.91234},
		{"30,381 BTC", 30381},
		{"0.123 kB", 123},
		{"2.5k", 2500},
		{"2m", 2e6},
		{"12.5 GH/s", 1.25e10},
		{"3T", 3e12},
		{"USD 7.5", 7.5},
		{"1e-9", 1e-9},
		{"-3.5", -3.5},
		{"45 %", 45},
		{"1,234,567 views", 1234567},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNumber(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9*(1+math.Abs(tt.want)))
		})
	}
}

func TestParseNumber_Rejected(t *testing.T) {
	for _, in := range []string{"", "n/a", "abc", "$", "12 3x4", "--5"} {
		_, err := ParseNumber(in)
		var perr *NumericParseError
		require.True(t, errors.As(err, &perr), "%q should fail, got %v", in, err)
		assert.Equal(t, in, perr.Value)
	}
}

func TestToFloat(t *testing.T) {
	v, err := ToFloat(float64(12.5))
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	v, err = ToFloat("$1,000")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, v)

	_, err = ToFloat(true)
	var perr *NumericParseError
	assert.True(t, errors.As(err, &perr))

	_, err = ToFloat([]any{"1"})
	assert.True(t, errors.As(err, &perr))
}
