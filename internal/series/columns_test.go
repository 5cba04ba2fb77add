package series

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobson/bitcrawl/internal/record"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func mtgox(datetime, average string) record.Record {
	f := record.Fields{}
	if datetime != "" {
		f[record.KeyDatetime] = datetime
	}
	if average != "" {
		f["average"] = average
	}
	return record.Record{"mtgox": f}
}

func TestColumns_WarnAndSkip(t *testing.T) {
	records := []record.Record{
		mtgox("2012-04-20 12:00:00", "$5.00"),
		{"bitfloor": record.Fields{record.KeyDatetime: "2012-04-20 12:00:00", "average": "1"}},
		mtgox("2012-04-19 00:00:00", "$4.00"),
		mtgox("", "$6.00"),
		mtgox("2012-04-21 00:00:00", "n/a"),
		mtgox("1776-07-04", "1"),
		mtgox("yesterday", "1"),
		mtgox("2012-04-22 06:00:00", ""),
	}

	s, skips := Columns(records, "mtgox", "average", "datetime")

	want := Series{Times: []float64{734613.5, 734612}, Values: []float64{5, 4}}
	if diff := cmp.Diff(want, s, approx); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, s.IsSorted(), "record order is preserved")

	require.Len(t, skips, 5)
	assert.Equal(t, []int{3, 4, 5, 6, 7}, []int{skips[0].Record, skips[1].Record, skips[2].Record, skips[3].Record, skips[4].Record})
	assert.True(t, errors.Is(skips[0].Err, ErrMissingField))
	var perr *NumericParseError
	assert.True(t, errors.As(skips[1].Err, &perr))
	assert.True(t, errors.Is(skips[2].Err, ErrRangeRejected))
	assert.True(t, errors.Is(skips[3].Err, ErrBadTimestamp))
	assert.True(t, errors.Is(skips[4].Err, ErrMissingField))
}

func TestColumns_DefaultTimeFieldAndNumbers(t *testing.T) {
	records := []record.Record{
		{"api": record.Fields{record.KeyDatetime: "2012-04-20", "len": float64(100)}},
		{"api": nil},
	}
	s, skips := Columns(records, "api", "len", "")
	assert.Empty(t, skips)
	assert.Equal(t, []float64{100}, s.Values)
}

func TestSeries_SortedIsStable(t *testing.T) {
	s := Series{Times: []float64{3, 1, 2, 1}, Values: []float64{30, 10, 20, 11}}
	got := s.Sorted()

	assert.Equal(t, []float64{1, 1, 2, 3}, got.Times)
	assert.Equal(t, []float64{10, 11, 20, 30}, got.Values)
	assert.Equal(t, []float64{3, 1, 2, 1}, s.Times, "input untouched")

	lo, hi := s.Bounds()
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 3.0, hi)
}

func TestSelect_IndexIntoLists(t *testing.T) {
	book := []any{
		[]any{"4.90", "12.5"},
		[]any{"4.85", "3"},
	}
	records := []record.Record{
		{"bitfloor": record.Fields{record.KeyDatetime: "2012-04-20 00:00:00", "bids": book}},
		{"bitfloor": record.Fields{record.KeyDatetime: "2012-04-21 00:00:00", "bids": []any{}}},
	}

	sel := Selector{Source: "bitfloor", Field: "bids", Index: []int{0, 1}}
	assert.Equal(t, "bitfloor.bids[0][1]", sel.String())

	s, skips := Select(records, sel, "datetime")
	assert.Equal(t, []float64{12.5}, s.Values)
	require.Len(t, skips, 1)
	assert.True(t, errors.Is(skips[0].Err, ErrMissingField))
}
