// Package series rebuilds numeric time series from the record log and
// resamples them by linear interpolation.
package series

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/hobson/bitcrawl/internal/record"
)

// Series holds day-ordinal times and the values observed at those times.
type Series struct {
	Times  []float64 `json:"times"`
	Values []float64 `json:"values"`
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Times) }

// IsSorted reports whether times are non-decreasing.
func (s Series) IsSorted() bool {
	return sort.Float64sAreSorted(s.Times)
}

// Sorted returns a copy ordered by time. Points sharing a time keep their
// original order.
func (s Series) Sorted() Series {
	idx := make([]int, len(s.Times))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return s.Times[idx[a]] < s.Times[idx[b]] })

	out := Series{Times: make([]float64, len(idx)), Values: make([]float64, len(idx))}
	for i, j := range idx {
		out.Times[i] = s.Times[j]
		out.Values[i] = s.Values[j]
	}
	return out
}

// Bounds returns the smallest and largest time. It panics on an empty series.
func (s Series) Bounds() (lo, hi float64) {
	lo, hi = s.Times[0], s.Times[0]
	for _, t := range s.Times[1:] {
		if t < lo {
			lo = t
		}
		if t > hi {
			hi = t
		}
	}
	return lo, hi
}

// Skip explains why a record contributed no point to a series.
type Skip struct {
	Record int   `json:"record"`
	Err    error `json:"-"`
}

func (s Skip) String() string {
	return fmt.Sprintf("record %d: %v", s.Record, s.Err)
}

// Selector names one source field, optionally indexing into list values
// such as order-book rows.
type Selector struct {
	Source string
	Field  string
	Index  []int
}

func (sel Selector) String() string {
	var sb strings.Builder
	sb.WriteString(sel.Source)
	sb.WriteByte('.')
	sb.WriteString(sel.Field)
	for _, i := range sel.Index {
		fmt.Fprintf(&sb, "[%d]", i)
	}
	return sb.String()
}

// Columns collects (time, value) points for source.field in record order.
// Records without the source are passed over; records with the source but
// a missing, unparsable or out-of-range entry are skipped, logged and
// reported. The result is not sorted; use Sorted before interpolating.
func Columns(records []record.Record, source, field, timeField string) (Series, []Skip) {
	return Select(records, Selector{Source: source, Field: field}, timeField)
}

// Select is Columns for a Selector.
func Select(records []record.Record, sel Selector, timeField string) (Series, []Skip) {
	if timeField == "" {
		timeField = record.KeyDatetime
	}

	var out Series
	var skips []Skip

	for i, rec := range records {
		fields, ok := rec[sel.Source]
		if !ok || fields == nil {
			continue
		}

		x, y, err := point(fields, sel, timeField)
		if err != nil {
			slog.Warn("skipping record", "series", sel.String(), "record", i, "err", err)
			skips = append(skips, Skip{Record: i, Err: err})
			continue
		}
		out.Times = append(out.Times, x)
		out.Values = append(out.Values, y)
	}

	return out, skips
}

func point(fields record.Fields, sel Selector, timeField string) (float64, float64, error) {
	tv, ok := fields.Get(timeField)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrMissingField, timeField)
	}
	fv, ok := fields.Get(sel.Field)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrMissingField, sel.Field)
	}

	x, err := timeValue(tv)
	if err != nil {
		return 0, 0, err
	}

	fv, ok = valueAt(fv, sel.Index)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrMissingField, sel.String())
	}
	y, err := ToFloat(fv)
	if err != nil {
		return 0, 0, err
	}

	if !InRange(x) {
		return 0, 0, fmt.Errorf("%w: day %.3f", ErrRangeRejected, x)
	}
	return x, y, nil
}

// timeValue accepts a timestamp string or an already converted day-ordinal.
func timeValue(v any) (float64, error) {
	switch x := v.(type) {
	case string:
		t, err := ParseTimestamp(x)
		if err != nil {
			return 0, err
		}
		return DayOrdinal(t), nil
	case float64:
		return x, nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrBadTimestamp, v)
	}
}

func valueAt(v any, index []int) (any, bool) {
	for _, i := range index {
		list, ok := v.([]any)
		if !ok || i < 0 || i >= len(list) {
			return nil, false
		}
		v = list[i]
	}
	return v, v != nil
}
