package series

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hobson/bitcrawl/internal/record"
)

// Query is a parsed series request such as
// "mtgox.average date:2012-04-12 13:34 date:2012-04-15".
type Query struct {
	Selector
	Dates []time.Time
}

var (
	dateTermRe = regexp.MustCompile(`date:\s*(\d{4}-\d{1,2}-\d{1,2}(?:[ T]\d{1,2}:\d{2}(?::\d{2}(?:\.\d+)?)?)?)`)
	selectorRe = regexp.MustCompile(`^([^.\s]+)\.([^\[\]\s]+)((?:\[\d+\])*)$`)
	indexRe    = regexp.MustCompile(`\[(\d+)\]`)
)

// ParseQuery parses "source.field[idx]..." followed by zero or more
// "date:YYYY-MM-DD[ HH:MM[:SS]]" terms.
func ParseQuery(q string) (Query, error) {
	var out Query

	for _, m := range dateTermRe.FindAllStringSubmatch(q, -1) {
		t, err := ParseTimestamp(m[1])
		if err != nil {
			return Query{}, fmt.Errorf("%w: %v", ErrBadQuery, err)
		}
		out.Dates = append(out.Dates, t)
	}

	rest := strings.TrimSpace(dateTermRe.ReplaceAllString(q, ""))
	m := selectorRe.FindStringSubmatch(rest)
	if m == nil {
		return Query{}, fmt.Errorf("%w: %q (want source.field)", ErrBadQuery, q)
	}
	out.Source, out.Field = m[1], m[2]
	for _, im := range indexRe.FindAllStringSubmatch(m[3], -1) {
		n, err := strconv.Atoi(im[1])
		if err != nil {
			return Query{}, fmt.Errorf("%w: index %q", ErrBadQuery, im[1])
		}
		out.Index = append(out.Index, n)
	}
	return out, nil
}

// Targets converts the query dates into sample times. No dates yields nil;
// two dates yield one target per day from the first to the second; any
// other count yields exactly those dates.
func (q Query) Targets() []float64 {
	switch len(q.Dates) {
	case 0:
		return nil
	case 2:
		a, b := DayOrdinal(q.Dates[0]), DayOrdinal(q.Dates[1])
		if b < a {
			a, b = b, a
		}
		var out []float64
		for x := a; x <= b; x++ {
			out = append(out, x)
		}
		return out
	default:
		out := make([]float64, len(q.Dates))
		for i, d := range q.Dates {
			out[i] = DayOrdinal(d)
		}
		return out
	}
}

// Resample selects the query's series from records and samples it at the
// query's targets, or daily when the query names no dates.
func (q Query) Resample(records []record.Record, timeField string) (Series, []Skip, error) {
	raw, skips := Select(records, q.Selector, timeField)
	if raw.Len() == 0 {
		return Series{}, skips, fmt.Errorf("%s: %w", q.Selector, ErrEmptySeries)
	}
	targets := q.Targets()
	sort.Float64s(targets)
	s, err := Resample(raw, targets)
	return s, skips, err
}
