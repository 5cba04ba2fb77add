package series

import (
	"fmt"
	"math"
)

// Table is a set of series sampled at shared times. Columns[k][i] is the
// value of series k at Times[i].
type Table struct {
	Times   []float64   `json:"times"`
	Labels  []string    `json:"labels"`
	Columns [][]float64 `json:"columns"`
}

// Row returns the values of every column at row i.
func (t Table) Row(i int) []float64 {
	row := make([]float64, len(t.Columns))
	for k, col := range t.Columns {
		row[k] = col[i]
	}
	return row
}

// Align resamples each series at targets. Without targets it uses one point
// per whole day inside the time span shared by all series, or the ends of
// that span when it contains no day boundary.
func Align(list []Series, labels []string, targets []float64) (Table, error) {
	if len(list) == 0 {
		return Table{}, ErrEmptySeries
	}
	if len(labels) != len(list) {
		return Table{}, fmt.Errorf("%w: %d labels for %d series", ErrDimensionMismatch, len(labels), len(list))
	}

	if targets == nil {
		lo, hi := math.Inf(-1), math.Inf(1)
		for k, s := range list {
			if s.Len() == 0 {
				return Table{}, fmt.Errorf("%s: %w", labels[k], ErrEmptySeries)
			}
			a, b := s.Bounds()
			lo = math.Max(lo, a)
			hi = math.Min(hi, b)
		}
		start, end := math.Ceil(lo), math.Floor(hi)
		switch {
		case lo > hi:
			return Table{}, ErrNoOverlap
		case start > end && lo == hi:
			targets = []float64{lo}
		case start > end:
			targets = []float64{lo, hi}
		default:
			targets = DailyTargets(start, end)
		}
	}

	t := Table{
		Times:   append([]float64(nil), targets...),
		Labels:  append([]string(nil), labels...),
		Columns: make([][]float64, len(list)),
	}
	for k, s := range list {
		r, err := Resample(s, targets)
		if err != nil {
			return Table{}, fmt.Errorf("%s: %w", labels[k], err)
		}
		t.Columns[k] = r.Values
	}
	return t, nil
}

// Normalize scales values into [0, 1]. It returns the offset and span used so
// that v == scaled*span + offset. A constant series scales to zeros.
func Normalize(values []float64) (scaled []float64, offset, span float64) {
	scaled = make([]float64, len(values))
	if len(values) == 0 {
		return scaled, 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span = hi - lo
	if span == 0 {
		return scaled, lo, 0
	}
	for i, v := range values {
		scaled[i] = (v - lo) / span
	}
	return scaled, lo, span
}
