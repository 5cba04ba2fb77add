package series

import (
	"fmt"
	"math"
	"sort"
)

// Method selects an interpolation scheme.
type Method string

// Linear is the only supported method.
const Linear Method = "linear"

// Interpolate samples the series (times, values) at targets by linear
// interpolation. Targets before the first time take the first value and
// targets after the last time take the last value. With nil targets the
// series is sampled at len(times) evenly spaced points between its first and
// last time. Both times and targets must be ascending.
func Interpolate(times, values, targets []float64, method Method) ([]float64, error) {
	if method == "" {
		method = Linear
	}
	if method != Linear {
		return nil, fmt.Errorf("%w: %q", ErrNotImplemented, method)
	}
	if len(times) != len(values) {
		return nil, fmt.Errorf("%w: %d times, %d values", ErrDimensionMismatch, len(times), len(values))
	}
	if len(times) == 0 {
		return nil, ErrEmptySeries
	}
	if !sort.Float64sAreSorted(times) {
		return nil, ErrUnsorted
	}
	if targets == nil {
		targets = EvenTargets(times[0], times[len(times)-1], len(times))
	}
	if !sort.Float64sAreSorted(targets) {
		return nil, fmt.Errorf("%w: targets", ErrUnsorted)
	}

	out := make([]float64, 0, len(targets))
	if len(targets) == 0 {
		return out, nil
	}

	i, j := 0, 0
	x0, y0 := targets[0], values[0]
	for i < len(times) && j < len(targets) {
		if times[i] <= targets[j] {
			x0, y0 = times[i], values[i]
			i++
			continue
		}
		if times[i] == x0 {
			out = append(out, y0)
		} else {
			out = append(out, (values[i]-y0)*(targets[j]-x0)/(times[i]-x0)+y0)
		}
		j++
	}

	last := values[len(values)-1]
	for ; j < len(targets); j++ {
		out = append(out, last)
	}
	return out, nil
}

// EvenTargets returns n evenly spaced points from lo to hi inclusive.
func EvenTargets(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for k := range out {
		out[k] = lo + float64(k)*step
	}
	out[n-1] = hi
	return out
}

// DailyTargets returns one target per whole day from floor(lo) to floor(hi).
func DailyTargets(lo, hi float64) []float64 {
	start, end := math.Floor(lo), math.Floor(hi)
	out := make([]float64, 0, int(end-start)+1)
	for d := start; d <= end; d++ {
		out = append(out, d)
	}
	return out
}

// Resample sorts s by time and interpolates it at targets, defaulting to
// DailyTargets over the span of s.
func Resample(s Series, targets []float64) (Series, error) {
	if s.Len() == 0 {
		return Series{}, ErrEmptySeries
	}
	sorted := s.Sorted()
	if targets == nil {
		targets = DailyTargets(sorted.Times[0], sorted.Times[len(sorted.Times)-1])
	}

	values, err := Interpolate(sorted.Times, sorted.Values, targets, Linear)
	if err != nil {
		return Series{}, err
	}
	return Series{Times: append([]float64(nil), targets...), Values: values}, nil
}
