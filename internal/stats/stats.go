// Package stats computes descriptive statistics and Pearson correlations
// over resampled series.
package stats

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrInsufficientData  = errors.New("insufficient data")
	ErrDimensionMismatch = errors.New("series differ in length")
)

// Divisor selects the variance denominator.
type Divisor int

const (
	// Population divides by N.
	Population Divisor = iota
	// Sample divides by N-1.
	Sample
)

func (d Divisor) String() string {
	if d == Sample {
		return "sample"
	}
	return "population"
}

// ParseDivisor reads "population" or "sample".
func ParseDivisor(s string) (Divisor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "population", "pop", "n":
		return Population, nil
	case "sample", "n-1":
		return Sample, nil
	default:
		return Population, fmt.Errorf("unknown variance divisor %q (want population or sample)", s)
	}
}

func (d Divisor) denominator(n int) float64 {
	if d == Sample {
		return float64(n - 1)
	}
	return float64(n)
}

// Mean returns the arithmetic mean of xs.
func Mean(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrInsufficientData
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs)), nil
}

// Variance returns the variance of xs. A single point yields its square.
func Variance(xs []float64, d Divisor) (float64, error) {
	switch len(xs) {
	case 0:
		return 0, ErrInsufficientData
	case 1:
		return xs[0] * xs[0], nil
	}
	m, _ := Mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return ss / d.denominator(len(xs)), nil
}

// StdDev returns the square root of Variance.
func StdDev(xs []float64, d Divisor) (float64, error) {
	v, err := Variance(xs, d)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(v), nil
}

// Covariance returns the covariance of a and b using the same divisor as
// Variance, so that Covariance(a, a) == Variance(a).
func Covariance(a, b []float64, d Divisor) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d and %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) < 2 {
		return 0, fmt.Errorf("%w: need 2 points, have %d", ErrInsufficientData, len(a))
	}
	ma, _ := Mean(a)
	mb, _ := Mean(b)
	var s float64
	for i := range a {
		s += (a[i] - ma) * (b[i] - mb)
	}
	return s / d.denominator(len(a)), nil
}

// Pearson returns the correlation coefficient of a and b. A series with zero
// variance has no defined coefficient and yields NaN.
func Pearson(a, b []float64, d Divisor) (float64, error) {
	cov, err := Covariance(a, b, d)
	if err != nil {
		return 0, err
	}
	sa, _ := StdDev(a, d)
	sb, _ := StdDev(b, d)
	if sa == 0 || sb == 0 {
		return math.NaN(), nil
	}
	return cov / (sa * sb), nil
}

// LagCorrelate correlates a against b shifted by lead samples. A positive
// lead pairs a[lead:] with b[:len(b)-lead]; a negative lead pairs
// a[:len(a)+lead] with b[-lead:].
func LagCorrelate(a, b []float64, lead int, d Divisor) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d and %d", ErrDimensionMismatch, len(a), len(b))
	}
	shift := lead
	if shift < 0 {
		shift = -shift
	}
	if len(a)-shift < 2 {
		return 0, fmt.Errorf("%w: lead %d leaves %d points", ErrInsufficientData, lead, len(a)-shift)
	}

	switch {
	case lead > 0:
		return Pearson(a[lead:], b[:len(b)-lead], d)
	case lead < 0:
		return Pearson(a[:len(a)+lead], b[-lead:], d)
	default:
		return Pearson(a, b, d)
	}
}

// Summary holds descriptive statistics of one series.
type Summary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"stddev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// Summarize computes a Summary of xs.
func Summarize(xs []float64, d Divisor) (Summary, error) {
	if len(xs) == 0 {
		return Summary{}, ErrInsufficientData
	}
	s := Summary{Count: len(xs), Min: xs[0], Max: xs[0]}
	for _, x := range xs {
		s.Min = math.Min(s.Min, x)
		s.Max = math.Max(s.Max, x)
	}
	s.Mean, _ = Mean(xs)
	s.Variance, _ = Variance(xs, d)
	s.StdDev = math.Sqrt(s.Variance)
	return s, nil
}
