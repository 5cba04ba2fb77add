package stats

import "fmt"

// Matrix holds lag correlations between labelled series. Values[i][j]
// correlates series i against series j shifted by Lead samples, so the
// matrix is symmetric only when Lead is zero.
type Matrix struct {
	Labels []string    `json:"labels"`
	Lead   int         `json:"lead"`
	Values [][]float64 `json:"values"`
}

// At returns the coefficient of series i against series j.
func (m Matrix) At(i, j int) float64 { return m.Values[i][j] }

// CorrelationMatrix computes the N×N lag-correlation matrix of columns,
// which must all be sampled at the same times.
func CorrelationMatrix(labels []string, columns [][]float64, lead int, d Divisor) (Matrix, error) {
	if len(labels) != len(columns) {
		return Matrix{}, fmt.Errorf("%w: %d labels for %d columns", ErrDimensionMismatch, len(labels), len(columns))
	}

	m := Matrix{
		Labels: append([]string(nil), labels...),
		Lead:   lead,
		Values: make([][]float64, len(columns)),
	}
	for i := range columns {
		m.Values[i] = make([]float64, len(columns))
		for j := range columns {
			r, err := LagCorrelate(columns[i], columns[j], lead, d)
			if err != nil {
				return Matrix{}, fmt.Errorf("%s vs %s: %w", labels[i], labels[j], err)
			}
			m.Values[i][j] = r
		}
	}
	return m, nil
}
