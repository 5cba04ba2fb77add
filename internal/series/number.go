package series

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var magnitudes = map[byte]float64{
	'k': 1e3, 'K': 1e3,
	'm': 1e6, 'M': 1e6,
	'g': 1e9, 'G': 1e9,
	'T': 1e12,
}

// Unit tails allowed directly after a magnitude letter, as in "kB" or "GH/s".
var magnitudeTails = map[string]bool{
	"": true, "b": true, "B": true, "bit": true, "bps": true,
	"H": true, "H/s": true, "Hz": true, "B/s": true,
}

var currencies = map[string]bool{
	"USD": true, "AUD": true, "EUR": true, "EU": true, "BTC": true, "LTC": true,
}

var (
	leadingNumberRe = regexp.MustCompile(`^([+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?)(.*)$`)
	unitWordRe      = regexp.MustCompile(`^[A-Za-z/%]+$`)
)

// ParseNumber converts a scraped value such as "$5.125 M USD" or "1,234" to a
// float. Dollar signs, thousands separators and currency codes are dropped; a
// magnitude letter after the number scales it (k/K 1e3, m/M 1e6, g/G 1e9,
// T 1e12); trailing unit words are ignored.
func ParseNumber(s string) (float64, error) {
	raw := s
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if first, rest, ok := strings.Cut(s, " "); ok && currencies[first] {
		s = strings.TrimSpace(rest)
	}

	m := leadingNumberRe.FindStringSubmatch(s)
	if m == nil {
		return 0, &NumericParseError{Value: raw}
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, &NumericParseError{Value: raw}
	}

	words := strings.Fields(m[2])
	if len(words) == 0 {
		return v, nil
	}

	if w := words[0]; len(w) > 0 {
		if scale, ok := magnitudes[w[0]]; ok && magnitudeTails[w[1:]] {
			v *= scale
			words = words[1:]
		}
	}

	for _, w := range words {
		if !unitWordRe.MatchString(w) {
			return 0, &NumericParseError{Value: raw}
		}
	}
	return v, nil
}

// ToFloat converts a field value to a float. Strings go through ParseNumber;
// JSON numbers pass through.
func ToFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		return ParseNumber(x)
	default:
		return 0, &NumericParseError{Value: fmt.Sprint(v)}
	}
}
