package series

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// unixEpochOrdinal is the proleptic Gregorian ordinal of 1970-01-01,
// counting 0001-01-01 as day 1.
const unixEpochOrdinal = 719163

// Accepted ordinal range: roughly the years 1800 through 2100.
const (
	MinOrdinal = 1800 * 365.25
	MaxOrdinal = 2100 * 365.25
)

var timestampRe = regexp.MustCompile(
	`^\s*(\d{4})-(\d{1,2})-(\d{1,2})` +
		`(?:[ T](\d{1,2}):(\d{2})(?::(\d{2})(?:\.(\d{1,9}))?)?)?` +
		`\s*(Z|[+-]\d{2}:?\d{2})?\s*$`)

// ParseTimestamp reads YYYY-MM-DD with an optional [ T]HH:MM[:SS[.fraction]]
// and an optional Z or numeric offset. The clock fields are kept as written;
// the offset only sets the location of the result.
func ParseTimestamp(s string) (time.Time, error) {
	m := timestampRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
	}

	num := func(i int) int {
		if m[i] == "" {
			return 0
		}
		n, _ := strconv.Atoi(m[i])
		return n
	}
	year, month, day := num(1), num(2), num(3)
	hour, minute, sec := num(4), num(5), num(6)

	nsec := 0
	if frac := m[7]; frac != "" {
		for len(frac) < 9 {
			frac += "0"
		}
		nsec, _ = strconv.Atoi(frac)
	}

	if month < 1 || month > 12 || hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
	}

	loc := time.UTC
	if off := m[8]; off != "" && off != "Z" {
		sign := 1
		if off[0] == '-' {
			sign = -1
		}
		digits := off[1:]
		if len(digits) == 5 {
			digits = digits[:2] + digits[3:]
		}
		h, _ := strconv.Atoi(digits[:2])
		mm, _ := strconv.Atoi(digits[2:])
		loc = time.FixedZone("", sign*(h*3600+mm*60))
	}

	t := time.Date(year, time.Month(month), day, hour, minute, sec, nsec, loc)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %q has no such day", ErrBadTimestamp, s)
	}
	return t, nil
}

// DayOrdinal converts t to a fractional day count where 0001-01-01 is day 1.
// The fraction is hour/24 + minute/1440 + second/86400 of the wall clock;
// sub-second precision is dropped.
func DayOrdinal(t time.Time) float64 {
	y, mo, d := t.Date()
	days := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
	h, mi, s := t.Clock()
	return float64(unixEpochOrdinal+days) +
		float64(h)/24 + float64(mi)/1440 + float64(s)/86400
}

// OrdinalTime is the inverse of DayOrdinal, rounded to the second, in UTC.
func OrdinalTime(x float64) time.Time {
	day := math.Floor(x)
	secs := math.Round((x - day) * 86400)
	base := time.Unix((int64(day)-unixEpochOrdinal)*86400, 0).UTC()
	return base.Add(time.Duration(secs) * time.Second)
}

// InRange reports whether a day-ordinal falls inside the accepted range.
func InRange(x float64) bool {
	return x >= MinOrdinal && x <= MaxOrdinal
}
