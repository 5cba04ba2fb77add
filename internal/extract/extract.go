// Package extract pulls quantities out of page text with prefix and value
// patterns and assembles them into field-dicts.
package extract

import (
	"errors"
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrExtractionMiss reports that a rule did not match the page.
var ErrExtractionMiss = errors.New("extraction miss")

// PatternError reports a prefix, value or suffix pattern that does not compile.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Rule locates one quantity: the text matching Value that follows Prefix
// after optional whitespace. Suffix records the text expected after the
// value; it is validated but never required to match.
type Rule struct {
	Prefix string
	Value  string
	Suffix string
}

type compiled struct {
	re    *regexp.Regexp
	group int
}

const patternCacheSize = 256

var patterns = mustCache()

func mustCache() *lru.Cache[Rule, *compiled] {
	c, err := lru.New[Rule, *compiled](patternCacheSize)
	if err != nil {
		panic(err)
	}
	return c
}

// Extract returns the first value in text matching value that follows prefix.
// The bool is false when nothing matched. A malformed pattern yields a *PatternError.
func Extract(text, prefix, value string) (string, bool, error) {
	return Rule{Prefix: prefix, Value: value}.Extract(text)
}

// Extract applies the rule to text. Only the leftmost match is considered.
func (r Rule) Extract(text string) (string, bool, error) {
	c, err := r.compile()
	if err != nil {
		return "", false, err
	}

	loc := c.re.FindStringSubmatchIndex(text)
	if loc == nil {
		return "", false, nil
	}
	start, end := loc[2*c.group], loc[2*c.group+1]
	if start < 0 || start == end {
		return "", false, nil
	}
	return text[start:end], true, nil
}

// Validate compiles the rule without applying it.
func (r Rule) Validate() error {
	_, err := r.compile()
	return err
}

func (r Rule) compile() (*compiled, error) {
	if c, ok := patterns.Get(r); ok {
		return c, nil
	}

	// Compiling the parts on their own pins the error to the right pattern
	// and tells us how many groups precede the value group.
	prefix, err := regexp.Compile(r.Prefix)
	if err != nil {
		return nil, &PatternError{Pattern: r.Prefix, Err: err}
	}
	if _, err := regexp.Compile(r.Value); err != nil {
		return nil, &PatternError{Pattern: r.Value, Err: err}
	}

	if r.Suffix != "" {
		if _, err := regexp.Compile(r.Suffix); err != nil {
			return nil, &PatternError{Pattern: r.Suffix, Err: err}
		}
	}
	expr := `(?:` + r.Prefix + `)\s*(` + r.Value + `)`

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &PatternError{Pattern: expr, Err: err}
	}

	c := &compiled{re: re, group: prefix.NumSubexp() + 1}
	patterns.Add(r, c)
	return c, nil
}
