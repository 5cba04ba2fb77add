// Package record defines the records appended to the historical data log.
package record

import (
	"sort"
	"time"
)

// Layout is the timestamp layout written to the datetime field of a field-dict.
const Layout = "2006-01-02 15:04:05.000000-07:00"

// Keys present in every field-dict.
const (
	KeyDatetime = "datetime"
	KeyURL      = "url"
)

// Fields is the field-dict for one source: datetime, url and the mined values.
type Fields map[string]any

// Record maps a source name to its field-dict. A record may hold several sources.
type Record map[string]Fields

// NewFields returns a field-dict stamped with the retrieval time and source URL.
func NewFields(url string, now time.Time) Fields {
	return Fields{
		KeyDatetime: now.Format(Layout),
		KeyURL:      url,
	}
}

// Get returns the raw value stored under key.
func (f Fields) Get(key string) (any, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String returns the value under key when it is a string.
func (f Fields) String(key string) (string, bool) {
	v, ok := f.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Mined returns the names of the extracted fields, excluding datetime and url.
func (f Fields) Mined() []string {
	var names []string
	for k := range f {
		if k == KeyDatetime || k == KeyURL {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Sources returns the source names of the record in sorted order.
func (r Record) Sources() []string {
	names := make([]string, 0, len(r))
	for k := range r {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
