package extract

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hobson/bitcrawl/internal/record"
)

// Miss describes a field that was left out of a mined field-dict.
type Miss struct {
	Field string
	Err   error
}

func (m Miss) String() string {
	return fmt.Sprintf("%s: %v", m.Field, m.Err)
}

// Mine applies every rule of spec to page and returns a field-dict holding
// the retrieval time, the url and each value that matched. Fields that miss
// or carry a bad pattern are omitted and reported. Mine returns nil when
// there is no page or no url.
func Mine(page, url string, spec Spec, defaultName string, now time.Time) (record.Fields, []Miss) {
	if page == "" || url == "" {
		return nil, nil
	}

	fields := record.NewFields(url, now)
	var misses []Miss

	for _, f := range spec.Fields(defaultName) {
		if f.Name == record.KeyDatetime || f.Name == record.KeyURL {
			misses = append(misses, Miss{Field: f.Name, Err: fmt.Errorf("%w: field name is reserved", ErrBadSpec)})
			continue
		}

		value, ok, err := f.Rule.Extract(page)
		switch {
		case err != nil:
			slog.Warn("skipping field with bad pattern", "url", url, "field", f.Name, "err", err)
			misses = append(misses, Miss{Field: f.Name, Err: err})
		case !ok:
			slog.Warn("no match for field", "url", url, "field", f.Name, "prefix", f.Rule.Prefix)
			misses = append(misses, Miss{Field: f.Name, Err: ErrExtractionMiss})
		default:
			fields[f.Name] = value
		}
	}

	return fields, misses
}
