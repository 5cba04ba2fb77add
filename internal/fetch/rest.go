package fetch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hobson/bitcrawl/internal/record"
)

// KeyLen is the field holding the size in bytes of a REST response.
const KeyLen = "len"

// ErrEmptyBody is returned when a REST response has no usable JSON.
var ErrEmptyBody = errors.New("empty response body")

// DecodeJSON turns a REST response into a field-dict. An object root keeps
// its keys; any other root is stored under name. The datetime, url and len
// fields are always set from the fetch.
func DecodeJSON(page *Page, name string, now time.Time) (record.Fields, error) {
	body := bytes.TrimSpace(page.Body)
	if len(body) <= 2 {
		return nil, ErrEmptyBody
	}

	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("decode %s: %w", page.URL, err)
	}

	fields := record.Fields{}
	if obj, ok := root.(map[string]any); ok {
		for k, v := range obj {
			fields[k] = v
		}
	} else {
		fields[name] = root
	}

	for k, v := range record.NewFields(page.URL, now) {
		fields[k] = v
	}
	fields[KeyLen] = float64(len(page.Body))
	return fields, nil
}
