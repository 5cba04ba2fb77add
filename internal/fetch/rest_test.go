package fetch

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobson/bitcrawl/internal/record"
)

var restNow = time.Date(2012, 4, 20, 12, 0, 0, 0, time.UTC)

func TestDecodeJSON_Object(t *testing.T) {
	body := `{"bids": [[4.9, 10]], "asks": [[5.1, 2]], "url": "ignored"}`
	page := &Page{URL: "https://api.bitfloor.com/book/L2/1", Body: []byte(body)}

	fields, err := DecodeJSON(page, "data", restNow)
	require.NoError(t, err)

	assert.Equal(t, "https://api.bitfloor.com/book/L2/1", fields[record.KeyURL])
	assert.Equal(t, restNow.Format(record.Layout), fields[record.KeyDatetime])
	assert.Equal(t, float64(len(body)), fields[KeyLen])
	assert.Equal(t, []any{[]any{4.9, 10.0}}, fields["bids"])
}

func TestDecodeJSON_NonObjectRoot(t *testing.T) {
	page := &Page{URL: "https://x.test", Body: []byte(`[1, 2, 3]`)}

	fields, err := DecodeJSON(page, "ticker", restNow)
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, fields["ticker"])
}

func TestDecodeJSON_Empty(t *testing.T) {
	for _, body := range []string{"", "{}", " [] "} {
		_, err := DecodeJSON(&Page{URL: "u", Body: []byte(body)}, "data", restNow)
		assert.True(t, errors.Is(err, ErrEmptyBody), "body %q", body)
	}
}

func TestDecodeJSON_Invalid(t *testing.T) {
	_, err := DecodeJSON(&Page{URL: "u", Body: []byte(`{"bids": `)}, "data", restNow)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrEmptyBody))
}
