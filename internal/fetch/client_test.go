package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Timeout = 5 * time.Second
	opts.RetryWait = time.Millisecond
	opts.RequestsPerSecond = 0
	return opts
}

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	c, err := NewClient(opts)
	require.NoError(t, err)
	return c
}

func TestClient_Fetch(t *testing.T) {
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		w.Write([]byte("<p>Weighted Avg: $4.98</p>"))
	}))
	defer srv.Close()

	page, err := newTestClient(t, testOptions()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, page.Status)
	assert.Equal(t, "<p>Weighted Avg: $4.98</p>", page.Text())
	assert.Equal(t, srv.URL, page.URL)
	assert.False(t, page.Truncated)
	assert.False(t, page.FetchedAt.IsZero())
	assert.Contains(t, agent, "bitcrawl")
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	page, err := newTestClient(t, testOptions()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", page.Text())
	assert.Equal(t, int32(3), hits.Load())
}

func TestClient_StatusError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	page, err := newTestClient(t, testOptions()).Fetch(context.Background(), srv.URL)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Status)
	require.NotNil(t, page)
	assert.Equal(t, http.StatusNotFound, page.Status)
	assert.Equal(t, int32(1), hits.Load(), "client errors are not retried")
}

func TestClient_TruncatesLargeBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	opts := testOptions()
	opts.MaxBytes = 10
	page, err := newTestClient(t, opts).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, page.Body, 10)
	assert.True(t, page.Truncated)
}

func TestClient_KeepsCookies(t *testing.T) {
	var sawCookie atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("session"); err == nil {
			sawCookie.Store(true)
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
	}))
	defer srv.Close()

	c := newTestClient(t, testOptions())
	_, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, sawCookie.Load())
}

func TestClient_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("moved"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page, err := newTestClient(t, testOptions()).Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, "moved", page.Text())
}

func TestClient_ThrottleHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	opts := testOptions()
	opts.RequestsPerSecond = 0.001
	opts.Burst = 1
	c := newTestClient(t, opts)

	_, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Fetch(ctx, srv.URL)
	assert.Error(t, err, "second request must wait longer than the deadline")
}

func TestStatusError_Message(t *testing.T) {
	err := &StatusError{URL: "https://mtgox.com", Status: 503}
	assert.Equal(t, "GET https://mtgox.com: status 503 Service Unavailable", err.Error())
}
