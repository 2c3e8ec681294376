package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFeedBody = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR\r\n"

func TestFetchOneReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(testFeedBody))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	res, err := f.FetchOne(context.Background(), Source{ID: "a", URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, testFeedBody, string(res.Body))
	assert.False(t, res.FromCache)
}

func TestFetchOneHonors304(t *testing.T) {
	const etag = `"v1"`
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		_, _ = w.Write([]byte(testFeedBody))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	src := Source{ID: "a", URL: srv.URL}

	first, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, testFeedBody, string(second.Body))
	assert.Equal(t, 2, requests)
}

func TestFetchOneServerErrorIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	_, err := f.FetchOne(context.Background(), Source{ID: "a", URL: srv.URL})
	assert.Error(t, err)
}

func TestFetchOneNoStaleFallbackOnError(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(testFeedBody))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	src := Source{ID: "a", URL: srv.URL}

	_, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)

	// Once the origin starts failing, the cached body must not be served.
	healthy = false
	_, err = f.FetchOne(context.Background(), src)
	assert.Error(t, err)
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testFeedBody))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer bad.Close()

	f := NewFetcher(5 * time.Second)
	results, errs := f.FetchAll(context.Background(), []Source{
		{ID: "good", URL: good.URL},
		{ID: "bad", URL: bad.URL},
		{ID: "empty", URL: ""},
	})

	require.Len(t, results, 1)
	assert.Equal(t, "good", results[0].Source.ID)
	assert.Len(t, errs, 2)
}
