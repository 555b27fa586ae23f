package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/censeo/internal/common"
	"github.com/ternarybob/censeo/internal/models"
)

func testCrawlerConfig() common.CrawlerConfig {
	cfg := common.NewDefaultConfig().Crawler
	cfg.RequestTimeout = 5 * time.Second
	cfg.RetryDelay = 10 * time.Millisecond
	return cfg
}

func TestHTTPFetcherSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))
		assert.Contains(t, r.Header.Get("Accept"), "text/html")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(testCrawlerConfig(), common.GetLogger())
	defer fetcher.Close()

	result := fetcher.Fetch(context.Background(), server.URL+"/page")

	require.NoError(t, result.Error)
	assert.True(t, result.IsSuccess())
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, server.URL+"/page", result.URL)
	assert.Equal(t, server.URL+"/page", result.FinalURL)
	assert.Equal(t, "<html><body>hello</body></html>", result.HTML)
	assert.Equal(t, len(result.HTML), result.PageSizeBytes)
	assert.GreaterOrEqual(t, result.LoadTimeMS, int64(0))
	assert.Contains(t, result.Headers["Content-Type"], "text/html")
}

func TestHTTPFetcherFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>moved</html>"))
	})

	fetcher := NewHTTPFetcher(testCrawlerConfig(), common.GetLogger())
	defer fetcher.Close()

	result := fetcher.Fetch(context.Background(), server.URL+"/old")

	require.NoError(t, result.Error)
	assert.Equal(t, server.URL+"/old", result.URL)
	assert.Equal(t, server.URL+"/new", result.FinalURL)
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestHTTPFetcherTooManyRedirects(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	var hops int32
	mux.HandleFunc("/loop/", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hops, 1)
		http.Redirect(w, r, fmt.Sprintf("/loop/%d", n), http.StatusFound)
	})

	fetcher := NewHTTPFetcher(testCrawlerConfig(), common.GetLogger())
	defer fetcher.Close()

	result := fetcher.Fetch(context.Background(), server.URL+"/loop/")

	assert.Error(t, result.Error)
	assert.False(t, result.IsSuccess())
	// A redirect loop is deterministic; it must not be retried.
	assert.LessOrEqual(t, atomic.LoadInt32(&hops), int32(6))
}

func TestHTTPFetcherErrorStatusNotRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(testCrawlerConfig(), common.GetLogger())
	defer fetcher.Close()

	result := fetcher.Fetch(context.Background(), server.URL)

	require.NoError(t, result.Error)
	assert.False(t, result.IsSuccess())
	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestHTTPFetcherRetriesTransportErrors(t *testing.T) {
	// Nothing listens here; every attempt fails at the transport level.
	fetcher := NewHTTPFetcher(testCrawlerConfig(), common.GetLogger())
	defer fetcher.Close()

	start := time.Now()
	result := fetcher.Fetch(context.Background(), "http://127.0.0.1:1/unreachable")
	elapsed := time.Since(start)

	assert.Error(t, result.Error)
	assert.False(t, result.IsSuccess())
	assert.Equal(t, 0, result.StatusCode)
	// Two retry backoffs at 10ms and 20ms must have elapsed.
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestHTTPFetcherContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(testCrawlerConfig(), common.GetLogger())
	defer fetcher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result := fetcher.Fetch(ctx, server.URL)
	assert.Error(t, result.Error)
	assert.False(t, result.IsSuccess())
}

func TestCrawlResultIsSuccess(t *testing.T) {
	tests := []struct {
		status   int
		hasError bool
		expected bool
	}{
		{200, false, true},
		{301, false, true},
		{399, false, true},
		{400, false, false},
		{404, false, false},
		{500, false, false},
		{0, true, false},
		{200, true, false},
	}

	for _, tt := range tests {
		result := &models.CrawlResult{StatusCode: tt.status}
		if tt.hasError {
			result.Error = fmt.Errorf("boom")
		}
		assert.Equal(t, tt.expected, result.IsSuccess(), "status=%d err=%v", tt.status, tt.hasError)
	}
}
