package crawler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/censeo/internal/common"
	"github.com/ternarybob/censeo/internal/models"
)

const (
	maxRedirects    = 5
	retryBackoffCap = 10 * time.Second
)

// errTooManyRedirects marks a redirect chain exceeding maxRedirects. It is
// deterministic, so the fetcher does not retry it.
var errTooManyRedirects = errors.New("stopped after 5 redirects")

// HTTPFetcher fetches pages over plain HTTP with connection pooling,
// redirect following and retry on transport errors.
type HTTPFetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	retryBase  time.Duration
	logger     arbor.ILogger
}

// NewHTTPFetcher creates an HTTP fetcher from crawler configuration.
func NewHTTPFetcher(cfg common.CrawlerConfig, logger arbor.ILogger) *HTTPFetcher {
	transport := &http.Transport{
		MaxConnsPerHost:     100,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 50,
		IdleConnTimeout:     90 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errTooManyRedirects
			}
			return nil
		},
	}

	retries := cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}
	retryBase := cfg.RetryDelay
	if retryBase <= 0 {
		retryBase = time.Second
	}

	return &HTTPFetcher{
		client:     client,
		userAgent:  cfg.UserAgent,
		maxRetries: retries,
		retryBase:  retryBase,
		logger:     logger,
	}
}

// Client exposes the pooled HTTP client for sibling components that share
// the crawl's connection pool (robots, sitemaps).
func (f *HTTPFetcher) Client() *http.Client {
	return f.client
}

// Fetch retrieves one URL. Transport errors and timeouts are retried with
// exponential backoff; HTTP error statuses are returned as-is on the result.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) *models.CrawlResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &models.CrawlResult{URL: rawURL, FinalURL: rawURL, Error: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")

	var resp *http.Response
	var lastErr error
	start := time.Now()

	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		if attempt > 1 {
			backoff := f.retryBase << (attempt - 2)
			if backoff > retryBackoffCap {
				backoff = retryBackoffCap
			}
			select {
			case <-ctx.Done():
				return f.errorResult(rawURL, start, ctx.Err())
			case <-time.After(backoff):
			}
			f.logger.Debug().
				Str("url", rawURL).
				Int("attempt", attempt).
				Str("backoff", backoff.String()).
				Msg("Retrying fetch after transport error")
		}

		start = time.Now()
		resp, lastErr = f.client.Do(req.Clone(ctx))
		if lastErr == nil {
			break
		}
		if !isRetryable(ctx, lastErr) {
			break
		}
	}

	if lastErr != nil {
		return f.errorResult(rawURL, start, lastErr)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	loadTime := time.Since(start).Milliseconds()
	if err != nil {
		return &models.CrawlResult{
			URL:        rawURL,
			FinalURL:   resp.Request.URL.String(),
			StatusCode: resp.StatusCode,
			LoadTimeMS: loadTime,
			Error:      err,
		}
	}

	headers := make(map[string]string, len(resp.Header))
	for name, values := range resp.Header {
		headers[name] = strings.Join(values, ", ")
	}

	return &models.CrawlResult{
		URL:           rawURL,
		FinalURL:      resp.Request.URL.String(),
		StatusCode:    resp.StatusCode,
		HTML:          string(body),
		Headers:       headers,
		LoadTimeMS:    loadTime,
		PageSizeBytes: len(body),
	}
}

// Close releases idle pooled connections.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

func (f *HTTPFetcher) errorResult(rawURL string, start time.Time, err error) *models.CrawlResult {
	return &models.CrawlResult{
		URL:        rawURL,
		FinalURL:   rawURL,
		LoadTimeMS: time.Since(start).Milliseconds(),
		Error:      err,
	}
}

// isRetryable reports whether a fetch error is worth another attempt.
// Redirect-loop errors and parent-context cancellation are final; other
// transport errors and per-attempt timeouts are retried.
func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, errTooManyRedirects) {
		return false
	}
	return true
}
