package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/censeo/internal/common"
	"github.com/ternarybob/censeo/internal/models"
)

// captureSink records every page the crawler emits.
type captureSink struct {
	mu      sync.Mutex
	results []*models.CrawlResult
	depths  map[string]int
	err     error
}

func newCaptureSink() *captureSink {
	return &captureSink{depths: make(map[string]int)}
}

func (s *captureSink) OnPageCrawled(_ context.Context, result *models.CrawlResult, depth int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	s.depths[result.URL] = depth
	return s.err
}

func (s *captureSink) urls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var urls []string
	for _, r := range s.results {
		urls = append(urls, r.URL)
	}
	return urls
}

func htmlPage(links ...string) string {
	body := "<html><head><title>t</title></head><body>"
	for _, l := range links {
		body += fmt.Sprintf(`<a href="%s">link</a>`, l)
	}
	return body + "</body></html>"
}

func newCrawlerService(t *testing.T) *Service {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Crawler.MaxConcurrent = 4
	cfg.Crawler.RequestTimeout = 5 * time.Second
	cfg.Crawler.RetryDelay = 10 * time.Millisecond
	return NewService(cfg, common.GetLogger())
}

func newTestJob(startURL string) *models.CrawlJob {
	return &models.CrawlJob{
		ID:           "job-1",
		SiteID:       "site-1",
		Status:       models.JobStatusRunning,
		StartURL:     startURL,
		MaxDepth:     5,
		MaxPages:     100,
		RateLimitRPS: 50,
	}
}

func TestCrawlVisitsInternalPages(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(htmlPage("/about", "/contact", "https://external.example.org/away")))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(htmlPage("/")))
	})
	mux.HandleFunc("/contact", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(htmlPage()))
	})

	sink := newCaptureSink()
	stats, err := newCrawlerService(t).Crawl(context.Background(), newTestJob(server.URL), sink)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.PagesCrawled)
	assert.Equal(t, 0, stats.PagesFailed)
	assert.ElementsMatch(t, []string{server.URL + "/", server.URL + "/about", server.URL + "/contact"}, sink.urls())

	// The external link must never be visited.
	for _, u := range sink.urls() {
		assert.NotContains(t, u, "external.example.org")
	}
}

func TestCrawlRespectsRobots(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	var privateHits int
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(htmlPage("/private", "/public")))
	})
	mux.HandleFunc("/public", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(htmlPage()))
	})
	mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
		privateHits++
		w.Write([]byte(htmlPage()))
	})

	job := newTestJob(server.URL)
	job.RespectRobots = true

	sink := newCaptureSink()
	stats, err := newCrawlerService(t).Crawl(context.Background(), job, sink)
	require.NoError(t, err)

	// Disallowed pages are skipped: never fetched, not failed, no callback.
	assert.Equal(t, 0, privateHits)
	assert.Equal(t, 2, stats.PagesCrawled)
	assert.Equal(t, 0, stats.PagesFailed)
	assert.NotContains(t, sink.urls(), server.URL+"/private")
}

func TestCrawlDepthCutoff(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(htmlPage("/level1")))
	})
	mux.HandleFunc("/level1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(htmlPage("/level2")))
	})
	mux.HandleFunc("/level2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(htmlPage()))
	})

	job := newTestJob(server.URL)
	job.MaxDepth = 1

	sink := newCaptureSink()
	stats, err := newCrawlerService(t).Crawl(context.Background(), job, sink)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.PagesCrawled)
	assert.ElementsMatch(t, []string{server.URL + "/", server.URL + "/level1"}, sink.urls())
	assert.Equal(t, 0, sink.depths[server.URL+"/"])
	assert.Equal(t, 1, sink.depths[server.URL+"/level1"])
}

func TestCrawlMaxPages(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var links []string
		for i := 0; i < 20; i++ {
			links = append(links, fmt.Sprintf("/page-%d", i))
		}
		w.Write([]byte(htmlPage(links...)))
	})

	job := newTestJob(server.URL)
	job.MaxPages = 3

	cfg := common.NewDefaultConfig()
	cfg.Crawler.MaxConcurrent = 1
	service := NewService(cfg, common.GetLogger())

	sink := newCaptureSink()
	stats, err := service.Crawl(context.Background(), job, sink)
	require.NoError(t, err)

	assert.LessOrEqual(t, stats.PagesCrawled, 3)
}

func TestCrawlCountsFailedPages(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(htmlPage("/missing")))
	})

	sink := newCaptureSink()
	stats, err := newCrawlerService(t).Crawl(context.Background(), newTestJob(server.URL), sink)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.PagesCrawled)
	assert.Equal(t, 1, stats.PagesFailed)

	// Failed pages still reach the sink so their status is persisted.
	assert.Contains(t, sink.urls(), server.URL+"/missing")
}

func TestCrawlCallbackErrorNotFatal(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(htmlPage("/next")))
	})
	mux.HandleFunc("/next", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(htmlPage()))
	})

	sink := newCaptureSink()
	sink.err = fmt.Errorf("database unavailable")

	stats, err := newCrawlerService(t).Crawl(context.Background(), newTestJob(server.URL), sink)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.PagesCrawled)
	assert.Len(t, sink.results, 2)
}

func TestCrawlSeedsFromSitemap(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sitemapXML(server.URL + "/orphan")))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(htmlPage()))
	})
	mux.HandleFunc("/orphan", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(htmlPage()))
	})

	sink := newCaptureSink()
	stats, err := newCrawlerService(t).Crawl(context.Background(), newTestJob(server.URL), sink)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.PagesCrawled)
	assert.Contains(t, sink.urls(), server.URL+"/orphan")
	assert.Equal(t, 0, sink.depths[server.URL+"/orphan"])
}

func TestCrawlCancellation(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var links []string
		for i := 0; i < 50; i++ {
			links = append(links, fmt.Sprintf("/page-%d", i))
		}
		w.Write([]byte(htmlPage(links...)))
	})

	job := newTestJob(server.URL)
	job.RateLimitRPS = 5 // slow enough that cancel lands mid-crawl

	cfg := common.NewDefaultConfig()
	cfg.Crawler.MaxConcurrent = 1
	service := NewService(cfg, common.GetLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(300 * time.Millisecond)
		cancel()
	}()

	sink := newCaptureSink()
	stats, err := service.Crawl(ctx, job, sink)
	require.NoError(t, err)

	assert.Less(t, stats.PagesCrawled, 50)
}

func TestCrawlInvalidStartURL(t *testing.T) {
	_, err := newCrawlerService(t).Crawl(context.Background(), newTestJob("not a url ::"), newCaptureSink())
	assert.Error(t, err)
}
