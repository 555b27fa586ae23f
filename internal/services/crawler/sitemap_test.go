package crawler

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/censeo/internal/common"
)

func sitemapXML(urls ...string) string {
	body := `<?xml version="1.0" encoding="UTF-8"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`
	for _, u := range urls {
		body += fmt.Sprintf("<url><loc>%s</loc></url>", u)
	}
	return body + "</urlset>"
}

func sitemapIndexXML(sitemaps ...string) string {
	body := `<?xml version="1.0" encoding="UTF-8"?><sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`
	for _, s := range sitemaps {
		body += fmt.Sprintf("<sitemap><loc>%s</loc></sitemap>", s)
	}
	return body + "</sitemapindex>"
}

func TestSitemapFetchesURLSet(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sitemapXML(server.URL+"/", server.URL+"/about", server.URL+"/blog")))
	})

	fetcher := NewSitemapFetcher(server.URL, testUserAgent, server.Client(), common.GetLogger())
	urls := fetcher.FetchAll(context.Background(), nil)

	assert.ElementsMatch(t, []string{server.URL + "/", server.URL + "/about", server.URL + "/blog"}, urls)
}

func TestSitemapIndexRecursesOneLevel(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sitemapIndexXML(server.URL+"/pages.xml", server.URL+"/nested-index.xml")))
	})
	mux.HandleFunc("/pages.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sitemapXML(server.URL+"/a", server.URL+"/b")))
	})
	// An index inside an index must not be followed.
	mux.HandleFunc("/nested-index.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sitemapIndexXML(server.URL + "/deep.xml")))
	})
	mux.HandleFunc("/deep.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sitemapXML(server.URL + "/too-deep")))
	})

	fetcher := NewSitemapFetcher(server.URL, testUserAgent, server.Client(), common.GetLogger())
	urls := fetcher.FetchAll(context.Background(), nil)

	assert.ElementsMatch(t, []string{server.URL + "/a", server.URL + "/b"}, urls)
}

func TestSitemapGzipDecoded(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(sitemapXML(server.URL + "/compressed")))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sitemapIndexXML(server.URL + "/pages.xml.gz")))
	})
	mux.HandleFunc("/pages.xml.gz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/gzip")
		w.Write(buf.Bytes())
	})

	fetcher := NewSitemapFetcher(server.URL, testUserAgent, server.Client(), common.GetLogger())
	urls := fetcher.FetchAll(context.Background(), nil)

	assert.Equal(t, []string{server.URL + "/compressed"}, urls)
}

func TestSitemapDeduplicatesAcrossSitemaps(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sitemapXML(server.URL+"/shared", server.URL+"/only-main")))
	})
	mux.HandleFunc("/sitemaps.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sitemapXML(server.URL+"/shared", server.URL+"/only-alt")))
	})

	fetcher := NewSitemapFetcher(server.URL, testUserAgent, server.Client(), common.GetLogger())
	urls := fetcher.FetchAll(context.Background(), nil)

	assert.ElementsMatch(t, []string{
		server.URL + "/shared",
		server.URL + "/only-main",
		server.URL + "/only-alt",
	}, urls)
}

func TestSitemapUsesRobotsHints(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	// Not at a common path, only discoverable through the hint.
	mux.HandleFunc("/custom-map.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sitemapXML(server.URL + "/hinted")))
	})

	fetcher := NewSitemapFetcher(server.URL, testUserAgent, server.Client(), common.GetLogger())
	urls := fetcher.FetchAll(context.Background(), []string{server.URL + "/custom-map.xml"})

	assert.Equal(t, []string{server.URL + "/hinted"}, urls)
}

func TestSitemapBrokenSitemapSkipped(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not xml <<<"))
	})
	mux.HandleFunc("/sitemaps.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sitemapXML(server.URL + "/ok")))
	})

	fetcher := NewSitemapFetcher(server.URL, testUserAgent, server.Client(), common.GetLogger())
	urls := fetcher.FetchAll(context.Background(), nil)

	assert.Equal(t, []string{server.URL + "/ok"}, urls)
}

func TestSitemapNoneFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewSitemapFetcher(server.URL, testUserAgent, server.Client(), common.GetLogger())
	urls := fetcher.FetchAll(context.Background(), nil)

	assert.Empty(t, urls)
}
