package crawler

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
)

const (
	sitemapHeadTimeout = 5 * time.Second
	sitemapGetTimeout  = 15 * time.Second

	// An index inside an index is not followed.
	sitemapMaxIndexDepth = 1
)

// commonSitemapPaths are probed on every crawl regardless of robots hints.
var commonSitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/sitemaps.xml",
	"/sitemap/sitemap.xml",
	"/wp-sitemap.xml",
}

// sitemapIndex matches <sitemapindex> documents listing child sitemaps.
type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// urlSet matches <urlset> documents listing page URLs.
type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// SitemapFetcher discovers and parses XML sitemaps for a site.
type SitemapFetcher struct {
	baseURL   string
	userAgent string
	client    *http.Client
	logger    arbor.ILogger
	processed map[string]bool
}

// NewSitemapFetcher creates a fetcher rooted at baseURL (scheme://host).
func NewSitemapFetcher(baseURL, userAgent string, client *http.Client, logger arbor.ILogger) *SitemapFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &SitemapFetcher{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    client,
		logger:    logger,
		processed: make(map[string]bool),
	}
}

// FetchAll probes common sitemap locations, merges in robots.txt hints,
// parses every candidate and returns the de-duplicated page URLs. A sitemap
// that fails to fetch or parse is logged and skipped.
func (f *SitemapFetcher) FetchAll(ctx context.Context, robotsHints []string) []string {
	candidates := f.discover(ctx)
	candidates = append(candidates, robotsHints...)

	seen := make(map[string]bool)
	var discovered []string
	for _, sitemapURL := range candidates {
		for _, pageURL := range f.parseSitemap(ctx, sitemapURL, 0) {
			if !seen[pageURL] {
				seen[pageURL] = true
				discovered = append(discovered, pageURL)
			}
		}
	}
	return discovered
}

// discover probes the fixed set of common sitemap paths with HEAD requests.
func (f *SitemapFetcher) discover(ctx context.Context) []string {
	var candidates []string
	for _, path := range commonSitemapPaths {
		sitemapURL := f.baseURL + path

		headCtx, cancel := context.WithTimeout(ctx, sitemapHeadTimeout)
		req, err := http.NewRequestWithContext(headCtx, http.MethodHead, sitemapURL, nil)
		if err != nil {
			cancel()
			continue
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.client.Do(req)
		cancel()
		if err != nil {
			continue
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			candidates = append(candidates, sitemapURL)
			f.logger.Info().Str("url", sitemapURL).Msg("Found sitemap")
		}
	}

	if len(candidates) == 0 {
		f.logger.Info().Str("base_url", f.baseURL).Msg("No sitemaps found at common paths")
	}
	return candidates
}

// parseSitemap fetches and parses one sitemap, recursing a single level
// into sitemap indexes.
func (f *SitemapFetcher) parseSitemap(ctx context.Context, sitemapURL string, depth int) []string {
	if f.processed[sitemapURL] {
		return nil
	}
	f.processed[sitemapURL] = true

	content, err := f.fetch(ctx, sitemapURL)
	if err != nil {
		f.logger.Warn().Err(err).Str("url", sitemapURL).Msg("Failed to fetch sitemap")
		return nil
	}
	if content == nil {
		return nil
	}

	var index sitemapIndex
	if err := xml.Unmarshal(content, &index); err == nil && len(index.Sitemaps) > 0 {
		if depth >= sitemapMaxIndexDepth {
			f.logger.Warn().Str("url", sitemapURL).Msg("Nested sitemap index ignored")
			return nil
		}
		var urls []string
		for _, child := range index.Sitemaps {
			loc := strings.TrimSpace(child.Loc)
			if loc == "" {
				continue
			}
			urls = append(urls, f.parseSitemap(ctx, loc, depth+1)...)
		}
		return urls
	}

	var set urlSet
	if err := xml.Unmarshal(content, &set); err != nil {
		f.logger.Warn().Err(err).Str("url", sitemapURL).Msg("Failed to parse sitemap XML")
		return nil
	}

	var urls []string
	for _, entry := range set.URLs {
		if loc := strings.TrimSpace(entry.Loc); loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls
}

// fetch retrieves sitemap bytes, transparently gunzipping compressed
// content. A nil, nil return means a non-200 response.
func (f *SitemapFetcher) fetch(ctx context.Context, sitemapURL string) ([]byte, error) {
	getCtx, cancel := context.WithTimeout(ctx, sitemapGetTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(getCtx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Debug().Str("url", sitemapURL).Int("status", resp.StatusCode).Msg("Sitemap fetch returned non-200")
		return nil, nil
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(sitemapURL, ".gz") || strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		if decoded, err := gunzip(content); err == nil {
			content = decoded
		}
	}
	return content, nil
}

func gunzip(content []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}
