package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
	"github.com/ternarybob/arbor"
)

const defaultRobotsTimeout = 10 * time.Second

// RobotsPolicy fetches and caches robots.txt for the crawl's base URL.
// A failed or non-200 fetch yields a permanent allow-all policy for the
// crawl's duration; the fetch is never retried.
type RobotsPolicy struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	client    *http.Client
	logger    arbor.ILogger

	group      *robotstxt.Group
	sitemaps   []string
	crawlDelay float64
	fetched    bool
}

// NewRobotsPolicy creates a robots policy for the given base URL
// (scheme://host). Call Fetch before the first IsAllowed check.
func NewRobotsPolicy(baseURL, userAgent string, timeout time.Duration, client *http.Client, logger arbor.ILogger) *RobotsPolicy {
	if timeout <= 0 {
		timeout = defaultRobotsTimeout
	}
	return &RobotsPolicy{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		timeout:   timeout,
		client:    client,
		logger:    logger,
	}
}

// Fetch retrieves and parses robots.txt once. Any error or non-200 status
// leaves the policy in allow-all mode.
func (p *RobotsPolicy) Fetch() {
	if p.fetched {
		return
	}
	p.fetched = true

	robotsURL := fmt.Sprintf("%s/robots.txt", p.baseURL)

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		p.logger.Warn().Err(err).Str("url", robotsURL).Msg("Failed to build robots.txt request")
		return
	}
	req.Header.Set("User-Agent", p.userAgent)

	client := p.client
	if client == nil {
		client = &http.Client{}
	}

	resp, err := client.Do(req)
	if err != nil {
		p.logger.Warn().Err(err).Str("url", robotsURL).Msg("Failed to fetch robots.txt")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Info().Str("url", robotsURL).Int("status", resp.StatusCode).Msg("No robots.txt found")
		return
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.logger.Warn().Err(err).Str("url", robotsURL).Msg("Failed to read robots.txt body")
		return
	}

	robots, err := robotstxt.FromBytes(body)
	if err != nil {
		p.logger.Warn().Err(err).Str("url", robotsURL).Msg("Failed to parse robots.txt")
		return
	}
	p.group = robots.FindGroup(p.userAgent)

	p.parseDirectives(string(body))

	p.logger.Info().
		Str("url", robotsURL).
		Int("sitemaps", len(p.sitemaps)).
		Float64("crawl_delay", p.crawlDelay).
		Msg("robots.txt fetched")
}

// parseDirectives scans raw robots.txt content for Sitemap and Crawl-delay
// lines, which apply regardless of the matched agent group.
func (p *RobotsPolicy) parseDirectives(content string) {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		switch {
		case strings.HasPrefix(lower, "sitemap:"):
			parts := strings.SplitN(trimmed, ":", 2)
			if len(parts) == 2 {
				if sm := strings.TrimSpace(parts[1]); sm != "" {
					p.sitemaps = append(p.sitemaps, sm)
				}
			}
		case strings.HasPrefix(lower, "crawl-delay:"):
			parts := strings.SplitN(trimmed, ":", 2)
			if len(parts) == 2 {
				if delay, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err == nil {
					if delay < 0 {
						delay = 0
					}
					p.crawlDelay = delay
				}
			}
		}
	}
}

// IsAllowed reports whether the URL may be fetched. Defaults to true when
// no robots.txt was found or parsing failed.
func (p *RobotsPolicy) IsAllowed(rawURL string) bool {
	if p.group == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return p.group.Test(path)
}

// Sitemaps returns sitemap URLs declared in robots.txt.
func (p *RobotsPolicy) Sitemaps() []string {
	return p.sitemaps
}

// CrawlDelay returns the Crawl-delay directive in seconds, 0 when absent.
func (p *RobotsPolicy) CrawlDelay() float64 {
	return p.crawlDelay
}
