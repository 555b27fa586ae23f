package crawler

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// excludedExtensions lists path suffixes that never yield HTML worth analyzing.
var excludedExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico",
	".pdf", ".zip", ".tar", ".gz", ".mp4", ".mp3", ".avi",
	".css", ".js", ".woff", ".woff2", ".ttf", ".eot",
	".xlsx", ".docx", ".pptx", ".csv",
}

// excludedPatterns lists URL substrings that mark machine endpoints and
// CMS internals rather than pages.
var excludedPatterns = []string{
	"wp-json", "wp-admin", ".xml", "feed/", "/api/", "/__", "/cdn-cgi/",
}

// NormalizeURL canonicalizes a URL for visitation dedup: the fragment is
// dropped and a trailing slash is stripped unless the path is exactly "/".
// Returns "" for unparseable input.
func NormalizeURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	u.Fragment = ""

	normalized := u.String()
	if strings.HasSuffix(normalized, "/") && u.Path != "/" {
		normalized = strings.TrimRight(normalized, "/")
	}
	return normalized
}

// RegisteredDomain returns the public-suffix-aware eTLD+1 for a URL's host,
// so sub.example.com maps to example.com while example.co.uk stays intact.
// Returns "" when the host cannot be derived.
func RegisteredDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if host == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// Bare hosts like "localhost" have no public suffix; compare as-is.
		return strings.ToLower(host)
	}
	return strings.ToLower(domain)
}

// IsInternalURL reports whether a URL belongs to the same registered domain
// as the crawl's start URL.
func IsInternalURL(rawURL, registeredDomain string) bool {
	if registeredDomain == "" {
		return false
	}
	return RegisteredDomain(rawURL) == registeredDomain
}

// IsCrawlableURL filters out non-HTML resources and unwanted URL patterns.
func IsCrawlableURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	pathLower := strings.ToLower(u.Path)
	for _, ext := range excludedExtensions {
		if strings.HasSuffix(pathLower, ext) {
			return false
		}
	}

	urlLower := strings.ToLower(rawURL)
	for _, pattern := range excludedPatterns {
		if strings.Contains(urlLower, pattern) {
			return false
		}
	}

	return true
}

// ResolveURL resolves a possibly-relative href against a base URL and
// normalizes the result. Returns "" when either side fails to parse.
func ResolveURL(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return NormalizeURL(base.ResolveReference(ref).String())
}
