package analyzer

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/censeo/internal/models"
)

const (
	maxTitleLength   = 512
	maxHeadingLength = 255
	maxAnchorLength  = 255
	maxLangLength    = 10

	// readingWordsPerMinute is the assumed reading speed behind the
	// reading-time estimate.
	readingWordsPerMinute = 225
)

// Service extracts on-page SEO signals from fetched documents. Analysis is
// synchronous and CPU-bound; one analyzer serves all jobs.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new analyzer service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// Analyze parses the fetched HTML and populates every on-page signal. Fetches
// with no body produce a minimal analysis carrying only transport facts.
func (s *Service) Analyze(result *models.CrawlResult) (*models.PageAnalysis, error) {
	analysis := &models.PageAnalysis{
		URL:         result.URL,
		FinalURL:    result.FinalURL,
		StatusCode:  result.StatusCode,
		IsHTTPS:     strings.HasPrefix(result.URL, "https://"),
		IsIndexable: true,
		IsCanonical: true,
	}
	if analysis.FinalURL == "" {
		analysis.FinalURL = result.URL
	}

	if result.HTML == "" {
		return analysis, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", result.URL, err)
	}

	s.extractBasicSEO(analysis, doc)
	s.extractHeadings(analysis, doc)
	s.extractContentSignals(analysis, doc, result.HTML)
	s.extractImages(analysis, doc)
	s.extractLinks(analysis, doc)

	sd := s.extractStructuredData(doc, analysis.FinalURL)
	analysis.HasSchemaMarkup = sd.hasSchema
	analysis.SchemaTypes = sd.schemaTypes
	if len(sd.ogData) > 0 {
		analysis.OGData = sd.ogData
	}
	if len(sd.twitterData) > 0 {
		analysis.TwitterData = sd.twitterData
	}

	analysis.HasViewport = doc.Find(`meta[name="viewport"]`).Length() > 0
	analysis.Keywords = keywordFrequencies(analysis.ContentText)

	s.logger.Debug().
		Str("url", analysis.URL).
		Int("word_count", analysis.WordCount).
		Int("links", len(analysis.Links)).
		Int("keywords", len(analysis.Keywords)).
		Msg("Page analyzed")

	return analysis, nil
}

// extractBasicSEO pulls title, meta directives, canonical and language
// signals out of the document head.
func (s *Service) extractBasicSEO(a *models.PageAnalysis, doc *goquery.Document) {
	a.Title = truncate(strings.TrimSpace(doc.Find("title").First().Text()), maxTitleLength)

	if desc, ok := firstMetaContent(doc, "description"); ok {
		a.MetaDescription = strings.TrimSpace(desc)
	}

	if robots, ok := firstMetaContent(doc, "robots"); ok {
		a.MetaRobots = strings.ToLower(strings.TrimSpace(robots))
		a.IsIndexable = !strings.Contains(a.MetaRobots, "noindex")
	}

	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		a.CanonicalURL = strings.TrimSpace(href)
		if a.CanonicalURL != "" && a.CanonicalURL != a.FinalURL {
			a.IsCanonical = false
		}
	}

	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		a.Lang = truncate(lang, maxLangLength)
	}

	a.HasHreflang = doc.Find("link[hreflang]").Length() > 0
}

func (s *Service) extractHeadings(a *models.PageAnalysis, doc *goquery.Document) {
	a.H1s = headingTexts(doc, "h1")
	a.H2s = headingTexts(doc, "h2")
	a.H3s = headingTexts(doc, "h3")
	a.H4s = headingTexts(doc, "h4")
	a.H5s = headingTexts(doc, "h5")
	a.H6s = headingTexts(doc, "h6")
}

// extractContentSignals fills the readable text and its derived metrics. The
// text-to-HTML ratio uses the whole document's text, not just the main body.
func (s *Service) extractContentSignals(a *models.PageAnalysis, doc *goquery.Document, rawHTML string) {
	a.ContentText = s.extractContent(rawHTML, a.FinalURL)
	a.WordCount = len(strings.Fields(a.ContentText))
	a.ReadingTimeSeconds = readingTime(a.WordCount)

	if len(rawHTML) > 0 {
		a.TextHTMLRatio = round3(float64(len(doc.Text())) / float64(len(rawHTML)))
	}
}

// extractImages tallies images by alt-text presence. An alt attribute that
// exists but is blank still counts as missing.
func (s *Service) extractImages(a *models.PageAnalysis, doc *goquery.Document) {
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		a.ImagesTotal++
		if alt, ok := sel.Attr("alt"); !ok || strings.TrimSpace(alt) == "" {
			a.ImagesMissingAlt++
		}
	})
}

// extractLinks resolves and classifies every anchor. Internality compares
// hosts with one leading "www." stripped from both sides.
func (s *Service) extractLinks(a *models.PageAnalysis, doc *goquery.Document) {
	base, err := url.Parse(a.FinalURL)
	if err != nil {
		s.logger.Warn().Str("url", a.FinalURL).Msg("Unparseable page URL, skipping link extraction")
		return
	}
	baseHost := strings.TrimPrefix(base.Host, "www.")

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		target := base.ResolveReference(ref)
		if target.Scheme != "http" && target.Scheme != "https" {
			return
		}

		link := models.ExtractedLink{
			TargetURL:  target.String(),
			AnchorText: truncate(strings.TrimSpace(sel.Text()), maxAnchorLength),
			IsInternal: strings.TrimPrefix(target.Host, "www.") == baseHost,
			IsFollowed: !hasRelValue(sel.AttrOr("rel", ""), "nofollow"),
		}
		a.Links = append(a.Links, link)
		if link.IsInternal {
			a.InternalLinksCount++
		} else {
			a.ExternalLinksCount++
		}
	})
}

// firstMetaContent returns the content of the first meta tag whose name
// equals name case-insensitively. A first match without content wins and
// yields nothing; later duplicates are never consulted.
func firstMetaContent(doc *goquery.Document, name string) (string, bool) {
	var content string
	var found bool
	doc.Find("meta[name]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !strings.EqualFold(sel.AttrOr("name", ""), name) {
			return true
		}
		if c, ok := sel.Attr("content"); ok && c != "" {
			content = c
			found = true
		}
		return false
	})
	return content, found
}

func headingTexts(doc *goquery.Document, tag string) []string {
	var texts []string
	doc.Find(tag).Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			texts = append(texts, truncate(text, maxHeadingLength))
		}
	})
	return texts
}

// hasRelValue reports whether value appears among the space-separated rel
// tokens.
func hasRelValue(rel, value string) bool {
	for _, v := range strings.Fields(rel) {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// readingTime estimates seconds to read wordCount words at the assumed
// speed, never reporting less than one second.
func readingTime(wordCount int) int {
	seconds := int(math.Round(float64(wordCount) / readingWordsPerMinute * 60))
	if seconds < 1 {
		return 1
	}
	return seconds
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// truncate shortens s to at most max runes, cutting on rune boundaries.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
