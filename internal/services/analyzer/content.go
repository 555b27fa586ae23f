package analyzer

import (
	"html"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// boilerplateSelector matches markup that never carries readable body text.
const boilerplateSelector = "script, style, noscript, nav, header, footer, aside, form, iframe"

// mainContentSelectors are tried in document order; the first match with any
// text becomes the readability root. Body is the fallback.
var mainContentSelectors = []string{
	"main", "article", "[role='main']", ".content", ".main-content", "#content", "#main",
}

var (
	mdImages   = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdLinks    = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdHeadings = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdRules    = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	mdBullets  = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s+`)
	mdQuotes   = regexp.MustCompile(`(?m)^>\s?`)
	mdTables   = regexp.MustCompile(`\||:?-{3,}:?`)

	htmlTags       = regexp.MustCompile(`<[^>]*>`)
	spaceRuns      = regexp.MustCompile(`[ \t]+`)
	blankLineRuns  = regexp.MustCompile(`\n{3,}`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// extractContent returns the readable main-body text of a document. The
// boilerplate chrome is dropped, the densest content region is converted to
// markdown and the markdown is flattened back to plain text. Tables
// contribute text, comments never do.
func (s *Service) extractContent(rawHTML, baseURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		s.logger.Warn().Err(err).Msg("Content parse failed, stripping tags instead")
		return flattenHTML(rawHTML)
	}

	doc.Find(boilerplateSelector).Remove()

	root := doc.Find("body").First()
	for _, selector := range mainContentSelectors {
		if match := doc.Find(selector).First(); match.Length() > 0 && strings.TrimSpace(match.Text()) != "" {
			root = match
			break
		}
	}
	if root.Length() == 0 {
		root = doc.Selection
	}

	regionHTML, err := goquery.OuterHtml(root)
	if err != nil || strings.TrimSpace(regionHTML) == "" {
		return ""
	}

	converter := md.NewConverter(baseURL, true, nil)
	markdown, err := converter.ConvertString(regionHTML)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Markdown conversion failed, stripping tags instead")
		return flattenHTML(regionHTML)
	}

	return flattenMarkdown(markdown)
}

// flattenMarkdown reduces markdown to plain text: links keep their anchor
// text, images and table or list syntax are dropped and formatting markers
// are stripped. Word boundaries survive so word counts stay honest.
func flattenMarkdown(markdown string) string {
	text := mdImages.ReplaceAllString(markdown, " ")
	text = mdLinks.ReplaceAllString(text, "$1")
	text = mdHeadings.ReplaceAllString(text, "")
	text = mdRules.ReplaceAllString(text, " ")
	text = mdBullets.ReplaceAllString(text, "")
	text = mdQuotes.ReplaceAllString(text, "")
	text = mdTables.ReplaceAllString(text, " ")
	text = strings.NewReplacer("**", "", "__", "", "*", "", "`", "").Replace(text)
	text = spaceRuns.ReplaceAllString(text, " ")
	text = blankLineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// flattenHTML is the fallback when conversion fails: tags are stripped,
// entities decoded and whitespace collapsed.
func flattenHTML(rawHTML string) string {
	stripped := htmlTags.ReplaceAllString(rawHTML, " ")
	stripped = html.UnescapeString(stripped)
	stripped = whitespaceRuns.ReplaceAllString(stripped, " ")
	return strings.TrimSpace(stripped)
}
