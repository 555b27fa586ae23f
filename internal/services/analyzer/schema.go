package analyzer

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// structuredData summarizes the machine-readable markup found on a page.
type structuredData struct {
	hasSchema   bool
	schemaTypes []string
	ogData      map[string]string
	twitterData map[string]string
}

// extractStructuredData runs one uniform pass over JSON-LD, microdata, RDFa
// and social meta tags. Schema types come from JSON-LD only and are
// intersected with the SEO-relevant set; Open Graph tags alone do not count
// as schema markup.
func (s *Service) extractStructuredData(doc *goquery.Document, pageURL string) structuredData {
	sd := structuredData{
		ogData:      make(map[string]string),
		twitterData: make(map[string]string),
	}

	types := make(map[string]struct{})
	jsonLDBlocks := 0
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}
		var payload any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			s.logger.Warn().Err(err).Str("url", pageURL).Msg("Skipping invalid JSON-LD block")
			return
		}
		jsonLDBlocks++
		collectSchemaTypes(payload, types)
	})

	sd.hasSchema = jsonLDBlocks > 0 ||
		doc.Find("[itemscope]").Length() > 0 ||
		doc.Find("[typeof], [vocab]").Length() > 0

	for t := range types {
		if _, ok := seoSchemaTypes[t]; ok {
			sd.schemaTypes = append(sd.schemaTypes, t)
		}
	}
	sort.Strings(sd.schemaTypes)

	doc.Find("meta[property]").Each(func(_ int, sel *goquery.Selection) {
		property, _ := sel.Attr("property")
		content, _ := sel.Attr("content")
		if key, ok := socialKey(property, "og:"); ok && content != "" {
			sd.ogData[key] = content
		}
	})
	doc.Find("meta[name]").Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr("name")
		content, _ := sel.Attr("content")
		if key, ok := socialKey(name, "twitter:"); ok && content != "" {
			sd.twitterData[key] = content
		}
	})

	return sd
}

// collectSchemaTypes walks decoded JSON-LD, following top-level arrays and
// @graph nodes, and records every @type it finds. The walk does not descend
// into arbitrary nested objects.
func collectSchemaTypes(node any, out map[string]struct{}) {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			collectSchemaTypes(item, out)
		}
	case map[string]any:
		switch t := v["@type"].(type) {
		case string:
			if t != "" {
				out[t] = struct{}{}
			}
		case []any:
			for _, entry := range t {
				if name, ok := entry.(string); ok && name != "" {
					out[name] = struct{}{}
				}
			}
		}
		if graph, ok := v["@graph"]; ok {
			collectSchemaTypes(graph, out)
		}
	}
}

// socialKey strips a social meta prefix case-insensitively. Bare prefix tags
// with no remainder are rejected.
func socialKey(attr, prefix string) (string, bool) {
	if len(attr) <= len(prefix) || !strings.EqualFold(attr[:len(prefix)], prefix) {
		return "", false
	}
	return attr[len(prefix):], true
}
