package scorer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/censeo/internal/common"
	"github.com/ternarybob/censeo/internal/models"
)

func newScorer() *Service {
	return NewService(common.NewDefaultConfig(), common.GetLogger())
}

// perfectPage maxes every signal in every dimension.
func perfectPage() *models.Page {
	return &models.Page{
		ID:                 "page-1",
		SiteID:             "site-1",
		IsHTTPS:            true,
		StatusCode:         200,
		IsIndexable:        true,
		HasViewport:        true,
		LoadTimeMS:         500,
		PageSizeBytes:      100 * 1024,
		CanonicalURL:       "https://example.com/",
		HasSchemaMarkup:    true,
		SchemaTypes:        []string{"FAQPage", "HowTo", "Article", "Product", "LocalBusiness"},
		OGData:             map[string]string{"title": "t"},
		TwitterData:        map[string]string{"card": "summary"},
		HasHreflang:        true,
		Title:              strings.Repeat("t", 55),
		MetaDescription:    strings.Repeat("m", 155),
		H1s:                []string{"one"},
		H2s:                []string{"a", "b"},
		WordCount:          1600,
		ImagesTotal:        2,
		ImagesMissingAlt:   0,
		TextHTMLRatio:      0.4,
		InternalLinksCount: 10,
	}
}

func technicalCheck(t *testing.T, score *models.Score, name string) models.Check {
	t.Helper()
	c, ok := score.Breakdown[models.DimensionTechnical][name]
	require.True(t, ok, "missing technical check %q", name)
	return c
}

func contentCheck(t *testing.T, score *models.Score, name string) models.Check {
	t.Helper()
	c, ok := score.Breakdown[models.DimensionContent][name]
	require.True(t, ok, "missing content check %q", name)
	return c
}

func TestScorePagePerfect(t *testing.T) {
	score := newScorer().ScorePage(perfectPage(), 50)

	assert.InDelta(t, 100, score.TechnicalScore, 0.001)
	assert.InDelta(t, 100, score.ContentScore, 0.001)
	assert.InDelta(t, 100, score.LinkingScore, 0.001)
	assert.InDelta(t, 90, score.AuthorityScore, 0.001)
	assert.InDelta(t, 100, score.AIVisibilityScore, 0.001)
	assert.InDelta(t, 98, score.OverallScore, 0.001)
	assert.Equal(t, "site-1", score.SiteID)
	assert.Equal(t, "page-1", score.PageID)
}

func TestScorePageEmptyPage(t *testing.T) {
	score := newScorer().ScorePage(&models.Page{}, 0)

	// A zero page still earns load-time, page-size and image-alt points.
	assert.InDelta(t, 20.0/90*100, score.TechnicalScore, 0.01)
	assert.InDelta(t, 10.0/95*100, score.ContentScore, 0.01)
	assert.Zero(t, score.LinkingScore)
	assert.InDelta(t, 5, score.AuthorityScore, 0.001)
	assert.Zero(t, score.AIVisibilityScore)
}

func TestOverallIsWeightedBlend(t *testing.T) {
	cfg := common.NewDefaultConfig()
	svc := NewService(cfg, common.GetLogger())

	pages := []*models.Page{
		perfectPage(),
		{},
		{IsHTTPS: true, StatusCode: 301, Title: "short", WordCount: 450, InternalLinksCount: 3},
	}
	for _, page := range pages {
		score := svc.ScorePage(page, 2)

		for _, dim := range []float64{
			score.TechnicalScore, score.ContentScore, score.AuthorityScore,
			score.LinkingScore, score.AIVisibilityScore,
		} {
			assert.GreaterOrEqual(t, dim, 0.0)
			assert.LessOrEqual(t, dim, 100.0)
		}

		want := score.TechnicalScore*cfg.Scoring.TechnicalWeight +
			score.ContentScore*cfg.Scoring.ContentWeight +
			score.AuthorityScore*cfg.Scoring.AuthorityWeight +
			score.LinkingScore*cfg.Scoring.LinkingWeight +
			score.AIVisibilityScore*cfg.Scoring.AIVisibilityWeight
		assert.InDelta(t, want, score.OverallScore, 0.01)
	}
}

func TestLoadTimeBoundaries(t *testing.T) {
	tests := []struct {
		ms   int64
		want float64
	}{
		{500, 10}, {1000, 10}, {1001, 7}, {2000, 7}, {2001, 5},
		{3000, 5}, {3001, 2}, {5000, 2}, {5001, 0},
	}

	svc := newScorer()
	for _, tt := range tests {
		score := svc.ScorePage(&models.Page{LoadTimeMS: tt.ms}, 0)
		assert.Equal(t, tt.want, technicalCheck(t, score, "load_time").Score, "ms=%d", tt.ms)
	}
}

func TestPageSizeBoundaries(t *testing.T) {
	tests := []struct {
		kb   int
		want float64
	}{
		{100, 10}, {499, 10}, {500, 7}, {1023, 7}, {1024, 3}, {2047, 3}, {2048, 0},
	}

	svc := newScorer()
	for _, tt := range tests {
		score := svc.ScorePage(&models.Page{PageSizeBytes: tt.kb * 1024}, 0)
		assert.Equal(t, tt.want, technicalCheck(t, score, "page_size").Score, "kb=%d", tt.kb)
	}
}

func TestStatusCodePoints(t *testing.T) {
	tests := []struct {
		status int
		want   float64
	}{
		{200, 10}, {301, 5}, {302, 5}, {399, 5}, {400, 0}, {404, 0}, {500, 0},
	}

	svc := newScorer()
	for _, tt := range tests {
		score := svc.ScorePage(&models.Page{StatusCode: tt.status}, 0)
		assert.Equal(t, tt.want, technicalCheck(t, score, "status_code").Score, "status=%d", tt.status)
	}
}

func TestTitleLengthBoundaries(t *testing.T) {
	tests := []struct {
		length int
		want   float64
	}{
		{0, 0}, {1, 8}, {29, 8}, {30, 15}, {49, 15}, {50, 20},
		{60, 20}, {61, 15}, {70, 15}, {71, 8},
	}

	svc := newScorer()
	for _, tt := range tests {
		page := &models.Page{Title: strings.Repeat("x", tt.length)}
		score := svc.ScorePage(page, 0)
		assert.Equal(t, tt.want, contentCheck(t, score, "title").Score, "len=%d", tt.length)
	}
}

func TestMetaDescriptionBoundaries(t *testing.T) {
	tests := []struct {
		length int
		want   float64
	}{
		{0, 0}, {50, 5}, {99, 5}, {100, 10}, {149, 10}, {150, 15},
		{160, 15}, {161, 10}, {180, 10}, {181, 5},
	}

	svc := newScorer()
	for _, tt := range tests {
		page := &models.Page{MetaDescription: strings.Repeat("x", tt.length)}
		score := svc.ScorePage(page, 0)
		assert.Equal(t, tt.want, contentCheck(t, score, "meta_description").Score, "len=%d", tt.length)
	}
}

func TestWordCountSteps(t *testing.T) {
	tests := []struct {
		words int
		want  float64
	}{
		{0, 0}, {199, 0}, {200, 5}, {399, 5}, {400, 10}, {799, 10},
		{800, 15}, {1499, 15}, {1500, 20},
	}

	svc := newScorer()
	for _, tt := range tests {
		score := svc.ScorePage(&models.Page{WordCount: tt.words}, 0)
		assert.Equal(t, tt.want, contentCheck(t, score, "word_count").Score, "words=%d", tt.words)
	}
}

func TestImageAltCoverage(t *testing.T) {
	tests := []struct {
		total   int
		missing int
		want    float64
	}{
		{0, 0, 10},
		{2, 0, 10},
		{2, 1, 5},
		{3, 3, 0},
		{4, 1, 8},
	}

	svc := newScorer()
	for _, tt := range tests {
		page := &models.Page{ImagesTotal: tt.total, ImagesMissingAlt: tt.missing}
		score := svc.ScorePage(page, 0)
		assert.Equal(t, tt.want, contentCheck(t, score, "image_alt").Score,
			"total=%d missing=%d", tt.total, tt.missing)
	}
}

func TestHeadingPoints(t *testing.T) {
	svc := newScorer()

	headings := func(n int) []string { return make([]string, n) }
	assert.Equal(t, 15.0, contentCheck(t, svc.ScorePage(&models.Page{H1s: headings(1)}, 0), "h1").Score)
	assert.Equal(t, 8.0, contentCheck(t, svc.ScorePage(&models.Page{H1s: headings(2)}, 0), "h1").Score)
	assert.Equal(t, 0.0, contentCheck(t, svc.ScorePage(&models.Page{}, 0), "h1").Score)

	assert.Equal(t, 5.0, contentCheck(t, svc.ScorePage(&models.Page{H2s: headings(2)}, 0), "h2").Score)
	assert.Equal(t, 2.0, contentCheck(t, svc.ScorePage(&models.Page{H2s: headings(1)}, 0), "h2").Score)
	assert.Equal(t, 0.0, contentCheck(t, svc.ScorePage(&models.Page{}, 0), "h2").Score)
}

func TestTextRatioSteps(t *testing.T) {
	tests := []struct {
		ratio float64
		want  float64
	}{
		{0.4, 10}, {0.3, 10}, {0.29, 5}, {0.15, 5}, {0.149, 0}, {0, 0},
	}

	svc := newScorer()
	for _, tt := range tests {
		score := svc.ScorePage(&models.Page{TextHTMLRatio: tt.ratio}, 0)
		assert.Equal(t, tt.want, contentCheck(t, score, "text_ratio").Score, "ratio=%v", tt.ratio)
	}
}

func TestLinkingScoreTable(t *testing.T) {
	tests := []struct {
		outgoing int
		inbound  int
		want     float64
	}{
		{0, 0, 0},
		{1, 0, 30},  // 10 outgoing + 20 quality
		{2, 0, 40},  // 20 + 20
		{5, 0, 50},  // 30 + 20
		{51, 0, 30}, // 30 + 0: over the quality band
		{101, 0, 35},
		{5, 1, 60},
		{5, 2, 70},
		{5, 5, 85},
		{5, 10, 100},
	}

	svc := newScorer()
	for _, tt := range tests {
		page := &models.Page{InternalLinksCount: tt.outgoing}
		score := svc.ScorePage(page, tt.inbound)
		assert.InDelta(t, tt.want, score.LinkingScore, 0.001,
			"out=%d in=%d", tt.outgoing, tt.inbound)
	}
}

func TestAuthoritySteps(t *testing.T) {
	tests := []struct {
		inbound int
		want    float64
	}{
		{0, 5}, {1, 15}, {2, 30}, {4, 30}, {5, 45}, {9, 45},
		{10, 60}, {19, 60}, {20, 75}, {49, 75}, {50, 90}, {500, 90},
	}

	svc := newScorer()
	for _, tt := range tests {
		score := svc.ScorePage(&models.Page{}, tt.inbound)
		assert.InDelta(t, tt.want, score.AuthorityScore, 0.001, "inbound=%d", tt.inbound)
	}
}

func TestAIVisibility(t *testing.T) {
	svc := newScorer()

	full := svc.ScorePage(perfectPage(), 0)
	assert.InDelta(t, 100, full.AIVisibilityScore, 0.001)

	noSchema := svc.ScorePage(&models.Page{
		H1s:       []string{"one"},
		H2s:       []string{"a", "b", "c"},
		OGData:    map[string]string{"title": "t"},
		WordCount: 1200,
	}, 0)
	assert.InDelta(t, 50, noSchema.AIVisibilityScore, 0.001)

	// Schema type bonus requires schema markup to be present at all.
	typesOnly := svc.ScorePage(&models.Page{SchemaTypes: []string{"FAQPage"}}, 0)
	assert.Zero(t, typesOnly.AIVisibilityScore)

	schemaPlain := svc.ScorePage(&models.Page{
		HasSchemaMarkup: true,
		SchemaTypes:     []string{"BreadcrumbList"},
	}, 0)
	assert.InDelta(t, 40, schemaPlain.AIVisibilityScore, 0.001)
}

func TestAggregateSiteMeans(t *testing.T) {
	scores := []*models.Score{
		{
			SiteID:            "site-1",
			OverallScore:      80,
			TechnicalScore:    70,
			ContentScore:      60,
			AuthorityScore:    50,
			LinkingScore:      40,
			AIVisibilityScore: 30,
			Breakdown: models.Breakdown{
				models.DimensionTechnical: {
					"https":    {Score: 10, Max: 10},
					"viewport": {Score: 5, Max: 5},
				},
			},
		},
		{
			SiteID:            "site-1",
			OverallScore:      90,
			TechnicalScore:    90,
			ContentScore:      80,
			AuthorityScore:    70,
			LinkingScore:      60,
			AIVisibilityScore: 50,
			Breakdown: models.Breakdown{
				models.DimensionTechnical: {
					"https": {Score: 0, Max: 10},
				},
			},
		},
	}

	site := newScorer().AggregateSite(scores)

	assert.Equal(t, "site-1", site.SiteID)
	assert.Empty(t, site.PageID)
	assert.InDelta(t, 85, site.OverallScore, 0.001)
	assert.InDelta(t, 80, site.TechnicalScore, 0.001)
	assert.InDelta(t, 70, site.ContentScore, 0.001)
	assert.InDelta(t, 60, site.AuthorityScore, 0.001)
	assert.InDelta(t, 50, site.LinkingScore, 0.001)
	assert.InDelta(t, 40, site.AIVisibilityScore, 0.001)

	https := site.Breakdown[models.DimensionTechnical]["https"]
	assert.InDelta(t, 5, https.AvgScore, 0.001)
	assert.InDelta(t, 50, https.Pct, 0.001)

	// Checks present on only some pages average over those pages alone.
	viewport := site.Breakdown[models.DimensionTechnical]["viewport"]
	assert.InDelta(t, 5, viewport.AvgScore, 0.001)
	assert.InDelta(t, 100, viewport.Pct, 0.001)
}

func TestAggregateSiteEmpty(t *testing.T) {
	site := newScorer().AggregateSite(nil)

	assert.Zero(t, site.OverallScore)
	assert.Zero(t, site.TechnicalScore)
	assert.Empty(t, site.SiteID)
}

func TestSiteMeansRoundToTwoDecimals(t *testing.T) {
	scores := []*models.Score{
		{OverallScore: 70}, {OverallScore: 80}, {OverallScore: 85},
	}

	site := newScorer().AggregateSite(scores)

	// (70+80+85)/3 = 78.333...
	assert.Equal(t, 78.33, site.OverallScore)
}
