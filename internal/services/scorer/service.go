package scorer

import (
	"fmt"
	"math"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/censeo/internal/common"
	"github.com/ternarybob/censeo/internal/models"
)

// Raw point ceilings the additive dimensions renormalize against.
const (
	technicalMaxPoints = 90.0
	contentMaxPoints   = 95.0
)

// highValueSchemaTypes earn an AI-visibility bonus per matched type.
var highValueSchemaTypes = map[string]struct{}{
	"FAQPage": {}, "HowTo": {}, "Article": {}, "Product": {}, "LocalBusiness": {},
}

// Service computes multi-dimensional SEO scores. Each dimension is an
// additive point table clamped to [0,100]; the overall score is the
// configured weighted blend.
type Service struct {
	weights common.ScoringConfig
	logger  arbor.ILogger
}

// NewService creates a new scorer service
func NewService(config *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		weights: config.Scoring,
		logger:  logger,
	}
}

// ScorePage scores one page. inboundLinks is the count of internal links
// across the site pointing at this page; callers scoring mid-crawl pass 0
// and re-score once the link graph is resolved.
func (s *Service) ScorePage(page *models.Page, inboundLinks int) *models.Score {
	technical, technicalChecks := scoreTechnical(page)
	content, contentChecks := scoreContent(page)
	linking, linkingChecks := scoreLinking(page, inboundLinks)

	score := &models.Score{
		SiteID:            page.SiteID,
		PageID:            page.ID,
		TechnicalScore:    clamp(technical),
		ContentScore:      clamp(content),
		AuthorityScore:    clamp(scoreAuthority(inboundLinks)),
		LinkingScore:      clamp(linking),
		AIVisibilityScore: clamp(scoreAIVisibility(page)),
		Breakdown: models.Breakdown{
			models.DimensionTechnical: technicalChecks,
			models.DimensionContent:   contentChecks,
			models.DimensionLinking:   linkingChecks,
		},
		CreatedAt: time.Now(),
	}

	score.OverallScore = clamp(score.TechnicalScore*s.weights.TechnicalWeight +
		score.ContentScore*s.weights.ContentWeight +
		score.AuthorityScore*s.weights.AuthorityWeight +
		score.LinkingScore*s.weights.LinkingWeight +
		score.AIVisibilityScore*s.weights.AIVisibilityWeight)

	return score
}

// AggregateSite averages page scores into a site-level score. Dimension
// means round to 2 decimals; per-check aggregates carry avg_score, max and
// the percentage of max achieved.
func (s *Service) AggregateSite(scores []*models.Score) *models.Score {
	site := &models.Score{CreatedAt: time.Now()}
	if len(scores) == 0 {
		return site
	}
	site.SiteID = scores[0].SiteID

	n := float64(len(scores))
	var overall, technical, content, authority, linking, ai float64
	for _, sc := range scores {
		overall += sc.OverallScore
		technical += sc.TechnicalScore
		content += sc.ContentScore
		authority += sc.AuthorityScore
		linking += sc.LinkingScore
		ai += sc.AIVisibilityScore
	}

	site.OverallScore = round2(overall / n)
	site.TechnicalScore = round2(technical / n)
	site.ContentScore = round2(content / n)
	site.AuthorityScore = round2(authority / n)
	site.LinkingScore = round2(linking / n)
	site.AIVisibilityScore = round2(ai / n)
	site.Breakdown = models.Breakdown{
		models.DimensionTechnical: aggregateChecks(scores, models.DimensionTechnical),
		models.DimensionContent:   aggregateChecks(scores, models.DimensionContent),
		models.DimensionLinking:   aggregateChecks(scores, models.DimensionLinking),
	}

	return site
}

// scoreTechnical covers crawlability, security and delivery signals. Raw
// points max out at 90 and are renormalized to 100.
func scoreTechnical(page *models.Page) (float64, map[string]models.Check) {
	checks := make(map[string]models.Check, 11)
	total := 0.0

	httpsPts := 0.0
	if page.IsHTTPS {
		httpsPts = 10
	}
	total += httpsPts
	checks["https"] = check(httpsPts, 10, page.IsHTTPS)

	statusPts := 0.0
	switch {
	case page.StatusCode == 200:
		statusPts = 10
	case page.StatusCode > 200 && page.StatusCode < 400:
		statusPts = 5
	}
	total += statusPts
	checks["status_code"] = check(statusPts, 10, page.StatusCode)

	indexPts := 0.0
	if page.IsIndexable {
		indexPts = 15
	}
	total += indexPts
	checks["indexable"] = check(indexPts, 15, page.IsIndexable)

	viewportPts := 0.0
	if page.HasViewport {
		viewportPts = 5
	}
	total += viewportPts
	checks["viewport"] = check(viewportPts, 5, page.HasViewport)

	var loadPts float64
	switch {
	case page.LoadTimeMS <= 1000:
		loadPts = 10
	case page.LoadTimeMS <= 2000:
		loadPts = 7
	case page.LoadTimeMS <= 3000:
		loadPts = 5
	case page.LoadTimeMS <= 5000:
		loadPts = 2
	}
	total += loadPts
	checks["load_time"] = check(loadPts, 10, page.LoadTimeMS)

	sizeKB := float64(page.PageSizeBytes) / 1024
	var sizePts float64
	switch {
	case sizeKB < 500:
		sizePts = 10
	case sizeKB < 1024:
		sizePts = 7
	case sizeKB < 2048:
		sizePts = 3
	}
	total += sizePts
	checks["page_size"] = check(sizePts, 10, fmt.Sprintf("%.1f", sizeKB))

	canonicalPts := 0.0
	if page.CanonicalURL != "" {
		canonicalPts = 5
	}
	total += canonicalPts
	checks["canonical"] = check(canonicalPts, 5, page.CanonicalURL != "")

	schemaPts := 0.0
	schemaValue := any([]string{})
	if page.HasSchemaMarkup {
		schemaPts = 10
		schemaValue = page.SchemaTypes
	}
	total += schemaPts
	checks["schema_markup"] = check(schemaPts, 10, schemaValue)

	ogPts := 0.0
	if len(page.OGData) > 0 {
		ogPts = 5
	}
	total += ogPts
	checks["open_graph"] = check(ogPts, 5, len(page.OGData) > 0)

	twitterPts := 0.0
	if len(page.TwitterData) > 0 {
		twitterPts = 5
	}
	total += twitterPts
	checks["twitter_card"] = check(twitterPts, 5, len(page.TwitterData) > 0)

	hreflangPts := 0.0
	if page.HasHreflang {
		hreflangPts = 5
	}
	total += hreflangPts
	checks["hreflang"] = check(hreflangPts, 5, page.HasHreflang)

	return total / technicalMaxPoints * 100, checks
}

// scoreContent covers on-page quality signals. Raw points max out at 95 and
// are renormalized to 100.
func scoreContent(page *models.Page) (float64, map[string]models.Check) {
	checks := make(map[string]models.Check, 7)
	total := 0.0

	titleLen := page.TitleLength()
	var titlePts float64
	if page.Title != "" {
		switch {
		case titleLen >= 50 && titleLen <= 60:
			titlePts = 20
		case titleLen >= 30 && titleLen <= 70:
			titlePts = 15
		default:
			titlePts = 8
		}
	}
	total += titlePts
	checks["title"] = check(titlePts, 20, titleLen)

	descLen := page.MetaDescriptionLength()
	var descPts float64
	if page.MetaDescription != "" {
		switch {
		case descLen >= 150 && descLen <= 160:
			descPts = 15
		case descLen >= 100 && descLen <= 180:
			descPts = 10
		default:
			descPts = 5
		}
	}
	total += descPts
	checks["meta_description"] = check(descPts, 15, descLen)

	h1Count := len(page.H1s)
	var h1Pts float64
	switch {
	case h1Count == 1:
		h1Pts = 15
	case h1Count > 1:
		h1Pts = 8
	}
	total += h1Pts
	checks["h1"] = check(h1Pts, 15, h1Count)

	h2Count := len(page.H2s)
	var h2Pts float64
	switch {
	case h2Count >= 2:
		h2Pts = 5
	case h2Count == 1:
		h2Pts = 2
	}
	total += h2Pts
	checks["h2"] = check(h2Pts, 5, h2Count)

	var wcPts float64
	switch {
	case page.WordCount >= 1500:
		wcPts = 20
	case page.WordCount >= 800:
		wcPts = 15
	case page.WordCount >= 400:
		wcPts = 10
	case page.WordCount >= 200:
		wcPts = 5
	}
	total += wcPts
	checks["word_count"] = check(wcPts, 20, page.WordCount)

	altPts := 10.0
	if page.ImagesTotal > 0 {
		altPts = math.Round(float64(page.ImagesWithAlt()) / float64(page.ImagesTotal) * 10)
	}
	total += altPts
	checks["image_alt"] = check(altPts, 10, fmt.Sprintf("%d/%d", page.ImagesWithAlt(), page.ImagesTotal))

	var ratioPts float64
	switch {
	case page.TextHTMLRatio >= 0.3:
		ratioPts = 10
	case page.TextHTMLRatio >= 0.15:
		ratioPts = 5
	}
	total += ratioPts
	checks["text_ratio"] = check(ratioPts, 10, page.TextHTMLRatio)

	return total / contentMaxPoints * 100, checks
}

// scoreLinking covers the page's position in the internal link graph. The
// point table already sums to 100.
func scoreLinking(page *models.Page, inboundLinks int) (float64, map[string]models.Check) {
	checks := make(map[string]models.Check, 3)
	total := 0.0

	out := page.InternalLinksCount
	var outPts float64
	switch {
	case out >= 5:
		outPts = 30
	case out >= 2:
		outPts = 20
	case out >= 1:
		outPts = 10
	}
	total += outPts
	checks["outgoing_internal"] = check(outPts, 30, out)

	var qualityPts float64
	switch {
	case out >= 1 && out <= 50:
		qualityPts = 20
	case out > 100:
		qualityPts = 5
	}
	total += qualityPts
	checks["link_count_quality"] = check(qualityPts, 20, out)

	var inPts float64
	switch {
	case inboundLinks >= 10:
		inPts = 50
	case inboundLinks >= 5:
		inPts = 35
	case inboundLinks >= 2:
		inPts = 20
	case inboundLinks >= 1:
		inPts = 10
	}
	total += inPts
	checks["inbound_links"] = check(inPts, 50, inboundLinks)

	return total, checks
}

// scoreAuthority is a step function of inbound internal links. External
// backlink data would slot in here if a provider were wired up.
func scoreAuthority(inboundLinks int) float64 {
	switch {
	case inboundLinks >= 50:
		return 90
	case inboundLinks >= 20:
		return 75
	case inboundLinks >= 10:
		return 60
	case inboundLinks >= 5:
		return 45
	case inboundLinks >= 2:
		return 30
	case inboundLinks >= 1:
		return 15
	}
	return 5
}

// scoreAIVisibility measures how legible the page is to AI systems: schema
// markup, heading structure, social metadata and content depth.
func scoreAIVisibility(page *models.Page) float64 {
	score := 0.0

	if page.HasSchemaMarkup {
		score += 40
		for _, t := range page.SchemaTypes {
			if _, ok := highValueSchemaTypes[t]; ok {
				score += 10
			}
		}
	}

	if len(page.H1s) == 1 {
		score += 15
	}
	if len(page.H2s) >= 2 {
		score += 15
	}
	if len(page.OGData) > 0 {
		score += 10
	}
	if page.WordCount >= 1000 {
		score += 10
	}

	return clamp(score)
}

type checkAccumulator struct {
	total float64
	count int
	max   float64
}

// aggregateChecks averages one dimension's checks across all page scores.
func aggregateChecks(scores []*models.Score, dimension string) map[string]models.Check {
	sums := make(map[string]*checkAccumulator)
	for _, sc := range scores {
		for name, c := range sc.Breakdown[dimension] {
			acc, ok := sums[name]
			if !ok {
				acc = &checkAccumulator{max: c.Max}
				sums[name] = acc
			}
			acc.total += c.Score
			acc.count++
		}
	}

	out := make(map[string]models.Check, len(sums))
	for name, acc := range sums {
		avg := acc.total / float64(acc.count)
		out[name] = models.Check{
			AvgScore: round2(avg),
			Max:      acc.max,
			Pct:      round1(avg / math.Max(acc.max, 1) * 100),
		}
	}
	return out
}

func check(score, max float64, value any) models.Check {
	return models.Check{Score: score, Max: max, Value: fmt.Sprint(value)}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
