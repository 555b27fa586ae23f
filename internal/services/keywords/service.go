package keywords

import (
	"math"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/censeo/internal/models"
)

const (
	// maxAggregatedKeywords bounds how many terms are considered per site,
	// taken by aggregate frequency before filtering.
	maxAggregatedKeywords = 500

	minKeywordLength = 3
	maxPageURLs      = 5

	baseVolume        = 1000
	frequencyBonusCap = 5000
)

// positionCTR maps organic search positions to typical click-through rates.
// Positions between entries are linearly interpolated.
var positionCTR = map[int]float64{
	1:  0.284,
	2:  0.152,
	3:  0.099,
	4:  0.073,
	5:  0.058,
	6:  0.046,
	7:  0.036,
	8:  0.031,
	9:  0.027,
	10: 0.024,
	11: 0.018,
	12: 0.015,
	13: 0.013,
	14: 0.011,
	15: 0.009,
	20: 0.006,
	30: 0.003,
	50: 0.001,
}

var ctrPositions = func() []int {
	positions := make([]int, 0, len(positionCTR))
	for p := range positionCTR {
		positions = append(positions, p)
	}
	sort.Ints(positions)
	return positions
}()

// Service aggregates keywords across a site's pages and estimates the
// opportunity of ranking each one higher. Volume, difficulty and rank are
// heuristic stand-ins for data a rank-tracking API would provide.
type Service struct {
	targetRank int
	logger     arbor.ILogger
}

// NewService creates a new keyword service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		targetRank: models.DefaultTargetRank,
		logger:     logger,
	}
}

// Aggregate sums keyword frequencies across pages and returns opportunity
// records sorted by opportunity score descending.
func (s *Service) Aggregate(pages []*models.Page) []*models.Keyword {
	totalFreq := make(map[string]int)
	keywordPages := make(map[string][]string)
	totalWords := 0

	for _, page := range pages {
		for keyword, count := range page.Keywords {
			keywordPages[keyword] = append(keywordPages[keyword], page.URL)
			totalFreq[keyword] += count
			totalWords += count
		}
	}

	targetCTR := ctrForPosition(s.targetRank)

	var results []*models.Keyword
	for _, entry := range topByFrequency(totalFreq, maxAggregatedKeywords) {
		keyword, freq := entry.keyword, entry.count
		if len(keyword) < minKeywordLength || isAllDigits(keyword) {
			continue
		}

		volume := estimateVolume(keyword, freq)
		difficulty := estimateDifficulty(keyword)
		currentRank := estimateCurrentRank(freq)

		var rankGap *int
		if currentRank > s.targetRank {
			gap := currentRank - s.targetRank
			rankGap = &gap
		}

		score := 0.0
		if rankGap != nil && *rankGap > 0 {
			score = opportunityScore(volume, targetCTR, *rankGap, float64(difficulty))
		}

		urls := keywordPages[keyword]
		if len(urls) > maxPageURLs {
			urls = urls[:maxPageURLs]
		}

		rank := currentRank
		kw := &models.Keyword{
			Keyword:             keyword,
			Frequency:           freq,
			Density:             round4(float64(freq) / math.Max(float64(totalWords), 1) * 100),
			EstimatedVolume:     volume,
			EstimatedDifficulty: difficulty,
			CurrentRank:         &rank,
			TargetRank:          s.targetRank,
			RankGap:             rankGap,
			CTRPotential:        targetCTR,
			OpportunityScore:    score,
			IsOpportunity:       score > models.OpportunityThreshold,
			PageURLs:            urls,
		}
		if len(pages) > 0 {
			kw.SiteID = pages[0].SiteID
		}
		results = append(results, kw)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].OpportunityScore > results[j].OpportunityScore
	})

	s.logger.Debug().
		Int("pages", len(pages)).
		Int("keywords", len(results)).
		Msg("Keyword aggregation complete")
	return results
}

type frequencyEntry struct {
	keyword string
	count   int
}

// topByFrequency returns the n highest-frequency terms, ties broken
// alphabetically so output is stable across runs.
func topByFrequency(freq map[string]int, n int) []frequencyEntry {
	entries := make([]frequencyEntry, 0, len(freq))
	for keyword, count := range freq {
		entries = append(entries, frequencyEntry{keyword, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].keyword < entries[j].keyword
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// ctrForPosition estimates organic CTR at a search position, interpolating
// between known curve points. Positions past 50 get a residual 0.0005.
func ctrForPosition(position int) float64 {
	if position <= 0 {
		return 0.0
	}
	if ctr, ok := positionCTR[position]; ok {
		return ctr
	}
	if position > 50 {
		return 0.0005
	}
	for i := 0; i < len(ctrPositions)-1; i++ {
		p1, p2 := ctrPositions[i], ctrPositions[i+1]
		if p1 <= position && position <= p2 {
			c1, c2 := positionCTR[p1], positionCTR[p2]
			ratio := float64(position-p1) / float64(p2-p1)
			return c1 + ratio*(c2-c1)
		}
	}
	return 0.001
}

// opportunityScore computes volume * ctr * rankGap / difficulty, compressed
// onto 0-100 with a log scale.
func opportunityScore(volume int, ctr float64, rankGap int, difficulty float64) float64 {
	if difficulty <= 0 {
		difficulty = 1.0
	}
	if volume <= 0 || ctr <= 0 || rankGap <= 0 {
		return 0.0
	}
	raw := float64(volume) * ctr * float64(rankGap) / difficulty
	return round2(math.Min(100.0, math.Log1p(raw)*8))
}

// estimateVolume guesses monthly search volume: head terms carry a larger
// base, and frequent site usage adds a capped bonus.
func estimateVolume(keyword string, siteFrequency int) int {
	multiplier := 1
	switch len(strings.Fields(keyword)) {
	case 1:
		multiplier = 10
	case 2:
		multiplier = 4
	case 3:
		multiplier = 2
	}

	bonus := siteFrequency * 50
	if bonus > frequencyBonusCap {
		bonus = frequencyBonusCap
	}
	return baseVolume*multiplier + bonus
}

// estimateDifficulty guesses ranking difficulty: short head terms are harder,
// long-tail phrases easier.
func estimateDifficulty(keyword string) int {
	switch len(strings.Fields(keyword)) {
	case 1:
		return 75
	case 2:
		return 55
	case 3:
		return 40
	default:
		return 25
	}
}

// estimateCurrentRank guesses the current position from how prominently the
// site uses the term.
func estimateCurrentRank(siteFrequency int) int {
	switch {
	case siteFrequency >= 50:
		return 8
	case siteFrequency >= 20:
		return 15
	case siteFrequency >= 10:
		return 25
	case siteFrequency >= 5:
		return 40
	default:
		return 60
	}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
