package evaluation

import (
	"fmt"
	"math"
	"strings"

	"github.com/noah-isme/essay-eval-api/internal/models"
)

// maxCorrections caps the corrections carried per rubric item into the final
// payload.
const maxCorrections = 50

// levelFactors scales the raw score sum per level. Factors are strictly
// non-increasing with strictness so the same raw scores never report higher
// at a stricter level.
var levelFactors = map[models.Level]float64{
	models.LevelBasic:        1.0,
	models.LevelIntermediate: 0.95,
	models.LevelAdvanced:     0.90,
	models.LevelExpert:       0.85,
}

// LevelFactor returns the scaling factor applied to the raw score sum for the
// given level. Pure and total; unknown levels fall back to Basic.
func LevelFactor(level models.Level) float64 {
	if factor, ok := levelFactors[level]; ok {
		return factor
	}
	return levelFactors[models.LevelBasic]
}

// Aggregate merges the grammar and structure outputs into the terminal result
// for one request. Pure function of its inputs; no model calls. Unavailable
// items are excluded from the sum and flagged through Partial; stored scores
// are never altered, consistency findings are advisory only.
func Aggregate(level models.Level, sections []models.SectionResult, grammar models.GrammarResult) models.AggregatedResult {
	sectionScores := make(map[models.Section]models.SectionResult, len(sections))

	sum := 0
	partial := false
	minScore, maxScore := math.MaxInt, math.MinInt
	for _, section := range sections {
		section.Corrections = capCorrections(section.Corrections)
		sectionScores[section.Section] = section

		if section.Unavailable {
			partial = true
			continue
		}
		sum += section.Score
		minScore = min(minScore, section.Score)
		maxScore = max(maxScore, section.Score)
	}

	grammar.Corrections = capCorrections(grammar.Corrections)
	if grammar.Unavailable {
		partial = true
	} else {
		sum += grammar.Score
		minScore = min(minScore, grammar.Score)
		maxScore = max(maxScore, grammar.Score)
	}

	total := LevelFactor(level) * float64(sum)
	total = math.Round(total*100) / 100

	return models.AggregatedResult{
		LevelGroup:    level,
		SectionScores: sectionScores,
		Grammar:       grammar,
		TotalScore:    total,
		Feedback:      combineFeedback(sections, grammar),
		Inconsistent:  maxScore == 2 && minScore == 0,
		Partial:       partial,
	}
}

// combineFeedback produces a deterministic summary in the fixed rubric order.
func combineFeedback(sections []models.SectionResult, grammar models.GrammarResult) string {
	parts := make([]string, 0, len(sections)+1)
	for _, section := range sections {
		parts = append(parts, fmt.Sprintf("%s: %s", titleCase(string(section.Section)), itemFeedback(section.Feedback, section.Unavailable)))
	}
	parts = append(parts, fmt.Sprintf("Grammar: %s", itemFeedback(grammar.Feedback, grammar.Unavailable)))
	return strings.Join(parts, "\n")
}

func itemFeedback(feedback string, unavailable bool) string {
	if unavailable {
		return "evaluation unavailable"
	}
	return feedback
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func capCorrections(corrections []models.Correction) []models.Correction {
	if corrections == nil {
		return []models.Correction{}
	}
	if len(corrections) > maxCorrections {
		return corrections[:maxCorrections]
	}
	return corrections
}
