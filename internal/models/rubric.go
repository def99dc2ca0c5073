package models

import "fmt"

// Level identifies one of the four rubric difficulty tiers, ordered by
// ascending strictness.
type Level string

const (
	LevelBasic        Level = "Basic"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
	LevelExpert       Level = "Expert"
)

// Levels lists all tiers from least to most strict.
var Levels = []Level{LevelBasic, LevelIntermediate, LevelAdvanced, LevelExpert}

// ParseLevel validates and normalises a level name from an inbound request.
func ParseLevel(raw string) (Level, error) {
	switch Level(raw) {
	case LevelBasic, LevelIntermediate, LevelAdvanced, LevelExpert:
		return Level(raw), nil
	}
	return "", fmt.Errorf("unknown rubric level %q", raw)
}

// Strictness returns the tier's position in the ordering, 0 for Basic.
func (l Level) Strictness() int {
	for i, candidate := range Levels {
		if l == candidate {
			return i
		}
	}
	return 0
}

// Section identifies one of the three structural rubric items.
type Section string

const (
	SectionIntroduction Section = "introduction"
	SectionBody         Section = "body"
	SectionConclusion   Section = "conclusion"
)

// Sections lists the structural rubric items in evaluation order.
var Sections = []Section{SectionIntroduction, SectionBody, SectionConclusion}

// RubricItemGrammar is the prompt key for the grammar rubric item.
const RubricItemGrammar = "grammar"

// Correction pairs a highlighted passage with its suggested replacement.
type Correction struct {
	Highlight  string `json:"highlight"`
	Issue      string `json:"issue"`
	Correction string `json:"correction"`
}

// SectionResult is the outcome of evaluating one structural section.
// Unavailable marks sections the chain never reached or that failed after
// exhausting retries; their Score/Feedback must be ignored.
type SectionResult struct {
	Section       Section      `json:"section"`
	Score         int          `json:"score"`
	Corrections   []Correction `json:"corrections"`
	Feedback      string       `json:"feedback"`
	CorrectedText string       `json:"corrected_text,omitempty"`
	Unavailable   bool         `json:"unavailable,omitempty"`
}

// GrammarResult is the outcome of the whole-text grammar evaluation.
type GrammarResult struct {
	Score       int          `json:"score"`
	Corrections []Correction `json:"corrections"`
	Feedback    string       `json:"feedback"`
	Unavailable bool         `json:"unavailable,omitempty"`
}

// PreProcessResult carries the validation gate's diagnostics. Derived purely
// from the submission, before any model call.
type PreProcessResult struct {
	WordCount              int  `json:"word_count"`
	IsEnglish              bool `json:"is_english"`
	MeetsLengthRequirement bool `json:"meets_length_requirement"`
	IsValid                bool `json:"is_valid"`
}

// AggregatedResult is the terminal artefact of one evaluation request.
type AggregatedResult struct {
	LevelGroup    Level                     `json:"level_group"`
	SectionScores map[Section]SectionResult `json:"section_scores"`
	Grammar       GrammarResult             `json:"grammar"`
	TotalScore    float64                   `json:"total_score"`
	Feedback      string                    `json:"feedback"`
	Inconsistent  bool                      `json:"inconsistent,omitempty"`
	Partial       bool                      `json:"partial,omitempty"`
	Timings       map[string]float64        `json:"timings_ms"`
}
