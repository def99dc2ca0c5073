package dto

import "github.com/noah-isme/essay-eval-api/internal/models"

// EssayEvalRequest is the inbound payload for one evaluation.
type EssayEvalRequest struct {
	LevelGroup  string `json:"level_group" validate:"required,oneof=Basic Intermediate Advanced Expert"`
	TopicPrompt string `json:"topic_prompt" validate:"required,min=3"`
	SubmitText  string `json:"submit_text" validate:"required,min=10,max=10000"`
}

// EssayEvalResponse is the externally observable artefact of one request.
type EssayEvalResponse struct {
	LevelGroup    models.Level                            `json:"level_group"`
	PreProcess    models.PreProcessResult                 `json:"pre_process"`
	SectionScores map[models.Section]models.SectionResult `json:"section_scores"`
	Grammar       models.GrammarResult                    `json:"grammar"`
	TotalScore    float64                                 `json:"total_score"`
	Feedback      string                                  `json:"feedback"`
	Inconsistent  bool                                    `json:"inconsistent,omitempty"`
	Partial       bool                                    `json:"partial,omitempty"`
	Timings       map[string]float64                      `json:"timings_ms"`
}

// NewEssayEvalResponse maps an aggregated result and its validation
// diagnostics into the response payload.
func NewEssayEvalResponse(pre models.PreProcessResult, agg models.AggregatedResult) EssayEvalResponse {
	return EssayEvalResponse{
		LevelGroup:    agg.LevelGroup,
		PreProcess:    pre,
		SectionScores: agg.SectionScores,
		Grammar:       agg.Grammar,
		TotalScore:    agg.TotalScore,
		Feedback:      agg.Feedback,
		Inconsistent:  agg.Inconsistent,
		Partial:       agg.Partial,
		Timings:       agg.Timings,
	}
}

// ValidationFailure describes why a submission was rejected before any model
// call was made.
type ValidationFailure struct {
	Reason     string                  `json:"reason"`
	PreProcess models.PreProcessResult `json:"pre_process"`
}

// UsageSummary reports cumulative token usage and estimated cost.
type UsageSummary struct {
	Calls            int64   `json:"calls"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}
