package evaluation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/noah-isme/essay-eval-api/internal/models"
	"github.com/noah-isme/essay-eval-api/pkg/ai"
)

// Caller is the observed model-call boundary both evaluators go through.
type Caller interface {
	Call(ctx context.Context, req ai.Request) (ai.Result, error)
}

// PromptSource resolves versioned prompts for the rubric items.
type PromptSource interface {
	Load(item, version string, level models.Level) (string, error)
}

// GrammarEvaluator runs the one-shot grammar evaluation of the whole text.
type GrammarEvaluator struct {
	caller  Caller
	prompts PromptSource
	version string
	logger  zerolog.Logger
}

// NewGrammarEvaluator builds a grammar evaluator bound to the active prompt
// version.
func NewGrammarEvaluator(caller Caller, prompts PromptSource, version string, logger zerolog.Logger) *GrammarEvaluator {
	return &GrammarEvaluator{
		caller:  caller,
		prompts: prompts,
		version: version,
		logger:  logger.With().Str("component", "grammar_evaluator").Logger(),
	}
}

// Evaluate checks the submission against the grammar rubric item. The model
// response is validated strictly; any structural mismatch escalates like a
// call failure.
func (g *GrammarEvaluator) Evaluate(ctx context.Context, text string, level models.Level) (models.GrammarResult, error) {
	system, err := g.prompts.Load(models.RubricItemGrammar, g.version, level)
	if err != nil {
		return models.GrammarResult{}, err
	}

	result, err := g.caller.Call(ctx, ai.Request{
		Name:          "grammar_check",
		PromptKey:     models.RubricItemGrammar,
		PromptVersion: g.version,
		Level:         string(level),
		OutputSchema:  grammarResultSchema,
		Messages: []ai.Message{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return models.GrammarResult{}, err
	}

	decoded, err := decodeGrammarResult(result.Content)
	if err != nil {
		g.logger.Warn().Err(err).Str("level", string(level)).Msg("grammar response rejected")
		return models.GrammarResult{}, err
	}

	return decoded, nil
}

func decodeGrammarResult(content json.RawMessage) (models.GrammarResult, error) {
	if err := validateAgainst(grammarResultSchema, content); err != nil {
		return models.GrammarResult{}, fmt.Errorf("grammar: %w", err)
	}

	var decoded struct {
		Score       int                 `json:"score"`
		Corrections []models.Correction `json:"corrections"`
		Feedback    string              `json:"feedback"`
	}
	if err := json.Unmarshal(content, &decoded); err != nil {
		return models.GrammarResult{}, fmt.Errorf("grammar: %w: %v", ErrParseFailure, err)
	}

	corrections := decoded.Corrections
	if corrections == nil {
		corrections = []models.Correction{}
	}

	return models.GrammarResult{
		Score:       decoded.Score,
		Corrections: corrections,
		Feedback:    decoded.Feedback,
	}, nil
}
