package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/noah-isme/essay-eval-api/internal/models"
	"github.com/noah-isme/essay-eval-api/pkg/ai"
)

// StructureChainEvaluator evaluates introduction, body, and conclusion
// strictly in that order. Each call carries the previous section's feedback
// so later sections are judged with knowledge of what was already credited.
type StructureChainEvaluator struct {
	caller  Caller
	prompts PromptSource
	version string
	logger  zerolog.Logger
}

// NewStructureChainEvaluator builds the sequential section evaluator.
func NewStructureChainEvaluator(caller Caller, prompts PromptSource, version string, logger zerolog.Logger) *StructureChainEvaluator {
	return &StructureChainEvaluator{
		caller:  caller,
		prompts: prompts,
		version: version,
		logger:  logger.With().Str("component", "structure_evaluator").Logger(),
	}
}

// Evaluate runs the chain. The returned slice always covers exactly the three
// sections in order; on a failure the unreached sections are marked
// unavailable and the error is returned alongside the partial results for the
// orchestrator's policy to resolve.
func (s *StructureChainEvaluator) Evaluate(ctx context.Context, text string, level models.Level) ([]models.SectionResult, error) {
	results := make([]models.SectionResult, 0, len(models.Sections))
	carried := ""

	for _, section := range models.Sections {
		system, err := s.prompts.Load(string(section), s.version, level)
		if err != nil {
			s.logger.Warn().Err(err).Str("section", string(section)).Msg("section chain halted")
			return padUnavailable(results), err
		}

		result, err := s.caller.Call(ctx, ai.Request{
			Name:          string(section) + "_eval",
			PromptKey:     string(section),
			PromptVersion: s.version,
			Level:         string(level),
			OutputSchema:  sectionResultSchema,
			Messages: []ai.Message{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: buildSectionInput(text, carried)},
			},
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("section", string(section)).Msg("section chain halted")
			return padUnavailable(results), err
		}

		sectionResult, err := decodeSectionResult(section, result.Content)
		if err != nil {
			s.logger.Warn().Err(err).Str("section", string(section)).Msg("section chain halted")
			return padUnavailable(results), err
		}

		results = append(results, sectionResult)
		carried = sectionResult.Feedback
	}

	return results, nil
}

// buildSectionInput seeds the call with the running context from the
// preceding section; empty for the first call.
func buildSectionInput(text, carried string) string {
	builder := strings.Builder{}
	if carried != "" {
		builder.WriteString("## Previous section feedback\n")
		builder.WriteString(carried)
		builder.WriteString("\n\n")
	}
	builder.WriteString("## Submission\n")
	builder.WriteString(text)
	return builder.String()
}

// padUnavailable extends partial chain output so the result always covers the
// three fixed sections.
func padUnavailable(results []models.SectionResult) []models.SectionResult {
	for i := len(results); i < len(models.Sections); i++ {
		results = append(results, models.SectionResult{
			Section:     models.Sections[i],
			Corrections: []models.Correction{},
			Unavailable: true,
		})
	}
	return results
}

func decodeSectionResult(section models.Section, content json.RawMessage) (models.SectionResult, error) {
	if err := validateAgainst(sectionResultSchema, content); err != nil {
		return models.SectionResult{}, fmt.Errorf("%s: %w", section, err)
	}

	var decoded struct {
		Score         int                 `json:"score"`
		Corrections   []models.Correction `json:"corrections"`
		Feedback      string              `json:"feedback"`
		CorrectedText string              `json:"corrected_text"`
	}
	if err := json.Unmarshal(content, &decoded); err != nil {
		return models.SectionResult{}, fmt.Errorf("%s: %w: %v", section, ErrParseFailure, err)
	}

	corrections := decoded.Corrections
	if corrections == nil {
		corrections = []models.Correction{}
	}

	return models.SectionResult{
		Section:       section,
		Score:         decoded.Score,
		Corrections:   corrections,
		Feedback:      decoded.Feedback,
		CorrectedText: decoded.CorrectedText,
	}, nil
}
