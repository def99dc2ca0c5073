package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/essay-eval-api/internal/config"
	"github.com/noah-isme/essay-eval-api/internal/dto"
	"github.com/noah-isme/essay-eval-api/internal/evaluation"
	"github.com/noah-isme/essay-eval-api/internal/models"
	"github.com/noah-isme/essay-eval-api/internal/prompt"
)

// ErrEvaluationUnavailable indicates a branch failed after exhausting its
// retries and the configured policy does not permit a partial response.
var ErrEvaluationUnavailable = errors.New("evaluation temporarily unavailable")

// GrammarEvaluator is the one-shot grammar branch.
type GrammarEvaluator interface {
	Evaluate(ctx context.Context, text string, level models.Level) (models.GrammarResult, error)
}

// StructureEvaluator is the sequential section chain branch.
type StructureEvaluator interface {
	Evaluate(ctx context.Context, text string, level models.Level) ([]models.SectionResult, error)
}

// EvaluationService orchestrates one evaluation request end to end.
type EvaluationService interface {
	Evaluate(ctx context.Context, payload dto.EssayEvalRequest) (dto.EssayEvalResponse, error)
}

type evaluationService struct {
	grammar   GrammarEvaluator
	structure StructureEvaluator
	validator *validator.Validate
	policy    config.PartialPolicy
	timeout   time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewEvaluationService constructs the orchestrator.
func NewEvaluationService(grammar GrammarEvaluator, structure StructureEvaluator, validate *validator.Validate, policy config.PartialPolicy, timeout time.Duration, logger zerolog.Logger) EvaluationService {
	return &evaluationService{
		grammar:   grammar,
		structure: structure,
		validator: validate,
		policy:    policy,
		timeout:   timeout,
		logger:    logger.With().Str("component", "evaluation_service").Logger(),
		now:       time.Now,
	}
}

// Evaluate runs validation, fans out the grammar and structure branches
// concurrently under the whole-request deadline, and aggregates the outcome.
// Invalid submissions short-circuit before any model call.
func (s *evaluationService) Evaluate(ctx context.Context, payload dto.EssayEvalRequest) (dto.EssayEvalResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/essay-eval-api/internal/service")
	ctx, span := tracer.Start(ctx, "essay.evaluate")
	span.SetAttributes(attribute.String("essay.level", payload.LevelGroup))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payload_invalid")
		return dto.EssayEvalResponse{}, err
	}

	level, err := models.ParseLevel(payload.LevelGroup)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "level_invalid")
		return dto.EssayEvalResponse{}, err
	}

	if err := evaluation.CheckEncoding(payload.SubmitText); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encoding_rejected")
		return dto.EssayEvalResponse{}, &evaluation.ValidationError{
			Reason: err.Error(),
			Cause:  err,
		}
	}

	timings := make(map[string]float64, 5)
	t0 := s.now()

	pre := evaluation.PreProcess(payload.SubmitText, level)
	timings["pre_process"] = s.millisSince(t0)

	if !pre.IsValid {
		err := &evaluation.ValidationError{Reason: validationReason(pre), Result: pre}
		span.SetStatus(codes.Error, "validation_failed")
		s.logger.Info().
			Str("level", string(level)).
			Int("word_count", pre.WordCount).
			Bool("is_english", pre.IsEnglish).
			Msg("submission rejected before evaluation")
		return dto.EssayEvalResponse{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		grammarRes   models.GrammarResult
		grammarErr   error
		sectionRes   []models.SectionResult
		structureErr error
		grammarMs    float64
		structureMs  float64
	)

	// Plain errgroup: a failed branch must not cancel its sibling, the
	// partial-success policy is applied after both settle.
	var group errgroup.Group
	group.Go(func() error {
		start := s.now()
		grammarRes, grammarErr = s.grammar.Evaluate(ctx, payload.SubmitText, level)
		grammarMs = s.millisSince(start)
		return nil
	})
	group.Go(func() error {
		start := s.now()
		sectionRes, structureErr = s.structure.Evaluate(ctx, payload.SubmitText, level)
		structureMs = s.millisSince(start)
		return nil
	})
	_ = group.Wait()

	timings["grammar"] = grammarMs
	timings["structure"] = structureMs

	if err := s.fatalBranchError(grammarErr, structureErr); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "branch_failed")
		return dto.EssayEvalResponse{}, err
	}

	if grammarErr != nil {
		s.logger.Warn().Err(grammarErr).Msg("grammar branch degraded")
		grammarRes = models.GrammarResult{Corrections: []models.Correction{}, Unavailable: true}
	}
	if structureErr != nil {
		s.logger.Warn().Err(structureErr).Msg("structure branch degraded")
	}

	tAgg := s.now()
	aggregated := evaluation.Aggregate(level, sectionRes, grammarRes)
	timings["aggregate"] = s.millisSince(tAgg)
	timings["total"] = s.millisSince(t0)
	aggregated.Timings = timings

	span.SetAttributes(
		attribute.Float64("essay.total_score", aggregated.TotalScore),
		attribute.Bool("essay.partial", aggregated.Partial),
	)

	return dto.NewEssayEvalResponse(pre, aggregated), nil
}

// fatalBranchError decides whether branch failures abort the request. Prompt
// configuration failures are always fatal; call failures are fatal only under
// the strict policy.
func (s *evaluationService) fatalBranchError(branchErrs ...error) error {
	for _, err := range branchErrs {
		if err == nil {
			continue
		}
		if errors.Is(err, prompt.ErrPromptNotFound) || errors.Is(err, prompt.ErrVersionNotFound) {
			return err
		}
		if s.policy == config.PartialPolicyStrict {
			return fmt.Errorf("%w: %v", ErrEvaluationUnavailable, err)
		}
	}
	return nil
}

func (s *evaluationService) millisSince(start time.Time) float64 {
	return float64(s.now().Sub(start)) / float64(time.Millisecond)
}

// validationReason names the specific failing sub-check for the client.
func validationReason(pre models.PreProcessResult) string {
	switch {
	case !pre.IsEnglish && !pre.MeetsLengthRequirement:
		return "text is not English and word count is outside the level's band"
	case !pre.IsEnglish:
		return "text is not English"
	default:
		return fmt.Sprintf("word count %d is outside the level's band", pre.WordCount)
	}
}
