package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/essay-eval-api/internal/dto"
	"github.com/noah-isme/essay-eval-api/internal/evaluation"
	"github.com/noah-isme/essay-eval-api/internal/prompt"
	"github.com/noah-isme/essay-eval-api/internal/service"
	"github.com/noah-isme/essay-eval-api/internal/utils"
)

// EssayEvalHandler manages the evaluation endpoint.
type EssayEvalHandler struct {
	service service.EvaluationService
	logger  zerolog.Logger
}

// NewEssayEvalHandler builds an evaluation handler instance.
func NewEssayEvalHandler(service service.EvaluationService, logger zerolog.Logger) *EssayEvalHandler {
	return &EssayEvalHandler{
		service: service,
		logger:  logger.With().Str("component", "essay_eval_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *EssayEvalHandler) Register(router fiber.Router) {
	router.Post("/essay-eval", h.evaluate)
}

func (h *EssayEvalHandler) evaluate(c *fiber.Ctx) error {
	var payload dto.EssayEvalRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Evaluate(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "essay evaluated", result)
}

func (h *EssayEvalHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErr *evaluation.ValidationError
	if errors.As(err, &validationErr) {
		return utils.SendErrorWithData(c, fiber.StatusUnprocessableEntity, validationErr.Reason, dto.ValidationFailure{
			Reason:     validationErr.Reason,
			PreProcess: validationErr.Result,
		})
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	if errors.Is(err, prompt.ErrPromptNotFound) || errors.Is(err, prompt.ErrVersionNotFound) {
		h.logger.Error().Err(err).Msg("prompt configuration missing")
		return utils.SendError(c, fiber.StatusInternalServerError, "prompt configuration unavailable")
	}

	if errors.Is(err, service.ErrEvaluationUnavailable) {
		h.logger.Warn().Err(err).Msg("evaluation failed after retries")
		return utils.SendError(c, fiber.StatusServiceUnavailable, "evaluation temporarily unavailable, retry later")
	}

	h.logger.Error().Err(err).Msg("essay evaluation failed")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
