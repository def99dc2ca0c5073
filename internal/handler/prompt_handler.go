package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/essay-eval-api/internal/prompt"
	"github.com/noah-isme/essay-eval-api/internal/utils"
)

// PromptHandler manages the prompt cache administration endpoints.
type PromptHandler struct {
	loader *prompt.Loader
	logger zerolog.Logger
}

// NewPromptHandler builds a prompt handler instance.
func NewPromptHandler(loader *prompt.Loader, logger zerolog.Logger) *PromptHandler {
	return &PromptHandler{
		loader: loader,
		logger: logger.With().Str("component", "prompt_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *PromptHandler) Register(router fiber.Router) {
	router.Get("/prompts/versions", h.versions)
	router.Post("/prompts/reload", h.reload)
}

func (h *PromptHandler) versions(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "prompt versions", h.loader.Versions())
}

func (h *PromptHandler) reload(c *fiber.Ctx) error {
	if err := h.loader.Reload(); err != nil {
		h.logger.Error().Err(err).Msg("prompt reload failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "prompt reload failed")
	}

	return utils.SendSuccess(c, "prompts reloaded", h.loader.Versions())
}
