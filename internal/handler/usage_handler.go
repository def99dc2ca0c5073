package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/essay-eval-api/internal/dto"
	"github.com/noah-isme/essay-eval-api/internal/telemetry"
	"github.com/noah-isme/essay-eval-api/internal/utils"
)

// UsageHandler exposes the cumulative token and cost accounting.
type UsageHandler struct {
	tracker *telemetry.PriceTracker
	logger  zerolog.Logger
}

// NewUsageHandler builds a usage handler instance.
func NewUsageHandler(tracker *telemetry.PriceTracker, logger zerolog.Logger) *UsageHandler {
	return &UsageHandler{
		tracker: tracker,
		logger:  logger.With().Str("component", "usage_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *UsageHandler) Register(router fiber.Router) {
	router.Get("/usage", h.summary)
}

func (h *UsageHandler) summary(c *fiber.Ctx) error {
	snapshot := h.tracker.Snapshot()

	return utils.SendSuccess(c, "usage summary", dto.UsageSummary{
		Calls:            snapshot.Calls,
		PromptTokens:     snapshot.PromptTokens,
		CompletionTokens: snapshot.CompletionTokens,
		TotalTokens:      snapshot.TotalTokens,
		EstimatedCostUSD: snapshot.EstimatedCostUSD,
	})
}
