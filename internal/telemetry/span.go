package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/essay-eval-api/pkg/ai"
)

// OTelRecorder emits model-call spans through the global OpenTelemetry tracer
// with the call's real start and end timestamps.
type OTelRecorder struct {
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOTelRecorder builds a recorder scoped to the given service name.
func NewOTelRecorder(service string, logger zerolog.Logger) *OTelRecorder {
	return &OTelRecorder{
		tracer: otel.Tracer(service),
		logger: logger.With().Str("component", "span_recorder").Logger(),
	}
}

// RecordSpan forwards one span. Panics from the underlying exporter are
// contained and logged, never propagated.
func (r *OTelRecorder) RecordSpan(s ai.Span) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn().Interface("panic", rec).Str("span", s.Name).Msg("span delivery failed")
		}
	}()

	_, span := r.tracer.Start(context.Background(), s.Name, trace.WithTimestamp(s.StartTime))
	span.SetAttributes(
		attribute.String("llm.service", s.Service),
		attribute.String("llm.prompt_key", s.PromptKey),
		attribute.String("llm.prompt_version", s.PromptVersion),
		attribute.Int("llm.prompt_tokens", s.PromptTokens),
		attribute.Int("llm.completion_tokens", s.OutputTokens),
		attribute.Float64("llm.elapsed_ms", float64(s.EndTime.Sub(s.StartTime))/float64(time.Millisecond)),
	)
	if s.Error != "" {
		span.SetStatus(codes.Error, s.Error)
	}
	span.End(trace.WithTimestamp(s.EndTime))
}

// LogRecorder writes spans to the structured log. Used when no trace exporter
// is configured and as the default in tests.
type LogRecorder struct {
	logger zerolog.Logger
}

// NewLogRecorder builds a log-backed span recorder.
func NewLogRecorder(logger zerolog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger.With().Str("component", "span_recorder").Logger()}
}

// RecordSpan logs the span metadata.
func (r *LogRecorder) RecordSpan(s ai.Span) {
	event := r.logger.Debug()
	if s.Error != "" {
		event = r.logger.Warn().Str("error", s.Error)
	}
	event.
		Str("span", s.Name).
		Str("prompt_key", s.PromptKey).
		Str("prompt_version", s.PromptVersion).
		Int("prompt_tokens", s.PromptTokens).
		Int("completion_tokens", s.OutputTokens).
		Dur("elapsed", s.EndTime.Sub(s.StartTime)).
		Msg("model call span")
}
