package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

const maxBackoff = 5 * time.Second

// ObservedCaller is the single choke-point for external completion calls. It
// enforces a per-attempt timeout, retries transient failures with jittered
// exponential backoff, records exactly one span per call, and forwards token
// usage for cost accounting.
type ObservedCaller struct {
	client    CompletionClient
	recorder  SpanRecorder
	usage     UsageSink
	service   string
	timeout   time.Duration
	retries   int
	baseDelay time.Duration
	logger    zerolog.Logger
}

// ObservedCallerConfig wires the caller's collaborators and limits.
type ObservedCallerConfig struct {
	Client    CompletionClient
	Recorder  SpanRecorder
	Usage     UsageSink
	Service   string
	Timeout   time.Duration
	Retries   int
	BaseDelay time.Duration
	Logger    zerolog.Logger
}

// NewObservedCaller builds an observed caller around a completion client.
func NewObservedCaller(cfg ObservedCallerConfig) *ObservedCaller {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 250 * time.Millisecond
	}
	if cfg.Service == "" {
		cfg.Service = "essay-eval"
	}

	return &ObservedCaller{
		client:    cfg.Client,
		recorder:  cfg.Recorder,
		usage:     cfg.Usage,
		service:   cfg.Service,
		timeout:   cfg.Timeout,
		retries:   cfg.Retries,
		baseDelay: cfg.BaseDelay,
		logger:    cfg.Logger.With().Str("component", "observed_caller").Logger(),
	}
}

// Call performs one logical completion with up to retries+1 attempts. A span
// is emitted unconditionally, even when every attempt failed.
func (o *ObservedCaller) Call(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	var result Result
	var err error
	for attempt := 0; attempt <= o.retries; attempt++ {
		if attempt > 0 {
			delay := backoff(attempt, o.baseDelay)
			o.logger.Debug().
				Str("prompt_key", req.PromptKey).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("retrying model call")

			select {
			case <-ctx.Done():
				err = ctx.Err()
			case <-time.After(delay):
			}
			if ctx.Err() != nil {
				break
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, o.timeout)
		result, err = o.client.Complete(attemptCtx, req)
		cancel()

		if err == nil {
			err = validateOutput(req, result)
		}
		if err == nil {
			break
		}
		if !IsTransient(err) || ctx.Err() != nil {
			break
		}
	}

	end := time.Now()
	o.emitSpan(req, result, start, end, err)

	if err != nil {
		return Result{}, fmt.Errorf("%s@%s: %w: %v", req.PromptKey, req.PromptVersion, ErrCallFailed, err)
	}

	o.trackUsage(result.Usage)
	return result, nil
}

func (o *ObservedCaller) emitSpan(req Request, result Result, start, end time.Time, err error) {
	if o.recorder == nil {
		return
	}

	span := Span{
		Name:          req.Name,
		Service:       o.service,
		PromptKey:     req.PromptKey,
		PromptVersion: req.PromptVersion,
		StartTime:     start,
		EndTime:       end,
		PromptTokens:  result.Usage.PromptTokens,
		OutputTokens:  result.Usage.CompletionTokens,
		Output:        string(result.Content),
	}
	if len(req.Messages) > 0 {
		span.Input = req.Messages[len(req.Messages)-1].Content
	}
	if err != nil {
		span.Error = err.Error()
	}

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Warn().Interface("panic", rec).Str("span", span.Name).Msg("span recording failed")
		}
	}()
	o.recorder.RecordSpan(span)
}

func (o *ObservedCaller) trackUsage(usage Usage) {
	if o.usage == nil {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Warn().Interface("panic", rec).Msg("usage tracking failed")
		}
	}()
	o.usage.Track(usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}

// validateOutput enforces the request's output schema inside the attempt
// loop. A mismatch is a malformed response, so the next attempt gets a fresh
// chance at a conformant payload.
func validateOutput(req Request, result Result) error {
	if req.OutputSchema == nil {
		return nil
	}

	var value any
	if err := json.Unmarshal(result.Content, &value); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := req.OutputSchema.Validate(value); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return nil
}

// backoff computes the delay before the given attempt using exponential
// growth with full jitter.
func backoff(attempt int, base time.Duration) time.Duration {
	delay := base << (attempt - 1)
	if delay > maxBackoff || delay <= 0 {
		delay = maxBackoff
	}

	jitterMs := rand.Int64N(delay.Milliseconds() + 1) // #nosec G404 -- non-cryptographic jitter
	return time.Duration(jitterMs) * time.Millisecond
}
