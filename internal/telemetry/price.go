package telemetry

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var tokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "essay",
	Subsystem: "llm",
	Name:      "tokens_total",
	Help:      "Cumulative token usage across model calls",
}, []string{"kind"})

// UsageSummary is a point-in-time snapshot of cumulative usage and the
// estimated spend at the configured per-token rates.
type UsageSummary struct {
	Calls            int64
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	EstimatedCostUSD float64
}

// PriceTracker accumulates token counts across concurrent calls and requests.
// Increments are lock-free; readers see a consistent-enough snapshot for
// cost reporting.
type PriceTracker struct {
	inputCostPer1M  float64
	outputCostPer1M float64

	calls            atomic.Int64
	promptTokens     atomic.Int64
	completionTokens atomic.Int64
	totalTokens      atomic.Int64
}

// NewPriceTracker builds a tracker with per-million-token prices in USD.
func NewPriceTracker(inputPer1M, outputPer1M float64) *PriceTracker {
	return &PriceTracker{
		inputCostPer1M:  inputPer1M,
		outputCostPer1M: outputPer1M,
	}
}

// Track records the usage of one model call. Best-effort and non-blocking;
// callers never wait on it.
func (p *PriceTracker) Track(promptTokens, completionTokens, totalTokens int) {
	p.calls.Add(1)
	p.promptTokens.Add(int64(promptTokens))
	p.completionTokens.Add(int64(completionTokens))
	p.totalTokens.Add(int64(totalTokens))

	tokensTotal.WithLabelValues("prompt").Add(float64(promptTokens))
	tokensTotal.WithLabelValues("completion").Add(float64(completionTokens))
}

// Snapshot returns the cumulative usage and estimated cost so far.
func (p *PriceTracker) Snapshot() UsageSummary {
	promptTokens := p.promptTokens.Load()
	completionTokens := p.completionTokens.Load()

	inputCost := float64(promptTokens) / 1_000_000 * p.inputCostPer1M
	outputCost := float64(completionTokens) / 1_000_000 * p.outputCostPer1M

	return UsageSummary{
		Calls:            p.calls.Load(),
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      p.totalTokens.Load(),
		EstimatedCostUSD: inputCost + outputCost,
	}
}
