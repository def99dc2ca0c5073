package ai

import (
	"context"
	"encoding/json"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Message is one chat turn sent to the model.
type Message struct {
	Role    string
	Content string
}

// Usage carries the token accounting reported for one call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Request identifies a single structured completion: which prompt produced
// it, at which version, and for which rubric level.
type Request struct {
	Name          string
	PromptKey     string
	PromptVersion string
	Level         string
	Messages      []Message

	// OutputSchema, when set, is enforced on each attempt's content so a
	// schema-violating response consumes the retry budget like any other
	// transient failure.
	OutputSchema *jsonschema.Schema
}

// Result is the raw structured output of one completion. Callers decode and
// validate Content against their own schema.
type Result struct {
	Content json.RawMessage
	Usage   Usage
}

// CompletionClient performs one external structured-completion call.
type CompletionClient interface {
	Complete(ctx context.Context, req Request) (Result, error)
}

// Span is a timed, metadata-tagged record of one external call.
type Span struct {
	Name          string
	Input         string
	Output        string
	Service       string
	PromptKey     string
	PromptVersion string
	StartTime     time.Time
	EndTime       time.Time
	PromptTokens  int
	OutputTokens  int
	Error         string
}

// SpanRecorder forwards spans to a telemetry sink. Delivery failures must
// stay inside the implementation.
type SpanRecorder interface {
	RecordSpan(span Span)
}

// UsageSink receives per-call token counts for cost accounting.
type UsageSink interface {
	Track(promptTokens, completionTokens, totalTokens int)
}
