package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	openai "github.com/sashabaranov/go-openai"
)

type scriptedClient struct {
	mu       sync.Mutex
	attempts int
	script   []error // error per attempt; nil means success
	result   Result
}

func (s *scriptedClient) Complete(_ context.Context, _ Request) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.attempts
	s.attempts++
	if idx < len(s.script) && s.script[idx] != nil {
		return Result{}, s.script[idx]
	}
	return s.result, nil
}

// sequenceClient succeeds on every attempt but serves a different payload
// each time, sticking on the last one.
type sequenceClient struct {
	mu       sync.Mutex
	attempts int
	contents []json.RawMessage
}

func (s *sequenceClient) Complete(_ context.Context, _ Request) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.attempts
	s.attempts++
	if idx >= len(s.contents) {
		idx = len(s.contents) - 1
	}
	return Result{Content: s.contents[idx]}, nil
}

type recordingSink struct {
	mu    sync.Mutex
	spans []Span
}

func (r *recordingSink) RecordSpan(span Span) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spans = append(r.spans, span)
}

type recordingUsage struct {
	mu     sync.Mutex
	tracks [][3]int
}

func (r *recordingUsage) Track(promptTokens, completionTokens, totalTokens int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracks = append(r.tracks, [3]int{promptTokens, completionTokens, totalTokens})
}

func newTestCaller(client CompletionClient, sink SpanRecorder, usage UsageSink, retries int) *ObservedCaller {
	return NewObservedCaller(ObservedCallerConfig{
		Client:    client,
		Recorder:  sink,
		Usage:     usage,
		Service:   "test",
		Timeout:   time.Second,
		Retries:   retries,
		BaseDelay: time.Millisecond,
		Logger:    zerolog.New(io.Discard),
	})
}

func testRequest() Request {
	return Request{
		Name:          "grammar_check",
		PromptKey:     "grammar",
		PromptVersion: "v1.0.0",
		Level:         "Basic",
		Messages: []Message{
			{Role: "system", Content: "check grammar"},
			{Role: "user", Content: "some text"},
		},
	}
}

func TestObservedCallerSuccessFirstAttempt(t *testing.T) {
	client := &scriptedClient{result: Result{
		Content: json.RawMessage(`{"score": 2}`),
		Usage:   Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}}
	sink := &recordingSink{}
	usage := &recordingUsage{}

	caller := newTestCaller(client, sink, usage, 2)
	result, err := caller.Call(context.Background(), testRequest())
	require.NoError(t, err)
	require.JSONEq(t, `{"score": 2}`, string(result.Content))
	require.Equal(t, 1, client.attempts)

	require.Len(t, sink.spans, 1)
	span := sink.spans[0]
	require.Equal(t, "grammar_check", span.Name)
	require.Equal(t, "grammar", span.PromptKey)
	require.Equal(t, "v1.0.0", span.PromptVersion)
	require.Equal(t, 10, span.PromptTokens)
	require.Empty(t, span.Error)

	require.Len(t, usage.tracks, 1)
	require.Equal(t, [3]int{10, 5, 15}, usage.tracks[0])
}

func TestObservedCallerRetriesTransient(t *testing.T) {
	client := &scriptedClient{
		script: []error{context.DeadlineExceeded, ErrMalformedResponse, nil},
		result: Result{Content: json.RawMessage(`{"ok": true}`)},
	}
	sink := &recordingSink{}

	caller := newTestCaller(client, sink, nil, 2)
	_, err := caller.Call(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, 3, client.attempts)
	// One logical call, one span, regardless of attempts.
	require.Len(t, sink.spans, 1)
}

var testScoreSchema = jsonschema.MustCompileString("score.json", `{
	"type": "object",
	"required": ["score"],
	"properties": {"score": {"type": "integer", "enum": [0, 1, 2]}}
}`)

func TestObservedCallerRetriesSchemaViolation(t *testing.T) {
	client := &sequenceClient{contents: []json.RawMessage{
		json.RawMessage(`{"score": 3}`),
		json.RawMessage(`{"score": 2}`),
	}}
	sink := &recordingSink{}

	req := testRequest()
	req.OutputSchema = testScoreSchema

	caller := newTestCaller(client, sink, nil, 2)
	result, err := caller.Call(context.Background(), req)
	require.NoError(t, err)
	require.JSONEq(t, `{"score": 2}`, string(result.Content))
	// The schema-violating first payload burns one attempt of the budget.
	require.Equal(t, 2, client.attempts)
	require.Len(t, sink.spans, 1)
	require.Empty(t, sink.spans[0].Error)
}

func TestObservedCallerSchemaViolationExhaustsBudget(t *testing.T) {
	client := &sequenceClient{contents: []json.RawMessage{
		json.RawMessage(`{"score": 9}`),
	}}
	sink := &recordingSink{}

	req := testRequest()
	req.OutputSchema = testScoreSchema

	caller := newTestCaller(client, sink, nil, 2)
	_, err := caller.Call(context.Background(), req)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrCallFailed)
	require.Equal(t, 3, client.attempts)
	require.Len(t, sink.spans, 1)
	require.NotEmpty(t, sink.spans[0].Error)
}

func TestObservedCallerExhaustsRetries(t *testing.T) {
	client := &scriptedClient{
		script: []error{context.DeadlineExceeded, context.DeadlineExceeded, context.DeadlineExceeded},
	}
	sink := &recordingSink{}
	usage := &recordingUsage{}

	caller := newTestCaller(client, sink, usage, 2)
	_, err := caller.Call(context.Background(), testRequest())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrCallFailed)
	require.Equal(t, 3, client.attempts)

	// The span is emitted even on failure; usage is not.
	require.Len(t, sink.spans, 1)
	require.NotEmpty(t, sink.spans[0].Error)
	require.Empty(t, usage.tracks)
}

func TestObservedCallerNoRetryOnPermanentError(t *testing.T) {
	badRequest := &openai.APIError{HTTPStatusCode: http.StatusBadRequest, Message: "bad request"}
	client := &scriptedClient{script: []error{badRequest, nil}}
	sink := &recordingSink{}

	caller := newTestCaller(client, sink, nil, 2)
	_, err := caller.Call(context.Background(), testRequest())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrCallFailed)
	require.Equal(t, 1, client.attempts)
}

func TestObservedCallerStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &scriptedClient{script: []error{context.Canceled}}
	caller := newTestCaller(client, &recordingSink{}, nil, 2)

	_, err := caller.Call(ctx, testRequest())
	require.Error(t, err)
	require.Equal(t, 1, client.attempts)
}

func TestObservedCallerContainsSinkPanics(t *testing.T) {
	client := &scriptedClient{result: Result{Content: json.RawMessage(`{}`)}}
	caller := newTestCaller(client, panickingSink{}, panickingUsage{}, 0)

	// Telemetry and accounting failures never reach the main call path.
	result, err := caller.Call(context.Background(), testRequest())
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(result.Content))
}

type panickingSink struct{}

func (panickingSink) RecordSpan(Span) { panic("sink down") }

type panickingUsage struct{}

func (panickingUsage) Track(int, int, int) { panic("accounting down") }

func TestIsTransientClassification(t *testing.T) {
	require.True(t, IsTransient(context.DeadlineExceeded))
	require.True(t, IsTransient(ErrMalformedResponse))
	require.True(t, IsTransient(&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}))
	require.True(t, IsTransient(&openai.APIError{HTTPStatusCode: http.StatusInternalServerError}))
	require.True(t, IsTransient(errors.New("connection reset")))

	require.False(t, IsTransient(nil))
	require.False(t, IsTransient(context.Canceled))
	require.False(t, IsTransient(&openai.APIError{HTTPStatusCode: http.StatusBadRequest}))
	require.False(t, IsTransient(&openai.APIError{HTTPStatusCode: http.StatusUnauthorized}))
}

func TestBackoffBounded(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		delay := backoff(attempt, 250*time.Millisecond)
		require.GreaterOrEqual(t, delay, time.Duration(0))
		require.LessOrEqual(t, delay, maxBackoff)
	}
}
