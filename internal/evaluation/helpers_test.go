package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/noah-isme/essay-eval-api/internal/models"
	"github.com/noah-isme/essay-eval-api/pkg/ai"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// fakeCaller returns canned JSON per prompt key and records every request in
// order.
type fakeCaller struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	requests  []ai.Request
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{
		responses: make(map[string]string),
		errs:      make(map[string]error),
	}
}

func (f *fakeCaller) Call(_ context.Context, req ai.Request) (ai.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)

	if err, ok := f.errs[req.PromptKey]; ok {
		return ai.Result{}, err
	}

	content, ok := f.responses[req.PromptKey]
	if !ok {
		return ai.Result{}, fmt.Errorf("no canned response for %q", req.PromptKey)
	}

	return ai.Result{Content: json.RawMessage(content)}, nil
}

func (f *fakeCaller) calls() []ai.Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]ai.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// sequenceClient plugs into a real observed caller and serves a different
// payload per attempt, sticking on the last one.
type sequenceClient struct {
	mu       sync.Mutex
	attempts int
	contents []json.RawMessage
}

func (s *sequenceClient) Complete(_ context.Context, _ ai.Request) (ai.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.attempts
	s.attempts++
	if idx >= len(s.contents) {
		idx = len(s.contents) - 1
	}
	return ai.Result{Content: s.contents[idx]}, nil
}

// fakePrompts serves a fixed prompt for every item and level.
type fakePrompts struct {
	err error
}

func (f *fakePrompts) Load(item, version string, level models.Level) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("prompt for %s at %s (%s)", item, version, level), nil
}

func sectionJSON(t *testing.T, score int, feedback string) string {
	t.Helper()
	return fmt.Sprintf(`{"score": %d, "corrections": [], "feedback": %q}`, score, feedback)
}
