package ai

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// ErrCallFailed marks a completion call that exhausted its retry budget.
// Callers convert it into a degraded result rather than crashing the request.
var ErrCallFailed = errors.New("model call failed")

// ErrMalformedResponse marks a completion whose payload could not be used:
// no choices, empty content, or non-JSON output.
var ErrMalformedResponse = errors.New("malformed model response")

// IsTransient reports whether an attempt failure is worth retrying. Timeouts,
// rate limits, server errors, and malformed responses are transient; request
// errors intrinsic to the input and cancellation are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrMalformedResponse) {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}

	// Unclassified transport failures (connection reset, DNS) are retryable.
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 0 || reqErr.HTTPStatusCode >= http.StatusInternalServerError
	}

	return true
}
