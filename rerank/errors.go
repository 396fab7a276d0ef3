package rerank

import "errors"

var (
	// ErrWorkerFailed is returned when the worker exits non-zero or reports an error.
	ErrWorkerFailed = errors.New("rerank worker failed")

	// ErrWorkerTimeout is returned when the worker does not answer in time.
	ErrWorkerTimeout = errors.New("rerank worker timed out")

	// ErrMalformedResponse is returned when the worker's reply cannot be used.
	ErrMalformedResponse = errors.New("malformed rerank response")

	// ErrNoCommand is returned when no worker command is configured.
	ErrNoCommand = errors.New("no rerank worker command")

	// ErrCandidateMismatch is returned when candidates and texts differ in length.
	ErrCandidateMismatch = errors.New("candidates and texts differ in length")

	// ErrLogitShape is returned for cross-encoder rows with neither one nor two logits.
	ErrLogitShape = errors.New("unsupported logit shape")
)

// Reason classifies a fallback cause for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWorkerTimeout):
		return "timeout"
	case errors.Is(err, ErrMalformedResponse), errors.Is(err, ErrCandidateMismatch):
		return "malformed"
	case errors.Is(err, ErrWorkerFailed):
		return "worker_error"
	case errors.Is(err, ErrNoCommand):
		return "not_configured"
	default:
		return "exec"
	}
}
