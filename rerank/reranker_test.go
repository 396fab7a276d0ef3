package rerank

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/poiesic/policyrag/ai/mock"
	"github.com/poiesic/policyrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is not a real test. It is the worker process spawned by
// the tests below, selected by HELPER_MODE.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	scorer := mock.NewMockCrossEncoder()
	batchSize, _ := strconv.Atoi(os.Getenv(BatchSizeEnv))

	switch os.Getenv("HELPER_MODE") {
	case "score":
		if err := Serve(context.Background(), os.Stdin, os.Stdout, scorer, batchSize); err != nil {
			os.Exit(1)
		}
	case "batch-size":
		// Reports the batch size it was given as both scores.
		fmt.Fprintf(os.Stdout, `{"scores":[%d,%d]}`, batchSize, batchSize)
	case "error":
		scorer.LogitsFunc = func(ctx context.Context, query string, texts []string) ([][]float32, error) {
			return nil, fmt.Errorf("CUDA out of memory")
		}
		if err := Serve(context.Background(), os.Stdin, os.Stdout, scorer, batchSize); err != nil {
			os.Exit(1)
		}
	case "crash":
		fmt.Fprintln(os.Stderr, "fatal: model weights missing")
		os.Exit(3)
	case "garbage":
		fmt.Fprint(os.Stdout, "Loading model...\n")
	case "short":
		fmt.Fprint(os.Stdout, `{"scores":[1]}`)
	case "hang":
		time.Sleep(30 * time.Second)
	}
	os.Exit(0)
}

func helperReranker(mode string, opts ...Option) *Reranker {
	base := []Option{
		WithCommand(os.Args[0], "-test.run=^TestHelperProcess$", "--"),
		WithEnv("GO_WANT_HELPER_PROCESS=1", "HELPER_MODE="+mode),
		WithTimeout(20 * time.Second),
	}
	return NewReranker(append(base, opts...)...)
}

func denseCandidates() []core.RankedCandidate {
	return []core.RankedCandidate{
		{ChunkID: 10, Score: 0.9, Signal: core.SignalDense},
		{ChunkID: 11, Score: 0.8, Signal: core.SignalDense},
		{ChunkID: 12, Score: 0.7, Signal: core.SignalDense},
	}
}

var candidateTexts = []string{"annual leave policy", "expense claims", "leave requests"}

func TestReranker_Score(t *testing.T) {
	scores, err := helperReranker("score", WithBatchSize(2)).Score(context.Background(), "annual leave", candidateTexts)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 0, 1}, scores)
}

func TestReranker_ScoreEmpty(t *testing.T) {
	r := helperReranker("crash")
	scores, err := r.Score(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, scores, "no worker is spawned for zero candidates")
}

func TestReranker_PassesBatchSize(t *testing.T) {
	scores, err := helperReranker("batch-size", WithBatchSize(5)).Score(context.Background(), "q", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 5}, scores)
}

func TestReranker_Rerank(t *testing.T) {
	got, err := helperReranker("score").Rerank(context.Background(), "annual leave", denseCandidates(), candidateTexts, 2)
	require.NoError(t, err)

	assert.Equal(t, []core.RankedCandidate{
		{ChunkID: 10, Score: 2, Signal: core.SignalRerank},
		{ChunkID: 12, Score: 1, Signal: core.SignalRerank},
	}, got)
}

func TestReranker_RerankKeepsAllWithoutTopK(t *testing.T) {
	got, err := helperReranker("score").Rerank(context.Background(), "annual leave", denseCandidates(), candidateTexts, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 11, got[2].ChunkID)
}

func TestReranker_Fallback(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		opts    []Option
		texts   []string
		wantErr error
		reason  string
		detail  string
	}{
		{"worker reports error", "error", nil, candidateTexts, ErrWorkerFailed, "worker_error", "CUDA out of memory"},
		{"worker crashes", "crash", nil, candidateTexts, ErrWorkerFailed, "worker_error", "model weights missing"},
		{"malformed output", "garbage", nil, candidateTexts, ErrMalformedResponse, "malformed", ""},
		{"wrong score count", "short", nil, candidateTexts, ErrMalformedResponse, "malformed", "1 scores for 3"},
		{"timeout", "hang", []Option{WithTimeout(200 * time.Millisecond)}, candidateTexts, ErrWorkerTimeout, "timeout", ""},
		{"texts do not match candidates", "score", nil, candidateTexts[:2], ErrCandidateMismatch, "malformed", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := helperReranker(tt.mode, tt.opts...).Rerank(context.Background(), "annual leave", denseCandidates(), tt.texts, 2)

			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.reason, Reason(err))
			if tt.detail != "" {
				assert.Contains(t, err.Error(), tt.detail)
			}

			require.Len(t, got, 2)
			assert.Equal(t, 10, got[0].ChunkID, "dense order is kept")
			assert.Equal(t, 11, got[1].ChunkID)
			for _, c := range got {
				assert.Equal(t, DefaultPlaceholder, c.Score)
				assert.Equal(t, core.SignalDenseFallback, c.Signal)
			}
		})
	}
}

func TestReranker_CustomPlaceholder(t *testing.T) {
	got, err := helperReranker("crash", WithPlaceholder(0.5)).Rerank(context.Background(), "q", denseCandidates(), candidateTexts, 5)
	require.Error(t, err)
	require.Len(t, got, 3)
	for _, c := range got {
		assert.Equal(t, float32(0.5), c.Score)
	}
}

func TestReranker_NoCommand(t *testing.T) {
	r := NewReranker()
	r.command = nil

	got, err := r.Rerank(context.Background(), "q", denseCandidates(), candidateTexts, 3)
	assert.ErrorIs(t, err, ErrNoCommand)
	assert.Len(t, got, 3)
}

func TestNewReranker_Defaults(t *testing.T) {
	r := NewReranker()
	assert.Equal(t, DefaultTimeout, r.timeout)
	assert.Equal(t, DefaultBatchSize, r.batchSize)
	assert.Equal(t, DefaultPlaceholder, r.placeholder)
	require.NotEmpty(t, r.command)
	assert.Equal(t, WorkerCommand, r.command[len(r.command)-1])
}
