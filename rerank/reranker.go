package rerank

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/policyrag/core"
)

const (
	// DefaultTimeout bounds one worker round-trip, including model load.
	DefaultTimeout = 60 * time.Second
	// DefaultPlaceholder is the uniform score given to candidates kept in dense order.
	DefaultPlaceholder float32 = 1.0
	// WorkerCommand is the subcommand of the policyrag binary that runs a worker.
	WorkerCommand = "rerank-worker"

	stderrTail = 512
)

// Reranker scores candidates in a fresh worker process per call.
// It holds no process between calls and is safe for concurrent use.
type Reranker struct {
	command     []string
	env         []string
	timeout     time.Duration
	batchSize   int
	placeholder float32
	logger      *slog.Logger
}

// Option configures a Reranker.
type Option func(*Reranker)

// WithCommand sets the worker command line.
// Default is the running executable with the rerank-worker subcommand.
func WithCommand(name string, args ...string) Option {
	return func(r *Reranker) {
		r.command = append([]string{name}, args...)
	}
}

// WithEnv adds KEY=value entries to the worker environment.
func WithEnv(env ...string) Option {
	return func(r *Reranker) {
		r.env = append(r.env, env...)
	}
}

// WithTimeout bounds each worker round-trip.
func WithTimeout(d time.Duration) Option {
	return func(r *Reranker) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithBatchSize sets the number of candidates per cross-encoder call inside the worker.
func WithBatchSize(n int) Option {
	return func(r *Reranker) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithPlaceholder sets the score used when falling back to dense order.
func WithPlaceholder(score float32) Option {
	return func(r *Reranker) {
		r.placeholder = score
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reranker) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// NewReranker creates a Reranker.
func NewReranker(opts ...Option) *Reranker {
	r := &Reranker{
		timeout:     DefaultTimeout,
		batchSize:   DefaultBatchSize,
		placeholder: DefaultPlaceholder,
		logger:      slog.Default(),
	}
	if exe, err := os.Executable(); err == nil {
		r.command = []string{exe, WorkerCommand}
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "reranker")
	return r
}

// Score runs one worker and returns a score per text, in input order.
func (r *Reranker) Score(ctx context.Context, query string, texts []string) ([]float32, error) {
	if len(texts) == 0 {
		return []float32{}, nil
	}
	if len(r.command) == 0 {
		return nil, ErrNoCommand
	}

	payload, err := json.Marshal(Request{Query: query, Candidates: texts})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.command[0], r.command[1:]...)
	cmd.Env = append(os.Environ(), r.env...)
	cmd.Env = append(cmd.Env, BatchSizeEnv+"="+strconv.Itoa(r.batchSize))
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	runErr := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: after %s", ErrWorkerTimeout, r.timeout)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var resp Response
	decodeErr := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp)
	switch {
	case decodeErr == nil && resp.Error != "":
		return nil, fmt.Errorf("%w: %s", ErrWorkerFailed, resp.Error)
	case runErr != nil:
		return nil, fmt.Errorf("%w: %w: %s", ErrWorkerFailed, runErr, tail(stderr.String()))
	case decodeErr != nil:
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, decodeErr)
	case len(resp.Scores) != len(texts):
		return nil, fmt.Errorf("%w: %d scores for %d candidates", ErrMalformedResponse, len(resp.Scores), len(texts))
	}

	r.logger.Debug("worker scored candidates", "count", len(texts), "elapsed", time.Since(start))
	return resp.Scores, nil
}

// Rerank orders cands by cross-encoder score and keeps the best topK
// (all when topK <= 0). texts[i] is the passage of cands[i].
//
// Rerank never fails the request. When scoring fails it logs the cause and
// returns cands in their original order with the placeholder score, together
// with the cause so callers can count fallbacks.
func (r *Reranker) Rerank(ctx context.Context, query string, cands []core.RankedCandidate, texts []string, topK int) ([]core.RankedCandidate, error) {
	if topK <= 0 || topK > len(cands) {
		topK = len(cands)
	}

	var scores []float32
	err := ErrCandidateMismatch
	if len(texts) == len(cands) {
		scores, err = r.Score(ctx, query, texts)
	}
	if err != nil {
		r.logger.Warn("reranking failed, keeping dense order", "reason", Reason(err), "err", err)
		return r.fallback(cands[:topK]), err
	}

	reranked := make([]core.RankedCandidate, len(cands))
	for i, c := range cands {
		reranked[i] = core.RankedCandidate{ChunkID: c.ChunkID, Score: scores[i], Signal: core.SignalRerank}
	}
	slices.SortStableFunc(reranked, func(a, b core.RankedCandidate) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return reranked[:topK], nil
}

func (r *Reranker) fallback(cands []core.RankedCandidate) []core.RankedCandidate {
	out := make([]core.RankedCandidate, len(cands))
	for i, c := range cands {
		out[i] = core.RankedCandidate{ChunkID: c.ChunkID, Score: r.placeholder, Signal: core.SignalDenseFallback}
	}
	return out
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		s = s[len(s)-stderrTail:]
	}
	return s
}
