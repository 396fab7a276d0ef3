package rerank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/poiesic/policyrag/ai"
)

// DefaultBatchSize is the number of candidates scored per cross-encoder call.
const DefaultBatchSize = 8

// BatchSizeEnv carries the batch size from a Reranker to the worker it spawns.
const BatchSizeEnv = "POLICYRAG_RERANK_BATCH_SIZE"

// Serve runs one worker exchange: it reads a Request from r, scores every
// candidate with scorer in batches of batchSize, and writes one Response to w.
// On failure the error descriptor is written and the error is returned so the
// process can exit non-zero.
func Serve(ctx context.Context, r io.Reader, w io.Writer, scorer ai.CrossEncoder, batchSize int) error {
	scores, err := serve(ctx, r, scorer, batchSize)
	if err != nil {
		_ = WriteError(w, err)
		return err
	}
	if err := json.NewEncoder(w).Encode(Response{Scores: scores}); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}

// WriteError writes the error descriptor for a worker that cannot score.
func WriteError(w io.Writer, err error) error {
	return json.NewEncoder(w).Encode(Response{Error: err.Error()})
}

func serve(ctx context.Context, r io.Reader, scorer ai.CrossEncoder, batchSize int) ([]float32, error) {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}

	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}

	scores := make([]float32, 0, len(req.Candidates))
	for start := 0; start < len(req.Candidates); start += batchSize {
		batch := req.Candidates[start:min(start+batchSize, len(req.Candidates))]
		rows, err := scorer.Logits(ctx, req.Query, batch)
		if err != nil {
			return nil, err
		}
		if len(rows) != len(batch) {
			return nil, fmt.Errorf("%w: %d rows for %d candidates", ErrLogitShape, len(rows), len(batch))
		}
		for _, row := range rows {
			score, err := ScoreFromLogits(row)
			if err != nil {
				return nil, err
			}
			scores = append(scores, score)
		}
	}
	return scores, nil
}
