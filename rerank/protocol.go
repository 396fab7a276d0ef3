package rerank

import "fmt"

// Request is the single message written to a worker's stdin.
type Request struct {
	Query      string   `json:"query"`
	Candidates []string `json:"candidates"`
}

// Response is the single message a worker writes to stdout.
// Exactly one of Scores and Error is set.
type Response struct {
	Scores []float32 `json:"scores,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// ScoreFromLogits reduces one cross-encoder row to a relevance score.
// Two logits are a binary classifier and the second one is "relevant";
// a single logit is used raw. Scores are not normalized.
func ScoreFromLogits(row []float32) (float32, error) {
	switch len(row) {
	case 1:
		return row[0], nil
	case 2:
		return row[1], nil
	default:
		return 0, fmt.Errorf("%w: %d logits", ErrLogitShape, len(row))
	}
}
