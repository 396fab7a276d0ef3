package search

import (
	"time"

	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/graph"
)

// SearchMonitor provides hooks to observe the retrieval process.
// AfterDense, AfterRerank and AfterGraph may be called from different
// goroutines during one query, so implementations must be thread-safe.
type SearchMonitor interface {
	Start(query string, variant core.Variant)
	AfterDense(cands []core.RankedCandidate, elapsed time.Duration)
	// AfterRerank reports the reranked list. fallback is the cause when the
	// dense order was kept instead.
	AfterRerank(cands []core.RankedCandidate, fallback error, elapsed time.Duration)
	AfterGraph(chains []graph.Chain, chunkIDs []int, elapsed time.Duration)
	AfterFusion(cands []core.RankedCandidate)
	Finish(results []core.Result, err error, elapsed time.Duration)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ core.Variant)                                 {}
func (n *noopMonitor) AfterDense(_ []core.RankedCandidate, _ time.Duration)           {}
func (n *noopMonitor) AfterRerank(_ []core.RankedCandidate, _ error, _ time.Duration) {}
func (n *noopMonitor) AfterGraph(_ []graph.Chain, _ []int, _ time.Duration)           {}
func (n *noopMonitor) AfterFusion(_ []core.RankedCandidate)                           {}
func (n *noopMonitor) Finish(_ []core.Result, _ error, _ time.Duration)               {}
