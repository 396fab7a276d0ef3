package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/policyrag/ai"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/fusion"
	"github.com/poiesic/policyrag/graph"
	"github.com/poiesic/policyrag/index"
	"github.com/poiesic/policyrag/rerank"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTopK is the number of results returned when the caller does not ask for more.
	DefaultTopK = 5
	// MinCandidatePool is the smallest number of dense candidates fetched for reranking.
	MinCandidatePool = 30
)

// CandidatePool returns how many dense candidates are fetched to produce topK results.
func CandidatePool(topK int) int {
	return max(3*topK, MinCandidatePool)
}

// Reranker re-scores dense candidates. A non-nil error reports why the
// returned list kept dense order; it is never a query failure.
type Reranker interface {
	Rerank(ctx context.Context, query string, cands []core.RankedCandidate, texts []string, topK int) ([]core.RankedCandidate, error)
}

var _ Reranker = (*rerank.Reranker)(nil)

// Retriever is the immutable retrieval context. It is safe for concurrent queries.
type Retriever struct {
	snapshot  *index.Snapshot
	embedder  ai.Embedder
	reranker  Reranker
	neighbors *graph.NeighborIndex

	variant      core.Variant
	topK         int
	rrfK         int
	graphConfig  graph.Config
	graphEnabled bool
	monitor      SearchMonitor
	logger       *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithReranker sets the reranker for the dense path. Default is none:
// dense candidates are returned in similarity order.
func WithReranker(r Reranker) Option {
	return func(rt *Retriever) error {
		rt.reranker = r
		return nil
	}
}

// WithDefaultVariant sets the variant queried when a query does not choose one.
// Default is core.DefaultVariant. It must be present in the snapshot.
func WithDefaultVariant(v core.Variant) Option {
	return func(rt *Retriever) error {
		rt.variant = v
		return nil
	}
}

// WithDefaultTopK sets the result count used when a query does not choose one.
func WithDefaultTopK(k int) Option {
	return func(rt *Retriever) error {
		if k > 0 {
			rt.topK = k
		}
		return nil
	}
}

// WithRRFK sets the RRF damping constant. Default is fusion.DefaultK.
func WithRRFK(k int) Option {
	return func(rt *Retriever) error {
		if k >= 0 {
			rt.rrfK = k
		}
		return nil
	}
}

// WithGraph enables graph beam search by default and sets its parameters.
func WithGraph(cfg graph.Config) Option {
	return func(rt *Retriever) error {
		rt.graphConfig = cfg
		rt.graphEnabled = true
		return nil
	}
}

// WithMonitor sets the monitor notified for every query.
func WithMonitor(m SearchMonitor) Option {
	return func(rt *Retriever) error {
		if m == nil {
			m = &noopMonitor{}
		}
		rt.monitor = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		rt.logger = logger
		return nil
	}
}

// NewRetriever creates the retrieval context over snapshot. embedder must be
// the model the index was built with. A default variant absent from the
// snapshot is a configuration error.
func NewRetriever(snapshot *index.Snapshot, embedder ai.Embedder, opts ...Option) (*Retriever, error) {
	if snapshot == nil {
		return nil, ErrSnapshotRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Retriever{
		snapshot:    snapshot,
		embedder:    embedder,
		variant:     core.DefaultVariant,
		topK:        DefaultTopK,
		rrfK:        fusion.DefaultK,
		graphConfig: graph.DefaultConfig(),
		monitor:     &noopMonitor{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	if _, err := snapshot.Index(r.variant); err != nil {
		return nil, err
	}
	r.neighbors = graph.NewNeighborIndex(snapshot.Triples())
	r.logger = r.logger.With("component", "retriever")
	return r, nil
}

// QueryOption adjusts a single query.
type QueryOption func(*queryParams)

type queryParams struct {
	variant core.Variant
	topK    int
	graph   bool
	rerank  bool
	monitor SearchMonitor
}

// WithVariant selects the embedding variant searched by the dense path.
func WithVariant(v core.Variant) QueryOption {
	return func(p *queryParams) {
		p.variant = v
	}
}

// WithTopK sets the number of results.
func WithTopK(k int) QueryOption {
	return func(p *queryParams) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithGraphSearch turns graph beam search on or off for this query.
func WithGraphSearch(enabled bool) QueryOption {
	return func(p *queryParams) {
		p.graph = enabled
	}
}

// WithRerank turns reranking on or off for this query. It has no effect
// when the Retriever has no reranker.
func WithRerank(enabled bool) QueryOption {
	return func(p *queryParams) {
		p.rerank = enabled
	}
}

// WithQueryMonitor replaces the Retriever's monitor for this query.
func WithQueryMonitor(m SearchMonitor) QueryOption {
	return func(p *queryParams) {
		if m != nil {
			p.monitor = m
		}
	}
}

func (r *Retriever) params(opts []QueryOption) queryParams {
	p := queryParams{
		variant: r.variant,
		topK:    r.topK,
		graph:   r.graphEnabled,
		rerank:  true,
		monitor: r.monitor,
	}
	for _, opt := range opts {
		opt(&p)
	}
	p.rerank = p.rerank && r.reranker != nil
	return p
}

// Snapshot returns the index the retriever serves.
func (r *Retriever) Snapshot() *index.Snapshot {
	return r.snapshot
}

// Retrieve returns up to topK passages for query, best first.
// An unbuilt variant is index.ErrVariantMissing and an embedding failure is
// ErrEmbeddingFailed. Reranker and graph problems only degrade the ranking.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...QueryOption) (results []core.Result, err error) {
	p := r.params(opts)
	start := time.Now()
	p.monitor.Start(query, p.variant)
	defer func() {
		p.monitor.Finish(results, err, time.Since(start))
	}()

	idx, err := r.snapshot.Index(p.variant)
	if err != nil {
		return nil, err
	}
	vec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	var dense, graphRanked []core.RankedCandidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dense = r.densePath(gctx, query, vec, idx, p)
		return nil
	})
	if p.graph {
		g.Go(func() error {
			graphRanked = r.graphPath(vec, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	final := dense
	if len(graphRanked) > 0 {
		final = fusion.FuseCandidates([][]core.RankedCandidate{dense, graphRanked}, r.rrfK)
		if len(final) > p.topK {
			final = final[:p.topK]
		}
		p.monitor.AfterFusion(final)
	}

	results = make([]core.Result, 0, len(final))
	for _, cand := range final {
		chunk, ok := r.snapshot.Chunk(cand.ChunkID)
		if !ok {
			return nil, fmt.Errorf("%w: candidate chunk %d", index.ErrInconsistentIndex, cand.ChunkID)
		}
		results = append(results, core.NewResult(chunk, cand))
	}

	r.logger.Debug("query answered",
		"variant", p.variant,
		"dense", len(dense),
		"graph", len(graphRanked),
		"results", len(results),
		"elapsed", time.Since(start))
	return results, nil
}

// Dense returns the k nearest chunks to query in one variant, without reranking.
func (r *Retriever) Dense(ctx context.Context, query string, k int, opts ...QueryOption) ([]core.RankedCandidate, error) {
	p := r.params(opts)
	idx, err := r.snapshot.Index(p.variant)
	if err != nil {
		return nil, err
	}
	vec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return idx.Search(vec, k), nil
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vec, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	if len(vec) != r.snapshot.Manifest().Dimension {
		return nil, fmt.Errorf("%w: %w: query has %d dimensions, index has %d",
			ErrEmbeddingFailed, index.ErrDimensionMismatch, len(vec), r.snapshot.Manifest().Dimension)
	}
	return vec, nil
}

// densePath searches the candidate pool and reranks it down to topK.
func (r *Retriever) densePath(ctx context.Context, query string, vec []float32, idx *index.FlatIndex, p queryParams) []core.RankedCandidate {
	start := time.Now()
	cands := idx.Search(vec, CandidatePool(p.topK))
	p.monitor.AfterDense(cands, time.Since(start))

	if !p.rerank {
		return cands[:min(len(cands), p.topK)]
	}

	texts := make([]string, len(cands))
	for i, c := range cands {
		if chunk, ok := r.snapshot.Chunk(c.ChunkID); ok {
			texts[i] = chunk.Text
		}
	}
	start = time.Now()
	reranked, fallback := r.reranker.Rerank(ctx, query, cands, texts, p.topK)
	p.monitor.AfterRerank(reranked, fallback, time.Since(start))
	return reranked
}

// graphPath runs beam search from the triples nearest the query and ranks
// the chunks the chains pass through.
func (r *Retriever) graphPath(vec []float32, p queryParams) []core.RankedCandidate {
	triples := r.snapshot.Triples()
	if len(triples) == 0 {
		p.monitor.AfterGraph(nil, nil, 0)
		return nil
	}

	start := time.Now()
	tripleIndex := r.snapshot.TripleIndex()
	seeds := graph.Seeds(tripleIndex, vec, r.graphConfig.SeedK)
	chains := graph.BeamSearchWith(r.neighbors, graph.NewIndexScorer(tripleIndex, vec), seeds, triples, r.graphConfig)
	ids := graph.ChunkIDs(chains, triples)
	p.monitor.AfterGraph(chains, ids, time.Since(start))

	ranked := make([]core.RankedCandidate, len(ids))
	for i, id := range ids {
		ranked[i] = core.RankedCandidate{ChunkID: id, Score: float32(1.0 / float64(i+1)), Signal: core.SignalGraph}
	}
	return ranked
}
