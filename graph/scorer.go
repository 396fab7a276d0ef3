package graph

import (
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/index"
)

// Scorer rates a triple, identified by position, against the current query.
type Scorer interface {
	Score(triple int) float32
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(triple int) float32

func (f ScorerFunc) Score(triple int) float32 {
	return f(triple)
}

// IndexScorer scores triples by cosine similarity between the query vector
// and the triple vectors embedded at build time.
type IndexScorer struct {
	idx   *index.FlatIndex
	query []float32
}

// NewIndexScorer prepares a scorer for one query.
func NewIndexScorer(idx *index.FlatIndex, query []float32) *IndexScorer {
	return &IndexScorer{idx: idx, query: index.NormalizeVector(query)}
}

func (s *IndexScorer) Score(triple int) float32 {
	if triple < 0 || triple >= s.idx.Len() || len(s.query) != s.idx.Dimension() {
		return 0
	}
	return index.Dot(s.query, s.idx.Vector(triple))
}

// Seeds returns the positions of the k triples most similar to query.
func Seeds(idx *index.FlatIndex, query []float32, k int) []int {
	hits := idx.Search(query, k)
	seeds := make([]int, len(hits))
	for i, h := range hits {
		seeds[i] = h.ChunkID
	}
	return seeds
}

// ChunkIDs maps chains to the chunks their triples came from, in chain then
// triple order. Each chunk appears once, at its first occurrence.
func ChunkIDs(chains []Chain, triples []core.Triple) []int {
	seen := make(map[int]bool)
	ids := []int{}
	for _, chain := range chains {
		for _, pos := range chain.Triples {
			id := triples[pos].ChunkID
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
