package index

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/poiesic/policyrag/core"
)

// FlatIndex is an exact inner-product index over L2-normalized vectors,
// so scores are cosine similarities. Position i holds chunk id i.
// It is immutable after construction and safe for concurrent searches.
type FlatIndex struct {
	dim     int
	vectors [][]float32
}

// NewFlatIndex builds an index from entries whose ChunkIDs are 0..len-1 in order.
// Vectors are normalized on the way in.
func NewFlatIndex(entries []core.IndexEntry) (*FlatIndex, error) {
	idx := &FlatIndex{vectors: make([][]float32, len(entries))}
	for i, e := range entries {
		if e.ChunkID != i {
			return nil, fmt.Errorf("%w: entry %d carries chunk id %d", ErrInconsistentIndex, i, e.ChunkID)
		}
		if i == 0 {
			idx.dim = len(e.Vector)
		}
		if len(e.Vector) != idx.dim || idx.dim == 0 {
			return nil, fmt.Errorf("%w: entry %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(e.Vector), idx.dim)
		}
		idx.vectors[i] = NormalizeVector(e.Vector)
	}
	return idx, nil
}

// Len returns the number of vectors.
func (f *FlatIndex) Len() int {
	return len(f.vectors)
}

// Dimension returns the vector length, or 0 for an empty index.
func (f *FlatIndex) Dimension() int {
	return f.dim
}

// Vector returns the stored normalized vector at position id.
func (f *FlatIndex) Vector(id int) []float32 {
	return f.vectors[id]
}

// Score returns the cosine similarity between query and the vector at id.
func (f *FlatIndex) Score(query []float32, id int) float32 {
	return Dot(NormalizeVector(query), f.vectors[id])
}

// Search returns up to k candidates by descending similarity to query.
// Equal scores keep position order. A query of the wrong dimension matches nothing.
func (f *FlatIndex) Search(query []float32, k int) []core.RankedCandidate {
	if k <= 0 || len(f.vectors) == 0 || len(query) != f.dim {
		return []core.RankedCandidate{}
	}
	q := NormalizeVector(query)

	cands := make([]core.RankedCandidate, len(f.vectors))
	for i, v := range f.vectors {
		cands[i] = core.RankedCandidate{ChunkID: i, Score: Dot(q, v), Signal: core.SignalDense}
	}
	slices.SortStableFunc(cands, func(a, b core.RankedCandidate) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(cands) > k {
		cands = cands[:k]
	}
	return cands
}
