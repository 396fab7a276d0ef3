package graph

import (
	"slices"

	"github.com/poiesic/policyrag/core"
)

// NeighborIndex maps each entity to the triples that mention it as subject or object.
// Entities match by exact string; there is no entity resolution.
type NeighborIndex struct {
	triples  []core.Triple
	byEntity map[string][]int
}

// NewNeighborIndex indexes triples by position.
func NewNeighborIndex(triples []core.Triple) *NeighborIndex {
	n := &NeighborIndex{
		triples:  triples,
		byEntity: make(map[string][]int),
	}
	for i, t := range triples {
		n.byEntity[t.Subject] = append(n.byEntity[t.Subject], i)
		if t.Object != t.Subject {
			n.byEntity[t.Object] = append(n.byEntity[t.Object], i)
		}
	}
	return n
}

// Neighbors returns the positions of triples sharing the subject or object of
// triple i, excluding i itself, in ascending order.
func (n *NeighborIndex) Neighbors(i int) []int {
	if i < 0 || i >= len(n.triples) {
		return nil
	}
	t := n.triples[i]
	var out []int
	for _, pos := range n.byEntity[t.Subject] {
		if pos != i {
			out = append(out, pos)
		}
	}
	if t.Object != t.Subject {
		for _, pos := range n.byEntity[t.Object] {
			if pos != i {
				out = append(out, pos)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
