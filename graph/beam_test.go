package graph

import (
	"fmt"
	"testing"

	"github.com/poiesic/policyrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triple(s, o string, chunk int) core.Triple {
	return core.Triple{Subject: s, Predicate: "relates to", Object: o, ChunkID: chunk}
}

// A-B-C-D path with a B-E branch and an isolated X-Y triple.
var pathTriples = []core.Triple{
	triple("A", "B", 0),
	triple("B", "C", 1),
	triple("C", "D", 2),
	triple("B", "E", 1),
	triple("X", "Y", 3),
}

var pathScores = ScorerFunc(func(pos int) float32 {
	return []float32{0.9, 0.8, 0.7, 0.1, 0.95}[pos]
})

func TestNeighbors(t *testing.T) {
	n := NewNeighborIndex(pathTriples)

	assert.Equal(t, []int{1, 3}, n.Neighbors(0))
	assert.Equal(t, []int{0, 2, 3}, n.Neighbors(1))
	assert.Equal(t, []int{0, 1}, n.Neighbors(3))
	assert.Empty(t, n.Neighbors(4))
	assert.Nil(t, n.Neighbors(99))
}

func TestNeighbors_SubjectEqualsObject(t *testing.T) {
	n := NewNeighborIndex([]core.Triple{triple("A", "A", 0), triple("A", "B", 0)})
	assert.Equal(t, []int{1}, n.Neighbors(0))
	assert.Equal(t, []int{0}, n.Neighbors(1))
}

func TestBeamSearch(t *testing.T) {
	cfg := Config{BeamSize: 2, MaxLength: 3, Gamma: 1.0}

	chains := BeamSearch(pathScores, []int{4, 0, 1}, pathTriples, cfg)
	require.Len(t, chains, 2)

	// The isolated seed X-Y scores best but cannot be extended, so it is dropped.
	assert.Equal(t, []int{0, 1, 2}, chains[0].Triples)
	assert.InDelta(t, (0.9+0.8+0.7)/3, chains[0].Score, 1e-6)
	assert.Len(t, chains[1].Triples, 3)
	assert.InDelta(t, 0.6, chains[1].Score, 1e-6)
}

func TestBeamSearch_SeedsOnly(t *testing.T) {
	chains := BeamSearch(pathScores, []int{2, 0, 1}, pathTriples, Config{BeamSize: 2, MaxLength: 1, Gamma: 1})
	require.Len(t, chains, 2)
	assert.Equal(t, []int{0}, chains[0].Triples)
	assert.Equal(t, []int{1}, chains[1].Triples)
	assert.InDelta(t, 0.9, chains[0].Score, 1e-6)
}

func TestBeamSearch_NoNeighborsKeepsSeeds(t *testing.T) {
	chains := BeamSearch(pathScores, []int{4}, pathTriples, DefaultConfig())
	require.Len(t, chains, 1)
	assert.Equal(t, []int{4}, chains[0].Triples)
}

func TestBeamSearch_Degenerate(t *testing.T) {
	assert.Nil(t, BeamSearch(pathScores, []int{0}, nil, DefaultConfig()))
	assert.Empty(t, BeamSearch(pathScores, nil, pathTriples, DefaultConfig()))
	assert.Empty(t, BeamSearch(pathScores, []int{-1, 42}, pathTriples, DefaultConfig()))
	assert.Nil(t, BeamSearch(pathScores, []int{0}, pathTriples, Config{BeamSize: 0, MaxLength: 3}))
	assert.Nil(t, BeamSearch(pathScores, []int{0}, pathTriples, Config{BeamSize: 3, MaxLength: 0}))
}

func TestBeamSearch_DuplicateSeeds(t *testing.T) {
	chains := BeamSearch(pathScores, []int{0, 0, 0}, pathTriples, Config{BeamSize: 3, MaxLength: 1})
	assert.Len(t, chains, 1)
}

func TestBeamSearch_DuplicateTripleValues(t *testing.T) {
	files := core.Triple{Subject: "employee", Predicate: "must file", Object: "report", ChunkID: 0}
	triples := []core.Triple{
		files,
		files,
		{Subject: "report", Predicate: "goes to", Object: "manager", ChunkID: 0},
	}
	scorer := ScorerFunc(func(pos int) float32 {
		return []float32{0.9, 0.9, 0.5}[pos]
	})

	chains := BeamSearch(scorer, []int{0, 1}, triples, Config{BeamSize: 2, MaxLength: 3, Gamma: 1})
	require.Len(t, chains, 2)
	assert.Equal(t, []int{0, 2}, chains[0].Triples)
	assert.Equal(t, []int{1, 2}, chains[1].Triples)
	for _, chain := range chains {
		seen := make(map[core.Triple]bool)
		for _, pos := range chain.Triples {
			assert.False(t, seen[triples[pos]], "chain %v repeats %+v", chain.Triples, triples[pos])
			seen[triples[pos]] = true
		}
	}
}

func TestBeamSearch_DuplicatesOnlyKeepSeeds(t *testing.T) {
	files := core.Triple{Subject: "employee", Predicate: "must file", Object: "report"}
	chains := BeamSearch(ScorerFunc(func(int) float32 { return 1 }), []int{0, 1},
		[]core.Triple{files, files}, Config{BeamSize: 2, MaxLength: 3, Gamma: 1})
	require.Len(t, chains, 2)
	assert.Equal(t, []int{0}, chains[0].Triples)
	assert.Equal(t, []int{1}, chains[1].Triples)
}

func TestBeamSearch_ChainInvariants(t *testing.T) {
	// A dense graph over six entities with many cycles.
	entities := []string{"leave", "manager", "payroll", "policy", "employee", "travel"}
	var triples []core.Triple
	for i := range entities {
		for j := range entities {
			if i != j && (i+j)%2 == 1 {
				triples = append(triples, triple(entities[i], entities[j], len(triples)%4))
			}
		}
	}
	scorer := ScorerFunc(func(pos int) float32 {
		return float32((pos*37)%17) / 17
	})
	seeds := make([]int, len(triples))
	for i := range seeds {
		seeds[i] = i
	}

	for _, cfg := range []Config{
		{BeamSize: 1, MaxLength: 5, Gamma: 1},
		{BeamSize: 3, MaxLength: 3, Gamma: 1},
		{BeamSize: 5, MaxLength: 8, Gamma: 0.5},
		{BeamSize: 4, MaxLength: 4, Gamma: 3},
	} {
		t.Run(fmt.Sprintf("beam=%d,len=%d", cfg.BeamSize, cfg.MaxLength), func(t *testing.T) {
			chains := BeamSearch(scorer, seeds, triples, cfg)
			require.NotEmpty(t, chains)
			assert.LessOrEqual(t, len(chains), cfg.BeamSize)

			neighbors := NewNeighborIndex(triples)
			for _, chain := range chains {
				assert.LessOrEqual(t, len(chain.Triples), cfg.MaxLength)
				seen := make(map[int]bool)
				for i, pos := range chain.Triples {
					assert.False(t, seen[pos], "triple %d repeated in %v", pos, chain.Triples)
					seen[pos] = true
					if i > 0 {
						assert.Contains(t, neighbors.Neighbors(chain.Triples[i-1]), pos, "consecutive triples share an entity")
					}
				}
			}

			again := BeamSearch(scorer, seeds, triples, cfg)
			assert.Equal(t, chains, again, "search is deterministic")
		})
	}
}

func TestDiverseTop(t *testing.T) {
	candidates := []Chain{
		{Triples: []int{1}, Score: -0.1},
		{Triples: []int{2}, Score: -0.2},
		{Triples: []int{3}, Score: -0.3},
	}

	// Rank 0 is unpenalized; later ranks are scaled by e^-1, which lifts
	// negative scores towards zero.
	kept := diverseTop(candidates, 2, 1.0)
	require.Len(t, kept, 2)
	assert.Equal(t, []int{2}, kept[0].Triples)
	assert.Equal(t, []int{1}, kept[1].Triples)
	assert.Equal(t, -0.2, kept[0].Score, "kept chains carry their raw score")

	kept = diverseTop([]Chain{{Score: 0.5}, {Score: 0.9}}, 5, 0)
	require.Len(t, kept, 2)
	assert.Equal(t, 0.9, kept[0].Score, "gamma 0 ranks by raw score")
}

func TestChunkIDs(t *testing.T) {
	chains := []Chain{
		{Triples: []int{0, 1, 3}},
		{Triples: []int{4, 1, 2}},
	}
	assert.Equal(t, []int{0, 1, 3, 2}, ChunkIDs(chains, pathTriples))
	assert.Equal(t, []int{}, ChunkIDs(nil, pathTriples))
}
