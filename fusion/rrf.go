// Package fusion merges ranked lists with Reciprocal Rank Fusion.
package fusion

import (
	"cmp"
	"slices"

	"github.com/poiesic/policyrag/core"
)

// DefaultK is the standard RRF damping constant.
const DefaultK = 60

// Scored is a chunk id with its fused score.
type Scored struct {
	ChunkID int
	Score   float64
}

// FuseScored adds 1/(k+rank+1) to a chunk's score for every list position
// it occupies (rank is 0-based) and returns all chunks by descending score.
// Ties keep first-encounter order: earlier lists first, then earlier positions.
// A negative k is replaced by DefaultK.
func FuseScored(lists [][]int, k int) []Scored {
	if k < 0 {
		k = DefaultK
	}

	var fused []Scored
	pos := make(map[int]int)
	for _, list := range lists {
		for rank, id := range list {
			i, seen := pos[id]
			if !seen {
				i = len(fused)
				pos[id] = i
				fused = append(fused, Scored{ChunkID: id})
			}
			fused[i].Score += 1.0 / float64(k+rank+1)
		}
	}

	slices.SortStableFunc(fused, func(a, b Scored) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return fused
}

// Fuse returns the chunk ids of FuseScored in order.
func Fuse(lists [][]int, k int) []int {
	fused := FuseScored(lists, k)
	ids := make([]int, len(fused))
	for i, s := range fused {
		ids[i] = s.ChunkID
	}
	return ids
}

// FuseCandidates fuses candidate lists by rank alone; their scores are ignored.
// Results carry the fused score and SignalFused.
func FuseCandidates(lists [][]core.RankedCandidate, k int) []core.RankedCandidate {
	ids := make([][]int, len(lists))
	for i, list := range lists {
		ids[i] = make([]int, len(list))
		for j, c := range list {
			ids[i][j] = c.ChunkID
		}
	}

	fused := FuseScored(ids, k)
	out := make([]core.RankedCandidate, len(fused))
	for i, s := range fused {
		out[i] = core.RankedCandidate{ChunkID: s.ChunkID, Score: float32(s.Score), Signal: core.SignalFused}
	}
	return out
}
