package graph

import (
	"cmp"
	"math"
	"slices"

	"github.com/poiesic/policyrag/core"
)

// Chain is an ordered path of triples. Triples holds positions into the
// searched triple list; Score is the mean of the triples' scores.
type Chain struct {
	Triples []int
	Score   float64
}

// BeamSearch runs diverse triple beam search from seeds over all and returns
// at most cfg.BeamSize chains, best first.
//
// Seeds are scored and the best cfg.BeamSize become one-triple chains. Each
// of the following cfg.MaxLength-1 steps extends every chain with each
// neighbor of its last triple whose value is not already in it. Extensions are
// ranked by raw score, weighted by exp(-min(rank, gamma)), and the best
// cfg.BeamSize by weighted score survive. Chains that cannot be extended are
// dropped; when no chain can be extended the search stops with the current beams.
// Equal scores keep generation order.
func BeamSearch(scorer Scorer, seeds []int, all []core.Triple, cfg Config) []Chain {
	return BeamSearchWith(NewNeighborIndex(all), scorer, seeds, all, cfg)
}

// BeamSearchWith is BeamSearch over a prebuilt neighbor index of all.
func BeamSearchWith(neighbors *NeighborIndex, scorer Scorer, seeds []int, all []core.Triple, cfg Config) []Chain {
	if cfg.BeamSize <= 0 || cfg.MaxLength <= 0 || len(all) == 0 {
		return nil
	}

	memo := make(map[int]float64)
	score := func(pos int) float64 {
		s, ok := memo[pos]
		if !ok {
			s = float64(scorer.Score(pos))
			memo[pos] = s
		}
		return s
	}

	var beams []Chain
	seen := make(map[int]bool, len(seeds))
	for _, pos := range seeds {
		if pos < 0 || pos >= len(all) || seen[pos] {
			continue
		}
		seen[pos] = true
		beams = append(beams, Chain{Triples: []int{pos}, Score: score(pos)})
	}
	slices.SortStableFunc(beams, func(a, b Chain) int {
		return cmp.Compare(b.Score, a.Score)
	})
	beams = beams[:min(len(beams), cfg.BeamSize)]

	for step := 1; step < cfg.MaxLength && len(beams) > 0; step++ {
		var candidates []Chain
		for _, beam := range beams {
			last := beam.Triples[len(beam.Triples)-1]
			for _, next := range neighbors.Neighbors(last) {
				if inChain(beam.Triples, all, next) {
					continue
				}
				n := float64(len(beam.Triples))
				candidates = append(candidates, Chain{
					Triples: append(slices.Clone(beam.Triples), next),
					Score:   (beam.Score*n + score(next)) / (n + 1),
				})
			}
		}
		if len(candidates) == 0 {
			break
		}
		beams = diverseTop(candidates, cfg.BeamSize, cfg.Gamma)
	}
	return beams
}

// inChain reports whether a triple equal in value to all[pos] is already in
// the chain. Extractors can emit the same triple twice at different positions.
func inChain(chain []int, all []core.Triple, pos int) bool {
	return slices.ContainsFunc(chain, func(p int) bool { return all[p] == all[pos] })
}

type penalized struct {
	chain    Chain
	weighted float64
}

// diverseTop ranks candidates by raw score, applies the rank penalty, and
// keeps the k best by penalized score.
func diverseTop(candidates []Chain, k int, gamma float64) []Chain {
	slices.SortStableFunc(candidates, func(a, b Chain) int {
		return cmp.Compare(b.Score, a.Score)
	})

	ranked := make([]penalized, len(candidates))
	for rank, c := range candidates {
		ranked[rank] = penalized{
			chain:    c,
			weighted: c.Score * math.Exp(-math.Min(float64(rank), gamma)),
		}
	}
	slices.SortStableFunc(ranked, func(a, b penalized) int {
		return cmp.Compare(b.weighted, a.weighted)
	})

	kept := make([]Chain, min(k, len(ranked)))
	for i := range kept {
		kept[i] = ranked[i].chain
	}
	return kept
}
