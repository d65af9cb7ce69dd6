// Package scoring turns spectral distances and coverage boosts into a single
// lower-is-better candidate score.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/terrascope/replicaplan/internal/models"
	"github.com/terrascope/replicaplan/internal/sampling"
)

type Mode string

const (
	// WeightedSum blends spectral distance with the node-coverage penalty.
	WeightedSum Mode = "weighted_sum"
	// HybridDivide divides spectral distance by the coverage upweight so
	// rare-type candidates stay competitive in a spectral re-ranking.
	HybridDivide Mode = "hybrid_divide"
)

// Scorer scores candidates in one Mode. NodeCoverageWeight is the w of the
// weighted sum and is ignored by HybridDivide.
type Scorer struct {
	Mode               Mode
	NodeCoverageWeight float64
}

// Score returns the candidate's score given the spectral distance the target
// would have with it added, its coverage boost and the set of types the
// target already covers. Lower is better.
func (s Scorer) Score(c models.CandidateInstance, spectral float64, boost sampling.Boost, covered func(string) bool) (float64, error) {
	switch s.Mode {
	case WeightedSum, "":
		return WeightedSumScore(spectral, NodeCoveragePenalty(c, covered), s.NodeCoverageWeight), nil
	case HybridDivide:
		return HybridDivideScore(spectral, boost.Upweight), nil
	default:
		return 0, fmt.Errorf("unknown scoring mode %q", s.Mode)
	}
}

// WeightedSumScore is (1-w)*spectral + w*penalty with w clamped to [0,1].
func WeightedSumScore(spectral, penalty, w float64) float64 {
	w = math.Min(math.Max(w, 0), 1)
	return (1-w)*spectral + w*penalty
}

// HybridDivideScore is spectral / upweight, with upweights below 1 (or
// unset) treated as 1.
func HybridDivideScore(spectral, upweight float64) float64 {
	return spectral / math.Max(upweight, 1)
}

// NodeCoveragePenalty is the fraction of the candidate's types the target
// already covers. A candidate without types adds nothing and scores 1.
func NodeCoveragePenalty(c models.CandidateInstance, covered func(string) bool) float64 {
	if len(c.Types) == 0 {
		return 1
	}
	if covered == nil {
		return 0
	}
	n := 0
	for _, t := range c.Types {
		if covered(t) {
			n++
		}
	}
	return float64(n) / float64(len(c.Types))
}

// Ranked is a candidate with its re-ranking inputs and result.
type Ranked struct {
	Candidate models.CandidateInstance
	Boost     sampling.Boost
	Spectral  float64
	Hybrid    float64
	Score     float64
}

// Rerank orders a coverage-ordered pool by
//
//	spectralWeight*HybridDivideScore + (1-spectralWeight)*rank/len(pool)
//
// so the spectral pass refines the coverage order instead of replacing it.
// spectral returns the distance the target would have with a candidate
// added. Ties keep the pool order.
func Rerank(
	pool []models.CandidateInstance,
	boosts map[string]sampling.Boost,
	spectral func(models.CandidateInstance) float64,
	spectralWeight float64,
) []Ranked {
	spectralWeight = math.Min(math.Max(spectralWeight, 0), 1)
	out := make([]Ranked, len(pool))
	for i, c := range pool {
		b, ok := boosts[c.ID]
		if !ok {
			b = sampling.Boost{Rank: i, Upweight: 1}
		}
		r := Ranked{Candidate: c, Boost: b}
		if spectralWeight > 0 {
			r.Spectral = spectral(c)
			r.Hybrid = HybridDivideScore(r.Spectral, b.Upweight)
		}
		r.Score = spectralWeight*r.Hybrid + (1-spectralWeight)*float64(b.Rank)/float64(len(pool))
		out[i] = r
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	return out
}
