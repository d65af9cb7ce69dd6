package selection

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/terrascope/replicaplan/internal/models"
	"github.com/terrascope/replicaplan/internal/sampling"
	"github.com/terrascope/replicaplan/internal/scoring"
)

// Sampling is how the proportional strategy draws inside a pattern.
type Sampling string

const (
	RandomSampling    Sampling = "random"
	CoverageSampling  Sampling = "coverage"
	CoherenceSampling Sampling = "coherence"
)

// Proportional fills each pattern's allocation in turn. Patterns with larger
// allocations go first, ties by pattern ID. Spectral distance only enters
// through the optional boost-aware re-ranking of coverage pools; with
// SpectralWeight 0 no distance is computed during selection and the planner
// measures it once on the finished plan.
type Proportional struct {
	Sampling Sampling
	// SpectralWeight blends the re-ranking score; 0 keeps the coverage order.
	SpectralWeight float64
	RareBoost      float64
	// PoolFactor sizes the coverage pool as ceil(allocation * PoolFactor).
	PoolFactor float64
	Seed       uint64
}

func (p Proportional) Name() string { return "proportional" }

func (p Proportional) Select(ctx context.Context, in Input) (Result, error) {
	if len(in.Allocations) == 0 {
		return Result{}, ErrNoPatterns
	}
	switch p.Sampling {
	case RandomSampling, CoverageSampling, CoherenceSampling:
	case "":
		p.Sampling = CoverageSampling
	default:
		return Result{}, fmt.Errorf("unknown sampling strategy %q", p.Sampling)
	}

	log := in.logger(p.Name())
	st := newState(in.Source)
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))
	sourceCounts := in.Source.TypeCounts()

	byPattern := map[string][]models.CandidateInstance{}
	for _, c := range in.Candidates {
		byPattern[c.Pattern] = append(byPattern[c.Pattern], c)
	}

	var warnings []string
	for _, pattern := range allocationOrder(in.Allocations) {
		n := in.Allocations[pattern]
		if n <= 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			log.Warn("selection interrupted", slog.Any("error", err))
			return st.result(true, append(warnings, fmt.Sprintf("selection interrupted: %v", err))), nil
		}
		if remaining := in.Target - len(st.selected); n > remaining {
			n = remaining
		}
		if n <= 0 {
			break
		}

		pool := st.unchosen(byPattern[pattern])
		if len(pool) < n {
			warnings = append(warnings, fmt.Sprintf("pattern %s: allocated %d, only %d candidates", pattern, n, len(pool)))
			n = len(pool)
		}

		switch p.Sampling {
		case RandomSampling:
			p.drawRandom(st, pool, n, rng)
		case CoverageSampling:
			p.drawCoverage(st, pool, n, sourceCounts, in)
		case CoherenceSampling:
			drawCoherent(st, pool, n)
		}

		log.Debug("pattern filled",
			slog.String("pattern", pattern),
			slog.Int("allocated", in.Allocations[pattern]),
			slog.Int("selected", n))
	}

	return st.result(false, warnings), nil
}

func (p Proportional) drawRandom(st *state, pool []models.CandidateInstance, n int, rng *rand.Rand) {
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	for _, c := range pool[:n] {
		st.add(c, 0, 0)
	}
}

func (p Proportional) drawCoverage(st *state, pool []models.CandidateInstance, n int, sourceCounts map[string]int, in Input) {
	size := n
	if p.PoolFactor > 1 {
		size = int(math.Ceil(float64(n) * p.PoolFactor))
	}

	sampled, boosts := sampling.Sample(pool, size, sourceCounts, st.covered, p.RareBoost)
	if p.SpectralWeight <= 0 {
		for _, c := range sampled[:min(n, len(sampled))] {
			st.add(c, boosts[c.ID].Upweight, 0)
		}
		return
	}

	calc := in.calculator()
	ranked := scoring.Rerank(sampled, boosts, func(c models.CandidateInstance) float64 {
		return calc.Distance(in.Source, st.builder.GraphWith(c.Nodes))
	}, p.SpectralWeight)
	for _, r := range ranked[:min(n, len(ranked))] {
		st.add(r.Candidate, r.Boost.Upweight, r.Score)
	}
}

// allocationOrder sorts patterns by descending allocation, then ID.
func allocationOrder(alloc map[string]int) []string {
	ids := make([]string, 0, len(alloc))
	for id := range alloc {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if alloc[ids[i]] != alloc[ids[j]] {
			return alloc[ids[i]] > alloc[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}
