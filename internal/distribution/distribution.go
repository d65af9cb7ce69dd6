// Package distribution scores architecture patterns and turns the scores
// into per-pattern instance allocations.
package distribution

import (
	"math"
	"sort"

	"github.com/terrascope/replicaplan/internal/graph"
	"github.com/terrascope/replicaplan/internal/models"
)

// Weights scale how far each structural metric may move a pattern's score
// away from its plain share of the graph.
type Weights struct {
	Cohesion  float64
	Diversity float64
	Coupling  float64
}

var DefaultWeights = Weights{Cohesion: 0.1, Diversity: 0.1, Coupling: 0.1}

// minMultiplier keeps every non-empty pattern eligible for allocation.
const minMultiplier = 0.01

// Analyze computes the metrics and distribution score of every pattern in m
// using DefaultWeights, and allocates total instances across them. Patterns
// are returned in ID order. A graph without pattern labels has none.
func Analyze(m *graph.Model, total int) []models.ArchitecturePattern {
	return AnalyzeWeighted(m, total, DefaultWeights)
}

func AnalyzeWeighted(m *graph.Model, total int, w Weights) []models.ArchitecturePattern {
	ids := m.Patterns()
	if len(ids) == 0 {
		return nil
	}

	patterns := make([]models.ArchitecturePattern, len(ids))
	for k, id := range ids {
		patterns[k] = measure(m, id)
	}

	var meanCohesion, meanDiversity, meanCoupling float64
	for _, p := range patterns {
		meanCohesion += p.Cohesion
		meanDiversity += p.Diversity
		meanCoupling += p.Coupling
	}
	n := float64(len(patterns))
	meanCohesion /= n
	meanDiversity /= n
	meanCoupling /= n

	for k := range patterns {
		p := &patterns[k]
		mult := 1 + relative(w.Cohesion, p.Cohesion, meanCohesion) +
			relative(w.Diversity, p.Diversity, meanDiversity) +
			relative(w.Coupling, p.Coupling, meanCoupling)
		p.DistributionScore = p.Share * math.Max(mult, minMultiplier)
	}

	alloc := Allocate(Scores(patterns), total)
	for k := range patterns {
		patterns[k].TargetAllocation = alloc[patterns[k].ID]
	}
	return patterns
}

func relative(weight, v, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	return weight * (v/mean - 1)
}

func measure(m *graph.Model, id string) models.ArchitecturePattern {
	members := m.PatternMembers(id)
	inPattern := make(map[int]bool, len(members))
	for _, i := range members {
		inPattern[i] = true
	}

	var internal, external int
	types := map[string]bool{}
	nodeIDs := make([]string, len(members))
	for k, i := range members {
		node := m.NodeAt(i)
		nodeIDs[k] = node.ID
		if node.Type != "" {
			types[node.Type] = true
		}
		for _, j := range m.Neighbors(i) {
			if inPattern[j] {
				internal++
			} else {
				external++
			}
		}
	}

	size := float64(len(members))
	// internal counts each edge from both ends
	return models.ArchitecturePattern{
		ID:        id,
		NodeIDs:   nodeIDs,
		Share:     size / float64(m.Len()),
		Cohesion:  float64(internal) / size,
		Diversity: float64(len(types)),
		Coupling:  float64(external) / size,
	}
}

// Scores maps pattern IDs to distribution scores.
func Scores(patterns []models.ArchitecturePattern) map[string]float64 {
	out := make(map[string]float64, len(patterns))
	for _, p := range patterns {
		out[p.ID] = p.DistributionScore
	}
	return out
}

// Allocate splits total across the scored patterns in proportion to their
// scores. Each pattern gets the floor of its exact share; the remainder goes
// one at a time by largest fractional part, then larger score, then pattern
// ID. Non-positive scores count as zero, and when every score is zero the
// patterns are treated as equal. The result always sums to total.
func Allocate(scores map[string]float64, total int) map[string]int {
	out := make(map[string]int, len(scores))
	for id := range scores {
		out[id] = 0
	}
	if total <= 0 || len(scores) == 0 {
		return out
	}

	ids := sortedIDs(scores)
	weight := func(id string) float64 {
		s := scores[id]
		if s > 0 && !math.IsInf(s, 0) {
			return s
		}
		return 0
	}

	var sum float64
	for _, id := range ids {
		sum += weight(id)
	}

	type remainder struct {
		id    string
		frac  float64
		score float64
	}
	rems := make([]remainder, 0, len(ids))
	assigned := 0
	for _, id := range ids {
		var exact float64
		if sum > 0 {
			exact = float64(total) * weight(id) / sum
		} else {
			exact = float64(total) / float64(len(ids))
		}
		// absorb rounding noise such as 11.999999999999998
		floor := math.Floor(exact + 1e-9)
		out[id] = int(floor)
		assigned += int(floor)
		rems = append(rems, remainder{id: id, frac: math.Max(exact-floor, 0), score: weight(id)})
	}

	sort.SliceStable(rems, func(i, j int) bool {
		if rems[i].frac != rems[j].frac {
			return rems[i].frac > rems[j].frac
		}
		if rems[i].score != rems[j].score {
			return rems[i].score > rems[j].score
		}
		return rems[i].id < rems[j].id
	})
	for k := 0; assigned < total; k++ {
		out[rems[k%len(rems)].id]++
		assigned++
	}
	return out
}

// Rebalance caps every allocation at the pattern's capacity and hands the
// overflow to patterns with room left, using the Allocate rule over their
// scores. The result sums to min(sum(alloc), sum(capacity)).
func Rebalance(alloc, capacity map[string]int, scores map[string]float64) map[string]int {
	out := make(map[string]int, len(alloc))
	overflow := 0
	for id, n := range alloc {
		c := max(capacity[id], 0)
		if n > c {
			overflow += n - c
			n = c
		}
		out[id] = n
	}

	for overflow > 0 {
		spare := map[string]float64{}
		for id, n := range out {
			if n < capacity[id] {
				spare[id] = scores[id]
			}
		}
		if len(spare) == 0 {
			break
		}

		extra := Allocate(spare, overflow)
		overflow = 0
		for _, id := range sortedIDs(spare) {
			room := capacity[id] - out[id]
			take := min(extra[id], room)
			out[id] += take
			overflow += extra[id] - take
		}
	}
	return out
}

// Total sums an allocation.
func Total(alloc map[string]int) int {
	sum := 0
	for _, n := range alloc {
		sum += n
	}
	return sum
}

func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
