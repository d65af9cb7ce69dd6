// Package sampling orders candidate instances by how much rare or missing
// resource-type coverage they add to a target graph.
package sampling

import (
	"sort"

	"github.com/terrascope/replicaplan/internal/models"
)

// underrepresented is the fraction of the source count below which a type
// present in the target still earns the rare boost.
const underrepresented = 0.1

// Boost explains a candidate's position in a coverage ordering.
type Boost struct {
	// Rank is the zero-based position in the ordering.
	Rank int `json:"rank"`
	// Priority is the boosted coverage gain at pick time.
	Priority float64 `json:"priority"`
	// BasePriority is the same gain with every boost factor at 1.
	BasePriority float64 `json:"base_priority"`
	// Upweight is Priority / BasePriority, or 1 when nothing new was covered.
	Upweight              float64  `json:"upweight"`
	NewTypes              []string `json:"new_types,omitempty"`
	MissingTypes          []string `json:"missing_types,omitempty"`
	UnderrepresentedTypes []string `json:"underrepresented_types,omitempty"`
}

// Sample runs greedy weighted set cover over candidates and returns up to
// maxSamples of them in priority order, with the boost metadata of each
// returned candidate keyed by ID.
//
// Each round picks the candidate whose not-yet-covered types maximise the
// sum of boost(type) / sourceCounts[type]. A type missing from targetCounts
// is boosted by 2*rareBoost, one with fewer than a tenth of its source count
// by rareBoost. A rareBoost of 1 or less turns boosting off, which makes the
// ordering plain rarity-weighted set cover. Ties go to the earlier
// candidate. When no candidate adds anything new, the rest follow input
// order with zero priority.
//
// The ordering is always computed in full, even when every candidate fits.
func Sample(
	candidates []models.CandidateInstance,
	maxSamples int,
	sourceCounts, targetCounts map[string]int,
	rareBoost float64,
) ([]models.CandidateInstance, map[string]Boost) {
	boosts := map[string]Boost{}
	if maxSamples <= 0 || len(candidates) == 0 {
		return nil, boosts
	}

	boosting := rareBoost > 1
	factor := func(t string) float64 {
		if !boosting {
			return 1
		}
		switch classify(t, sourceCounts, targetCounts) {
		case missing:
			return 2 * rareBoost
		case scarce:
			return rareBoost
		default:
			return 1
		}
	}

	remaining := make([]int, 0, len(candidates))
	seen := map[string]bool{}
	for i, c := range candidates {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		remaining = append(remaining, i)
	}

	covered := map[string]bool{}
	gain := func(c models.CandidateInstance) (boosted, base float64) {
		for _, t := range c.Types {
			if covered[t] {
				continue
			}
			w := 1 / float64(max(sourceCounts[t], 1))
			base += w
			boosted += w * factor(t)
		}
		return boosted, base
	}

	out := make([]models.CandidateInstance, 0, min(maxSamples, len(remaining)))
	for len(out) < maxSamples && len(remaining) > 0 {
		best, bestPriority := -1, 0.0
		for k, i := range remaining {
			if p, _ := gain(candidates[i]); p > bestPriority {
				best, bestPriority = k, p
			}
		}
		if best < 0 {
			break
		}

		c := candidates[remaining[best]]
		remaining = append(remaining[:best], remaining[best+1:]...)

		priority, base := gain(c)
		b := Boost{
			Rank:         len(out),
			Priority:     priority,
			BasePriority: base,
			Upweight:     priority / base,
		}
		for _, t := range c.Types {
			if covered[t] {
				continue
			}
			b.NewTypes = append(b.NewTypes, t)
			switch classify(t, sourceCounts, targetCounts) {
			case missing:
				b.MissingTypes = append(b.MissingTypes, t)
			case scarce:
				b.UnderrepresentedTypes = append(b.UnderrepresentedTypes, t)
			}
		}
		for _, t := range b.NewTypes {
			covered[t] = true
		}
		sortAll(b.NewTypes, b.MissingTypes, b.UnderrepresentedTypes)

		boosts[c.ID] = b
		out = append(out, c)
	}

	for _, i := range remaining {
		if len(out) >= maxSamples {
			break
		}
		c := candidates[i]
		boosts[c.ID] = Boost{Rank: len(out), Upweight: 1}
		out = append(out, c)
	}

	return out, boosts
}

type class int

const (
	abundant class = iota
	scarce
	missing
)

func classify(t string, sourceCounts, targetCounts map[string]int) class {
	n := targetCounts[t]
	switch {
	case n <= 0:
		return missing
	case float64(n) < underrepresented*float64(sourceCounts[t]):
		return scarce
	default:
		return abundant
	}
}

func sortAll(lists ...[]string) {
	for _, l := range lists {
		sort.Strings(l)
	}
}
