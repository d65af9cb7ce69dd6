package selection

import (
	"fmt"

	"github.com/terrascope/replicaplan/internal/models"
)

// drawCoherent picks n instances from pool, each time the one with the
// highest mean attribute similarity to everything selected so far. With an
// empty selection the first pick is the pool member most similar to the rest
// of the pool. Ties go to pool order.
func drawCoherent(st *state, pool []models.CandidateInstance, n int) {
	if n <= 0 || len(pool) == 0 {
		return
	}

	attrs := make([]map[string]bool, len(pool))
	for i, c := range pool {
		attrs[i] = st.attributes(c)
	}

	sum := make([]float64, len(pool))
	refs := len(st.selected)
	central := refs == 0
	for _, sel := range st.selected {
		ref := st.attributes(models.CandidateInstance{Nodes: sel.Nodes, Types: sel.Types})
		for i := range pool {
			sum[i] += jaccard(attrs[i], ref)
		}
	}

	if refs == 0 {
		for i := range pool {
			for j := range pool {
				if i != j {
					sum[i] += jaccard(attrs[i], attrs[j])
				}
			}
		}
		refs = max(len(pool)-1, 1)
	}

	taken := make([]bool, len(pool))
	for picked := 0; picked < n; picked++ {
		best := -1
		for i := range pool {
			if taken[i] {
				continue
			}
			if best < 0 || sum[i] > sum[best] {
				best = i
			}
		}
		if best < 0 {
			return
		}

		taken[best] = true
		st.add(pool[best], 0, 1-sum[best]/float64(refs))

		if central {
			// centrality only decides the first pick
			clear(sum)
			refs = 0
			central = false
		}
		for i := range pool {
			if !taken[i] {
				sum[i] += jaccard(attrs[i], attrs[best])
			}
		}
		refs++
	}
}

// attributes is the set of key=value facts describing a candidate: resource
// types, providers, modes, tags and scalar configuration of its nodes.
func (s *state) attributes(c models.CandidateInstance) map[string]bool {
	out := map[string]bool{}
	for _, t := range c.Types {
		out["type="+t] = true
	}
	for _, id := range c.Nodes {
		n, ok := s.src.Node(id)
		if !ok {
			continue
		}
		if n.Provider != "" {
			out["provider="+n.Provider] = true
		}
		if n.Mode != "" {
			out["mode="+n.Mode] = true
		}
		addFacts(out, "tag.", n.Metadata["tags"])
		addFacts(out, "config.", n.Metadata["config"])
	}
	return out
}

func addFacts(out map[string]bool, prefix string, v any) {
	switch m := v.(type) {
	case map[string]string:
		for k, val := range m {
			out[prefix+k+"="+val] = true
		}
	case map[string]any:
		for k, raw := range m {
			switch val := raw.(type) {
			case string, bool, float64, int, int64:
				out[fmt.Sprintf("%s%s=%v", prefix, k, val)] = true
			}
		}
	}
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
