package graph

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/terrascope/replicaplan/internal/models"
)

// CandidateMode controls what a selectable instance is.
type CandidateMode string

const (
	// NodeCandidates makes every node its own candidate.
	NodeCandidates CandidateMode = "node"
	// ClusterCandidates makes every connected component of a pattern's
	// induced subgraph one candidate. Unpatterned nodes stay singletons.
	ClusterCandidates CandidateMode = "cluster"
)

// Candidates enumerates the candidate pool of m in ID order.
func Candidates(m *Model, mode CandidateMode) ([]models.CandidateInstance, error) {
	switch mode {
	case NodeCandidates, "":
		out := make([]models.CandidateInstance, 0, m.Len())
		for i := range m.nodes {
			out = append(out, m.candidate([]int{i}))
		}
		return out, nil
	case ClusterCandidates:
		return m.clusterCandidates(), nil
	default:
		return nil, fmt.Errorf("unknown candidate mode %q", mode)
	}
}

func (m *Model) clusterCandidates() []models.CandidateInstance {
	var out []models.CandidateInstance

	if !m.labelled {
		for i := range m.nodes {
			out = append(out, m.candidate([]int{i}))
		}
		return out
	}

	for _, p := range m.Patterns() {
		members := m.patterns[p]
		if p == models.UnassignedPattern {
			for _, i := range members {
				out = append(out, m.candidate([]int{i}))
			}
			continue
		}

		inPattern := make(map[int]bool, len(members))
		g := simple.NewUndirectedGraph()
		for _, i := range members {
			inPattern[i] = true
			g.AddNode(simple.Node(i))
		}
		for _, i := range members {
			for _, j := range m.adj[i] {
				if j > i && inPattern[j] {
					g.SetEdge(g.NewEdge(simple.Node(i), simple.Node(j)))
				}
			}
		}

		for _, comp := range topo.ConnectedComponents(g) {
			positions := make([]int, len(comp))
			for k, n := range comp {
				positions[k] = int(n.ID())
			}
			out = append(out, m.candidate(positions))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Model) candidate(positions []int) models.CandidateInstance {
	sort.Ints(positions)

	ids := make([]string, len(positions))
	typeSet := map[string]bool{}
	for k, p := range positions {
		ids[k] = m.nodes[p].ID
		if t := m.nodes[p].Type; t != "" {
			typeSet[t] = true
		}
	}
	types := make([]string, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Strings(types)

	return models.CandidateInstance{
		ID:      ids[0],
		Pattern: m.PatternAt(positions[0]),
		Nodes:   ids,
		Types:   types,
	}
}
