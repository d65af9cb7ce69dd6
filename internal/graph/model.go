// Package graph provides the read-only, index-based view of a resource graph
// used by the planning core, plus the add-only accumulator strategies use to
// grow a hypothetical target graph.
package graph

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/terrascope/replicaplan/internal/models"
)

// Model is an immutable index over a resource graph. Nodes are addressed by
// their position in ID order; edges are undirected and deduplicated, self
// loops and edges to unknown nodes are dropped.
type Model struct {
	nodes      []models.Node
	index      map[string]int
	adj        [][]int
	edges      int
	typeCounts map[string]int
	patterns   map[string][]int
	labelled   bool
}

// New indexes g. The input graph is copied and never modified.
func New(g *models.Graph) *Model {
	if g == nil {
		return build(nil, nil)
	}
	nodes := make([]models.Node, len(g.Nodes))
	copy(nodes, g.Nodes)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	// first occurrence wins on duplicate IDs
	deduped := make([]models.Node, 0, len(nodes))
	for i, n := range nodes {
		if i > 0 && n.ID == nodes[i-1].ID {
			continue
		}
		deduped = append(deduped, n)
	}

	index := make(map[string]int, len(deduped))
	for i, n := range deduped {
		index[n.ID] = i
	}

	pairs := make([][2]int, 0, len(g.Edges))
	for _, e := range g.Edges {
		s, ok1 := index[e.Source]
		t, ok2 := index[e.Target]
		if !ok1 || !ok2 || s == t {
			continue
		}
		pairs = append(pairs, [2]int{s, t})
	}

	return build(deduped, pairs)
}

func build(nodes []models.Node, pairs [][2]int) *Model {
	m := &Model{
		nodes:      nodes,
		index:      make(map[string]int, len(nodes)),
		adj:        make([][]int, len(nodes)),
		typeCounts: map[string]int{},
		patterns:   map[string][]int{},
	}

	for i, n := range nodes {
		m.index[n.ID] = i
		if n.Type != "" {
			m.typeCounts[n.Type]++
		}
		if n.Pattern != "" {
			m.labelled = true
		}
	}

	seen := make(map[[2]int]bool, len(pairs))
	for _, p := range pairs {
		a, b := p[0], p[1]
		if a > b {
			a, b = b, a
		}
		key := [2]int{a, b}
		if seen[key] {
			continue
		}
		seen[key] = true
		m.adj[a] = append(m.adj[a], b)
		m.adj[b] = append(m.adj[b], a)
		m.edges++
	}
	for i := range m.adj {
		sort.Ints(m.adj[i])
	}

	if m.labelled {
		for i := range nodes {
			p := m.PatternAt(i)
			m.patterns[p] = append(m.patterns[p], i)
		}
	}

	return m
}

func (m *Model) Len() int       { return len(m.nodes) }
func (m *Model) EdgeCount() int { return m.edges }

// HasPatterns reports whether any node carries a pattern label.
func (m *Model) HasPatterns() bool { return m.labelled }

func (m *Model) IDs() []string {
	out := make([]string, len(m.nodes))
	for i, n := range m.nodes {
		out[i] = n.ID
	}
	return out
}

func (m *Model) Index(id string) (int, bool) {
	i, ok := m.index[id]
	return i, ok
}

func (m *Model) Node(id string) (models.Node, bool) {
	i, ok := m.index[id]
	if !ok {
		return models.Node{}, false
	}
	return m.nodes[i], true
}

func (m *Model) NodeAt(i int) models.Node { return m.nodes[i] }

// Neighbors returns the sorted neighbour positions of node i. The slice is
// shared and must not be modified.
func (m *Model) Neighbors(i int) []int { return m.adj[i] }

func (m *Model) Degree(i int) int { return len(m.adj[i]) }

// PatternAt returns the effective pattern of node i: its label, or
// models.UnassignedPattern when other nodes are labelled. Unlabelled graphs
// have no patterns at all.
func (m *Model) PatternAt(i int) string {
	if p := m.nodes[i].Pattern; p != "" {
		return p
	}
	if m.labelled {
		return models.UnassignedPattern
	}
	return ""
}

// TypeCounts returns a copy of the per-resource-type node counts.
func (m *Model) TypeCounts() map[string]int {
	out := make(map[string]int, len(m.typeCounts))
	for k, v := range m.typeCounts {
		out[k] = v
	}
	return out
}

// Types returns the distinct resource types in sorted order.
func (m *Model) Types() []string {
	out := make([]string, 0, len(m.typeCounts))
	for t := range m.typeCounts {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Patterns returns the effective pattern IDs in sorted order.
func (m *Model) Patterns() []string {
	out := make([]string, 0, len(m.patterns))
	for p := range m.patterns {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// PatternMembers returns the node positions of pattern p in ID order.
func (m *Model) PatternMembers(p string) []int {
	members := m.patterns[p]
	out := make([]int, len(members))
	copy(out, members)
	return out
}

// Subgraph returns the subgraph induced by ids. Unknown IDs are ignored.
func (m *Model) Subgraph(ids []string) *Model {
	positions := make([]int, 0, len(ids))
	for _, id := range ids {
		if i, ok := m.index[id]; ok {
			positions = append(positions, i)
		}
	}
	return m.induced(positions)
}

func (m *Model) induced(positions []int) *Model {
	sorted := append([]int(nil), positions...)
	sort.Ints(sorted)

	local := make(map[int]int, len(sorted))
	nodes := make([]models.Node, 0, len(sorted))
	for _, p := range sorted {
		if _, dup := local[p]; dup {
			continue
		}
		local[p] = len(nodes)
		nodes = append(nodes, m.nodes[p])
	}

	var pairs [][2]int
	for p, a := range local {
		for _, q := range m.adj[p] {
			if b, ok := local[q]; ok && a < b {
				pairs = append(pairs, [2]int{a, b})
			}
		}
	}

	return build(nodes, pairs)
}

// Fingerprint hashes the positional adjacency structure. Two models with the
// same fingerprint have the same Laplacian.
func (m *Model) Fingerprint() uint64 {
	h := xxhash.New()
	var buf [8]byte
	write := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = h.Write(buf[:])
	}

	write(len(m.nodes))
	for i, nbrs := range m.adj {
		write(i)
		write(len(nbrs))
		for _, j := range nbrs {
			write(j)
		}
	}
	return h.Sum64()
}
