package graph

// Builder accumulates a target graph as an induced subgraph of a source
// model. Nodes are only ever added. A Builder belongs to one planning run;
// GraphWith may be called concurrently as long as Add is not.
type Builder struct {
	src     *Model
	members []int
	in      map[int]bool
}

func NewBuilder(src *Model) *Builder {
	return &Builder{src: src, in: map[int]bool{}}
}

// Add inserts the given node IDs and returns how many were new. Unknown IDs
// are ignored.
func (b *Builder) Add(ids ...string) int {
	added := 0
	for _, id := range ids {
		i, ok := b.src.index[id]
		if !ok || b.in[i] {
			continue
		}
		b.in[i] = true
		b.members = append(b.members, i)
		added++
	}
	return added
}

func (b *Builder) Contains(id string) bool {
	i, ok := b.src.index[id]
	return ok && b.in[i]
}

func (b *Builder) Len() int { return len(b.members) }

// Graph returns the current target graph.
func (b *Builder) Graph() *Model {
	return b.src.induced(b.members)
}

// GraphWith returns the target graph as it would be with ids added, without
// changing the builder.
func (b *Builder) GraphWith(ids []string) *Model {
	positions := make([]int, len(b.members), len(b.members)+len(ids))
	copy(positions, b.members)
	for _, id := range ids {
		if i, ok := b.src.index[id]; ok && !b.in[i] {
			positions = append(positions, i)
		}
	}
	return b.src.induced(positions)
}
