package physics

// unionFind is a path-compressed, union-by-rank disjoint-set forest
// over dense solver indices, used by the activation manager to build
// simulation islands from this tick's contacts and joints (spec.md
// "Island construction").
type unionFind struct {
	parent []int
	rank   []int8

	// canDeactivate tracks, per element, whether every body unioned
	// into its set so far is eligible to sleep. It is only meaningful
	// at a root after all unions are done; find() keeps it correct
	// under path compression by never moving it off the true root.
	canDeactivate []bool
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent:        make([]int, n),
		rank:          make([]int8, n),
		canDeactivate: make([]bool, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.canDeactivate[i] = true
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// union merges the sets containing a and b. The merged set's
// canDeactivate is the logical AND of both: one non-sleepable member
// disqualifies the whole island.
func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	merged := uf.canDeactivate[ra] && uf.canDeactivate[rb]
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
	uf.canDeactivate[ra] = merged
}

// markNotDeactivatable forces x's island to never sleep this tick,
// e.g. because x has no deactivation threshold or its energy is still
// above it.
func (uf *unionFind) markNotDeactivatable(x int) {
	uf.canDeactivate[uf.find(x)] = false
}

func (uf *unionFind) rootCanDeactivate(x int) bool {
	return uf.canDeactivate[uf.find(x)]
}
