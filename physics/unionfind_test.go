package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnionFindMergesRoots(t *testing.T) {
	uf := newUnionFind(4)
	uf.union(0, 1)
	uf.union(1, 2)
	assert.Equal(t, uf.find(0), uf.find(2))
	assert.NotEqual(t, uf.find(0), uf.find(3))
}

func TestUnionFindCanDeactivateIsConjunction(t *testing.T) {
	uf := newUnionFind(3)
	uf.markNotDeactivatable(1)
	uf.union(0, 1)
	assert.False(t, uf.rootCanDeactivate(0))
	assert.True(t, uf.rootCanDeactivate(2))
}

func TestUnionFindUnionIsIdempotent(t *testing.T) {
	uf := newUnionFind(2)
	uf.union(0, 1)
	root := uf.find(0)
	uf.union(1, 0)
	assert.Equal(t, root, uf.find(0))
}
