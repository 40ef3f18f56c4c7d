package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestSphereSphereTOIHeadOnCollision(t *testing.T) {
	toi, ok := sphereSphereTOI(
		mgl32.Vec3{-5, 0, 0}, 1, mgl32.Vec3{10, 0, 0},
		mgl32.Vec3{5, 0, 0}, 1, mgl32.Vec3{},
	)
	assert.True(t, ok)
	assert.InDelta(t, 0.8, toi, 1e-3)
}

func TestSphereSphereTOINoMotionNeverTouches(t *testing.T) {
	_, ok := sphereSphereTOI(
		mgl32.Vec3{0, 0, 0}, 1, mgl32.Vec3{},
		mgl32.Vec3{10, 0, 0}, 1, mgl32.Vec3{},
	)
	assert.False(t, ok)
}

func TestSphereSphereTOIAlreadyOverlappingIsZero(t *testing.T) {
	toi, ok := sphereSphereTOI(
		mgl32.Vec3{0, 0, 0}, 1, mgl32.Vec3{1, 0, 0},
		mgl32.Vec3{0.5, 0, 0}, 1, mgl32.Vec3{},
	)
	assert.True(t, ok)
	assert.Equal(t, float32(0), toi)
}

func TestSphereSphereTOIMissingPairNeverImpacts(t *testing.T) {
	_, ok := sphereSphereTOI(
		mgl32.Vec3{0, 10, 0}, 1, mgl32.Vec3{1, 0, 0},
		mgl32.Vec3{0, -10, 0}, 1, mgl32.Vec3{},
	)
	assert.False(t, ok)
}

func TestBoxShapeAABBGrowsUnderRotation(t *testing.T) {
	box := BoxShape{HalfExtents: mgl32.Vec3{1, 1, 1}}
	axisAligned := box.AABB(mgl32.Vec3{}, mgl32.QuatIdent())
	rotated := box.AABB(mgl32.Vec3{}, mgl32.QuatRotate(0.7, mgl32.Vec3{0, 0, 1}))

	assert.InDelta(t, 1, axisAligned.Max.X(), 1e-6)
	assert.Greater(t, rotated.Max.X(), axisAligned.Max.X())
}

func TestAABBOverlapsDetectsSeparation(t *testing.T) {
	a := AABB{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{1, 1, 1}}
	b := AABB{Min: mgl32.Vec3{5, 5, 5}, Max: mgl32.Vec3{6, 6, 6}}
	assert.False(t, a.Overlaps(b))

	c := AABB{Min: mgl32.Vec3{0.5, 0.5, 0.5}, Max: mgl32.Vec3{2, 2, 2}}
	assert.True(t, a.Overlaps(c))
}

func TestAABBUnionContainsBoth(t *testing.T) {
	a := AABB{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{1, 1, 1}}
	b := AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{0.5, 0.5, 0.5}}
	u := a.Union(b)
	assert.Equal(t, mgl32.Vec3{-1, -1, -1}, u.Min)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, u.Max)
}
