package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box in world space. Geometry
// primitives are an external collaborator per spec.md, but the
// ambient ECS host needs a concrete binding to drive broad-phase and
// CCD, so a minimal Shape/AABB/TimeOfImpact set is provided here.
type AABB struct {
	Min, Max mgl32.Vec3
}

// Union returns the smallest AABB containing both a and b. Used by
// CCD to build the swept volume of a fast-moving body.
func (a AABB) Union(b AABB) AABB {
	return AABB{
		Min: mgl32.Vec3{min32(a.Min.X(), b.Min.X()), min32(a.Min.Y(), b.Min.Y()), min32(a.Min.Z(), b.Min.Z())},
		Max: mgl32.Vec3{max32(a.Max.X(), b.Max.X()), max32(a.Max.Y(), b.Max.Y()), max32(a.Max.Z(), b.Max.Z())},
	}
}

func (a AABB) Overlaps(b AABB) bool {
	return a.Min.X() <= b.Max.X() && a.Max.X() >= b.Min.X() &&
		a.Min.Y() <= b.Max.Y() && a.Max.Y() >= b.Min.Y() &&
		a.Min.Z() <= b.Max.Z() && a.Max.Z() >= b.Min.Z()
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Shape is the external geometry collaborator from spec.md's
// "Consumed" interfaces: it computes a world-space AABB under a given
// transform and participates in time-of-impact queries against
// another shape.
type Shape interface {
	AABB(pos mgl32.Vec3, orient mgl32.Quat) AABB

	// TimeOfImpact returns the fraction in [0,1] of the swept motions
	// (motion1 for this shape, motion2 for other) at which the two
	// shapes first touch, or ok=false if they never touch over the
	// step. Matches spec.md's
	// TimeOfImpact(shape1, transform1, motion1, shape2, transform2, motion2).
	TimeOfImpact(pos1 mgl32.Vec3, orient1 mgl32.Quat, motion1 mgl32.Vec3, other Shape, pos2 mgl32.Vec3, orient2 mgl32.Quat, motion2 mgl32.Vec3) (toi float32, ok bool)

	// boundingRadius is used by the generic TOI fallback shared by
	// every shape pair: a conservative (never-too-small) bounding
	// sphere radius around the shape's local origin.
	boundingRadius() float32
}

// BoxShape is an axis-aligned-in-local-space box, defined by its
// half-extents.
type BoxShape struct {
	HalfExtents mgl32.Vec3
}

func (s BoxShape) AABB(pos mgl32.Vec3, orient mgl32.Quat) AABB {
	R := QuatToMat3(orient)
	he := s.HalfExtents
	// World-space half-extents of a rotated box: sum of |R_ij|*he_j per axis.
	ext := mgl32.Vec3{
		abs32(R[0])*he.X() + abs32(R[3])*he.Y() + abs32(R[6])*he.Z(),
		abs32(R[1])*he.X() + abs32(R[4])*he.Y() + abs32(R[7])*he.Z(),
		abs32(R[2])*he.X() + abs32(R[5])*he.Y() + abs32(R[8])*he.Z(),
	}
	return AABB{Min: pos.Sub(ext), Max: pos.Add(ext)}
}

func (s BoxShape) boundingRadius() float32 {
	return s.HalfExtents.Len()
}

func (s BoxShape) TimeOfImpact(pos1 mgl32.Vec3, orient1 mgl32.Quat, motion1 mgl32.Vec3, other Shape, pos2 mgl32.Vec3, orient2 mgl32.Quat, motion2 mgl32.Vec3) (float32, bool) {
	return boundingSphereTOI(pos1, s.boundingRadius(), motion1, pos2, other.boundingRadius(), motion2)
}

// SphereShape is a sphere of the given radius about the body origin.
type SphereShape struct {
	Radius float32
}

func (s SphereShape) AABB(pos mgl32.Vec3, orient mgl32.Quat) AABB {
	r := mgl32.Vec3{s.Radius, s.Radius, s.Radius}
	return AABB{Min: pos.Sub(r), Max: pos.Add(r)}
}

func (s SphereShape) boundingRadius() float32 {
	return s.Radius
}

func (s SphereShape) TimeOfImpact(pos1 mgl32.Vec3, orient1 mgl32.Quat, motion1 mgl32.Vec3, other Shape, pos2 mgl32.Vec3, orient2 mgl32.Quat, motion2 mgl32.Vec3) (float32, bool) {
	if o, ok := other.(SphereShape); ok {
		return sphereSphereTOI(pos1, s.Radius, motion1, pos2, o.Radius, motion2)
	}
	return boundingSphereTOI(pos1, s.boundingRadius(), motion1, pos2, other.boundingRadius(), motion2)
}

// sphereSphereTOI solves the exact quadratic for two spheres swept by
// motion1/motion2 over the step, returning the first root in [0,1].
func sphereSphereTOI(pos1 mgl32.Vec3, r1 float32, motion1 mgl32.Vec3, pos2 mgl32.Vec3, r2 float32, motion2 mgl32.Vec3) (float32, bool) {
	relPos := pos1.Sub(pos2)
	relMotion := motion1.Sub(motion2)
	radiusSum := r1 + r2

	a := relMotion.Dot(relMotion)
	b := 2 * relPos.Dot(relMotion)
	c := relPos.Dot(relPos) - radiusSum*radiusSum

	if c <= 0 {
		// Already overlapping at t=0.
		return 0, true
	}
	if a < 1e-12 {
		return 0, false // no relative motion, never touches
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	sq := float32(math.Sqrt(float64(disc)))
	t := (-b - sq) / (2 * a)
	if t < 0 || t > 1 {
		return 0, false
	}
	return t, true
}

// boundingSphereTOI is a conservative fallback for shape pairs without
// an exact analytic solution: it reports an impact no later than the
// true impact of the exact geometry (since the bounding sphere always
// encloses the shape), clamping tunneling without requiring a full
// GJK/SAT conservative-advancement implementation for every pair.
func boundingSphereTOI(pos1 mgl32.Vec3, r1 float32, motion1 mgl32.Vec3, pos2 mgl32.Vec3, r2 float32, motion2 mgl32.Vec3) (float32, bool) {
	return sphereSphereTOI(pos1, r1, motion1, pos2, r2, motion2)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
