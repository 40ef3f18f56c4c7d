package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CollisionWorld is the external collaborator spec.md §6 names: it
// iterates contact pairs, answers AABB overlap queries, accepts
// pushed position updates from CCD, and refreshes its spatial index
// on demand.
type CollisionWorld interface {
	// ContactPairs returns every pair of AABB-overlapping bodies this
	// tick along with their generated contacts (possibly empty if the
	// narrow phase found no actual touching).
	ContactPairs(bodies *Bodies) []PairContacts

	// QueryAABB returns every registered body whose AABB overlaps the
	// given box.
	QueryAABB(box AABB) []BodyHandle

	// PushPosition notifies the world that a body (typically via CCD
	// rewind) moved outside of the normal solver pipeline.
	PushPosition(h BodyHandle, pos mgl32.Vec3)

	// Refresh rebuilds the spatial index from current body transforms.
	Refresh(bodies *Bodies)
}

// PairContacts bundles every contact found between two bodies this
// tick (usually one, occasionally more for box-box corner cases).
type PairContacts struct {
	BodyA, BodyB BodyHandle
	Contacts     []Contact
}

// SpatialGridWorld is a CollisionWorld backed by a uniform spatial
// hash grid, adapted from the host ECS's spatial-grid module to index
// BodyHandle rather than entity IDs directly, and extended with a
// narrow phase for box-box (SAT) and sphere-sphere pairs.
type SpatialGridWorld struct {
	cellSize float32
	cells    map[int64][]BodyHandle

	// aabbs is refreshed on demand (Refresh) or via PushPosition,
	// avoiding a dependency back on the Bodies arena for every query.
	aabbs map[BodyHandle]AABB
}

func NewSpatialGridWorld(cellSize float32) *SpatialGridWorld {
	return &SpatialGridWorld{
		cellSize: cellSize,
		cells:    make(map[int64][]BodyHandle),
		aabbs:    make(map[BodyHandle]AABB),
	}
}

func (g *SpatialGridWorld) cellIndex(v float32) int64 {
	return int64(math.Floor(float64(v / g.cellSize)))
}

func (g *SpatialGridWorld) hashKey(x, y, z int64) int64 {
	const p1 = 73856093
	const p2 = 19349663
	const p3 = 83492791
	return x*p1 ^ y*p2 ^ z*p3
}

func (g *SpatialGridWorld) clear() {
	g.cells = make(map[int64][]BodyHandle, len(g.cells))
}

func (g *SpatialGridWorld) insert(h BodyHandle, box AABB) {
	minX, maxX := g.cellIndex(box.Min.X()), g.cellIndex(box.Max.X())
	minY, maxY := g.cellIndex(box.Min.Y()), g.cellIndex(box.Max.Y())
	minZ, maxZ := g.cellIndex(box.Min.Z()), g.cellIndex(box.Max.Z())
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				key := g.hashKey(x, y, z)
				g.cells[key] = append(g.cells[key], h)
			}
		}
	}
}

// Refresh recomputes every body's world AABB and re-buckets it.
func (g *SpatialGridWorld) Refresh(bodies *Bodies) {
	g.clear()
	g.aabbs = make(map[BodyHandle]AABB, len(g.aabbs))
	for _, h := range bodies.Handles() {
		b := bodies.Get(h)
		if b.Activation.Kind == Deleted {
			continue
		}
		box := b.Shape.AABB(b.Position, b.Orientation)
		g.aabbs[h] = box
		g.insert(h, box)
	}
}

func (g *SpatialGridWorld) QueryAABB(box AABB) []BodyHandle {
	minX, maxX := g.cellIndex(box.Min.X()), g.cellIndex(box.Max.X())
	minY, maxY := g.cellIndex(box.Min.Y()), g.cellIndex(box.Max.Y())
	minZ, maxZ := g.cellIndex(box.Min.Z()), g.cellIndex(box.Max.Z())

	seen := make(map[BodyHandle]struct{})
	var out []BodyHandle
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				key := g.hashKey(x, y, z)
				for _, h := range g.cells[key] {
					if _, ok := seen[h]; ok {
						continue
					}
					if aabb, ok := g.aabbs[h]; ok && aabb.Overlaps(box) {
						seen[h] = struct{}{}
						out = append(out, h)
					}
				}
			}
		}
	}
	return out
}

// PushPosition updates the cached AABB for a single body without a
// full Refresh, used by CCD's post-rewind notification.
func (g *SpatialGridWorld) PushPosition(h BodyHandle, pos mgl32.Vec3) {
	box, ok := g.aabbs[h]
	if !ok {
		return
	}
	half := box.Max.Sub(box.Min).Mul(0.5)
	center := box.Min.Add(half)
	delta := pos.Sub(center)
	moved := AABB{Min: box.Min.Add(delta), Max: box.Max.Add(delta)}
	g.aabbs[h] = moved
	g.insert(h, moved)
}

// ContactPairs walks every grid-adjacent body pair once (deduplicated
// by ordering handles) and runs the narrow phase on each.
func (g *SpatialGridWorld) ContactPairs(bodies *Bodies) []PairContacts {
	candidatePairs := make(map[[2]BodyHandle]struct{})
	for _, cellHandles := range g.cells {
		for i := 0; i < len(cellHandles); i++ {
			for j := i + 1; j < len(cellHandles); j++ {
				a, b := cellHandles[i], cellHandles[j]
				if a == b {
					continue
				}
				if a > b {
					a, b = b, a
				}
				candidatePairs[[2]BodyHandle{a, b}] = struct{}{}
			}
		}
	}

	var out []PairContacts
	for pair := range candidatePairs {
		a, b := pair[0], pair[1]
		ba, bb := bodies.Get(a), bodies.Get(b)
		if ba == nil || bb == nil {
			continue
		}
		if !ba.Movable && !bb.Movable {
			continue // two static bodies never need a contact
		}
		boxA, okA := g.aabbs[a]
		boxB, okB := g.aabbs[b]
		if !okA || !okB || !boxA.Overlaps(boxB) {
			continue
		}
		contacts := narrowPhase(ba, bb)
		if len(contacts) > 0 {
			out = append(out, PairContacts{BodyA: a, BodyB: b, Contacts: contacts})
		}
	}
	return out
}

// narrowPhase dispatches to a shape-pair specific contact generator.
// Unsupported pairs (e.g. box-vs-unknown-shape) produce no contacts
// rather than erroring, matching the "external collaborator, best
// effort" framing of the collision world.
func narrowPhase(a, b *Body) []Contact {
	switch sa := a.Shape.(type) {
	case SphereShape:
		if sb, ok := b.Shape.(SphereShape); ok {
			return sphereSphereContacts(a, sa, b, sb)
		}
	case BoxShape:
		if sb, ok := b.Shape.(BoxShape); ok {
			return boxBoxContacts(a, sa, b, sb)
		}
	}
	return nil
}

func sphereSphereContacts(a *Body, sa SphereShape, b *Body, sb SphereShape) []Contact {
	delta := b.Position.Sub(a.Position)
	dist := delta.Len()
	radiusSum := sa.Radius + sb.Radius
	if dist >= radiusSum || dist < 1e-8 {
		return nil
	}
	normal := delta.Mul(1 / dist)
	depth := radiusSum - dist
	return []Contact{{
		PointA: a.Position.Add(normal.Mul(sa.Radius)),
		PointB: b.Position.Sub(normal.Mul(sb.Radius)),
		Normal: normal,
		Depth:  depth,
	}}
}

// boxBoxContacts implements a minimal SAT test over the 3 world axes.
// Each box is tested as axis-aligned at its position with its local
// half-extents; body orientation is ignored, so rotated boxes are
// treated as if unrotated. It returns the axis of least
// penetration as a single contact, adequate for stacking scenarios
// without a full clipped-manifold generator.
func boxBoxContacts(a *Body, sa BoxShape, b *Body, sb BoxShape) []Contact {
	aMin, aMax := a.Position.Sub(sa.HalfExtents), a.Position.Add(sa.HalfExtents)
	bMin, bMax := b.Position.Sub(sb.HalfExtents), b.Position.Add(sb.HalfExtents)

	overlapX := min32(aMax.X(), bMax.X()) - max32(aMin.X(), bMin.X())
	overlapY := min32(aMax.Y(), bMax.Y()) - max32(aMin.Y(), bMin.Y())
	overlapZ := min32(aMax.Z(), bMax.Z()) - max32(aMin.Z(), bMin.Z())
	if overlapX <= 0 || overlapY <= 0 || overlapZ <= 0 {
		return nil
	}

	depth := overlapX
	normal := mgl32.Vec3{1, 0, 0}
	if overlapY < depth {
		depth = overlapY
		normal = mgl32.Vec3{0, 1, 0}
	}
	if overlapZ < depth {
		depth = overlapZ
		normal = mgl32.Vec3{0, 0, 1}
	}

	if b.Position.Sub(a.Position).Dot(normal) < 0 {
		normal = normal.Mul(-1)
	}

	midpoint := a.Position.Add(b.Position).Mul(0.5)
	return []Contact{{
		PointA: midpoint,
		PointB: midpoint,
		Normal: normal,
		Depth:  depth,
	}}
}
