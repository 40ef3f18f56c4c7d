package physics

import "github.com/go-gl/mathgl/mgl32"

// Contact is produced by narrow-phase: world-space points on each
// body, a unit normal pointing from A to B, and a penetration depth.
// Immutable within a tick.
type Contact struct {
	PointA, PointB mgl32.Vec3
	Normal         mgl32.Vec3
	Depth          float32
}

// Midpoint is the contact center used as the impulse-cache key.
func (c Contact) Midpoint() mgl32.Vec3 {
	return c.PointA.Add(c.PointB).Mul(0.5)
}

// ConstraintKind discriminates the Constraint tagged union.
type ConstraintKind int

const (
	ConstraintRBRB ConstraintKind = iota
	ConstraintBallInSocket
	ConstraintFixed
)

// Constraint is the tagged union fed to the solver each tick: either
// a rigid-body/rigid-body contact, or a joint constraint.
type Constraint struct {
	Kind ConstraintKind

	// Valid when Kind == ConstraintRBRB.
	BodyA, BodyB BodyHandle
	Contact      Contact

	// Valid when Kind is a joint kind.
	Joint Joint
}

// bodyHandles returns the (possibly nil, meaning world-pinned) body
// handles this constraint references, for the solver's two-pass
// indexing scheme.
func (c Constraint) bodyHandles() []*BodyHandle {
	switch c.Kind {
	case ConstraintRBRB:
		a, b := c.BodyA, c.BodyB
		return []*BodyHandle{&a, &b}
	default:
		return c.Joint.anchorBodies()
	}
}
