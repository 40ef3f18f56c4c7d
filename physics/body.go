package physics

import (
	"github.com/go-gl/mathgl/mgl32"
)

// BodyHandle is a stable identifier for a RigidBody, addressed by
// value rather than by pointer so every collaborator (world, joint
// manager, activation manager, CCD, solver, impulse cache) can refer
// to the same body without sharing a live reference.
type BodyHandle uint64

// Solver index sentinels, per the data model invariant: a body's
// solver index is -1 (immovable/unused) or a dense [0, N) row index.
const (
	IndexUnassigned int = -2
	IndexFixed      int = -1
)

// ActivationKind is the discriminant of the ActivationState sum type.
type ActivationKind int

const (
	Active ActivationKind = iota
	Inactive
	Deleted
)

// ActivationState is a closed variant: Active carries an energy
// value, Inactive and Deleted carry none. Deleted must never be
// observed by the solver or activation manager; encountering one is a
// contract violation (see errors.go).
type ActivationState struct {
	Kind   ActivationKind
	Energy float32
}

// Material describes the surface properties used by the contact
// solver.
type Material struct {
	Restitution float32
	Friction    float32
}

// Body is a simulated rigid body. Fields mirror spec.md's data model:
// shape reference, mass properties, transform, velocities, material,
// movability, activation state, optional deactivation threshold, and
// a transient solver index re-assigned every tick.
type Body struct {
	Shape Shape

	// Mass properties. A Movable==false body is treated as having
	// infinite mass: InvMass and InvInertia are ignored (forced
	// to zero) regardless of what is stored here.
	Movable        bool
	Mass           float32
	InvMass        float32
	InvInertia     mgl32.Mat3 // local-space inverse inertia tensor
	invInertiaWrld mgl32.Mat3 // world-space, refreshed per tick by UpdateWorldInertia

	Position    mgl32.Vec3
	Orientation mgl32.Quat

	LinearVelocity  mgl32.Vec3
	AngularVelocity mgl32.Vec3

	Material Material

	Activation            ActivationState
	DeactivationThreshold *float32 // nil means this body never sleeps

	// SolverIndex is reassigned every tick by the activation manager
	// and the solver: IndexUnassigned before assignment, IndexFixed
	// for immovable bodies, or a dense [0, N) row index for movable
	// bodies referenced by at least one constraint this tick.
	SolverIndex int
}

// NewDynamicBody creates a movable body with the given mass and local
// inverse inertia tensor.
func NewDynamicBody(shape Shape, mass float32, invInertia mgl32.Mat3, mat Material) *Body {
	invMass := float32(0)
	if mass > 0 {
		invMass = 1.0 / mass
	}
	return &Body{
		Shape:       shape,
		Movable:     true,
		Mass:        mass,
		InvMass:     invMass,
		InvInertia:  invInertia,
		Orientation: mgl32.QuatIdent(),
		Material:    mat,
		Activation:  ActivationState{Kind: Active, Energy: 0},
		SolverIndex: IndexUnassigned,
	}
}

// NewStaticBody creates an immovable body (infinite mass and
// inertia). Static bodies never sleep and never receive a dense
// solver index.
func NewStaticBody(shape Shape, mat Material) *Body {
	return &Body{
		Shape:       shape,
		Movable:     false,
		Orientation: mgl32.QuatIdent(),
		Material:    mat,
		Activation:  ActivationState{Kind: Active},
		SolverIndex: IndexFixed,
	}
}

// effInvMass returns this body's inverse mass for solver purposes:
// zero for immovable bodies, otherwise InvMass. The activation state
// is not consulted, so an Inactive movable body keeps its InvMass.
func (b *Body) effInvMass() float32 {
	if b == nil || !b.Movable {
		return 0
	}
	return b.InvMass
}

func (b *Body) effInvInertiaWorld() mgl32.Mat3 {
	if b == nil || !b.Movable {
		return mgl32.Mat3{}
	}
	return b.invInertiaWrld
}

// UpdateWorldInertia recomputes the world-space inverse inertia
// tensor from the current orientation: I_world^-1 = R * I_local^-1 * R^T.
func (b *Body) UpdateWorldInertia() {
	if !b.Movable {
		b.invInertiaWrld = mgl32.Mat3{}
		return
	}
	R := QuatToMat3(b.Orientation)
	b.invInertiaWrld = R.Mul3(b.InvInertia).Mul3(R.Transpose())
}

// VelocityAtPoint returns the world-space velocity of the point on
// this body at the given world position: v = v_cm + w x r.
func (b *Body) VelocityAtPoint(worldPoint mgl32.Vec3) mgl32.Vec3 {
	r := worldPoint.Sub(b.Position)
	return b.LinearVelocity.Add(b.AngularVelocity.Cross(r))
}

// QuatToMat3 extracts the rotation part of a quaternion as a 3x3
// matrix, shared by the body, solver, and joint code.
func QuatToMat3(q mgl32.Quat) mgl32.Mat3 {
	m4 := q.Mat4()
	return mgl32.Mat3{
		m4[0], m4[1], m4[2],
		m4[4], m4[5], m4[6],
		m4[8], m4[9], m4[10],
	}
}

// Bodies is an arena of bodies addressed by stable handles, per the
// "shared mutable graphs" design note: every collaborator stores a
// BodyHandle, never a raw pointer into the arena, so removal can
// invalidate one slot without breaking indices held elsewhere.
type Bodies struct {
	entries []*Body
	free    []BodyHandle
}

func NewBodies() *Bodies {
	return &Bodies{}
}

// Add inserts a body and returns its stable handle.
func (bs *Bodies) Add(b *Body) BodyHandle {
	if n := len(bs.free); n > 0 {
		h := bs.free[n-1]
		bs.free = bs.free[:n-1]
		bs.entries[h] = b
		return h
	}
	h := BodyHandle(len(bs.entries))
	bs.entries = append(bs.entries, b)
	return h
}

// Remove marks the handle's slot as Deleted and frees it for reuse.
// Other collaborators (joint manager, CCD, impulse cache) are
// expected to purge their own indices for this handle independently.
func (bs *Bodies) Remove(h BodyHandle) {
	if int(h) >= len(bs.entries) || bs.entries[h] == nil {
		return
	}
	bs.entries[h].Activation = ActivationState{Kind: Deleted}
	bs.entries[h] = nil
	bs.free = append(bs.free, h)
}

// Get returns the body for a handle, or nil if it was removed.
func (bs *Bodies) Get(h BodyHandle) *Body {
	if int(h) >= len(bs.entries) {
		return nil
	}
	return bs.entries[h]
}

// Handles returns every live (non-removed) handle. Order is stable
// within a tick but not across removals.
func (bs *Bodies) Handles() []BodyHandle {
	out := make([]BodyHandle, 0, len(bs.entries))
	for i, b := range bs.entries {
		if b != nil {
			out = append(out, BodyHandle(i))
		}
	}
	return out
}

// checkNotDeleted panics if the body behind h has been observed in
// the Deleted state, per spec.md's contract that Deleted must never
// reach solver or activation code.
func (bs *Bodies) checkNotDeleted(h BodyHandle) *Body {
	b := bs.Get(h)
	if b == nil {
		contractViolation("body handle %d does not refer to a live body", h)
	}
	if b.Activation.Kind == Deleted {
		contractViolation("body handle %d is Deleted", h)
	}
	return b
}
