package physics

import "github.com/go-gl/mathgl/mgl32"

// World composes the bodies arena, joint manager, activation manager,
// collision world, solver, and CCD pass into the single-threaded,
// synchronous tick pipeline spec.md §2/§5 describes: collision →
// joints → activation → solver → CCD.
type World struct {
	Bodies     *Bodies
	Joints     *JointManager
	Activation *ActivationManager
	Collision  CollisionWorld
	Solver     *Solver
	CCD        *CCD

	// Gravity is applied to every active, movable body's linear
	// velocity at the start of each tick ("pre-integration velocities"
	// in the ordering guarantee), ahead of activation, the solver, and
	// CCD.
	Gravity mgl32.Vec3
}

// NewWorld wires the default configuration: a spatial-grid collision
// world, an energy mix of 0.1, and a velocity-plus-position
// correction mode, at the given fixed step and dimension.
func NewWorld(dt float32, dim Dim) *World {
	mode := CorrectionMode{
		Kind:               CorrectionVelocityAndPosition,
		VelocityBiasFactor: 0.2,
		PositionFactor:     0.2,
		MinDepth:           0.01,
	}
	return &World{
		Bodies:     NewBodies(),
		Joints:     NewJointManager(),
		Activation: NewActivationManager(0.1),
		Collision:  NewSpatialGridWorld(2.0),
		Solver:     NewSolver(dt, dim, mode),
		CCD:        NewCCD(),
	}
}

// AddBody inserts a body into the world and returns its handle.
func (w *World) AddBody(b *Body) BodyHandle {
	return w.Bodies.Add(b)
}

// RemoveBody deletes a body and purges it from every collaborator's
// own indices: joints, CCD registration, and (implicitly, on the next
// Refresh) the collision world.
func (w *World) RemoveBody(h BodyHandle) {
	w.Joints.RemoveByBody(h)
	w.CCD.RemoveCCDFrom(h)
	w.Bodies.Remove(h)
}

// Step advances the simulation by dt, running the full pipeline in
// the order the ordering guarantee names: broad/narrow-phase →
// joints → activation → solver → CCD.
func (w *World) Step() {
	w.integrateGravity()

	w.Collision.Refresh(w.Bodies)
	pairs := w.Collision.ContactPairs(w.Bodies)

	var constraints []Constraint
	contactEdges := make([]contactEdge, 0, len(pairs))
	for _, p := range pairs {
		for _, c := range p.Contacts {
			constraints = append(constraints, Constraint{
				Kind:    ConstraintRBRB,
				BodyA:   p.BodyA,
				BodyB:   p.BodyB,
				Contact: c,
			})
		}
		if len(p.Contacts) > 0 {
			contactEdges = append(contactEdges, contactEdge{BodyA: p.BodyA, BodyB: p.BodyB})
		}
	}

	w.Joints.Update(w.Activation)
	w.Joints.Emit(&constraints)

	w.Activation.Update(w.Bodies, contactEdges, w.Joints)

	active := filterActiveConstraints(w.Bodies, constraints)
	w.Solver.Step(w.Bodies, active)

	w.CCD.Update(w.Bodies, w.Collision)
}

// integrateGravity is the tick's pre-integration step: gravity is
// applied to every active, movable body's velocity, and that velocity
// (symplectic Euler) advances position before collision detection
// runs, so resting contacts are generated against where bodies are
// about to be rather than where they were last tick.
func (w *World) integrateGravity() {
	dt := w.Solver.Dt
	for _, h := range w.Bodies.Handles() {
		b := w.Bodies.Get(h)
		if !b.Movable || b.Activation.Kind != Active {
			continue
		}
		b.LinearVelocity = b.LinearVelocity.Add(w.Gravity.Mul(dt))
		b.Position = b.Position.Add(b.LinearVelocity.Mul(dt))
	}
}

// filterActiveConstraints drops constraints where every referenced
// body is asleep (Inactive) or immovable, so sleeping islands are not
// repeatedly re-solved to a fixed point each tick.
func filterActiveConstraints(bodies *Bodies, constraints []Constraint) []Constraint {
	out := constraints[:0:0]
	for _, c := range constraints {
		anyActive := false
		for _, hp := range c.bodyHandles() {
			if hp == nil {
				continue // world-pinned anchor
			}
			b := bodies.Get(*hp)
			if b != nil && b.Movable && b.Activation.Kind == Active {
				anyActive = true
				break
			}
		}
		if anyActive {
			out = append(out, c)
		}
	}
	return out
}
