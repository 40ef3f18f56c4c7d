package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Dim is the spatial dimension the solver assembles rows for. The
// package targets 3D as its primary runtime configuration, but the
// row-count arithmetic is written generically over D so a 2D
// configuration (planar games, one angular DOF) falls out of the same
// code path rather than needing a parallel solver.
type Dim int

const (
	Dim2 Dim = 2
	Dim3 Dim = 3
)

// CorrectionKind discriminates the CorrectionMode tagged union.
type CorrectionKind int

const (
	CorrectionVelocity CorrectionKind = iota
	CorrectionVelocityAndPosition
	CorrectionPosition
)

// CorrectionMode bundles the bias/position-correction configuration
// spec.md describes as a three-variant enum with shared accessors.
type CorrectionMode struct {
	Kind CorrectionKind

	// Velocity and VelocityAndPosition.
	VelocityBiasFactor float32 // Baumgarte factor applied to shallow-contact bias

	// VelocityAndPosition and Position.
	PositionFactor float32
	MinDepth       float32
}

// PosCorrFactor returns the positional-correction strength, zero
// meaning the first-order pass never runs.
func (m CorrectionMode) PosCorrFactor() float32 {
	switch m.Kind {
	case CorrectionVelocityAndPosition, CorrectionPosition:
		return m.PositionFactor
	default:
		return 0
	}
}

// MinDepthForPosCorr returns the penetration depth above which the
// first-order pass is triggered.
func (m CorrectionMode) MinDepthForPosCorr() float32 {
	return m.MinDepth
}

// usesVelocityBias reports whether shallow contacts receive a
// Baumgarte velocity bias term (Velocity and VelocityAndPosition do;
// pure Position does not).
func (m CorrectionMode) usesVelocityBias() bool {
	return m.Kind == CorrectionVelocity || m.Kind == CorrectionVelocityAndPosition
}

// row is one scalar constraint equation: J·v + b = 0 solved towards
// an accumulated impulse clamped to [lo, hi]. bodyA/bodyB index into
// the solver's dense per-tick body list (or are -1 for a fixed/world
// anchor); jLinA/jAngA etc. are the Jacobian blocks for each side.
type row struct {
	bodyA, bodyB int

	jLinA, jAngA mgl32.Vec3
	jLinB, jAngB mgl32.Vec3

	bias    float32
	effMass float32 // 1 / (J M^-1 J^T), precomputed; zero if both sides immovable
	impulse float32 // accumulated lambda, carried from warm start

	// Friction coupling: frictionOf >= 0 means this row's bounds are
	// ±mu*rows[frictionOf].impulse, recomputed each iteration. -1 means
	// fixed bounds [loBound, hiBound].
	frictionOf int
	mu         float32
	loBound    float32
	hiBound    float32

	cache       *CacheEntry
	cacheOffset int // index within cache.Impulses for this row

	depth float32 // contact penetration depth; zero for joint rows
}

// solverBody is the per-tick working state for one movable body: its
// velocity-delta accumulator (applied once after all PGS iterations)
// and the cached effective inverse mass/inertia used to build rows.
type solverBody struct {
	handle BodyHandle
	body   *Body

	invMass    float32
	invInertia mgl32.Mat3

	dvLin mgl32.Vec3
	dvAng mgl32.Vec3
}

// Solver implements the accumulated-impulse PGS pipeline of spec.md
// §4.3: warm-started contact and joint rows, N2 velocity iterations,
// cache write-back, and an optional N1 positional-correction pass.
type Solver struct {
	Dt  float32
	Dim Dim

	NumFirstOrderIter  int
	NumSecondOrderIter int

	Mode CorrectionMode

	JointCorrectionFactor float32
	RestitutionEpsilon    float32

	Cache *ImpulseCache

	// working state, reused across ticks to avoid reallocation
	solverBodies []solverBody
	bodyIndex    map[BodyHandle]int
}

// NewSolver constructs a solver with the given fixed step, dimension,
// and an empty impulse cache sized for (D-1) friction rows per
// contact plus one restitution row.
func NewSolver(dt float32, dim Dim, mode CorrectionMode) *Solver {
	rowsPerContact := int(dim) // 1 restitution + (D-1) friction
	return &Solver{
		Dt:                    dt,
		Dim:                   dim,
		NumFirstOrderIter:     4,
		NumSecondOrderIter:    8,
		Mode:                  mode,
		JointCorrectionFactor: 0.2,
		RestitutionEpsilon:    0.01,
		Cache:                 NewImpulseCache(0.05, rowsPerContact),
	}
}

// SetNumFirstOrderIter and SetNumSecondOrderIter are the host-facing
// setters spec.md §6 names explicitly.
func (s *Solver) SetNumFirstOrderIter(n int)  { s.NumFirstOrderIter = n }
func (s *Solver) SetNumSecondOrderIter(n int) { s.NumSecondOrderIter = n }

// Step runs the full per-tick pipeline against the given constraints
// (contacts and joints intermixed, as emitted by the collision world
// and joint manager), mutating body velocities and, when positional
// correction triggers, transforms.
func (s *Solver) Step(bodies *Bodies, constraints []Constraint) {
	if len(constraints) == 0 {
		return // impulse cache is not swapped this tick, per the edge case
	}

	s.Cache.reset()
	s.indexBodies(bodies, constraints)

	rows := s.buildContactRows(bodies, constraints)
	rows = append(rows, s.buildJointRows(bodies, constraints)...)

	s.runIterations(rows, velocityPass)
	s.applyVelocityDeltas()
	s.writeBackCache(rows)
	s.Cache.swap()

	if s.needsPositionPass(rows) {
		posRows := s.rebuildRowsForPositionPass(rows)
		s.runIterations(posRows, positionPass)
		s.applyPositionDeltas(bodies)
	}
}

// indexBodies implements the two-pass body-indexing scheme: bodies
// referenced by any constraint are marked IndexUnassigned, then
// assigned a dense [0,N) index on first sight if movable, or
// IndexFixed if immovable.
func (s *Solver) indexBodies(bodies *Bodies, constraints []Constraint) {
	seen := make(map[BodyHandle]bool)
	for _, c := range constraints {
		for _, hp := range c.bodyHandles() {
			if hp == nil {
				continue // world-pinned anchor: no body to index
			}
			seen[*hp] = true
		}
	}
	for h := range seen {
		b := bodies.checkNotDeleted(h)
		b.SolverIndex = IndexUnassigned
	}

	s.solverBodies = s.solverBodies[:0]
	s.bodyIndex = make(map[BodyHandle]int, len(seen))
	for h := range seen {
		b := bodies.Get(h)
		if !b.Movable {
			b.SolverIndex = IndexFixed
			continue
		}
		b.UpdateWorldInertia()
		idx := len(s.solverBodies)
		b.SolverIndex = idx
		s.bodyIndex[h] = idx
		s.solverBodies = append(s.solverBodies, solverBody{
			handle:     h,
			body:       b,
			invMass:    b.effInvMass(),
			invInertia: b.effInvInertiaWorld(),
		})
	}
}

// sbIndex returns the dense solverBodies index for a handle, or -1 if
// the body is immovable/absent (a fixed anchor).
func (s *Solver) sbIndex(h BodyHandle) int {
	if i, ok := s.bodyIndex[h]; ok {
		return i
	}
	return -1
}

func (s *Solver) effMass(r *row) float32 {
	k := float32(0)
	if r.bodyA >= 0 {
		sb := &s.solverBodies[r.bodyA]
		k += sb.invMass*r.jLinA.Dot(r.jLinA) + r.jAngA.Dot(sb.invInertia.Mul3x1(r.jAngA))
	}
	if r.bodyB >= 0 {
		sb := &s.solverBodies[r.bodyB]
		k += sb.invMass*r.jLinB.Dot(r.jLinB) + r.jAngB.Dot(sb.invInertia.Mul3x1(r.jAngB))
	}
	if k < 1e-9 {
		return 0
	}
	return 1 / k
}

func (s *Solver) currentVelocity(idx int) (mgl32.Vec3, mgl32.Vec3) {
	if idx < 0 {
		return mgl32.Vec3{}, mgl32.Vec3{}
	}
	sb := &s.solverBodies[idx]
	return sb.body.LinearVelocity.Add(sb.dvLin), sb.body.AngularVelocity.Add(sb.dvAng)
}

func (s *Solver) applyImpulse(idx int, jLin, jAng mgl32.Vec3, lambda float32) {
	if idx < 0 {
		return
	}
	sb := &s.solverBodies[idx]
	sb.dvLin = sb.dvLin.Add(jLin.Mul(lambda * sb.invMass))
	sb.dvAng = sb.dvAng.Add(sb.invInertia.Mul3x1(jAng).Mul(lambda))
}

// buildContactRows associates each RBRB constraint with the impulse
// cache, then emits one restitution row and (D-1) friction rows per
// contact.
func (s *Solver) buildContactRows(bodies *Bodies, constraints []Constraint) []row {
	var rows []row
	for ci, c := range constraints {
		if c.Kind != ConstraintRBRB {
			continue
		}
		entry := s.Cache.associate(ci, c.BodyA, c.BodyB, c.Contact.Midpoint())

		ba, bb := bodies.Get(c.BodyA), bodies.Get(c.BodyB)
		idxA, idxB := s.sbIndex(c.BodyA), s.sbIndex(c.BodyB)

		n := c.Contact.Normal
		rA := c.Contact.PointA.Sub(ba.Position)
		rB := c.Contact.PointB.Sub(bb.Position)

		velA, angA := s.currentVelocity(idxA)
		velB, angB := s.currentVelocity(idxB)
		closingVel := velB.Add(angB.Cross(rB)).Sub(velA.Add(angA.Cross(rA))).Dot(n)

		restRow := row{
			bodyA: idxA, bodyB: idxB,
			jLinA: n.Mul(-1), jAngA: rA.Cross(n).Mul(-1),
			jLinB: n, jAngB: rB.Cross(n),
			frictionOf:  -1,
			loBound:     0,
			hiBound:     1e30,
			cache:       entry,
			cacheOffset: 0,
			impulse:     entry.Impulses[0],
			depth:       c.Contact.Depth,
		}
		restRow.effMass = s.effMass(&restRow)

		depth := c.Contact.Depth
		restitution := mixMaterialRestitution(ba, bb)
		switch {
		case s.Mode.usesVelocityBias() && depth >= s.Mode.MinDepth:
			restRow.bias = -s.Mode.VelocityBiasFactor / s.Dt * max32(0, depth)
		case abs32(closingVel) > s.RestitutionEpsilon:
			restRow.bias = restitution * closingVel
		default:
			restRow.bias = 0
		}

		rows = append(rows, restRow)
		restIdx := len(rows) - 1

		tangents := orthonormalTangents(n)
		friction := mixMaterialFriction(ba, bb)
		for t := 0; t < int(s.Dim)-1; t++ {
			tr := row{
				bodyA: idxA, bodyB: idxB,
				jLinA: tangents[t].Mul(-1), jAngA: rA.Cross(tangents[t]).Mul(-1),
				jLinB: tangents[t], jAngB: rB.Cross(tangents[t]),
				frictionOf:  restIdx,
				mu:          friction,
				cache:       entry,
				cacheOffset: t + 1,
				impulse:     entry.Impulses[t+1],
			}
			tr.effMass = s.effMass(&tr)
			rows = append(rows, tr)
		}
	}
	return rows
}

// buildJointRows emits D rows per BallInSocket (zero relative linear
// velocity at anchors) and D rows plus (1 in 2D, 3 in 3D) orientation
// rows per Fixed, with Baumgarte-style positional bias scaled by
// JointCorrectionFactor and unbounded impulses. An anchor pinned to
// the world contributes no body index (effMass treats that side as
// infinite mass); a joint whose both anchors are world-pinned still
// gets rows, but they carry zero effective mass on both sides and are
// a no-op once the PGS sweep skips them.
func (s *Solver) buildJointRows(bodies *Bodies, constraints []Constraint) []row {
	var rows []row
	for _, c := range constraints {
		switch c.Kind {
		case ConstraintBallInSocket:
			j := c.Joint.(*BallInSocketJoint)
			rows = append(rows, s.ballInSocketRows(bodies, j.AnchorA, j.AnchorB)...)
		case ConstraintFixed:
			j := c.Joint.(*FixedJoint)
			rows = append(rows, s.ballInSocketRows(bodies, j.AnchorA, j.AnchorB)...)
			rows = append(rows, s.orientationRows(j.AnchorA, j.AnchorB)...)
		}
	}
	return rows
}

// anchorWorldPoint resolves an anchor to its current world-space
// position: the body's pose applied to the local offset, or the
// anchor's Local value directly when it is world-pinned.
func anchorWorldPoint(bodies *Bodies, a Anchor) mgl32.Vec3 {
	if a.Body == nil {
		return a.Local
	}
	b := bodies.Get(*a.Body)
	return b.Position.Add(QuatToMat3(b.Orientation).Mul3x1(a.Local))
}

// anchorOffset returns the lever arm from the anchor's body origin to
// its world point, used as the angular Jacobian term. A world-pinned
// anchor has no body to rotate about, so its offset is zero.
func anchorOffset(bodies *Bodies, a Anchor, worldPoint mgl32.Vec3) mgl32.Vec3 {
	if a.Body == nil {
		return mgl32.Vec3{}
	}
	return worldPoint.Sub(bodies.Get(*a.Body).Position)
}

func (s *Solver) anchorIndex(a Anchor) int {
	if a.Body == nil {
		return -1
	}
	return s.sbIndex(*a.Body)
}

func (s *Solver) ballInSocketRows(bodies *Bodies, anchorA, anchorB Anchor) []row {
	idxA, idxB := s.anchorIndex(anchorA), s.anchorIndex(anchorB)

	worldA := anchorWorldPoint(bodies, anchorA)
	worldB := anchorWorldPoint(bodies, anchorB)
	rA := anchorOffset(bodies, anchorA, worldA)
	rB := anchorOffset(bodies, anchorB, worldB)
	posError := worldB.Sub(worldA)

	axes := [3]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	out := make([]row, 0, s.Dim)
	for d := 0; d < int(s.Dim); d++ {
		axis := axes[d]
		r := row{
			bodyA: idxA, bodyB: idxB,
			jLinA: axis.Mul(-1), jAngA: rA.Cross(axis).Mul(-1),
			jLinB: axis, jAngB: rB.Cross(axis),
			frictionOf: -1,
			loBound:    -1e30,
			hiBound:    1e30,
			bias:       s.JointCorrectionFactor / s.Dt * posError.Dot(axis),
		}
		r.effMass = s.effMass(&r)
		out = append(out, r)
	}
	return out
}

// orientationRows fixes relative orientation between two anchors by
// constraining relative angular velocity to zero about each world
// axis (1 axis in 2D, 3 in 3D). An approximation of exact
// quaternion-error feedback, adequate for a welded joint under PGS.
func (s *Solver) orientationRows(anchorA, anchorB Anchor) []row {
	idxA, idxB := s.anchorIndex(anchorA), s.anchorIndex(anchorB)
	axes := [3]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	n := int(s.Dim)
	if n == 2 {
		n = 1 // one rotational DOF about the out-of-plane axis
	}
	out := make([]row, 0, n)
	for d := 0; d < n; d++ {
		axis := axes[d]
		if s.Dim == Dim2 {
			axis = axes[2] // the plane is x/y, as in ballInSocketRows
		}
		r := row{
			bodyA:      idxA,
			bodyB:      idxB,
			jAngA:      axis.Mul(-1),
			jAngB:      axis,
			frictionOf: -1,
			loBound:    -1e30,
			hiBound:    1e30,
		}
		r.effMass = s.effMass(&r)
		out = append(out, r)
	}
	return out
}

type iterationKind int

const (
	velocityPass iterationKind = iota
	positionPass
)

// runIterations performs the shared PGS sweep used by both the
// velocity pass (N2 iterations, accumulating into dvLin/dvAng) and
// the position pass (N1 iterations, same row/impulse mechanics,
// applied by the caller as pseudo-velocity).
func (s *Solver) runIterations(rows []row, kind iterationKind) {
	n := s.NumSecondOrderIter
	if kind == positionPass {
		n = s.NumFirstOrderIter
	}
	for iter := 0; iter < n; iter++ {
		for i := range rows {
			r := &rows[i]
			if r.effMass == 0 {
				continue
			}
			velA, angA := s.currentVelocity(r.bodyA)
			velB, angB := s.currentVelocity(r.bodyB)
			jv := velA.Dot(r.jLinA) + angA.Dot(r.jAngA) + velB.Dot(r.jLinB) + angB.Dot(r.jAngB)
			vc := jv + r.bias

			dLambda := -vc * r.effMass
			lo, hi := r.loBound, r.hiBound
			if r.frictionOf >= 0 {
				bound := r.mu * rows[r.frictionOf].impulse
				lo, hi = -bound, bound
			}
			newImpulse := clamp32(r.impulse+dLambda, lo, hi)
			applied := newImpulse - r.impulse
			r.impulse = newImpulse

			s.applyImpulse(r.bodyA, r.jLinA, r.jAngA, applied)
			s.applyImpulse(r.bodyB, r.jLinB, r.jAngB, applied)
		}
	}
}

func (s *Solver) applyVelocityDeltas() {
	for i := range s.solverBodies {
		sb := &s.solverBodies[i]
		sb.body.LinearVelocity = sb.body.LinearVelocity.Add(sb.dvLin)
		sb.body.AngularVelocity = sb.body.AngularVelocity.Add(sb.dvAng)
		sb.dvLin = mgl32.Vec3{}
		sb.dvAng = mgl32.Vec3{}
	}
}

// applyPositionDeltas integrates each body's accumulated pseudo-
// velocity (dvLin/dvAng from the position pass) over Δt into a
// transform delta, then clears the accumulators without touching
// real velocities.
func (s *Solver) applyPositionDeltas(bodies *Bodies) {
	for i := range s.solverBodies {
		sb := &s.solverBodies[i]
		sb.body.Position = sb.body.Position.Add(sb.dvLin.Mul(s.Dt))
		if angSq := sb.dvAng.Dot(sb.dvAng); angSq > 0 {
			angle := sqrt32(angSq) * s.Dt
			axis := sb.dvAng.Normalize()
			dq := mgl32.QuatRotate(angle, axis)
			sb.body.Orientation = dq.Mul(sb.body.Orientation).Normalize()
		}
		sb.dvLin = mgl32.Vec3{}
		sb.dvAng = mgl32.Vec3{}
	}
}

// writeBackCache stores 0.85*final_impulse for every contact row into
// the cache's current generation, damping stale warm-start carry-over.
func (s *Solver) writeBackCache(rows []row) {
	for i := range rows {
		r := &rows[i]
		if r.cache == nil {
			continue
		}
		r.cache.Impulses[r.cacheOffset] = 0.85 * r.impulse
	}
}

// needsPositionPass reports whether the first-order pass should run:
// positional correction must be enabled AND at least one contact row
// must be at or beyond the configured minimum depth.
func (s *Solver) needsPositionPass(rows []row) bool {
	if s.Mode.PosCorrFactor() <= 0 {
		return false
	}
	for i := range rows {
		if rows[i].cache != nil && rows[i].frictionOf < 0 && rows[i].depth >= s.Mode.MinDepth {
			return true
		}
	}
	return false
}

// rebuildRowsForPositionPass re-initializes restitution rows as pure
// position-correction equations (bias from penetration depth, no
// restitution term) and drops friction rows entirely, per spec.md's
// first-order pass description. Joint rows keep their Jacobians and
// positional bias, since they already carry one. Every kept row starts
// the pass with a zero accumulated impulse.
func (s *Solver) rebuildRowsForPositionPass(rows []row) []row {
	out := make([]row, 0, len(rows))
	for i := range rows {
		r := rows[i]
		if r.frictionOf >= 0 {
			continue // friction rows are empty in the position pass
		}
		if r.cache != nil {
			r.bias = -s.Mode.PosCorrFactor() / s.Dt * max32(0, r.depth)
		}
		r.impulse = 0
		out = append(out, r)
	}
	return out
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sqrt32(v float32) float32 {
	if v <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(v)))
}

func mixMaterialRestitution(a, b *Body) float32 {
	return (a.Material.Restitution + b.Material.Restitution) * 0.5
}

func mixMaterialFriction(a, b *Body) float32 {
	return sqrt32(a.Material.Friction * b.Material.Friction)
}

// orthonormalTangents builds two unit vectors orthogonal to n and to
// each other, used as the friction-row axes.
func orthonormalTangents(n mgl32.Vec3) [2]mgl32.Vec3 {
	var t0 mgl32.Vec3
	if abs32(n.X()) < 0.9 {
		t0 = mgl32.Vec3{1, 0, 0}.Cross(n).Normalize()
	} else {
		t0 = mgl32.Vec3{0, 1, 0}.Cross(n).Normalize()
	}
	t1 := n.Cross(t0).Normalize()
	return [2]mgl32.Vec3{t0, t1}
}
