package physics

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// JointHandle identifies a joint independently of its storage slot,
// so callers can hold a stable reference across RemoveJoint calls
// elsewhere. Backed by uuid per the teacher's asset-identity pattern.
type JointHandle uuid.UUID

func newJointHandle() JointHandle {
	return JointHandle(uuid.New())
}

// Anchor is one end of a joint: a local-frame offset on a body, or,
// when Body is nil, a fixed point in the world frame. Local is
// interpreted relative to Body's orientation/position when Body is
// set, and as a world-space position otherwise.
type Anchor struct {
	Body  *BodyHandle
	Local mgl32.Vec3
}

// BodyAnchor creates an Anchor attached to a body at a local-frame
// offset.
func BodyAnchor(body BodyHandle, local mgl32.Vec3) Anchor {
	return Anchor{Body: &body, Local: local}
}

// WorldAnchor creates an Anchor pinned to a fixed point in the world
// frame, unaffected by any body's motion.
func WorldAnchor(worldPosition mgl32.Vec3) Anchor {
	return Anchor{Local: worldPosition}
}

// Joint is the external-collaborator interface spec.md describes for
// joint constraints: it knows the bodies it anchors, whether it has
// been folded into the activation graph this tick, and how to emit
// its own Jacobian rows are left to the solver, which type-switches
// on the concrete joint when filling constraint rows.
type Joint interface {
	ID() JointHandle
	UpToDate() bool
	SetUpToDate(bool)

	// anchorBodies returns pointers to this joint's anchor body handle
	// fields, in a fixed order, so bodyHandles() on Constraint and the
	// solver's indexing pass can treat joints and RBRB contacts
	// uniformly. A nil entry means that anchor is pinned to the world
	// frame and contributes no body to index, wake, or union.
	anchorBodies() []*BodyHandle
}

// jointBase factors the bookkeeping every concrete joint needs.
type jointBase struct {
	id       JointHandle
	upToDate bool
}

func (j *jointBase) ID() JointHandle    { return j.id }
func (j *jointBase) UpToDate() bool     { return j.upToDate }
func (j *jointBase) SetUpToDate(v bool) { j.upToDate = v }

// BallInSocketJoint constrains a point anchored on AnchorA to coincide
// with a point anchored on AnchorB, removing three translational
// degrees of freedom and leaving all rotation free. Either anchor may
// be world-pinned.
type BallInSocketJoint struct {
	jointBase
	AnchorA, AnchorB Anchor
}

func (j *BallInSocketJoint) anchorBodies() []*BodyHandle {
	return []*BodyHandle{j.AnchorA.Body, j.AnchorB.Body}
}

// FixedJoint removes all six relative degrees of freedom between its
// two anchors, welding them at their current relative pose. Either
// anchor may be world-pinned.
type FixedJoint struct {
	jointBase
	AnchorA, AnchorB    Anchor
	RelativeOrientation mgl32.Quat // orientation of B in A's local frame at creation time
}

func (j *FixedJoint) anchorBodies() []*BodyHandle {
	return []*BodyHandle{j.AnchorA.Body, j.AnchorB.Body}
}

// JointManager owns every live joint and the reverse index from body
// to the joints anchored on it, so removing a body can find and drop
// its joints without scanning the whole set.
type JointManager struct {
	joints map[JointHandle]Joint
	byBody map[BodyHandle][]JointHandle
}

func NewJointManager() *JointManager {
	return &JointManager{
		joints: make(map[JointHandle]Joint),
		byBody: make(map[BodyHandle][]JointHandle),
	}
}

func (jm *JointManager) index(h JointHandle, j Joint) {
	jm.joints[h] = j
	for _, bp := range j.anchorBodies() {
		if bp == nil {
			continue
		}
		jm.byBody[*bp] = append(jm.byBody[*bp], h)
	}
}

// AddBallInSocket creates and registers a ball-in-socket joint,
// marked not-up-to-date so the next activation pass wakes both
// non-world anchors (spec.md: editing the joint graph must wake
// affected bodies).
func (jm *JointManager) AddBallInSocket(anchorA, anchorB Anchor) JointHandle {
	h := newJointHandle()
	j := &BallInSocketJoint{
		jointBase: jointBase{id: h, upToDate: false},
		AnchorA:   anchorA,
		AnchorB:   anchorB,
	}
	jm.index(h, j)
	return h
}

// AddFixed creates and registers a fixed (weld) joint.
func (jm *JointManager) AddFixed(anchorA, anchorB Anchor, relOrient mgl32.Quat) JointHandle {
	h := newJointHandle()
	j := &FixedJoint{
		jointBase:           jointBase{id: h, upToDate: false},
		AnchorA:             anchorA,
		AnchorB:             anchorB,
		RelativeOrientation: relOrient,
	}
	jm.index(h, j)
	return h
}

// RemoveJoint deletes a single joint and unlinks it from the reverse
// index of every body it anchored.
func (jm *JointManager) RemoveJoint(h JointHandle) {
	j, ok := jm.joints[h]
	if !ok {
		return
	}
	delete(jm.joints, h)
	for _, bp := range j.anchorBodies() {
		if bp == nil {
			continue
		}
		jm.byBody[*bp] = removeHandle(jm.byBody[*bp], h)
	}
}

// RemoveByBody drops every joint anchored on the given body, e.g.
// when the body itself is removed from the world. The reverse-index
// slice is snapshotted before iterating, since RemoveJoint mutates
// jm.byBody[body] (and the other anchor's slice) in place as it goes.
func (jm *JointManager) RemoveByBody(body BodyHandle) {
	handles := append([]JointHandle(nil), jm.byBody[body]...)
	for _, h := range handles {
		jm.RemoveJoint(h)
	}
	delete(jm.byBody, body)
}

func removeHandle(list []JointHandle, h JointHandle) []JointHandle {
	for i, v := range list {
		if v == h {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Update folds newly created or edited joints into the activation
// graph: any joint not yet marked up-to-date wakes each non-world
// anchor body, then is marked up-to-date so it is a no-op on
// subsequent ticks until edited again.
func (jm *JointManager) Update(activation *ActivationManager) {
	for _, j := range jm.joints {
		if j.UpToDate() {
			continue
		}
		for _, bp := range j.anchorBodies() {
			if bp == nil {
				continue
			}
			activation.WillActivate(*bp)
		}
		j.SetUpToDate(true)
	}
}

// Emit appends one Constraint per live joint to out, for the solver
// to consume alongside contact constraints this tick.
func (jm *JointManager) Emit(out *[]Constraint) {
	for _, j := range jm.joints {
		switch joint := j.(type) {
		case *BallInSocketJoint:
			*out = append(*out, Constraint{Kind: ConstraintBallInSocket, Joint: joint})
		case *FixedJoint:
			*out = append(*out, Constraint{Kind: ConstraintFixed, Joint: joint})
		}
	}
}
