package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddBallInSocketIndexesBothBodies(t *testing.T) {
	jm := NewJointManager()
	a, b := BodyHandle(1), BodyHandle(2)
	h := jm.AddBallInSocket(BodyAnchor(a, mgl32.Vec3{}), BodyAnchor(b, mgl32.Vec3{}))

	require.Contains(t, jm.joints, h)
	assert.Contains(t, jm.byBody[a], h)
	assert.Contains(t, jm.byBody[b], h)
}

func TestAddBallInSocketWithWorldAnchorIndexesOnlyTheBody(t *testing.T) {
	jm := NewJointManager()
	a := BodyHandle(1)
	h := jm.AddBallInSocket(BodyAnchor(a, mgl32.Vec3{}), WorldAnchor(mgl32.Vec3{1, 0, 0}))

	require.Contains(t, jm.joints, h)
	assert.Contains(t, jm.byBody[a], h)
	assert.Len(t, jm.byBody, 1)
}

func TestRemoveJointUnlinksBothSides(t *testing.T) {
	jm := NewJointManager()
	a, b := BodyHandle(1), BodyHandle(2)
	h := jm.AddBallInSocket(BodyAnchor(a, mgl32.Vec3{}), BodyAnchor(b, mgl32.Vec3{}))

	jm.RemoveJoint(h)
	assert.NotContains(t, jm.joints, h)
	assert.NotContains(t, jm.byBody[a], h)
	assert.NotContains(t, jm.byBody[b], h)
}

func TestRemoveByBodyDropsEveryJointOnThatBody(t *testing.T) {
	jm := NewJointManager()
	a, b, c := BodyHandle(1), BodyHandle(2), BodyHandle(3)
	h1 := jm.AddBallInSocket(BodyAnchor(a, mgl32.Vec3{}), BodyAnchor(b, mgl32.Vec3{}))
	h2 := jm.AddFixed(BodyAnchor(a, mgl32.Vec3{}), BodyAnchor(c, mgl32.Vec3{}), mgl32.QuatIdent())

	jm.RemoveByBody(a)

	assert.NotContains(t, jm.joints, h1)
	assert.NotContains(t, jm.joints, h2)
	assert.Empty(t, jm.byBody[a])
	assert.NotContains(t, jm.byBody[b], h1)
	assert.NotContains(t, jm.byBody[c], h2)
}

func TestNewJointStartsNotUpToDate(t *testing.T) {
	jm := NewJointManager()
	h := jm.AddBallInSocket(BodyAnchor(1, mgl32.Vec3{}), BodyAnchor(2, mgl32.Vec3{}))
	assert.False(t, jm.joints[h].UpToDate())
}

func TestJointManagerUpdateWakesAnchorsOnce(t *testing.T) {
	jm := NewJointManager()
	am := NewActivationManager(0.1)
	bodies := NewBodies()
	thresh := float32(0.1)
	a := bodies.Add(NewDynamicBody(SphereShape{Radius: 1}, 1, mgl32.Ident3(), Material{}))
	b := bodies.Add(NewDynamicBody(SphereShape{Radius: 1}, 1, mgl32.Ident3(), Material{}))
	bodies.Get(a).Activation.Kind = Inactive
	bodies.Get(a).DeactivationThreshold = &thresh
	bodies.Get(b).Activation.Kind = Inactive
	bodies.Get(b).DeactivationThreshold = &thresh

	h := jm.AddBallInSocket(BodyAnchor(a, mgl32.Vec3{}), BodyAnchor(b, mgl32.Vec3{}))
	jm.Update(am)
	assert.True(t, jm.joints[h].UpToDate())

	am.Update(bodies, nil, jm)
	assert.Equal(t, Active, bodies.Get(a).Activation.Kind)
	assert.Equal(t, Active, bodies.Get(b).Activation.Kind)

	// Second Update call is a no-op: joint is already up to date.
	jm.Update(am)
	assert.Empty(t, am.pending)
}

func TestJointManagerUpdateWithWorldAnchorOnlyWakesTheBody(t *testing.T) {
	jm := NewJointManager()
	am := NewActivationManager(0.1)
	bodies := NewBodies()
	thresh := float32(0.1)
	a := bodies.Add(NewDynamicBody(SphereShape{Radius: 1}, 1, mgl32.Ident3(), Material{}))
	bodies.Get(a).Activation.Kind = Inactive
	bodies.Get(a).DeactivationThreshold = &thresh

	jm.AddBallInSocket(BodyAnchor(a, mgl32.Vec3{}), WorldAnchor(mgl32.Vec3{}))
	jm.Update(am)

	am.Update(bodies, nil, jm)
	assert.Equal(t, Active, bodies.Get(a).Activation.Kind)
}

func TestEmitAppendsOneConstraintPerJoint(t *testing.T) {
	jm := NewJointManager()
	jm.AddBallInSocket(BodyAnchor(1, mgl32.Vec3{}), BodyAnchor(2, mgl32.Vec3{}))
	jm.AddFixed(BodyAnchor(3, mgl32.Vec3{}), BodyAnchor(4, mgl32.Vec3{}), mgl32.QuatIdent())

	var out []Constraint
	jm.Emit(&out)
	assert.Len(t, out, 2)
}
