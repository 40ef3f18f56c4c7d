package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldSingleBoxFreeFall(t *testing.T) {
	dt := float32(1.0 / 60)
	w := NewWorld(dt, Dim3)
	w.Gravity = mgl32.Vec3{0, -9.81, 0}

	h := w.AddBody(NewDynamicBody(BoxShape{HalfExtents: mgl32.Vec3{0.5, 0.5, 0.5}}, 1, mgl32.Ident3(), Material{}))
	b := w.Bodies.Get(h)

	startY := b.Position.Y()
	for i := 0; i < 60; i++ {
		w.Step()
	}

	fallDistance := startY - b.Position.Y()
	assert.InDelta(t, 4.905, fallDistance, 0.05*4.905)
}

func TestWorldZeroConstraintsZeroGravityIsBitIdentical(t *testing.T) {
	dt := float32(1.0 / 60)
	w := NewWorld(dt, Dim3)

	h := w.AddBody(NewDynamicBody(SphereShape{Radius: 0.5}, 1, mgl32.Ident3(), Material{}))
	b := w.Bodies.Get(h)
	before := *b

	w.Step()

	assert.Equal(t, before.Position, b.Position)
	assert.Equal(t, before.LinearVelocity, b.LinearVelocity)
	assert.Equal(t, before.AngularVelocity, b.AngularVelocity)
}

func TestWorldStackedBoxesComeToRest(t *testing.T) {
	dt := float32(1.0 / 60)
	w := NewWorld(dt, Dim3)
	w.Gravity = mgl32.Vec3{0, -9.81, 0}

	groundHandle := w.AddBody(NewStaticBody(BoxShape{HalfExtents: mgl32.Vec3{5, 0.5, 5}}, Material{Friction: 0.8}))
	w.Bodies.Get(groundHandle).Position = mgl32.Vec3{0, -0.5, 0}

	boxHandle := w.AddBody(NewDynamicBody(BoxShape{HalfExtents: mgl32.Vec3{0.5, 0.5, 0.5}}, 1, mgl32.Ident3(), Material{Friction: 0.8}))
	box := w.Bodies.Get(boxHandle)
	box.Position = mgl32.Vec3{0, 0.5, 0}
	thresh := float32(0.05)
	box.DeactivationThreshold = &thresh

	for i := 0; i < 600; i++ {
		w.Step()
	}

	assert.InDelta(t, 0.5, box.Position.Y(), 0.2)
}

func TestWorldJointEditWakesBodies(t *testing.T) {
	dt := float32(1.0 / 60)
	w := NewWorld(dt, Dim3)

	a := w.AddBody(NewDynamicBody(SphereShape{Radius: 0.5}, 1, mgl32.Ident3(), Material{}))
	b := w.AddBody(NewDynamicBody(SphereShape{Radius: 0.5}, 1, mgl32.Ident3(), Material{}))
	thresh := float32(0.1)
	w.Bodies.Get(a).DeactivationThreshold = &thresh
	w.Bodies.Get(b).DeactivationThreshold = &thresh
	w.Bodies.Get(a).Activation.Kind = Inactive
	w.Bodies.Get(b).Activation.Kind = Inactive

	w.Joints.AddBallInSocket(BodyAnchor(a, mgl32.Vec3{}), BodyAnchor(b, mgl32.Vec3{}))
	w.Step()

	assert.Equal(t, Active, w.Bodies.Get(a).Activation.Kind)
	assert.Equal(t, Active, w.Bodies.Get(b).Activation.Kind)
}

func TestWorldRemoveBodyPurgesJointsAndCCD(t *testing.T) {
	w := NewWorld(1.0/60, Dim3)
	a := w.AddBody(NewDynamicBody(SphereShape{Radius: 0.5}, 1, mgl32.Ident3(), Material{}))
	b := w.AddBody(NewDynamicBody(SphereShape{Radius: 0.5}, 1, mgl32.Ident3(), Material{}))
	jh := w.Joints.AddBallInSocket(BodyAnchor(a, mgl32.Vec3{}), BodyAnchor(b, mgl32.Vec3{}))
	w.CCD.AddCCDTo(w.Bodies, a, 0.5)

	w.RemoveBody(a)

	require.Nil(t, w.Bodies.Get(a))
	_, stillThere := w.Joints.joints[jh]
	assert.False(t, stillThere)
	_, ccdStillThere := w.CCD.entries[a]
	assert.False(t, ccdStillThere)
}
