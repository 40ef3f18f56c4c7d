package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func thresholdOf(v float32) *float32 { return &v }

func TestEnergyUpdateClampsToFourTauCeiling(t *testing.T) {
	bodies := NewBodies()
	h := bodies.Add(NewDynamicBody(SphereShape{Radius: 1}, 1, mgl32.Ident3(), Material{}))
	b := bodies.Get(h)
	b.DeactivationThreshold = thresholdOf(0.1)
	b.LinearVelocity = mgl32.Vec3{100, 0, 0} // huge instantaneous energy

	am := NewActivationManager(1.0) // m=1: energy tracks instantaneous value directly
	am.Update(bodies, nil, NewJointManager())

	assert.LessOrEqual(t, b.Activation.Energy, float32(0.4))
}

func TestRestingBodyBelowThresholdDeactivates(t *testing.T) {
	bodies := NewBodies()
	h := bodies.Add(NewDynamicBody(SphereShape{Radius: 1}, 1, mgl32.Ident3(), Material{}))
	b := bodies.Get(h)
	b.DeactivationThreshold = thresholdOf(0.1)

	am := NewActivationManager(1.0)
	// Zero energy is already below the threshold, so the first tick
	// commits Inactive; the second checks the body stays asleep.
	am.Update(bodies, nil, NewJointManager())
	am.Update(bodies, nil, NewJointManager())

	assert.Equal(t, Inactive, b.Activation.Kind)
}

func TestBodyWithoutThresholdNeverSleeps(t *testing.T) {
	bodies := NewBodies()
	h := bodies.Add(NewDynamicBody(SphereShape{Radius: 1}, 1, mgl32.Ident3(), Material{}))
	b := bodies.Get(h)

	am := NewActivationManager(1.0)
	for i := 0; i < 5; i++ {
		am.Update(bodies, nil, NewJointManager())
	}
	assert.Equal(t, Active, b.Activation.Kind)
}

func TestIslandWithOneActiveBodyKeepsBothAwake(t *testing.T) {
	bodies := NewBodies()
	a := bodies.Add(NewDynamicBody(SphereShape{Radius: 1}, 1, mgl32.Ident3(), Material{}))
	b := bodies.Add(NewDynamicBody(SphereShape{Radius: 1}, 1, mgl32.Ident3(), Material{}))
	bodies.Get(a).DeactivationThreshold = thresholdOf(0.1)
	bodies.Get(b).DeactivationThreshold = thresholdOf(0.1)
	bodies.Get(b).LinearVelocity = mgl32.Vec3{50, 0, 0} // keeps island above threshold

	am := NewActivationManager(1.0)
	edges := []contactEdge{{BodyA: a, BodyB: b}}
	am.Update(bodies, edges, NewJointManager())
	am.Update(bodies, edges, NewJointManager())

	assert.Equal(t, Active, bodies.Get(a).Activation.Kind)
	assert.Equal(t, Active, bodies.Get(b).Activation.Kind)
}

func TestWillActivateWakesInactiveBody(t *testing.T) {
	bodies := NewBodies()
	h := bodies.Add(NewDynamicBody(SphereShape{Radius: 1}, 1, mgl32.Ident3(), Material{}))
	b := bodies.Get(h)
	b.DeactivationThreshold = thresholdOf(0.1)
	b.Activation.Kind = Inactive
	b.Activation.Energy = 0

	am := NewActivationManager(1.0)
	am.WillActivate(h)
	am.Update(bodies, nil, NewJointManager())

	assert.Equal(t, Active, b.Activation.Kind)
	assert.Equal(t, float32(0.2), b.Activation.Energy)
}

func TestStaticBodyNeverJoinsAnIslandEdge(t *testing.T) {
	bodies := NewBodies()
	dyn := bodies.Add(NewDynamicBody(SphereShape{Radius: 1}, 1, mgl32.Ident3(), Material{}))
	static := bodies.Add(NewStaticBody(BoxShape{HalfExtents: mgl32.Vec3{1, 1, 1}}, Material{}))
	bodies.Get(dyn).DeactivationThreshold = thresholdOf(0.1)

	am := NewActivationManager(1.0)
	edges := []contactEdge{{BodyA: dyn, BodyB: static}}
	am.Update(bodies, edges, NewJointManager())
	am.Update(bodies, edges, NewJointManager())

	// The dynamic body is resting and alone in its island (no movable
	// partner), so it still deactivates; the static body is untouched.
	assert.Equal(t, Inactive, bodies.Get(dyn).Activation.Kind)
	assert.Equal(t, Active, bodies.Get(static).Activation.Kind)
}

func TestActivationManagerPanicsOnDeletedBody(t *testing.T) {
	bodies := NewBodies()
	h := bodies.Add(NewDynamicBody(SphereShape{Radius: 1}, 1, mgl32.Ident3(), Material{}))
	bodies.Remove(h)
	// Re-insert a reference to a slot that Remove already nil'd out is
	// impossible via the public API; instead exercise the same
	// contract by forcing a live Deleted entry directly.
	h2 := bodies.Add(NewDynamicBody(SphereShape{Radius: 1}, 1, mgl32.Ident3(), Material{}))
	bodies.entries[h2].Activation.Kind = Deleted

	am := NewActivationManager(0.1)
	assert.Panics(t, func() {
		am.Update(bodies, nil, NewJointManager())
	})
}
