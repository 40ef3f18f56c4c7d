package gekko

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/gekko-physics/physics"
)

// RigidBodyComponent is the ECS-side handle onto a body living in the
// physics.World resource. The physics core itself never touches the
// ECS; this component is the only bridge between the two. Mass and
// InvInertia are read once by PhysicsSpawnSystem to construct the
// backing physics.Body; Mass == 0 spawns a static (immovable) body.
type RigidBodyComponent struct {
	Mass       float32
	InvInertia mgl32.Mat3

	Handle  physics.BodyHandle
	spawned bool
}

// ColliderComponent describes the shape and surface material a
// rigid body is created with. Read once, at entity-spawn time, by
// PhysicsSpawnSystem; later edits require removing and re-adding the
// component, matching the "shape is an external collaborator" framing.
type ColliderComponent struct {
	Shape    physics.Shape
	Material physics.Material
}

// PhysicsModule installs a physics.World as a resource and three
// systems: one spawning bodies for newly-colliding entities, one
// stepping the world, and one copying simulated transforms back onto
// TransformComponent after each step.
type PhysicsModule struct {
	Dt      float32
	Dim     physics.Dim
	Gravity mgl32.Vec3
}

func DefaultPhysicsModule() PhysicsModule {
	return PhysicsModule{
		Dt:      1.0 / 60,
		Dim:     physics.Dim3,
		Gravity: mgl32.Vec3{0, -9.81, 0},
	}
}

func (m PhysicsModule) Install(app *App, cmd *Commands) {
	dt := m.Dt
	if dt <= 0 {
		dt = 1.0 / 60
	}
	dim := m.Dim
	if dim == 0 {
		dim = physics.Dim3
	}

	world := physics.NewWorld(dt, dim)
	world.Gravity = m.Gravity
	cmd.AddResources(world)

	app.UseSystem(
		System(PhysicsSpawnSystem).InStage(PreUpdate).RunAlways(),
	).UseSystem(
		System(PhysicsStepSystem).InStage(Update).RunAlways(),
	).UseSystem(
		System(PhysicsSyncSystem).InStage(PostUpdate).RunAlways(),
	)
}

// PhysicsSpawnSystem gives every entity that has a Transform, a
// not-yet-spawned RigidBody and a Collider a backing physics.Body.
// Mass > 0 spawns a dynamic body; Mass == 0 spawns a static body.
func PhysicsSpawnSystem(cmd *Commands, world *physics.World) {
	MakeQuery3[TransformComponent, RigidBodyComponent, ColliderComponent](cmd).Map(
		func(eid EntityId, tr *TransformComponent, rb *RigidBodyComponent, col *ColliderComponent) bool {
			if rb.spawned {
				return true
			}
			var body *physics.Body
			if rb.Mass > 0 {
				body = physics.NewDynamicBody(col.Shape, rb.Mass, rb.InvInertia, col.Material)
			} else {
				body = physics.NewStaticBody(col.Shape, col.Material)
			}
			body.Position = tr.Position
			body.Orientation = tr.Rotation
			rb.Handle = world.AddBody(body)
			rb.spawned = true
			return true
		},
	)
}

// PhysicsStepSystem advances the simulation by one fixed tick. The
// host is expected to accumulate real time elsewhere and call this at
// a fixed rate; here it runs once per frame using the configured Δt,
// matching the teacher's fixed-step physics loop cadence.
func PhysicsStepSystem(world *physics.World) {
	world.Step()
}

// PhysicsSyncSystem copies each live body's simulated pose back onto
// its TransformComponent after the step, per the ordering guarantee
// that the solver and CCD must finish before any observer reads the
// transform.
func PhysicsSyncSystem(cmd *Commands, world *physics.World) {
	MakeQuery2[TransformComponent, RigidBodyComponent](cmd).Map(
		func(eid EntityId, tr *TransformComponent, rb *RigidBodyComponent) bool {
			body := world.Bodies.Get(rb.Handle)
			if body == nil {
				return true
			}
			tr.Position = body.Position
			tr.Rotation = body.Orientation
			return true
		},
	)
}

// NewDynamicRigidBody creates a RigidBodyComponent that spawns as a
// movable body with the given mass and local inverse inertia tensor.
func NewDynamicRigidBody(mass float32, invInertia mgl32.Mat3) RigidBodyComponent {
	return RigidBodyComponent{Mass: mass, InvInertia: invInertia}
}

// NewStaticRigidBody creates a RigidBodyComponent that spawns as an
// immovable body.
func NewStaticRigidBody() RigidBodyComponent {
	return RigidBodyComponent{}
}
