package gekko

import "github.com/go-gl/mathgl/mgl32"

// TransformComponent is the world-space pose every renderable or
// simulated entity carries. Rotation is a full quaternion rather than
// a single angle so RigidBodyComponent entities can tumble freely.
type TransformComponent struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform(pos mgl32.Vec3) TransformComponent {
	return TransformComponent{Position: pos, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}
}
