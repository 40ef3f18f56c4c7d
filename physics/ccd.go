package physics

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// ccdEntry is the per-body CCD registration state: the motion
// threshold above which a swept TOI query triggers, the translation
// observed at the previous update, and a one-tick latch suppressing
// jitter from a just-resolved zero-TOI clamp.
type ccdEntry struct {
	motionThreshold float32
	lastPos         mgl32.Vec3
	acceptZero      bool
}

// CCD implements spec.md §4.4's translational motion-clamping pass:
// bodies registered here have their per-tick translation clamped to
// the earliest time-of-impact against any AABB-overlapping collider,
// preventing tunneling without a continuous rotational sweep.
type CCD struct {
	entries map[BodyHandle]*ccdEntry

	// toiEpsilon below this, a found TOI is treated as "already
	// touching" rather than a fresh impact worth clamping.
	toiEpsilon float32
}

func NewCCD() *CCD {
	return &CCD{
		entries:    make(map[BodyHandle]*ccdEntry),
		toiEpsilon: 1e-4,
	}
}

// AddCCDTo registers a body for translational CCD with the given
// motion threshold (world units; compared against squared movement).
func (c *CCD) AddCCDTo(bodies *Bodies, h BodyHandle, motionThreshold float32) {
	b := bodies.checkNotDeleted(h)
	c.entries[h] = &ccdEntry{
		motionThreshold: motionThreshold,
		lastPos:         b.Position,
		acceptZero:      true,
	}
}

// RemoveCCDFrom unregisters a body; it is no longer checked for
// tunneling.
func (c *CCD) RemoveCCDFrom(h BodyHandle) {
	delete(c.entries, h)
}

// Update runs the per-tick CCD pass over every registered body,
// rewinding any body whose swept motion first touches another body
// before the end of the step. world provides AABB overlap queries and
// the post-pass refresh hook.
func (c *CCD) Update(bodies *Bodies, world CollisionWorld) {
	anyRepositioned := false

	// Bodies are processed sequentially in ascending handle order, so
	// the bias toward the first-processed body is deterministic.
	handles := make([]BodyHandle, 0, len(c.entries))
	for h := range c.entries {
		handles = append(handles, h)
	}
	slices.Sort(handles)

	for _, h := range handles {
		e := c.entries[h]
		b := bodies.Get(h)
		if b == nil || b.Activation.Kind == Deleted {
			continue
		}

		movement := b.Position.Sub(e.lastPos)
		if movement.Dot(movement) <= e.motionThreshold*e.motionThreshold {
			e.lastPos = b.Position
			continue
		}

		lastTransformPos := b.Position.Sub(movement)
		sweptAABB := b.Shape.AABB(lastTransformPos, b.Orientation).Union(b.Shape.AABB(b.Position, b.Orientation))

		minTOI := float32(1)
		toiFound := false
		for _, otherHandle := range world.QueryAABB(sweptAABB) {
			if otherHandle == h {
				continue
			}
			other := bodies.Get(otherHandle)
			if other == nil || other.Activation.Kind == Deleted {
				continue
			}
			toi, ok := b.Shape.TimeOfImpact(lastTransformPos, b.Orientation, movement, other.Shape, other.Position, other.Orientation, mgl32.Vec3{})
			if !ok {
				continue
			}
			// Every candidate at or before the current minimum marks
			// toiFound, including a zero TOI that the gate below
			// rejects, independent of whether it is accepted into
			// minTOI.
			if toi <= minTOI {
				toiFound = true
				if toi > c.toiEpsilon || e.acceptZero {
					minTOI = toi
				}
			}
		}

		if toiFound {
			b.Position = b.Position.Sub(movement.Mul(1 - minTOI))
			e.acceptZero = false
			world.PushPosition(h, b.Position)
			anyRepositioned = true
		} else {
			e.acceptZero = true
		}

		e.lastPos = b.Position
	}

	if anyRepositioned {
		world.Refresh(bodies)
	}
}
