package physics

import "github.com/go-gl/mathgl/mgl32"

// fingerprint identifies a contact across ticks even as it drifts
// slightly, by quantizing its midpoint to a spatial grid cell (spec.md
// "Warm-start cache key"). Body handles are ordered low-before-high so
// the key is independent of which side of the pair is A vs B.
type fingerprint struct {
	bodyLo, bodyHi BodyHandle
	cellX, cellY, cellZ int32
}

// CacheEntry is the per-contact cache record: the constraint row this
// contact was assigned to this tick, the offset into the packed
// impulse vector, and the impulse magnitudes themselves (restitution
// row first, then D-1 friction rows).
type CacheEntry struct {
	ConstraintIndex int
	Offset          int
	Impulses        []float32
}

// ImpulseCache is a double-buffered map from contact fingerprint to
// cached impulse magnitudes, providing warm-start seeding for PGS.
// swap() rotates generations each tick; the storage offset is
// monotonically assigned within a tick and reset on swap().
type ImpulseCache struct {
	quantization float32
	current      map[fingerprint]*CacheEntry
	previous     map[fingerprint]*CacheEntry
	nextOffset   int
	rowsPerEntry int
}

// NewImpulseCache creates a cache quantizing contact midpoints to
// cells of the given size. A cell size near the deployment's typical
// contact tolerance keeps slightly drifting contacts in the same
// bucket; callers tune this per scene scale.
func NewImpulseCache(quantization float32, rowsPerEntry int) *ImpulseCache {
	return &ImpulseCache{
		quantization: quantization,
		current:      make(map[fingerprint]*CacheEntry),
		previous:     make(map[fingerprint]*CacheEntry),
		rowsPerEntry: rowsPerEntry,
	}
}

func (ic *ImpulseCache) quantize(p mgl32.Vec3) (int32, int32, int32) {
	q := ic.quantization
	if q <= 0 {
		q = 1
	}
	return int32(floorDiv(p.X(), q)), int32(floorDiv(p.Y(), q)), int32(floorDiv(p.Z(), q))
}

func floorDiv(v, q float32) float32 {
	f := v / q
	if f < 0 {
		return f - 1 // biases toward floor for negative coordinates
	}
	return f
}

func makeFingerprint(a, b BodyHandle, cx, cy, cz int32) fingerprint {
	if a > b {
		a, b = b, a
	}
	return fingerprint{bodyLo: a, bodyHi: b, cellX: cx, cellY: cy, cellZ: cz}
}

// reset begins a new tick's association pass: offsets restart at
// zero and the write-target map is cleared (the generation that was
// current becomes previous only on swap(), not here).
func (ic *ImpulseCache) reset() {
	ic.current = make(map[fingerprint]*CacheEntry, len(ic.previous))
	ic.nextOffset = 0
}

// associate inserts (contact-index, bodyA, bodyB, midpoint) into the
// cache, returning the entry to use for this contact this tick. If a
// matching entry existed in the previous generation, its impulses
// seed the warm start; otherwise the entry starts at zero.
func (ic *ImpulseCache) associate(constraintIndex int, a, b BodyHandle, midpoint mgl32.Vec3) *CacheEntry {
	cx, cy, cz := ic.quantize(midpoint)
	fp := makeFingerprint(a, b, cx, cy, cz)

	impulses := make([]float32, ic.rowsPerEntry)
	if prev, ok := ic.previous[fp]; ok {
		copy(impulses, prev.Impulses)
	}

	entry := &CacheEntry{
		ConstraintIndex: constraintIndex,
		Offset:          ic.nextOffset,
		Impulses:        impulses,
	}
	ic.nextOffset += ic.rowsPerEntry
	ic.current[fp] = entry
	return entry
}

// Len reports the number of cached contacts this tick (one
// restitution row per entry).
func (ic *ImpulseCache) Len() int {
	return len(ic.current)
}

// swap rotates generations: the tick just solved becomes the warm
// start for the next one.
func (ic *ImpulseCache) swap() {
	ic.previous = ic.current
	ic.current = make(map[fingerprint]*CacheEntry, len(ic.previous))
	ic.nextOffset = 0
}
