package boxop

import (
	"math"

	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
	"gonum.org/v1/gonum/spatial/r3"
)

// geometry is the pose and extent of a box.
type geometry struct {
	Position core.Position3D
	Scale    core.Position3D
	Rotation core.Position3D
}

func geometryOf(b *core.Box) geometry {
	return geometry{Position: b.Position, Scale: b.Scale, Rotation: b.Rotation}
}

func (g geometry) applyTo(b *core.Box) {
	b.Position = g.Position
	b.Scale = g.Scale
	b.Rotation = g.Rotation
}

// IsKeyframe reports whether b was placed or confirmed by a human.
func IsKeyframe(b *core.Box) bool {
	return b != nil && b.Annotator == ""
}

// interpolateSlots computes the geometry of every slot strictly between two
// consecutive keyframes. slots are in frame order; nil slots have no box.
// Slots before the first or after the last keyframe are left alone.
func interpolateSlots(slots []*core.Box) map[int]geometry {
	var keys []int
	for i, b := range slots {
		if IsKeyframe(b) {
			keys = append(keys, i)
		}
	}

	out := make(map[int]geometry)
	for k := 0; k+1 < len(keys); k++ {
		from, to := keys[k], keys[k+1]
		a, b := geometryOf(slots[from]), geometryOf(slots[to])
		for i := from + 1; i < to; i++ {
			t := float64(i-from) / float64(to-from)
			out[i] = lerpGeometry(a, b, t)
		}
	}
	return out
}

func lerpGeometry(a, b geometry, t float64) geometry {
	return geometry{
		Position: core.PositionFromVec(lerpVec(a.Position.Vec(), b.Position.Vec(), t)),
		Scale:    core.PositionFromVec(lerpVec(a.Scale.Vec(), b.Scale.Vec(), t)),
		Rotation: core.Position3D{
			X: lerpAngle(a.Rotation.X, b.Rotation.X, t),
			Y: lerpAngle(a.Rotation.Y, b.Rotation.Y, t),
			Z: lerpAngle(a.Rotation.Z, b.Rotation.Z, t),
		},
	}
}

func lerpVec(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// lerpAngle interpolates along the shorter arc.
func lerpAngle(a, b, t float64) float64 {
	d := math.Remainder(b-a, 2*math.Pi)
	return a + t*d
}
