package editor

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
)

// Translate moves the attached box by delta, as a drag in a sub-view would.
// It reports false if nothing is attached.
func (e *Editor) Translate(delta core.Position3D) bool {
	return e.mutate(func(b *core.Box) {
		b.Position = core.PositionFromVec(r3.Add(b.Position.Vec(), delta.Vec()))
	})
}

// Resize adds delta to the attached box's scale. Extents never go below minExtent.
func (e *Editor) Resize(delta core.Position3D) bool {
	return e.mutate(func(b *core.Box) {
		s := r3.Add(b.Scale.Vec(), delta.Vec())
		s.X = max(s.X, minExtent)
		s.Y = max(s.Y, minExtent)
		s.Z = max(s.Z, minExtent)
		b.Scale = core.PositionFromVec(s)
	})
}

// Rotate adds delta (radians) to the attached box's rotation.
func (e *Editor) Rotate(delta core.Position3D) bool {
	return e.mutate(func(b *core.Box) {
		b.Rotation = core.PositionFromVec(r3.Add(b.Rotation.Vec(), delta.Vec()))
	})
}

const minExtent = 0.01

func (e *Editor) mutate(fn func(*core.Box)) bool {
	if e.box == nil {
		return false
	}
	fn(e.box)
	e.OnBoxChanged()
	return true
}
