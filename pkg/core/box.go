// pkg/core/box.go
package core

import (
	"maps"

	"gonum.org/v1/gonum/spatial/r3"
)

// Position3D is a point or extent in the lidar frame of a scene.
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec converts the position to a gonum vector.
func (p Position3D) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// PositionFromVec converts a gonum vector back to a Position3D.
func PositionFromVec(v r3.Vec) Position3D {
	return Position3D{X: v.X, Y: v.Y, Z: v.Z}
}

// Box is one 3D annotation of a tracked object in a single frame.
type Box struct {
	ID       string     `json:"id"`
	Scene    string     `json:"scene"`
	Frame    string     `json:"frame"`
	TrackID  string     `json:"trackId"`
	ObjType  string     `json:"objType"`
	Position Position3D `json:"position"`
	Scale    Position3D `json:"scale"`
	Rotation Position3D `json:"rotation"`

	// Annotator names the automatic source that produced the box.
	// Empty once a human has edited it.
	Annotator string `json:"annotator,omitempty"`

	// Changed is set by a human edit and cleared after the owning world is saved.
	Changed bool `json:"-"`

	// Revision counts human edits. Savers compare it to detect edits made while a save was running.
	Revision uint64 `json:"-"`

	Attrs map[string]string `json:"attrs,omitempty"`
}

// MarkEdited records a human edit: provenance is erased and the box becomes dirty.
// There is no inverse; automatic provenance only comes back by re-running its source.
func (b *Box) MarkEdited() {
	b.Annotator = ""
	b.Changed = true
	b.Revision++
}

// Clone returns a deep copy of the box.
func (b *Box) Clone() *Box {
	c := *b
	if b.Attrs != nil {
		c.Attrs = maps.Clone(b.Attrs)
	}
	return &c
}
