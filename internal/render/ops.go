package render

import (
	"math"

	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
)

// Handle is a drag handle in a sub-view's image plane, relative to the camera center.
type Handle struct {
	U, V float64
}

// Ops places the drag handles of the attached box in each sub-view.
type Ops struct {
	view    *BoxView
	box     *core.Box
	handles [][4]Handle
}

// NewOps creates the interaction layer of view.
func NewOps(view *BoxView) *Ops {
	return &Ops{view: view}
}

// Activate binds the handles to box.
func (o *Ops) Activate(box *core.Box) {
	o.box = box
	o.UpdateViewHandle()
}

// UpdateViewHandle recomputes the corner handles from the box geometry.
// The top view carries the heading; the side and back views are axis aligned.
func (o *Ops) UpdateViewHandle() {
	if o.box == nil {
		o.handles = nil
		return
	}

	o.handles = o.handles[:0]
	for i, p := range o.view.proj {
		w, h := p.u.of(o.box.Scale)/2, p.v.of(o.box.Scale)/2
		yaw := 0.0
		if i == 0 {
			yaw = o.box.Rotation.Z
		}
		o.handles = append(o.handles, corners(w, h, yaw))
	}
}

// Handles returns the corner handles of sub-view i.
func (o *Ops) Handles(i int) ([4]Handle, bool) {
	if i < 0 || i >= len(o.handles) {
		return [4]Handle{}, false
	}
	return o.handles[i], true
}

func corners(w, h, yaw float64) [4]Handle {
	sin, cos := math.Sincos(yaw)
	rot := func(u, v float64) Handle {
		return Handle{U: u*cos - v*sin, V: u*sin + v*cos}
	}
	return [4]Handle{rot(-w, -h), rot(w, -h), rot(w, h), rot(-w, h)}
}
