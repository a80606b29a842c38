package render

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
)

// FocusContext is the region of the camera image worth showing next to the editor.
type FocusContext struct {
	Frame  string
	Center core.Position3D
	// Radius bounds the box in every orientation.
	Radius float64
}

// Focus tracks the image crop around the attached box.
type Focus struct {
	ctx     FocusContext
	updates int
}

// NewFocus creates an empty focus image.
func NewFocus() *Focus {
	return &Focus{}
}

// UpdateFocusedImageContext recenters the crop on box.
func (f *Focus) UpdateFocusedImageContext(box *core.Box) {
	if box == nil {
		return
	}
	f.updates++
	f.ctx = FocusContext{
		Frame:  box.Frame,
		Center: box.Position,
		Radius: r3.Norm(box.Scale.Vec()) / 2,
	}
}

// Context returns the current crop.
func (f *Focus) Context() FocusContext { return f.ctx }

// Updates returns how often the crop was recomputed.
func (f *Focus) Updates() int { return f.updates }
