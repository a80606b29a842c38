package render

import (
	"log/slog"
	"math"

	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
)

// Axis selects a box dimension.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) of(p core.Position3D) float64 {
	switch a {
	case AxisX:
		return p.X
	case AxisY:
		return p.Y
	default:
		return p.Z
	}
}

// projection describes one projective sub-view: which box axes span its image plane.
type projection struct {
	name string
	u, v Axis
}

var projections = []projection{
	{name: "top", u: AxisX, v: AxisY},
	{name: "side", u: AxisX, v: AxisZ},
	{name: "back", u: AxisY, v: AxisZ},
}

// MaxViews is the number of projective sub-views a BoxView can hold.
const MaxViews = 3

// margin is the share of the box extent kept visible around it at zoom 1.
const margin = 0.3

// Camera is the orthographic camera of one sub-view.
type Camera struct {
	Center     core.Position3D
	Yaw        float64
	HalfWidth  float64
	HalfHeight float64
}

// SubView is the state of one projective view.
type SubView struct {
	Name   string
	Zoom   float64
	Camera Camera
}

// BoxView holds the top, side and back views of one editor.
// It is not safe for concurrent use; the loop goroutine owns it.
type BoxView struct {
	editor  string
	log     *slog.Logger
	views   []SubView
	proj    []projection
	box     *core.Box
	changes int
}

// NewBoxView creates count sub-views (at most MaxViews) zoomed to zoom.
func NewBoxView(editor string, count int, zoom float64, logger *slog.Logger) *BoxView {
	if logger == nil {
		logger = slog.Default()
	}
	count = min(max(count, 1), MaxViews)
	if zoom <= 0 {
		zoom = 1
	}

	v := &BoxView{
		editor: editor,
		log:    logger.With("editor", editor),
		proj:   projections[:count],
	}
	for _, p := range v.proj {
		v.views = append(v.views, SubView{Name: p.name, Zoom: zoom})
	}
	return v
}

// AttachBox shows box in every sub-view.
func (v *BoxView) AttachBox(box *core.Box) {
	v.box = box
	v.UpdateCameraRange(box)
	v.UpdateCameraPose(box)
}

// OnBoxChanged re-fits the cameras after an edit of the attached box.
func (v *BoxView) OnBoxChanged() {
	v.changes++
	if v.box == nil {
		return
	}
	v.UpdateCameraRange(v.box)
	v.UpdateCameraPose(v.box)
}

// UpdateCameraRange sizes every camera to the box extent and the view's zoom.
func (v *BoxView) UpdateCameraRange(box *core.Box) {
	if box == nil {
		return
	}
	for i, p := range v.proj {
		w, h := p.u.of(box.Scale)/2, p.v.of(box.Scale)/2
		// square frame so rotating the box never clips it
		half := math.Max(w, h) * (1 + margin) / v.views[i].Zoom
		v.views[i].Camera.HalfWidth = half
		v.views[i].Camera.HalfHeight = half
	}
}

// UpdateCameraPose centers every camera on the box and follows its heading.
func (v *BoxView) UpdateCameraPose(box *core.Box) {
	if box == nil {
		return
	}
	for i := range v.views {
		v.views[i].Camera.Center = box.Position
		v.views[i].Camera.Yaw = box.Rotation.Z
	}
}

// ViewCount returns the number of sub-views.
func (v *BoxView) ViewCount() int { return len(v.views) }

// SetZoomRatio sets the zoom of sub-view i and rescales its camera.
func (v *BoxView) SetZoomRatio(i int, ratio float64) {
	if i < 0 || i >= len(v.views) || ratio <= 0 {
		v.log.Warn("ignoring zoom", "view", i, "ratio", ratio)
		return
	}
	v.views[i].Zoom = ratio
	if v.box != nil {
		v.UpdateCameraRange(v.box)
	}
}

// ZoomRatio returns the zoom of sub-view i, or 0 if there is no such view.
func (v *BoxView) ZoomRatio(i int) float64 {
	if i < 0 || i >= len(v.views) {
		return 0
	}
	return v.views[i].Zoom
}

// SubViews returns a copy of the sub-view states.
func (v *BoxView) SubViews() []SubView {
	out := make([]SubView, len(v.views))
	copy(out, v.views)
	return out
}

// Changes returns how many edits the views have seen.
func (v *BoxView) Changes() int { return v.changes }
