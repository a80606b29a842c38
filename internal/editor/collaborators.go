package editor

import "github.com/SUSTechPOINTS/boxeditor/pkg/core"

// World is one frame's scene snapshot as seen by an editor.
type World interface {
	FrameInfo() core.FrameInfo
	// FindBoxByTrackID returns nil when the object is absent from the frame.
	FindBoxByTrackID(trackID string) *core.Box
	// ReloadAnnotation re-reads the frame's boxes from storage and calls done on the loop.
	ReloadAnnotation(done func(error))
}

// BoxView is the set of projective sub-views (top, side, back) of one editor.
type BoxView interface {
	AttachBox(box *core.Box)
	OnBoxChanged()
	UpdateCameraRange(box *core.Box)
	UpdateCameraPose(box *core.Box)
	ViewCount() int
	SetZoomRatio(viewIndex int, ratio float64)
	ZoomRatio(viewIndex int) float64
}

// ViewOps handles user interaction on the sub-views.
type ViewOps interface {
	Activate(box *core.Box)
	UpdateViewHandle()
}

// FocusImage shows the camera image crop around the attached box.
type FocusImage interface {
	UpdateFocusedImageContext(box *core.Box)
}

// Highlighter marks the edited box in the main view.
type Highlighter interface {
	HighlightBox(box *core.Box)
	UnhighlightBox(box *core.Box)
}

// Renderer repaints every view. Calling it more than once is only a cost.
type Renderer interface {
	Render()
}

// Owner is the pool an editor reports to.
type Owner interface {
	OnBoxChanged(e *Editor)
	UpdateViewZoomRatio(viewIndex int, ratio float64)
}

// Views bundles the per-editor rendering collaborators. They are expensive to build,
// so an editor keeps its Views for its whole lifetime.
type Views struct {
	Box   BoxView
	Ops   ViewOps
	Focus FocusImage
}
