// Package editor implements the per-frame box editor and its attach lifecycle.
//
// An editor is bound to a Target, a (world, track id) pair, and attaches the box with
// that track id when the frame contains one. Attachment is exclusive across editors:
// the Registry shared by a pool guarantees a box has at most one owning editor.
package editor

import (
	"log/slog"

	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
)

// State is the attach-lifecycle state of an editor.
type State int

const (
	// Unbound editors have never been given a target.
	Unbound State = iota
	// TargetSet editors have a target but no attached box, e.g. the object is absent from the frame.
	TargetSet
	// Attached editors hold a live box.
	Attached
	// Detached editors were explicitly released.
	Detached
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case TargetSet:
		return "target-set"
	case Attached:
		return "attached"
	case Detached:
		return "detached"
	default:
		return "unknown"
	}
}

// Target is the (world, track id) an editor is asked to follow.
type Target struct {
	World      World
	ObjTrackID string
}

// Dependencies holds everything an editor needs.
type Dependencies struct {
	Name        string
	Owner       Owner
	Registry    *Registry
	Views       Views
	Highlighter Highlighter
	Renderer    Renderer
	Logger      *slog.Logger
}

// Editor edits one tracked object in one frame.
type Editor struct {
	deps   Dependencies
	log    *slog.Logger
	target *Target
	box    *core.Box
	state  State
	shown  bool
	info   string
}

// New creates an unbound, hidden editor.
func New(deps Dependencies) *Editor {
	if deps.Registry == nil {
		deps.Registry = NewRegistry()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{
		deps: deps,
		log:  logger.With("editor", deps.Name),
	}
}

// Name returns the editor's slot name.
func (e *Editor) Name() string { return e.deps.Name }

// Target returns the current target, or nil.
func (e *Editor) Target() *Target { return e.target }

// Box returns the attached box, or nil.
func (e *Editor) Box() *core.Box { return e.box }

// State returns the attach-lifecycle state.
func (e *Editor) State() State { return e.state }

// Shown reports whether the editor is visible.
func (e *Editor) Shown() bool { return e.shown }

// Info returns the caption last computed by UpdateInfo.
func (e *Editor) Info() string { return e.info }

// Views returns the editor's rendering collaborators.
func (e *Editor) Views() Views { return e.deps.Views }

// SetTarget binds the editor to (world, trackID), tries to attach, and shows the editor.
// A frame without a matching box is a normal outcome and leaves the editor empty.
func (e *Editor) SetTarget(world World, trackID string) {
	if e.box != nil {
		e.releaseBox()
	}
	e.target = &Target{World: world, ObjTrackID: trackID}
	e.state = TargetSet

	e.TryAttach()
	e.shown = true
	e.UpdateInfo()
}

// ResetTarget detaches and forgets the target.
func (e *Editor) ResetTarget() {
	e.Detach(false)
	e.target = nil
	e.UpdateInfo()
}

// TryAttach looks up the target's track id in its world and attaches the box if found.
func (e *Editor) TryAttach() {
	if e.target == nil || e.target.World == nil {
		return
	}

	box := e.target.World.FindBoxByTrackID(e.target.ObjTrackID)
	if box == nil {
		e.log.Debug("track not present in frame",
			"frame", e.target.World.FrameInfo().Frame,
			"trackId", e.target.ObjTrackID)
		// the box we held is gone from the world, e.g. deleted by a reload
		if e.box != nil {
			e.releaseBox()
			e.state = TargetSet
			e.UpdateInfo()
		}
		return
	}
	e.AttachBox(box)
}

// AttachBox binds box to this editor. The previous box of this editor, and the previous
// editor of box, are both released before the new binding is made.
func (e *Editor) AttachBox(box *core.Box) {
	if e.box != nil && e.box != box {
		e.log.Debug("detaching previous box", "trackId", e.box.TrackID)
		e.releaseBox()
	}

	if box != nil {
		if prev := e.deps.Registry.Owner(box); prev != nil && prev != e {
			prev.dropBox()
		}

		e.deps.Registry.bind(box, e)
		e.box = box
		e.state = Attached

		if e.deps.Highlighter != nil {
			e.deps.Highlighter.HighlightBox(box)
		}
		e.deps.Views.Box.AttachBox(box)
		e.deps.Views.Ops.Activate(box)
		e.deps.Views.Focus.UpdateFocusedImageContext(box)
		e.UpdateInfo()
	}

	e.shown = true
}

// Detach releases the attached box and hides the editor unless keepVisible is set.
func (e *Editor) Detach(keepVisible bool) {
	if e.box != nil {
		e.releaseBox()
	}
	e.state = Detached

	if !keepVisible {
		e.shown = false
	}
}

// releaseBox drops this editor's hold on its box.
func (e *Editor) releaseBox() {
	e.deps.Registry.release(e.box, e)
	if e.deps.Highlighter != nil {
		e.deps.Highlighter.UnhighlightBox(e.box)
	}
	e.box = nil
}

// dropBox is called when another editor takes over this editor's box.
func (e *Editor) dropBox() {
	e.log.Debug("box taken over by another editor", "trackId", e.box.TrackID)
	e.box = nil
	if e.target != nil {
		e.state = TargetSet
	} else {
		e.state = Detached
	}
	e.UpdateInfo()
}

// OnBoxChanged is called by the sub-views after the user mutated the attached box.
// The box is marked dirty before the owner is told, since the owner's autosave
// decision reads the dirty flag.
func (e *Editor) OnBoxChanged() {
	if e.box == nil {
		return
	}

	e.deps.Views.Ops.UpdateViewHandle()
	e.deps.Views.Focus.UpdateFocusedImageContext(e.box)
	e.deps.Views.Box.OnBoxChanged()

	e.box.MarkEdited()

	if e.deps.Owner != nil {
		e.deps.Owner.OnBoxChanged(e)
	}

	e.UpdateInfo()
}

// Update refreshes every view that depends on the attached box. With skipRender the
// final render is left to the caller, which must render once after its batch.
func (e *Editor) Update(skipRender bool) {
	if e.box == nil {
		return
	}

	e.deps.Views.Ops.UpdateViewHandle()
	e.deps.Views.Box.UpdateCameraRange(e.box)
	e.deps.Views.Box.UpdateCameraPose(e.box)
	if !skipRender && e.deps.Renderer != nil {
		e.deps.Renderer.Render()
	}

	e.deps.Views.Focus.UpdateFocusedImageContext(e.box)
	e.UpdateInfo()
}

// RefreshAnnotation reloads the target world from storage, then reattaches and renders.
// The completion is ignored if the editor was retargeted meanwhile.
func (e *Editor) RefreshAnnotation() {
	if e.target == nil || e.target.World == nil {
		return
	}

	target := e.target
	target.World.ReloadAnnotation(func(err error) {
		if err != nil {
			e.log.Error("reload annotation failed", "frame", target.World.FrameInfo().Frame, "error", err)
			return
		}
		if e.target != target {
			e.log.Debug("discarding reload for previous target")
			return
		}
		e.TryAttach()
		e.Update(false)
	})
}

// SetViewZoomRatio changes the zoom of one sub-view. It does not render.
func (e *Editor) SetViewZoomRatio(viewIndex int, ratio float64) {
	if viewIndex < 0 || viewIndex >= e.deps.Views.Box.ViewCount() {
		return
	}
	e.deps.Views.Box.SetZoomRatio(viewIndex, ratio)
}

// UpdateViewZoomRatio is called by a sub-view when the user zooms it; the owner
// broadcasts the ratio to every editor.
func (e *Editor) UpdateViewZoomRatio(viewIndex int, ratio float64) {
	if e.deps.Owner != nil {
		e.deps.Owner.UpdateViewZoomRatio(viewIndex, ratio)
	}
}

// UpdateInfo recomputes the caption.
func (e *Editor) UpdateInfo() {
	frame := ""
	if e.target != nil && e.target.World != nil {
		frame = e.target.World.FrameInfo().Frame
	}
	e.info = FormatInfo(frame, e.box)
}
