package editor

import (
	"errors"
	"testing"

	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorld struct {
	frame   string
	boxes   map[string]*core.Box
	reloads int
	// reloaded replaces boxes on the next reload
	reloaded  map[string]*core.Box
	reloadErr error
	pending   []func(error)
}

func (w *fakeWorld) FrameInfo() core.FrameInfo {
	return core.FrameInfo{Scene: "s1", Frame: w.frame}
}

func (w *fakeWorld) FindBoxByTrackID(id string) *core.Box {
	return w.boxes[id]
}

func (w *fakeWorld) ReloadAnnotation(done func(error)) {
	w.reloads++
	w.pending = append(w.pending, done)
}

func (w *fakeWorld) complete() {
	for _, done := range w.pending {
		if w.reloadErr == nil && w.reloaded != nil {
			w.boxes = w.reloaded
		}
		done(w.reloadErr)
	}
	w.pending = nil
}

type fakeViews struct {
	attached     []*core.Box
	activated    int
	handles      int
	focus        int
	changed      int
	cameraRanges int
	cameraPoses  int
	zoom         []float64
}

func newFakeViews() *fakeViews {
	return &fakeViews{zoom: []float64{1, 1, 1}}
}

func (v *fakeViews) AttachBox(b *core.Box) { v.attached = append(v.attached, b) }
func (v *fakeViews) OnBoxChanged() { v.changed++ }
func (v *fakeViews) UpdateCameraRange(*core.Box) { v.cameraRanges++ }
func (v *fakeViews) UpdateCameraPose(*core.Box) { v.cameraPoses++ }
func (v *fakeViews) ViewCount() int { return len(v.zoom) }
func (v *fakeViews) SetZoomRatio(i int, r float64) { v.zoom[i] = r }
func (v *fakeViews) ZoomRatio(i int) float64 { return v.zoom[i] }
func (v *fakeViews) Activate(*core.Box) { v.activated++ }
func (v *fakeViews) UpdateViewHandle() { v.handles++ }
func (v *fakeViews) UpdateFocusedImageContext(*core.Box) { v.focus++ }

type fakeHighlighter struct {
	lit map[*core.Box]bool
}

func (h *fakeHighlighter) HighlightBox(b *core.Box) { h.lit[b] = true }
func (h *fakeHighlighter) UnhighlightBox(b *core.Box) { delete(h.lit, b) }

type countingRenderer struct{ n int }

func (r *countingRenderer) Render() { r.n++ }

type fakeOwner struct {
	changed      []*Editor
	changedDirty []bool
	zooms        [][2]float64
}

func (o *fakeOwner) OnBoxChanged(e *Editor) {
	o.changed = append(o.changed, e)
	o.changedDirty = append(o.changedDirty, e.Box().Changed)
}

func (o *fakeOwner) UpdateViewZoomRatio(i int, r float64) {
	o.zooms = append(o.zooms, [2]float64{float64(i), r})
}

type harness struct {
	reg      *Registry
	owner    *fakeOwner
	hl       *fakeHighlighter
	renderer *countingRenderer
}

func newHarness() *harness {
	return &harness{
		reg:      NewRegistry(),
		owner:    &fakeOwner{},
		hl:       &fakeHighlighter{lit: map[*core.Box]bool{}},
		renderer: &countingRenderer{},
	}
}

func (h *harness) newEditor(name string) (*Editor, *fakeViews) {
	v := newFakeViews()
	e := New(Dependencies{
		Name:        name,
		Owner:       h.owner,
		Registry:    h.reg,
		Views:       Views{Box: v, Ops: v, Focus: v},
		Highlighter: h.hl,
		Renderer:    h.renderer,
	})
	return e, v
}

func worldWith(frame string, boxes ...*core.Box) *fakeWorld {
	w := &fakeWorld{frame: frame, boxes: map[string]*core.Box{}}
	for _, b := range boxes {
		w.boxes[b.TrackID] = b
	}
	return w
}

func TestNew_IsUnboundAndHidden(t *testing.T) {
	h := newHarness()
	e, _ := h.newEditor("0")

	assert.Equal(t, Unbound, e.State())
	assert.False(t, e.Shown())
	assert.Nil(t, e.Box())
	assert.Nil(t, e.Target())
}

func TestSetTarget_AttachesMatchingBox(t *testing.T) {
	h := newHarness()
	e, v := h.newEditor("0")
	box := &core.Box{TrackID: "t42", Annotator: "auto"}

	e.SetTarget(worldWith("000010", box), "t42")

	assert.Equal(t, Attached, e.State())
	assert.Same(t, box, e.Box())
	assert.Same(t, e, h.reg.Owner(box))
	assert.True(t, e.Shown())
	assert.True(t, h.hl.lit[box])
	assert.Equal(t, []*core.Box{box}, v.attached)
	assert.Equal(t, 1, v.activated)
	assert.Equal(t, "000010,auto", e.Info())
}

func TestSetTarget_MissingBoxIsNotAnError(t *testing.T) {
	h := newHarness()
	e, v := h.newEditor("0")

	e.SetTarget(worldWith("000011"), "t42")

	assert.Equal(t, TargetSet, e.State())
	assert.Nil(t, e.Box())
	assert.True(t, e.Shown(), "empty editor is still shown")
	assert.Empty(t, v.attached)
	assert.Equal(t, "000011", e.Info())
}

func TestAttachBox_ExclusiveOwnership(t *testing.T) {
	h := newHarness()
	a, _ := h.newEditor("a")
	b, _ := h.newEditor("b")
	box := &core.Box{TrackID: "t1"}
	w := worldWith("1", box)

	a.SetTarget(w, "t1")
	require.Same(t, box, a.Box())

	b.AttachBox(box)

	assert.Same(t, b, h.reg.Owner(box))
	assert.Same(t, box, b.Box())
	assert.Nil(t, a.Box(), "previous editor no longer references the box")
	assert.Equal(t, TargetSet, a.State())
	assert.Equal(t, 1, h.reg.Len())
}

func TestAttachBox_ReleasesPreviousBoxFirst(t *testing.T) {
	h := newHarness()
	e, _ := h.newEditor("0")
	first := &core.Box{TrackID: "t1"}
	second := &core.Box{TrackID: "t2"}

	e.AttachBox(first)
	e.AttachBox(second)

	assert.Nil(t, h.reg.Owner(first))
	assert.False(t, h.hl.lit[first])
	assert.Same(t, e, h.reg.Owner(second))
	assert.Same(t, second, e.Box())
}

func TestAttachBox_SameBoxTwice(t *testing.T) {
	h := newHarness()
	e, _ := h.newEditor("0")
	box := &core.Box{TrackID: "t1"}

	e.AttachBox(box)
	e.AttachBox(box)

	assert.Same(t, e, h.reg.Owner(box))
	assert.True(t, h.hl.lit[box])
}

func TestDetach(t *testing.T) {
	h := newHarness()
	e, _ := h.newEditor("0")
	box := &core.Box{TrackID: "t1"}
	e.SetTarget(worldWith("1", box), "t1")

	e.Detach(false)

	assert.Nil(t, e.Box())
	assert.Nil(t, h.reg.Owner(box))
	assert.False(t, h.hl.lit[box])
	assert.False(t, e.Shown())
	assert.Equal(t, Detached, e.State())
	assert.NotNil(t, e.Target(), "detach keeps the target")
}

func TestDetach_KeepVisible(t *testing.T) {
	h := newHarness()
	e, _ := h.newEditor("0")
	e.SetTarget(worldWith("1", &core.Box{TrackID: "t1"}), "t1")

	e.Detach(true)

	assert.True(t, e.Shown())
	assert.Nil(t, e.Box())
}

func TestResetTarget(t *testing.T) {
	h := newHarness()
	e, _ := h.newEditor("0")
	box := &core.Box{TrackID: "t1"}
	e.SetTarget(worldWith("1", box), "t1")

	e.ResetTarget()

	assert.Nil(t, e.Target())
	assert.Nil(t, e.Box())
	assert.False(t, e.Shown())
	assert.Equal(t, Detached, e.State())
	assert.Equal(t, "", e.Info())

	// no target: attach attempts are no-ops
	e.TryAttach()
	assert.Nil(t, e.Box())
}

func TestOnBoxChanged_MarksDirtyBeforeNotifyingOwner(t *testing.T) {
	h := newHarness()
	e, v := h.newEditor("0")
	box := &core.Box{TrackID: "t1", Annotator: "auto"}
	e.SetTarget(worldWith("7", box), "t1")

	e.OnBoxChanged()

	assert.True(t, box.Changed)
	assert.Empty(t, box.Annotator)
	require.Len(t, h.owner.changed, 1)
	assert.Same(t, e, h.owner.changed[0])
	assert.True(t, h.owner.changedDirty[0], "owner sees the dirty flag already set")
	assert.Equal(t, 1, v.changed)
	assert.Equal(t, "7 *", e.Info())

	e.OnBoxChanged()
	assert.True(t, box.Changed)
	assert.Len(t, h.owner.changed, 2)
}

func TestOnBoxChanged_NoBoxIsNoop(t *testing.T) {
	h := newHarness()
	e, _ := h.newEditor("0")

	e.OnBoxChanged()

	assert.Empty(t, h.owner.changed)
}

func TestUpdate(t *testing.T) {
	h := newHarness()
	e, v := h.newEditor("0")

	e.Update(false)
	assert.Equal(t, 0, h.renderer.n, "no box: no-op")

	e.SetTarget(worldWith("1", &core.Box{TrackID: "t1"}), "t1")

	e.Update(true)
	assert.Equal(t, 0, h.renderer.n)
	assert.Equal(t, 1, v.cameraRanges)
	assert.Equal(t, 1, v.cameraPoses)

	e.Update(false)
	assert.Equal(t, 1, h.renderer.n)
}

func TestRefreshAnnotation_ReattachesReloadedBox(t *testing.T) {
	h := newHarness()
	e, _ := h.newEditor("0")
	old := &core.Box{TrackID: "t1"}
	w := worldWith("1", old)
	e.SetTarget(w, "t1")

	fresh := &core.Box{TrackID: "t1", Annotator: "interp"}
	w.reloaded = map[string]*core.Box{"t1": fresh}

	e.RefreshAnnotation()
	assert.Same(t, old, e.Box(), "nothing changes before the reload completes")

	w.complete()

	assert.Same(t, fresh, e.Box())
	assert.Nil(t, h.reg.Owner(old))
	assert.Equal(t, 1, h.renderer.n)
}

func TestRefreshAnnotation_StaleTargetDiscarded(t *testing.T) {
	h := newHarness()
	e, _ := h.newEditor("0")
	w1 := worldWith("1", &core.Box{TrackID: "t1"})
	e.SetTarget(w1, "t1")
	e.RefreshAnnotation()

	other := &core.Box{TrackID: "t1"}
	w2 := worldWith("2", other)
	e.SetTarget(w2, "t1")

	w1.reloaded = map[string]*core.Box{"t1": {TrackID: "t1"}}
	w1.complete()

	assert.Same(t, other, e.Box())
	assert.Equal(t, 0, h.renderer.n)
}

func TestRefreshAnnotation_ErrorLeavesStateAlone(t *testing.T) {
	h := newHarness()
	e, _ := h.newEditor("0")
	box := &core.Box{TrackID: "t1"}
	w := worldWith("1", box)
	e.SetTarget(w, "t1")

	w.reloadErr = errors.New("disk gone")
	e.RefreshAnnotation()
	w.complete()

	assert.Same(t, box, e.Box())
	assert.Equal(t, 0, h.renderer.n)
}

func TestZoom(t *testing.T) {
	h := newHarness()
	e, v := h.newEditor("0")

	e.SetViewZoomRatio(1, 2.5)
	assert.Equal(t, 2.5, v.ZoomRatio(1))
	assert.Equal(t, 0, h.renderer.n, "local zoom never renders")

	e.SetViewZoomRatio(9, 3) // out of range is ignored
	e.SetViewZoomRatio(-1, 3)

	e.UpdateViewZoomRatio(0, 1.5)
	assert.Equal(t, [][2]float64{{0, 1.5}}, h.owner.zooms)
}

func TestTranslate(t *testing.T) {
	h := newHarness()
	e, _ := h.newEditor("0")

	assert.False(t, e.Translate(core.Position3D{X: 1}))

	box := &core.Box{TrackID: "t1", Position: core.Position3D{X: 1, Y: 1}}
	e.SetTarget(worldWith("1", box), "t1")

	assert.True(t, e.Translate(core.Position3D{X: 1, Z: 2}))
	assert.Equal(t, core.Position3D{X: 2, Y: 1, Z: 2}, box.Position)
	assert.True(t, box.Changed)
	assert.Len(t, h.owner.changed, 1)
}

func TestResize_ClampsExtent(t *testing.T) {
	h := newHarness()
	e, _ := h.newEditor("0")
	box := &core.Box{TrackID: "t1", Scale: core.Position3D{X: 1, Y: 1, Z: 1}}
	e.SetTarget(worldWith("1", box), "t1")

	e.Resize(core.Position3D{X: -5, Y: 0.5})

	assert.Equal(t, minExtent, box.Scale.X)
	assert.Equal(t, 1.5, box.Scale.Y)
}

func TestRotate(t *testing.T) {
	h := newHarness()
	e, _ := h.newEditor("0")
	box := &core.Box{TrackID: "t1"}
	e.SetTarget(worldWith("1", box), "t1")

	e.Rotate(core.Position3D{Z: 0.5})
	assert.Equal(t, 0.5, box.Rotation.Z)
}

func TestFormatInfo(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		box   *core.Box
		want  string
	}{
		{"no box", "000001", nil, "000001"},
		{"clean auto box", "000001", &core.Box{Annotator: "pointpillars"}, "000001,pointpillars"},
		{"dirty human box", "000002", &core.Box{Changed: true}, "000002 *"},
		{"dirty with annotator", "3", &core.Box{Annotator: "a", Changed: true}, "3,a *"},
		{"no frame", "", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatInfo(tt.frame, tt.box))
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unbound", Unbound.String())
	assert.Equal(t, "target-set", TargetSet.String())
	assert.Equal(t, "attached", Attached.String())
	assert.Equal(t, "detached", Detached.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestTryAttach_MissReleasesStaleBox(t *testing.T) {
	h := newHarness()
	e, _ := h.newEditor("0")
	box := &core.Box{TrackID: "t1"}
	w := worldWith("1", box)
	e.SetTarget(w, "t1")

	delete(w.boxes, "t1")
	e.TryAttach()

	assert.Nil(t, e.Box())
	assert.Nil(t, h.reg.Owner(box))
	assert.Equal(t, TargetSet, e.State())
}
