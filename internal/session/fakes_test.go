package session

import (
	"testing"

	"github.com/SUSTechPOINTS/boxeditor/internal/editing"
	"github.com/SUSTechPOINTS/boxeditor/internal/editor"
	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
	"github.com/stretchr/testify/require"
)

type fakeWorld struct {
	scene string
	frame string
	boxes map[string]*core.Box
}

func (w *fakeWorld) FrameInfo() core.FrameInfo {
	return core.FrameInfo{Scene: w.scene, Frame: w.frame}
}

func (w *fakeWorld) FindBoxByTrackID(id string) *core.Box { return w.boxes[id] }

func (w *fakeWorld) ReloadAnnotation(done func(error)) { done(nil) }

type fakeData struct {
	worlds     map[string]*fakeWorld
	activation []func(error)
}

func newFakeData() *fakeData {
	return &fakeData{worlds: map[string]*fakeWorld{}}
}

func (d *fakeData) put(scene, frame string, boxes ...*core.Box) *fakeWorld {
	w := d.world(scene, frame)
	for _, b := range boxes {
		w.boxes[b.TrackID] = b
	}
	return w
}

func (d *fakeData) world(scene, frame string) *fakeWorld {
	key := scene + "/" + frame
	w, ok := d.worlds[key]
	if !ok {
		w = &fakeWorld{scene: scene, frame: frame, boxes: map[string]*core.Box{}}
		d.worlds[key] = w
	}
	return w
}

func (d *fakeData) GetWorld(scene, frame string) editor.World { return d.world(scene, frame) }

func (d *fakeData) ActivateWorld(_ editor.World, done func(error)) {
	d.activation = append(d.activation, done)
}

func (d *fakeData) activateAll(err error) {
	pending := d.activation
	d.activation = nil
	for _, done := range pending {
		done(err)
	}
}

type saveCall struct {
	worlds []editor.World
	done   func(error)
}

type fakePersistence struct {
	saves   []saveCall
	reloads []saveCall
	// onReload swaps world contents when a reload completes
	onReload func()
}

func (p *fakePersistence) SaveWorldList(worlds []editor.World, done func(error)) {
	p.saves = append(p.saves, saveCall{worlds: worlds, done: done})
}

func (p *fakePersistence) ReloadWorldList(worlds []editor.World, done func(error)) {
	p.reloads = append(p.reloads, saveCall{worlds: worlds, done: done})
}

func (p *fakePersistence) completeSave(t *testing.T, i int, err error) {
	t.Helper()
	require.Greater(t, len(p.saves), i)
	p.saves[i].done(err)
}

func (p *fakePersistence) completeReload(t *testing.T, i int, err error) {
	t.Helper()
	require.Greater(t, len(p.reloads), i)
	if err == nil && p.onReload != nil {
		p.onReload()
	}
	p.reloads[i].done(err)
}

type transferCall struct {
	scene   string
	trackID string
	opts    core.TransferOptions
	done    func(error)
}

type fakeTransfer struct {
	syncCalls int
	syncBoxes []*core.Box
	calls     []transferCall
	onSync    func(worlds []editor.World, boxes []*core.Box)
}

func (f *fakeTransfer) InterpolateSync(worlds []editor.World, boxes []*core.Box) {
	f.syncCalls++
	f.syncBoxes = boxes
	if f.onSync != nil {
		f.onSync(worlds, boxes)
	}
}

func (f *fakeTransfer) InterpolateSelectedObject(scene, trackID string, opts core.TransferOptions, done func(error)) {
	f.calls = append(f.calls, transferCall{scene: scene, trackID: trackID, opts: opts, done: done})
}

type countingRenderer struct{ n int }

func (r *countingRenderer) Render() { r.n++ }

type fakeViews struct {
	zoom []float64
}

func (v *fakeViews) AttachBox(*core.Box) {}
func (v *fakeViews) OnBoxChanged() {}
func (v *fakeViews) UpdateCameraRange(*core.Box) {}
func (v *fakeViews) UpdateCameraPose(*core.Box) {}
func (v *fakeViews) ViewCount() int { return len(v.zoom) }
func (v *fakeViews) SetZoomRatio(i int, r float64) { v.zoom[i] = r }
func (v *fakeViews) ZoomRatio(i int) float64 { return v.zoom[i] }
func (v *fakeViews) Activate(*core.Box) {}
func (v *fakeViews) UpdateViewHandle() {}
func (v *fakeViews) UpdateFocusedImageContext(*core.Box) {}

type fixture struct {
	m        *Manager
	data     *fakeData
	persist  *fakePersistence
	transfer *fakeTransfer
	renderer *countingRenderer
	ctx      *editing.Context
	errs     []error
	built    int
	// savesAtErr records how many saves were issued when each error was reported
	savesAtErr []int
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		data:     newFakeData(),
		persist:  &fakePersistence{},
		transfer: &fakeTransfer{},
		renderer: &countingRenderer{},
		ctx:      editing.NewContext(),
	}

	m, err := NewManager(cfg, Dependencies{
		Persistence: f.persist,
		Transfer:    f.transfer,
		Renderer:    f.renderer,
		NewViews: func(string) editor.Views {
			f.built++
			v := &fakeViews{zoom: []float64{1, 1, 1}}
			return editor.Views{Box: v, Ops: v, Focus: v}
		},
		Context: f.ctx,
		OnError: func(err error) {
			f.errs = append(f.errs, err)
			f.savesAtErr = append(f.savesAtErr, len(f.persist.saves))
		},
	})
	require.NoError(t, err)
	f.m = m
	return f
}

func zoomOf(e *editor.Editor, i int) float64 {
	return e.Views().Box.ZoomRatio(i)
}
