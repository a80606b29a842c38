package boxop

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/SUSTechPOINTS/boxeditor/internal/config"
	"github.com/SUSTechPOINTS/boxeditor/internal/editor"
	"github.com/SUSTechPOINTS/boxeditor/internal/loop"
	"github.com/SUSTechPOINTS/boxeditor/internal/session"
	"github.com/SUSTechPOINTS/boxeditor/internal/storage/memory"
	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface checks
var (
	_ session.Transfer   = (*BoxOp)(nil)
	_ editor.Highlighter = (*Highlighter)(nil)
)

func key(frame string, x float64) *core.Box {
	return &core.Box{
		ID:       "k" + frame,
		Scene:    "example",
		Frame:    frame,
		TrackID:  "t1",
		ObjType:  "Car",
		Position: core.Position3D{X: x},
		Scale:    core.Position3D{X: 4, Y: 2, Z: 1},
	}
}

func auto(frame string, x float64) *core.Box {
	b := key(frame, x)
	b.ID = "a" + frame
	b.Annotator = "detector"
	return b
}

func TestInterpolateSlots_Linear(t *testing.T) {
	a := key("0", 0)
	b := key("4", 8)
	b.Scale = core.Position3D{X: 8, Y: 2, Z: 1}

	out := interpolateSlots([]*core.Box{a, nil, auto("2", 100), nil, b})

	require.Len(t, out, 3)
	assert.InDelta(t, 2.0, out[1].Position.X, 1e-9)
	assert.InDelta(t, 4.0, out[2].Position.X, 1e-9)
	assert.InDelta(t, 6.0, out[3].Position.X, 1e-9)
	assert.InDelta(t, 6.0, out[2].Scale.X, 1e-9)
}

func TestInterpolateSlots_OutsideKeyframesUntouched(t *testing.T) {
	out := interpolateSlots([]*core.Box{auto("0", 1), key("1", 0), nil, key("3", 2), auto("4", 9)})

	require.Len(t, out, 1)
	_, ok := out[2]
	assert.True(t, ok)
}

func TestInterpolateSlots_NeedsTwoKeyframes(t *testing.T) {
	assert.Empty(t, interpolateSlots([]*core.Box{key("0", 0), nil, auto("2", 1)}))
	assert.Empty(t, interpolateSlots(nil))
}

func TestLerpAngle_ShortestArc(t *testing.T) {
	got := lerpAngle(math.Pi-0.1, -math.Pi+0.1, 0.5)
	assert.InDelta(t, math.Pi, math.Abs(got), 1e-9)

	assert.InDelta(t, 0.5, lerpAngle(0, 1, 0.5), 1e-9)
}

type fakeWorld struct {
	frame string
	added []*core.Box
}

func (w *fakeWorld) FrameInfo() core.FrameInfo { return core.FrameInfo{Scene: "example", Frame: w.frame} }
func (w *fakeWorld) FindBoxByTrackID(string) *core.Box { return nil }
func (w *fakeWorld) ReloadAnnotation(done func(error)) { done(nil) }
func (w *fakeWorld) AddBox(b *core.Box) { w.added = append(w.added, b) }

func TestInterpolateSync(t *testing.T) {
	worlds := []editor.World{&fakeWorld{frame: "0"}, &fakeWorld{frame: "1"}, &fakeWorld{frame: "2"}, &fakeWorld{frame: "3"}}
	mid := auto("1", 50)
	boxes := []*core.Box{key("0", 0), mid, nil, key("3", 3)}

	op := New(context.Background(), Dependencies{Preview: core.TransferOptions{CreateMissing: true}})
	op.InterpolateSync(worlds, boxes)

	assert.InDelta(t, 1.0, mid.Position.X, 1e-9)
	assert.Equal(t, Interpolated, mid.Annotator)
	assert.False(t, mid.Changed)

	added := worlds[2].(*fakeWorld).added
	require.Len(t, added, 1)
	assert.InDelta(t, 2.0, added[0].Position.X, 1e-9)
	assert.Equal(t, "t1", added[0].TrackID)
	assert.Equal(t, Interpolated, added[0].Annotator)
	assert.NotEqual(t, "k0", added[0].ID)
	assert.False(t, added[0].Changed)
}

func TestInterpolateSync_NoCreate(t *testing.T) {
	w := &fakeWorld{frame: "1"}
	op := New(context.Background(), Dependencies{})

	op.InterpolateSync([]editor.World{&fakeWorld{frame: "0"}, w, &fakeWorld{frame: "2"}}, []*core.Box{key("0", 0), nil, key("2", 2)})

	assert.Empty(t, w.added)
}

func commitHarness(t *testing.T) (*memory.Backend, *loop.Loop, *BoxOp) {
	t.Helper()
	backend := memory.New(config.MemoryConfig{})
	l := loop.New(nil)
	return backend, l, New(context.Background(), Dependencies{Backend: backend, Loop: l})
}

func waitDone(t *testing.T, l *loop.Loop, done *bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		l.RunPending()
		return *done
	}, 2*time.Second, time.Millisecond)
}

func TestInterpolateSelectedObject(t *testing.T) {
	backend, l, op := commitHarness(t)
	ctx := context.Background()

	require.NoError(t, backend.SaveScene(ctx, core.SceneMeta{Scene: "example", Frames: []string{"000", "001", "002", "003", "004"}}))
	require.NoError(t, backend.SaveFrame(ctx, "example", "000", []core.Box{*key("000", 0)}))
	require.NoError(t, backend.SaveFrame(ctx, "example", "001", []core.Box{*auto("001", 40)}))
	require.NoError(t, backend.SaveFrame(ctx, "example", "003", []core.Box{*key("003", 6)}))
	require.NoError(t, backend.SaveFrame(ctx, "example", "004", []core.Box{*auto("004", 99)}))

	var got error
	finished := false
	op.InterpolateSelectedObject("example", "t1", core.TransferOptions{CreateMissing: true}, func(err error) {
		got = err
		finished = true
	})
	waitDone(t, l, &finished)
	require.NoError(t, got)

	track, err := backend.LoadTrack(ctx, "example", "t1")
	require.NoError(t, err)
	require.Len(t, track, 5)

	assert.InDelta(t, 2.0, track[1].Position.X, 1e-9)
	assert.Equal(t, Interpolated, track[1].Annotator)
	assert.Equal(t, "002", track[2].Frame)
	assert.InDelta(t, 4.0, track[2].Position.X, 1e-9)
	assert.Equal(t, Interpolated, track[2].Annotator)
	// outside the keyframe range
	assert.InDelta(t, 99.0, track[4].Position.X, 1e-9)
	assert.Equal(t, "detector", track[4].Annotator)
}

func TestInterpolateSelectedObject_NoCreateMissing(t *testing.T) {
	backend, l, op := commitHarness(t)
	ctx := context.Background()

	require.NoError(t, backend.SaveScene(ctx, core.SceneMeta{Scene: "example", Frames: []string{"000", "001", "002"}}))
	require.NoError(t, backend.SaveFrame(ctx, "example", "000", []core.Box{*key("000", 0)}))
	require.NoError(t, backend.SaveFrame(ctx, "example", "002", []core.Box{*key("002", 2)}))

	finished := false
	op.InterpolateSelectedObject("example", "t1", core.TransferOptions{}, func(err error) {
		assert.NoError(t, err)
		finished = true
	})
	waitDone(t, l, &finished)

	empty, err := backend.LoadFrame(ctx, "example", "001")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestInterpolateSelectedObject_UnknownSceneUsesTrackFrames(t *testing.T) {
	backend, l, op := commitHarness(t)
	ctx := context.Background()

	require.NoError(t, backend.SaveFrame(ctx, "example", "000", []core.Box{*key("000", 0)}))
	require.NoError(t, backend.SaveFrame(ctx, "example", "005", []core.Box{*auto("005", 7)}))
	require.NoError(t, backend.SaveFrame(ctx, "example", "010", []core.Box{*key("010", 10)}))

	finished := false
	op.InterpolateSelectedObject("example", "t1", core.TransferOptions{CreateMissing: true}, func(err error) {
		assert.NoError(t, err)
		finished = true
	})
	waitDone(t, l, &finished)

	mid, err := backend.LoadFrame(ctx, "example", "005")
	require.NoError(t, err)
	require.Len(t, mid, 1)
	assert.InDelta(t, 5.0, mid[0].Position.X, 1e-9)
}

func TestHighlighter(t *testing.T) {
	h := NewHighlighter()
	a, b := key("0", 0), key("1", 1)

	h.HighlightBox(a)
	h.HighlightBox(b)
	h.HighlightBox(nil)
	assert.Equal(t, 2, h.Len())
	assert.True(t, h.Highlighted(a))

	h.UnhighlightBox(a)
	h.UnhighlightBox(nil)
	assert.False(t, h.Highlighted(a))
	assert.Equal(t, 1, h.Len())
}
