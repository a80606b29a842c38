// Package boxop propagates a track's keyframes across the frames of a scene.
//
// A keyframe is a box whose Annotator is empty, i.e. one placed or confirmed by a
// human. Boxes between two keyframes are linearly interpolated and tagged with the
// Interpolated annotator so a later human edit turns them into keyframes.
package boxop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SUSTechPOINTS/boxeditor/internal/editor"
	"github.com/SUSTechPOINTS/boxeditor/internal/storage"
	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Interpolated is the annotator recorded on boxes produced by interpolation.
const Interpolated = "interpolation"

// Poster schedules a function on the loop goroutine.
type Poster interface {
	Post(fn func())
}

// boxAdder is implemented by worlds that accept new boxes.
type boxAdder interface {
	AddBox(b *core.Box)
}

// Dependencies holds the collaborators of BoxOp.
type Dependencies struct {
	Backend storage.Backend
	Loop    Poster
	Logger  *slog.Logger
	// Preview configures InterpolateSync.
	Preview core.TransferOptions
}

// BoxOp runs interpolation in memory for previews and against storage for commits.
type BoxOp struct {
	deps Dependencies
	log  *slog.Logger
	ctx  context.Context
}

// New creates a BoxOp. ctx bounds its storage calls.
func New(ctx context.Context, deps Dependencies) *BoxOp {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &BoxOp{deps: deps, log: logger, ctx: ctx}
}

// InterpolateSync interpolates in memory across parallel slices of worlds and boxes
// in frame order. A nil box marks a frame without the track; with Preview.CreateMissing
// a box is added to that frame's world. Nothing is marked changed or persisted.
// It must be called on the loop goroutine.
func (o *BoxOp) InterpolateSync(worlds []editor.World, boxes []*core.Box) {
	planned := interpolateSlots(boxes)
	if len(planned) == 0 {
		return
	}

	proto := firstKeyframe(boxes)
	updated, created := 0, 0
	for i, g := range planned {
		if b := boxes[i]; b != nil {
			g.applyTo(b)
			b.Annotator = Interpolated
			updated++
			continue
		}
		if !o.deps.Preview.CreateMissing || i >= len(worlds) {
			continue
		}
		adder, ok := worlds[i].(boxAdder)
		if !ok {
			continue
		}
		nb := newInterpolatedBox(proto, g)
		adder.AddBox(nb)
		created++
	}

	o.log.Debug("interpolated preview", "trackId", proto.TrackID, "updated", updated, "created", created)
}

// InterpolateSelectedObject interpolates the stored boxes of trackID across every frame
// of the scene and writes the result back. done runs on the loop.
func (o *BoxOp) InterpolateSelectedObject(scene, trackID string, opts core.TransferOptions, done func(error)) {
	go func() {
		err := o.commit(o.ctx, scene, trackID, opts)
		o.deps.Loop.Post(func() { done(err) })
	}()
}

func (o *BoxOp) commit(ctx context.Context, scene, trackID string, opts core.TransferOptions) error {
	var (
		meta  core.SceneMeta
		track []core.Box
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := o.deps.Backend.LoadScene(gctx, scene)
		if errors.Is(err, storage.ErrSceneNotFound) {
			return nil
		}
		meta = m
		return err
	})
	g.Go(func() error {
		t, err := o.deps.Backend.LoadTrack(gctx, scene, trackID)
		track = t
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("loading track %s: %w", trackID, err)
	}

	frames := meta.Frames
	if len(frames) == 0 {
		// unknown scene: only the frames that hold the track take part
		for _, b := range track {
			frames = append(frames, b.Frame)
		}
	}

	index := storage.FrameIndex(core.SceneMeta{Scene: scene, Frames: frames})
	slots := make([]*core.Box, len(frames))
	for i := range track {
		if at, ok := index[track[i].Frame]; ok {
			slots[at] = &track[i]
		}
	}

	planned := interpolateSlots(slots)
	if len(planned) == 0 {
		o.log.Debug("nothing to interpolate", "scene", scene, "trackId", trackID)
		return nil
	}

	proto := firstKeyframe(slots)
	out := make([]core.Box, 0, len(planned))
	for i, geo := range planned {
		if b := slots[i]; b != nil {
			geo.applyTo(b)
			b.Annotator = Interpolated
			out = append(out, *b)
			continue
		}
		if !opts.CreateMissing {
			continue
		}
		nb := newInterpolatedBox(proto, geo)
		nb.Scene = scene
		nb.Frame = frames[i]
		out = append(out, *nb)
	}

	if err := o.deps.Backend.UpsertBoxes(ctx, out); err != nil {
		return fmt.Errorf("writing track %s: %w", trackID, err)
	}
	o.log.Info("interpolated track", "scene", scene, "trackId", trackID, "boxes", len(out))
	return nil
}

func firstKeyframe(slots []*core.Box) *core.Box {
	for _, b := range slots {
		if IsKeyframe(b) {
			return b
		}
	}
	return nil
}

func newInterpolatedBox(proto *core.Box, g geometry) *core.Box {
	nb := proto.Clone()
	nb.ID = uuid.NewString()
	nb.Annotator = Interpolated
	nb.Changed = false
	nb.Revision = 0
	g.applyTo(nb)
	return nb
}
