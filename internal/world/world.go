// Package world holds the in-memory annotation state of scene frames and moves it to
// and from storage.
//
// A World is only touched on the loop goroutine. Storage I/O runs on background
// goroutines; its results are installed by a task posted back to the loop, so world
// contents never change underneath a running loop task.
package world

import (
	"slices"

	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
)

// World is the annotation state of one frame.
type World struct {
	info      core.FrameInfo
	store     *Store
	boxes     []*core.Box
	activated bool
	// loadSeq numbers load requests; only the latest one installs its result.
	loadSeq uint64
}

// FrameInfo identifies the frame.
func (w *World) FrameInfo() core.FrameInfo { return w.info }

// Activated reports whether the frame has been loaded from storage.
func (w *World) Activated() bool { return w.activated }

// FindBoxByTrackID returns the box of trackID, or nil if the frame has none.
func (w *World) FindBoxByTrackID(trackID string) *core.Box {
	for _, b := range w.boxes {
		if b.TrackID == trackID {
			return b
		}
	}
	return nil
}

// Boxes returns the frame's boxes. The slice is a copy; the boxes are live.
func (w *World) Boxes() []*core.Box {
	return slices.Clone(w.boxes)
}

// AddBox adds a box created outside storage, e.g. by interpolation.
func (w *World) AddBox(b *core.Box) {
	b.Scene = w.info.Scene
	b.Frame = w.info.Frame
	w.boxes = append(w.boxes, b)
}

// ReloadAnnotation replaces the frame's boxes with the stored ones. done runs on the loop.
func (w *World) ReloadAnnotation(done func(error)) {
	w.store.load([]*World{w}, done)
}

// snapshot copies the boxes for a save.
func (w *World) snapshot() []core.Box {
	out := make([]core.Box, 0, len(w.boxes))
	for _, b := range w.boxes {
		out = append(out, *b.Clone())
	}
	return out
}

// install replaces the boxes with loaded ones and marks the frame activated.
// Boxes with unsaved edits are kept in place of their stored copy.
func (w *World) install(boxes []core.Box) {
	dirty := make(map[string]*core.Box)
	var order []*core.Box
	for _, b := range w.boxes {
		if b.Changed {
			dirty[b.ID] = b
			order = append(order, b)
		}
	}

	w.boxes = make([]*core.Box, 0, len(boxes)+len(dirty))
	for i := range boxes {
		if b, ok := dirty[boxes[i].ID]; ok {
			w.boxes = append(w.boxes, b)
			delete(dirty, b.ID)
			continue
		}
		b := boxes[i]
		w.boxes = append(w.boxes, &b)
	}
	for _, b := range order {
		if _, ok := dirty[b.ID]; ok {
			w.boxes = append(w.boxes, b)
		}
	}
	w.activated = true
}
