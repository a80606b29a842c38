// internal/storage/memory/memory.go
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/SUSTechPOINTS/boxeditor/internal/config"
	"github.com/SUSTechPOINTS/boxeditor/internal/storage"
	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
)

type frameKey struct {
	scene string
	frame string
}

// Backend keeps annotations in memory and optionally persists them to a JSON export.
type Backend struct {
	cfg config.MemoryConfig

	scenes map[string]core.SceneMeta
	frames map[frameKey][]core.Box

	mu sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		scenes: make(map[string]core.SceneMeta),
		frames: make(map[frameKey][]core.Box),
	}
}

// Init loads a previous export if one exists at the configured path.
func (b *Backend) Init() error {
	if b.cfg.ExportPath == "" {
		return nil
	}
	return b.importJSON(b.cfg.ExportPath)
}

// Close writes the export file if a path is configured.
func (b *Backend) Close() error {
	if b.cfg.ExportPath == "" {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.exportJSON(b.cfg.ExportPath)
}

// SaveScene registers or replaces a scene's frame list.
func (b *Backend) SaveScene(_ context.Context, meta core.SceneMeta) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.scenes[meta.Scene] = core.SceneMeta{Scene: meta.Scene, Frames: slices.Clone(meta.Frames)}
	return nil
}

// LoadScene returns a registered scene.
func (b *Backend) LoadScene(_ context.Context, scene string) (core.SceneMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	meta, ok := b.scenes[scene]
	if !ok {
		return core.SceneMeta{}, fmt.Errorf("%w: %s", storage.ErrSceneNotFound, scene)
	}
	return core.SceneMeta{Scene: meta.Scene, Frames: slices.Clone(meta.Frames)}, nil
}

// LoadFrame returns copies of every box in the frame. An unknown frame is empty.
func (b *Backend) LoadFrame(_ context.Context, scene, frame string) ([]core.Box, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return cloneBoxes(b.frames[frameKey{scene, frame}]), nil
}

// SaveFrame replaces the frame's boxes.
func (b *Backend) SaveFrame(_ context.Context, scene, frame string, boxes []core.Box) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := cloneBoxes(boxes)
	for i := range stored {
		stored[i].Scene = scene
		stored[i].Frame = frame
	}
	b.frames[frameKey{scene, frame}] = stored
	return nil
}

// LoadTrack returns every box of trackID in the scene, ordered by frame.
func (b *Backend) LoadTrack(_ context.Context, scene, trackID string) ([]core.Box, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []core.Box
	for key, boxes := range b.frames {
		if key.scene != scene {
			continue
		}
		for _, box := range boxes {
			if box.TrackID == trackID {
				out = append(out, cloneBox(box))
			}
		}
	}
	slices.SortFunc(out, func(a, b core.Box) int { return cmp.Compare(a.Frame, b.Frame) })
	return out, nil
}

// UpsertBoxes replaces boxes with the same ID in their frame, appending the rest.
func (b *Backend) UpsertBoxes(_ context.Context, boxes []core.Box) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, box := range boxes {
		key := frameKey{box.Scene, box.Frame}
		frame := b.frames[key]
		i := slices.IndexFunc(frame, func(x core.Box) bool { return x.ID == box.ID })
		if i >= 0 {
			frame[i] = cloneBox(box)
		} else {
			frame = append(frame, cloneBox(box))
		}
		b.frames[key] = frame
	}
	return nil
}

func cloneBox(b core.Box) core.Box {
	b.Changed = false
	b.Revision = 0
	return *b.Clone()
}

func cloneBoxes(boxes []core.Box) []core.Box {
	if len(boxes) == 0 {
		return nil
	}
	out := make([]core.Box, len(boxes))
	for i, b := range boxes {
		out[i] = cloneBox(b)
	}
	return out
}
