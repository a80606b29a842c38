// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
)

var (
	// ErrSceneNotFound is returned when a scene was never stored.
	ErrSceneNotFound = errors.New("scene not found")

	// ErrUnknownType is returned for an unsupported storage.type setting.
	ErrUnknownType = errors.New("unknown storage type")
)

// Backend is the interface all annotation stores must satisfy.
// Implementations must be safe for concurrent use; loads and saves of different
// frames run in parallel.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Scene catalogue
	SaveScene(ctx context.Context, meta core.SceneMeta) error
	LoadScene(ctx context.Context, scene string) (core.SceneMeta, error)

	// Frame contents. SaveFrame replaces every box of the frame.
	LoadFrame(ctx context.Context, scene, frame string) ([]core.Box, error)
	SaveFrame(ctx context.Context, scene, frame string, boxes []core.Box) error

	// Track access across frames, ordered by frame.
	LoadTrack(ctx context.Context, scene, trackID string) ([]core.Box, error)
	// UpsertBoxes inserts or replaces boxes by ID, leaving the rest of their frames untouched.
	UpsertBoxes(ctx context.Context, boxes []core.Box) error
}

// FrameIndex maps each frame of meta to its position in playback order.
func FrameIndex(meta core.SceneMeta) map[string]int {
	idx := make(map[string]int, len(meta.Frames))
	for i, f := range meta.Frames {
		idx[f] = i
	}
	return idx
}
