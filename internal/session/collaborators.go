package session

import (
	"github.com/SUSTechPOINTS/boxeditor/internal/editor"
	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
)

// DataSource hands out frame worlds and loads them.
type DataSource interface {
	GetWorld(scene, frame string) editor.World
	// ActivateWorld loads the world if needed and calls done on the loop.
	ActivateWorld(w editor.World, done func(error))
}

// Persistence saves and reloads worlds. Completions run on the loop.
type Persistence interface {
	SaveWorldList(worlds []editor.World, done func(error))
	ReloadWorldList(worlds []editor.World, done func(error))
}

// Transfer propagates an edited track's geometry across frames.
type Transfer interface {
	// InterpolateSync previews propagation on the in-memory boxes. boxes[i] belongs to
	// worlds[i] and may be nil.
	InterpolateSync(worlds []editor.World, boxes []*core.Box)
	// InterpolateSelectedObject propagates the saved state of the track and calls done on the loop.
	InterpolateSelectedObject(scene, trackID string, opts core.TransferOptions, done func(error))
}
