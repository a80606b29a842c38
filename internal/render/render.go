// Package render is the headless view layer of the box editor.
//
// Each editor owns a BoxView with up to three orthographic sub-views (top, side, back),
// an Ops layer with the drag handles and a Focus image crop. The Renderer repaints all
// of them; it keeps no pixels, only the camera state a frontend would draw from.
package render

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/SUSTechPOINTS/boxeditor/internal/config"
	"github.com/SUSTechPOINTS/boxeditor/internal/editor"
)

// Renderer repaints every registered editor view.
type Renderer struct {
	log    *slog.Logger
	frames atomic.Uint64

	mu    sync.RWMutex
	views map[string]*BoxView
	order []string
}

// NewRenderer creates a renderer with no views.
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		log:   logger,
		views: make(map[string]*BoxView),
	}
}

// Render repaints once.
func (r *Renderer) Render() {
	n := r.frames.Add(1)
	r.log.Debug("render", "frame", n, "views", r.Len())
}

// Frames returns the number of renders so far.
func (r *Renderer) Frames() uint64 {
	return r.frames.Load()
}

// Len returns the number of registered views.
func (r *Renderer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// View returns the BoxView of an editor slot.
func (r *Renderer) View(name string) (*BoxView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.views[name]
	return v, ok
}

func (r *Renderer) register(name string, v *BoxView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.views[name]; !ok {
		r.order = append(r.order, name)
	}
	r.views[name] = v
}

// NewViews returns a factory building the views of a new editor slot from cfg.
// Every built view is registered with r.
func (r *Renderer) NewViews(cfg config.EditorConfig) func(name string) editor.Views {
	return func(name string) editor.Views {
		box := NewBoxView(name, cfg.ViewCount, cfg.DefaultZoomRatio, r.log)
		r.register(name, box)
		return editor.Views{
			Box:   box,
			Ops:   NewOps(box),
			Focus: NewFocus(),
		}
	}
}
