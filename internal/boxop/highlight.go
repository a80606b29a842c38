package boxop

import "github.com/SUSTechPOINTS/boxeditor/pkg/core"

// Highlighter tracks which boxes are drawn highlighted in the main view.
// It must be used on the loop goroutine.
type Highlighter struct {
	boxes map[*core.Box]struct{}
}

// NewHighlighter creates a Highlighter with nothing highlighted.
func NewHighlighter() *Highlighter {
	return &Highlighter{boxes: make(map[*core.Box]struct{})}
}

func (h *Highlighter) HighlightBox(b *core.Box) {
	if b != nil {
		h.boxes[b] = struct{}{}
	}
}

func (h *Highlighter) UnhighlightBox(b *core.Box) {
	delete(h.boxes, b)
}

// Highlighted reports whether b is highlighted.
func (h *Highlighter) Highlighted(b *core.Box) bool {
	_, ok := h.boxes[b]
	return ok
}

// Len returns the number of highlighted boxes.
func (h *Highlighter) Len() int {
	return len(h.boxes)
}
