package editor

import "github.com/SUSTechPOINTS/boxeditor/pkg/core"

// Registry records which editor owns which box. A box has at most one owner.
//
// It replaces a back-reference stored on the box itself. Like the editors it is
// confined to the loop goroutine and takes no locks.
type Registry struct {
	owners map[*core.Box]*Editor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{owners: make(map[*core.Box]*Editor)}
}

// Owner returns the editor the box is attached to, or nil.
func (r *Registry) Owner(box *core.Box) *Editor {
	if box == nil {
		return nil
	}
	return r.owners[box]
}

// Len returns the number of attached boxes.
func (r *Registry) Len() int {
	return len(r.owners)
}

func (r *Registry) bind(box *core.Box, e *Editor) {
	r.owners[box] = e
}

// release drops the entry only if e still owns box.
func (r *Registry) release(box *core.Box, e *Editor) {
	if owner, ok := r.owners[box]; ok && owner == e {
		delete(r.owners, box)
	}
}
