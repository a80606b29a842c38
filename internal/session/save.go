package session

import (
	"fmt"

	"github.com/SUSTechPOINTS/boxeditor/internal/editor"
	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
)

// savedBox remembers which revision of a box a save chain persisted.
type savedBox struct {
	editor   *editor.Editor
	box      *core.Box
	revision uint64
}

// SaveAndTransfer persists the worlds of dirty active editors, then in batch mode
// propagates the track across frames and reloads every editor with one render.
//
// Steps run strictly in sequence and each waits for the previous completion. Edits
// that land while the chain runs are saved again before the reload. A failed step
// ends the chain and is reported through OnError: a failed save keeps the dirty
// flags and skips the transfer, a failed transfer skips the reload. A save requested
// during a failed chain is dropped.
func (m *Manager) SaveAndTransfer() error {
	if m.saving {
		m.savePending = true
		return ErrSaveInFlight
	}
	m.saving = true
	m.saveStep(m.deps.Context.Token(), m.activeIndex > 1)
	return nil
}

func (m *Manager) saveStep(token string, batch bool) {
	var (
		worlds []editor.World
		saved  []savedBox
	)
	for _, e := range m.editorList[:m.activeIndex] {
		box := e.Box()
		if box == nil || !box.Changed {
			continue
		}
		saved = append(saved, savedBox{editor: e, box: box, revision: box.Revision})
		if w := e.Target().World; !containsWorld(worlds, w) {
			worlds = append(worlds, w)
		}
	}

	m.log.Debug("saving worlds", "worlds", len(worlds), "batch", batch)

	m.deps.Persistence.SaveWorldList(worlds, func(err error) {
		if !m.isCurrent(token, "save") {
			return
		}
		m.metrics.save(err)
		if err != nil {
			m.abortSave(fmt.Errorf("saving %d worlds: %w", len(worlds), err))
			return
		}

		for _, s := range saved {
			// a newer edit landed after the snapshot; it stays dirty
			if s.box.Revision == s.revision {
				s.box.Changed = false
			}
			s.editor.UpdateInfo()
		}

		if !batch {
			m.finishSave()
			return
		}

		m.deps.Transfer.InterpolateSelectedObject(m.target.Scene, m.target.ObjTrackID, m.cfg.Transfer, func(err error) {
			if !m.isCurrent(token, "transfer") {
				return
			}
			m.metrics.transfer(err)
			if err != nil {
				m.abortSave(fmt.Errorf("transferring track %s: %w", m.target.ObjTrackID, err))
				return
			}
			// the reload would replace boxes edited since the save with stored copies
			if m.anyDirty() {
				m.log.Debug("saving edits made during the chain")
				m.savePending = false
				m.saveStep(token, batch)
				return
			}
			m.refreshAll(token, m.finishSave)
		})
	})
}

// finishSave releases the in-flight guard and replays a save requested meanwhile.
func (m *Manager) finishSave() {
	m.saving = false
	if !m.savePending {
		return
	}
	m.savePending = false
	if m.anyDirty() {
		if err := m.SaveAndTransfer(); err != nil {
			m.fail(err)
		}
	}
}

// abortSave reports err and releases the in-flight guard without replaying.
func (m *Manager) abortSave(err error) {
	m.fail(err)
	m.saving = false
	m.savePending = false
}

func (m *Manager) anyDirty() bool {
	for _, e := range m.editorList[:m.activeIndex] {
		if b := e.Box(); b != nil && b.Changed {
			return true
		}
	}
	return false
}

// RefreshAllAnnotation reloads the worlds of all active editors, reattaches every
// editor without rendering, then renders once.
func (m *Manager) RefreshAllAnnotation() {
	m.refreshAll(m.deps.Context.Token(), nil)
}

func (m *Manager) refreshAll(token string, done func()) {
	var worlds []editor.World
	for _, e := range m.editorList[:m.activeIndex] {
		if t := e.Target(); t != nil && t.World != nil && !containsWorld(worlds, t.World) {
			worlds = append(worlds, t.World)
		}
	}

	m.deps.Persistence.ReloadWorldList(worlds, func(err error) {
		if !m.isCurrent(token, "reload") {
			return
		}
		if err != nil {
			m.fail(fmt.Errorf("reloading %d worlds: %w", len(worlds), err))
		} else {
			for _, e := range m.editorList[:m.activeIndex] {
				e.TryAttach()
				e.Update(true)
			}
			m.render()
		}
		if done != nil {
			done()
		}
	})
}

// TransferOnly previews propagation of the current, possibly unsaved, boxes across
// the active editors' worlds, reattaches and renders once. Nothing is persisted.
func (m *Manager) TransferOnly() {
	active := m.editorList[:m.activeIndex]
	worlds := make([]editor.World, 0, len(active))
	boxes := make([]*core.Box, 0, len(active))
	for _, e := range active {
		var w editor.World
		if t := e.Target(); t != nil {
			w = t.World
		}
		worlds = append(worlds, w)
		boxes = append(boxes, e.Box())
	}

	m.deps.Transfer.InterpolateSync(worlds, boxes)

	for _, e := range active {
		e.TryAttach()
		e.Update(true)
	}
	m.render()
}

func containsWorld(worlds []editor.World, w editor.World) bool {
	for _, x := range worlds {
		if x == w {
			return true
		}
	}
	return false
}
