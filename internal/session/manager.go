// Package session implements the editor pool and batch edit sessions.
//
// The Manager owns a pool of editors, one per frame of the track under edit. Slots are
// allocated once and reused by later sessions; only the first ActiveIndex slots belong to
// the current session. All methods must be called on the loop goroutine.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/SUSTechPOINTS/boxeditor/internal/editing"
	"github.com/SUSTechPOINTS/boxeditor/internal/editor"
	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
)

var (
	// ErrSaveInFlight is returned when a save is requested while another save chain runs.
	// The request is remembered and replayed once the running chain finishes.
	ErrSaveInFlight = errors.New("save already in progress")

	// ErrNoEditor is returned for an editor index outside the active session.
	ErrNoEditor = errors.New("no such active editor")
)

// Config holds pool behaviour switches.
type Config struct {
	// EnableAutoSave runs the save-and-transfer chain after every box change.
	EnableAutoSave bool
	// Transfer is passed to the committed interpolation after a batch save.
	Transfer core.TransferOptions
}

// Dependencies holds the pool's collaborators.
type Dependencies struct {
	Persistence Persistence
	Transfer    Transfer
	Renderer    editor.Renderer
	Highlighter editor.Highlighter
	// NewViews builds the rendering collaborators of a new editor slot.
	NewViews func(name string) editor.Views
	Context  *editing.Context
	Logger   *slog.Logger
	// OnError receives failures of asynchronous steps so they can be shown to the user.
	OnError func(error)
}

// Manager is the editor pool and session coordinator.
type Manager struct {
	deps     Dependencies
	cfg      Config
	log      *slog.Logger
	metrics  *metrics
	registry *editor.Registry

	editorList  []*editor.Editor
	activeIndex int

	target core.EditingTarget

	saving      bool
	savePending bool
}

// NewManager creates an empty pool.
func NewManager(cfg Config, deps Dependencies) (*Manager, error) {
	if deps.NewViews == nil {
		return nil, errors.New("session: NewViews is required")
	}
	if deps.Context == nil {
		deps.Context = editing.NewContext()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	met, err := newMetrics()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		deps:     deps,
		cfg:      cfg,
		log:      logger,
		metrics:  met,
		registry: editor.NewRegistry(),
	}
	deps.Context.Set(core.EditingTarget{}, uuid.NewString())
	return m, nil
}

// Registry returns the box ownership registry shared by the pool's editors.
func (m *Manager) Registry() *editor.Registry { return m.registry }

// EditingTarget returns the scope of the current session.
func (m *Manager) EditingTarget() core.EditingTarget { return m.target }

// ActiveIndex returns the number of in-session editors.
func (m *Manager) ActiveIndex() int { return m.activeIndex }

// EditorList returns every allocated editor, active or not.
func (m *Manager) EditorList() []*editor.Editor {
	return slices.Clone(m.editorList)
}

// ActiveEditorList returns the editors of the current session in frame order.
func (m *Manager) ActiveEditorList() []*editor.Editor {
	return slices.Clone(m.editorList[:m.activeIndex])
}

// Editor returns active editor i.
func (m *Manager) Editor(i int) (*editor.Editor, error) {
	if i < 0 || i >= m.activeIndex {
		return nil, fmt.Errorf("%w: %d", ErrNoEditor, i)
	}
	return m.editorList[i], nil
}

// Edit starts a batch session on trackID across meta.Frames. One editor per frame is
// allocated and targeted; worlds are activated independently and each activation
// attaches and renders on its own, so completion order across frames is not fixed.
func (m *Manager) Edit(data DataSource, meta core.SceneMeta, trackID string) {
	m.Reset()

	m.target = core.EditingTarget{Scene: meta.Scene, ObjTrackID: trackID}
	token := m.deps.Context.Token()
	m.deps.Context.Set(m.target, token)

	m.log.Info("starting batch edit", "scene", meta.Scene, "trackId", trackID, "frames", len(meta.Frames))

	for _, frame := range meta.Frames {
		world := data.GetWorld(meta.Scene, frame)
		e := m.AddEditor()
		e.SetTarget(world, trackID)

		data.ActivateWorld(world, func(err error) {
			if !m.isCurrent(token, "activate") {
				return
			}
			if err != nil {
				m.fail(fmt.Errorf("activating frame %s: %w", frame, err))
				return
			}
			if t := e.Target(); t == nil || t.World != world {
				return
			}
			e.TryAttach()
			m.render()
		})
	}
}

// Reset detaches and hides every editor and empties the session. Allocated
// editors stay in the pool. Callbacks of the previous session become stale.
func (m *Manager) Reset() {
	for _, e := range m.editorList {
		e.ResetTarget()
	}
	m.activeIndex = 0
	m.target = core.EditingTarget{}
	m.saving = false
	m.savePending = false
	m.deps.Context.Set(m.target, uuid.NewString())
}

// AddEditor allocates a slot and makes it part of the session.
func (m *Manager) AddEditor() *editor.Editor {
	e := m.AllocateEditor()
	m.activeIndex++
	return e
}

// AllocateEditor returns the slot at ActiveIndex, building it only if the pool has
// never grown that far.
func (m *Manager) AllocateEditor() *editor.Editor {
	if m.activeIndex < len(m.editorList) {
		return m.editorList[m.activeIndex]
	}

	name := strconv.Itoa(m.activeIndex)
	e := editor.New(editor.Dependencies{
		Name:        name,
		Owner:       m,
		Registry:    m.registry,
		Views:       m.deps.NewViews(name),
		Highlighter: m.deps.Highlighter,
		Renderer:    m.deps.Renderer,
		Logger:      m.log,
	})
	m.editorList = append(m.editorList, e)
	m.log.Debug("allocated editor", "editor", name, "poolSize", len(m.editorList))
	return e
}

// OnBoxChanged is called by an editor after a human edit of its box.
func (m *Manager) OnBoxChanged(e *editor.Editor) {
	if !m.cfg.EnableAutoSave {
		return
	}
	if err := m.SaveAndTransfer(); err != nil && !errors.Is(err, ErrSaveInFlight) {
		m.fail(err)
	}
}

// UpdateViewZoomRatio applies a sub-view zoom to every editor, then renders once.
func (m *Manager) UpdateViewZoomRatio(viewIndex int, ratio float64) {
	for _, e := range m.editorList {
		e.SetViewZoomRatio(viewIndex, ratio)
		e.Update(true)
	}
	m.render()
}

// DetachEditor releases the box of active editor i and keeps the editor visible.
func (m *Manager) DetachEditor(i int) error {
	e, err := m.Editor(i)
	if err != nil {
		return err
	}
	e.Detach(true)
	m.render()
	return nil
}

// EditorStatus is a read-only view of one active editor.
type EditorStatus struct {
	Name  string
	Frame string
	State editor.State
	Shown bool
	Info  string
}

// Status describes the active editors.
func (m *Manager) Status() []EditorStatus {
	out := make([]EditorStatus, 0, m.activeIndex)
	for _, e := range m.editorList[:m.activeIndex] {
		st := EditorStatus{
			Name:  e.Name(),
			State: e.State(),
			Shown: e.Shown(),
			Info:  e.Info(),
		}
		if t := e.Target(); t != nil && t.World != nil {
			st.Frame = t.World.FrameInfo().Frame
		}
		out = append(out, st)
	}
	return out
}

func (m *Manager) render() {
	if m.deps.Renderer != nil {
		m.deps.Renderer.Render()
	}
	m.metrics.render()
}

// isCurrent reports whether a completion captured token still belongs to the live
// session, as published in the editing context.
func (m *Manager) isCurrent(token, op string) bool {
	if m.deps.Context.IsCurrent(token) {
		return true
	}
	m.log.Debug("discarding stale completion", "op", op)
	m.metrics.staleCallback(op)
	return false
}

func (m *Manager) fail(err error) {
	m.log.Error("editor pool operation failed", "error", err)
	if m.deps.OnError != nil {
		m.deps.OnError(err)
	}
}
