// Package handlers exposes the editor pool's user actions as dispatcher commands.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SUSTechPOINTS/boxeditor/internal/dispatcher"
	"github.com/SUSTechPOINTS/boxeditor/internal/editor"
	"github.com/SUSTechPOINTS/boxeditor/internal/parser"
	"github.com/SUSTechPOINTS/boxeditor/internal/session"
	"github.com/SUSTechPOINTS/boxeditor/internal/storage"
	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
)

// Command names.
const (
	CmdScene    = ":SCENE:"
	CmdEdit     = ":EDIT:"
	CmdSave     = ":SAVE:"
	CmdTransfer = ":TRANSFER:"
	CmdRefresh  = ":REFRESH:"
	CmdZoom     = ":ZOOM:"
	CmdMove     = ":MOVE:"
	CmdScale    = ":SCALE:"
	CmdRotate   = ":ROTATE:"
	CmdDetach   = ":DETACH:"
	CmdStatus   = ":STATUS:"
	CmdReset    = ":RESET:"
	CmdHelp     = ":HELP:"
)

// ErrNoBox is returned when a mutation targets an editor without an attached box.
var ErrNoBox = errors.New("editor has no attached box")

// Pool is the part of the session manager the handlers drive.
// Every method is called on the loop goroutine.
type Pool interface {
	Edit(data session.DataSource, meta core.SceneMeta, trackID string)
	Reset()
	SaveAndTransfer() error
	TransferOnly()
	RefreshAllAnnotation()
	UpdateViewZoomRatio(viewIndex int, ratio float64)
	DetachEditor(i int) error
	Editor(i int) (*editor.Editor, error)
	Status() []session.EditorStatus
	EditingTarget() core.EditingTarget
}

// Scenes stores scene frame lists.
type Scenes interface {
	SaveScene(ctx context.Context, meta core.SceneMeta) error
	LoadScene(ctx context.Context, name string) (core.SceneMeta, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Pool   Pool
	Data   session.DataSource
	Scenes Scenes
	Parser *parser.Parser
	// Loop runs pool calls on the loop goroutine.
	Loop   dispatcher.Runner
	Logger *slog.Logger
	// Timeout bounds each command; zero means 10s.
	Timeout time.Duration
}

// Service provides handler methods for the console commands.
type Service struct {
	deps Dependencies
	log  *slog.Logger
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.Timeout <= 0 {
		deps.Timeout = 10 * time.Second
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.Logger)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{deps: deps, log: logger}
}

// RegisterHandlers registers all commands with the dispatcher.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	onLoop := dispatcher.OnLoop(s.deps.Loop, s.deps.Timeout)

	// storage lookups run on the caller's goroutine, only the pool call is posted
	d.Register(CmdScene, s.handleScene, dispatcher.Logged())
	d.Register(CmdEdit, s.handleEdit, dispatcher.Logged())

	d.Register(CmdSave, s.handleSave, onLoop, dispatcher.Logged())
	d.Register(CmdTransfer, s.handleTransfer, onLoop, dispatcher.Logged())
	d.Register(CmdRefresh, s.handleRefresh, onLoop, dispatcher.Logged())
	d.Register(CmdZoom, s.handleZoom, onLoop, dispatcher.Logged())
	d.Register(CmdMove, s.mutation((*editor.Editor).Translate), onLoop, dispatcher.Logged())
	d.Register(CmdScale, s.mutation((*editor.Editor).Resize), onLoop, dispatcher.Logged())
	d.Register(CmdRotate, s.mutation((*editor.Editor).Rotate), onLoop, dispatcher.Logged())
	d.Register(CmdDetach, s.handleDetach, onLoop, dispatcher.Logged())
	d.Register(CmdStatus, s.handleStatus, onLoop)
	d.Register(CmdReset, s.handleReset, onLoop, dispatcher.Logged())

	d.Register(CmdHelp, func(dispatcher.Event) (any, error) {
		return strings.Join(d.Commands(), " "), nil
	})
}

func (s *Service) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.deps.Timeout)
}

func (s *Service) handleScene(e dispatcher.Event) (any, error) {
	meta, err := s.deps.Parser.ParseScene(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scene: %w", err)
	}

	ctx, cancel := s.context()
	defer cancel()
	if err := s.deps.Scenes.SaveScene(ctx, meta); err != nil {
		return nil, fmt.Errorf("failed to save scene %s: %w", meta.Scene, err)
	}
	return fmt.Sprintf("scene %s has %d frames", meta.Scene, len(meta.Frames)), nil
}

func (s *Service) handleEdit(e dispatcher.Event) (any, error) {
	req, err := s.deps.Parser.ParseEdit(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse edit: %w", err)
	}

	ctx, cancel := s.context()
	defer cancel()

	meta, err := s.deps.Scenes.LoadScene(ctx, req.Scene)
	if err != nil {
		return nil, fmt.Errorf("failed to load scene %s: %w", req.Scene, err)
	}
	meta, err = frameRange(meta, req.From, req.To)
	if err != nil {
		return nil, err
	}

	err = s.deps.Loop.Do(ctx, func() error {
		s.deps.Pool.Edit(s.deps.Data, meta, req.TrackID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("editing %s in %d frames", req.TrackID, len(meta.Frames)), nil
}

// frameRange narrows meta to the inclusive range [from, to]. Empty bounds keep every frame.
func frameRange(meta core.SceneMeta, from, to string) (core.SceneMeta, error) {
	if from == "" && to == "" {
		return meta, nil
	}

	index := storage.FrameIndex(meta)
	i, ok := index[from]
	if !ok {
		return meta, fmt.Errorf("frame %s is not part of scene %s", from, meta.Scene)
	}
	j, ok := index[to]
	if !ok {
		return meta, fmt.Errorf("frame %s is not part of scene %s", to, meta.Scene)
	}
	if i > j {
		i, j = j, i
	}

	out := core.SceneMeta{Scene: meta.Scene, Frames: make([]string, j-i+1)}
	copy(out.Frames, meta.Frames[i:j+1])
	return out, nil
}

func (s *Service) handleSave(e dispatcher.Event) (any, error) {
	if err := parser.ExpectNone(e.Command, e.Args); err != nil {
		return nil, err
	}
	err := s.deps.Pool.SaveAndTransfer()
	if errors.Is(err, session.ErrSaveInFlight) {
		return "queued", nil
	}
	if err != nil {
		return nil, err
	}
	return "saving", nil
}

func (s *Service) handleTransfer(e dispatcher.Event) (any, error) {
	if err := parser.ExpectNone(e.Command, e.Args); err != nil {
		return nil, err
	}
	s.deps.Pool.TransferOnly()
	return "transferred", nil
}

func (s *Service) handleRefresh(e dispatcher.Event) (any, error) {
	if err := parser.ExpectNone(e.Command, e.Args); err != nil {
		return nil, err
	}
	s.deps.Pool.RefreshAllAnnotation()
	return "refreshing", nil
}

func (s *Service) handleZoom(e dispatcher.Event) (any, error) {
	req, err := s.deps.Parser.ParseZoom(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse zoom: %w", err)
	}
	s.deps.Pool.UpdateViewZoomRatio(req.View, req.Ratio)
	return nil, nil
}

// mutation builds a handler applying op with the parsed delta to one editor's box.
func (s *Service) mutation(op func(*editor.Editor, core.Position3D) bool) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		req, err := s.deps.Parser.ParseDelta(e.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", e.Command, err)
		}
		ed, err := s.deps.Pool.Editor(req.Editor)
		if err != nil {
			return nil, err
		}
		if !op(ed, req.Delta) {
			return nil, fmt.Errorf("%w: %d", ErrNoBox, req.Editor)
		}
		return ed.Info(), nil
	}
}

func (s *Service) handleDetach(e dispatcher.Event) (any, error) {
	idx, err := s.deps.Parser.ParseEditorIndex(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse detach: %w", err)
	}
	return nil, s.deps.Pool.DetachEditor(idx)
}

func (s *Service) handleStatus(e dispatcher.Event) (any, error) {
	target := s.deps.Pool.EditingTarget()
	if target.IsZero() {
		return "no session", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "scene=%s track=%s", target.Scene, target.ObjTrackID)
	for _, st := range s.deps.Pool.Status() {
		fmt.Fprintf(&b, "\n%s frame=%s state=%s shown=%t info=%q", st.Name, st.Frame, st.State, st.Shown, st.Info)
	}
	return b.String(), nil
}

func (s *Service) handleReset(e dispatcher.Event) (any, error) {
	if err := parser.ExpectNone(e.Command, e.Args); err != nil {
		return nil, err
	}
	s.deps.Pool.Reset()
	return "reset", nil
}
