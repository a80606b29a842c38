// Package parser converts console action arguments into typed requests.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/SUSTechPOINTS/boxeditor/internal/util"
	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
)

var (
	// ErrArgCount is returned when an action gets the wrong number of arguments.
	ErrArgCount = errors.New("wrong number of arguments")

	// ErrInvalidVector is returned for vectors that are not "x,y,z".
	ErrInvalidVector = errors.New("invalid vector")
)

// parseIndex reads a view or editor index written either as "2" or as "2.0".
func parseIndex(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.Trunc(f) != f || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return int(f), nil
}

// ParseVector parses "x,y,z", optionally bracketed, into a Position3D.
// A missing z is 0.
func ParseVector(s string) (core.Position3D, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")

	parts := strings.Split(s, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return core.Position3D{}, fmt.Errorf("%w: %q", ErrInvalidVector, s)
	}

	var xyz [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return core.Position3D{}, fmt.Errorf("%w: %q", ErrInvalidVector, s)
		}
		xyz[i] = v
	}
	return core.Position3D{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

// EditRequest starts a batch edit of TrackID in Scene.
// From and To optionally narrow the scene's frames to an inclusive range.
type EditRequest struct {
	Scene   string
	TrackID string
	From    string
	To      string
}

// ZoomRequest sets the zoom of one sub-view on every editor.
type ZoomRequest struct {
	View  int
	Ratio float64
}

// DeltaRequest moves, resizes or rotates the box of one editor.
type DeltaRequest struct {
	Editor int
	Delta  core.Position3D
}

// Parser provides pure []string -> request conversion.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

func clean(args []string) []string {
	out := make([]string, len(args))
	for i, v := range args {
		out[i] = util.Unquote(strings.TrimSpace(v))
	}
	return out
}

// ParseEdit parses "scene trackId [from to]".
func (p *Parser) ParseEdit(args []string) (EditRequest, error) {
	args = clean(args)
	if len(args) != 2 && len(args) != 4 {
		return EditRequest{}, fmt.Errorf("%w: edit takes scene, track id and an optional frame range, got %d", ErrArgCount, len(args))
	}

	req := EditRequest{Scene: args[0], TrackID: args[1]}
	if req.Scene == "" || req.TrackID == "" {
		return req, errors.New("scene and track id must not be empty")
	}
	if len(args) == 4 {
		req.From, req.To = args[2], args[3]
	}
	return req, nil
}

// ParseZoom parses "view ratio".
func (p *Parser) ParseZoom(args []string) (ZoomRequest, error) {
	args = clean(args)
	if len(args) != 2 {
		return ZoomRequest{}, fmt.Errorf("%w: zoom takes view and ratio, got %d", ErrArgCount, len(args))
	}

	view, err := parseIndex(args[0])
	if err != nil {
		return ZoomRequest{}, fmt.Errorf("error parsing view index: %w", err)
	}
	ratio, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return ZoomRequest{}, fmt.Errorf("error parsing zoom ratio: %w", err)
	}
	if ratio <= 0 || math.IsInf(ratio, 0) || math.IsNaN(ratio) {
		return ZoomRequest{}, fmt.Errorf("zoom ratio must be positive, got %v", ratio)
	}
	return ZoomRequest{View: view, Ratio: ratio}, nil
}

// ParseDelta parses "editor x,y,z" or "editor x y z".
func (p *Parser) ParseDelta(args []string) (DeltaRequest, error) {
	args = clean(args)
	var vec string
	switch len(args) {
	case 2:
		vec = args[1]
	case 4:
		vec = strings.Join(args[1:], ",")
	default:
		return DeltaRequest{}, fmt.Errorf("%w: expected editor index and a vector, got %d", ErrArgCount, len(args))
	}

	idx, err := p.parseEditor(args[0])
	if err != nil {
		return DeltaRequest{}, err
	}
	delta, err := ParseVector(vec)
	if err != nil {
		return DeltaRequest{}, err
	}
	return DeltaRequest{Editor: idx, Delta: delta}, nil
}

// ParseEditorIndex parses a single editor index.
func (p *Parser) ParseEditorIndex(args []string) (int, error) {
	args = clean(args)
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: expected editor index, got %d", ErrArgCount, len(args))
	}
	return p.parseEditor(args[0])
}

func (p *Parser) parseEditor(s string) (int, error) {
	idx, err := parseIndex(s)
	if err != nil {
		return 0, fmt.Errorf("error parsing editor index: %w", err)
	}
	if idx < 0 {
		return 0, fmt.Errorf("editor index must not be negative, got %d", idx)
	}
	return idx, nil
}

// ParseScene parses "scene frame..." where a frame may be a "first..last" range of
// zero-padded numbers, e.g. "000..003".
func (p *Parser) ParseScene(args []string) (core.SceneMeta, error) {
	args = clean(args)
	if len(args) < 2 {
		return core.SceneMeta{}, fmt.Errorf("%w: scene takes a name and at least one frame, got %d", ErrArgCount, len(args))
	}

	meta := core.SceneMeta{Scene: args[0]}
	seen := make(map[string]bool)
	for _, a := range args[1:] {
		frames, err := expandFrames(a)
		if err != nil {
			return core.SceneMeta{}, err
		}
		for _, f := range frames {
			if seen[f] {
				p.logger.Warn("ignoring duplicate frame", "scene", meta.Scene, "frame", f)
				continue
			}
			seen[f] = true
			meta.Frames = append(meta.Frames, f)
		}
	}
	return meta, nil
}

// maxRange bounds a single "first..last" expansion.
const maxRange = 100000

func expandFrames(s string) ([]string, error) {
	first, last, ok := strings.Cut(s, "..")
	if !ok {
		return []string{s}, nil
	}

	from, err := strconv.Atoi(first)
	if err != nil {
		return nil, fmt.Errorf("error parsing frame range %q: %w", s, err)
	}
	to, err := strconv.Atoi(last)
	if err != nil {
		return nil, fmt.Errorf("error parsing frame range %q: %w", s, err)
	}
	if from < 0 || to < from || to-from >= maxRange {
		return nil, fmt.Errorf("invalid frame range %q", s)
	}

	out := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprintf("%0*d", len(first), i))
	}
	return out, nil
}

// ExpectNone checks that an action got no arguments.
func ExpectNone(command string, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: %s takes no arguments, got %d", ErrArgCount, command, len(args))
	}
	return nil
}
