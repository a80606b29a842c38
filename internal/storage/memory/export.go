// internal/storage/memory/export.go
package memory

import (
	"cmp"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
)

// exportVersion identifies the layout of Export.
const exportVersion = 1

// Export is the root JSON structure of a memory backend dump
type Export struct {
	Version int              `json:"version"`
	Scenes  []core.SceneMeta `json:"scenes"`
	Boxes   []core.Box       `json:"boxes"`
}

// buildExport snapshots the backend. Callers must hold at least the read lock.
func (b *Backend) buildExport() Export {
	export := Export{
		Version: exportVersion,
		Scenes:  make([]core.SceneMeta, 0, len(b.scenes)),
		Boxes:   make([]core.Box, 0),
	}

	for _, meta := range b.scenes {
		export.Scenes = append(export.Scenes, meta)
	}
	slices.SortFunc(export.Scenes, func(a, b core.SceneMeta) int { return cmp.Compare(a.Scene, b.Scene) })

	for _, boxes := range b.frames {
		export.Boxes = append(export.Boxes, boxes...)
	}
	slices.SortFunc(export.Boxes, func(a, b core.Box) int {
		return cmp.Or(
			cmp.Compare(a.Scene, b.Scene),
			cmp.Compare(a.Frame, b.Frame),
			cmp.Compare(a.ID, b.ID),
		)
	})

	return export
}

// exportJSON writes the backend to path, gzipped if path ends in .gz.
func (b *Backend) exportJSON(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		w = gz
	}

	if err := json.NewEncoder(w).Encode(b.buildExport()); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

// importJSON replaces the backend contents with the export at path.
// A missing file is not an error.
func (b *Backend) importJSON(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open export file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to open gzip export: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return fmt.Errorf("failed to decode export: %w", err)
	}
	if export.Version != exportVersion {
		return fmt.Errorf("unsupported export version %d", export.Version)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.scenes = make(map[string]core.SceneMeta, len(export.Scenes))
	for _, meta := range export.Scenes {
		b.scenes[meta.Scene] = meta
	}
	b.frames = make(map[frameKey][]core.Box)
	for _, box := range export.Boxes {
		key := frameKey{box.Scene, box.Frame}
		b.frames[key] = append(b.frames[key], box)
	}
	return nil
}
