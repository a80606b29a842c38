package convert

import (
	"encoding/json"

	"github.com/SUSTechPOINTS/boxeditor/internal/model"
	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
)

// AnnotationToCore converts a GORM model.Annotation to a core.Box.
// Unreadable attribute JSON yields a box without attributes.
func AnnotationToCore(a model.Annotation) core.Box {
	var attrs map[string]string
	if len(a.Attrs) > 0 {
		if err := json.Unmarshal(a.Attrs, &attrs); err != nil || len(attrs) == 0 {
			attrs = nil
		}
	}

	return core.Box{
		ID:        a.BoxID,
		Scene:     a.Scene,
		Frame:     a.Frame,
		TrackID:   a.TrackID,
		ObjType:   a.ObjType,
		Position:  core.Position3D{X: a.PosX, Y: a.PosY, Z: a.PosZ},
		Scale:     core.Position3D{X: a.ScaleX, Y: a.ScaleY, Z: a.ScaleZ},
		Rotation:  core.Position3D{X: a.RotX, Y: a.RotY, Z: a.RotZ},
		Annotator: a.Annotator,
		Attrs:     attrs,
	}
}

// SceneToCore converts a GORM model.Scene to a core.SceneMeta.
func SceneToCore(s model.Scene) core.SceneMeta {
	var frames []string
	if len(s.Frames) > 0 {
		_ = json.Unmarshal(s.Frames, &frames)
	}
	return core.SceneMeta{Scene: s.Name, Frames: frames}
}
