// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/SUSTechPOINTS/boxeditor/internal/model"
	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
	"gorm.io/datatypes"
)

// attrsToJSON converts box attributes to datatypes.JSON for DB storage.
func attrsToJSON(attrs map[string]string) datatypes.JSON {
	if len(attrs) == 0 {
		return datatypes.JSON("{}")
	}
	data, _ := json.Marshal(attrs)
	return datatypes.JSON(data)
}

// framesToJSON converts a frame list to datatypes.JSON for DB storage.
func framesToJSON(frames []string) datatypes.JSON {
	if len(frames) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(frames)
	return datatypes.JSON(data)
}

// CoreToAnnotation converts a core.Box to a GORM model.Annotation.
// Transient editing state (Changed, Revision) is not persisted.
func CoreToAnnotation(b core.Box) model.Annotation {
	return model.Annotation{
		BoxID:     b.ID,
		Scene:     b.Scene,
		Frame:     b.Frame,
		TrackID:   b.TrackID,
		ObjType:   b.ObjType,
		PosX:      b.Position.X,
		PosY:      b.Position.Y,
		PosZ:      b.Position.Z,
		ScaleX:    b.Scale.X,
		ScaleY:    b.Scale.Y,
		ScaleZ:    b.Scale.Z,
		RotX:      b.Rotation.X,
		RotY:      b.Rotation.Y,
		RotZ:      b.Rotation.Z,
		Annotator: b.Annotator,
		Attrs:     attrsToJSON(b.Attrs),
	}
}

// CoreToScene converts a core.SceneMeta to a GORM model.Scene.
func CoreToScene(m core.SceneMeta) model.Scene {
	return model.Scene{
		Name:   m.Scene,
		Frames: framesToJSON(m.Frames),
	}
}
