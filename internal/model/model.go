package model

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&EditorInfo{},
	&Scene{},
	&Annotation{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// EditorInfo records which build last migrated the schema
type EditorInfo struct {
	gorm.Model
	SchemaVersion int    `json:"schemaVersion"`
	BuildVersion  string `json:"buildVersion" gorm:"size:64"`
}

func (*EditorInfo) TableName() string {
	return "editor_infos"
}

////////////////////////
// ANNOTATION MODELS
////////////////////////

// Scene lists the frames of a recorded scene in playback order
type Scene struct {
	Name      string         `json:"name" gorm:"primaryKey;size:127"`
	Frames    datatypes.JSON `json:"frames"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (*Scene) TableName() string {
	return "scenes"
}

// GetOrInsert loads the scene with the same name, inserting s if there is none.
func (s *Scene) GetOrInsert(db *gorm.DB) (
	created bool,
	err error,
) {
	var existing Scene
	err = db.Where("name = ?", s.Name).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = db.Create(s).Error
			return true, err
		}
		return false, err
	}
	*s = existing
	return false, nil
}

// Annotation is one 3D bounding box of one frame
type Annotation struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement"`
	BoxID     string         `json:"boxId" gorm:"size:64;uniqueIndex"`
	Scene     string         `json:"scene" gorm:"size:127;index:idx_annotation_frame,priority:1;index:idx_annotation_track,priority:1"`
	Frame     string         `json:"frame" gorm:"size:64;index:idx_annotation_frame,priority:2"`
	TrackID   string         `json:"trackId" gorm:"size:64;index:idx_annotation_track,priority:2"`
	ObjType   string         `json:"objType" gorm:"size:64"`
	PosX      float64        `json:"posX"`
	PosY      float64        `json:"posY"`
	PosZ      float64        `json:"posZ"`
	ScaleX    float64        `json:"scaleX"`
	ScaleY    float64        `json:"scaleY"`
	ScaleZ    float64        `json:"scaleZ"`
	RotX      float64        `json:"rotX"`
	RotY      float64        `json:"rotY"`
	RotZ      float64        `json:"rotZ"`
	Annotator string         `json:"annotator" gorm:"size:64"`
	Attrs     datatypes.JSON `json:"attrs"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (*Annotation) TableName() string {
	return "annotations"
}
