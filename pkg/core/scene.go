// pkg/core/scene.go
package core

// FrameInfo identifies one frame of a scene.
type FrameInfo struct {
	Scene string
	Frame string
}

// SceneMeta describes a scene and the ordered frames a batch edit spans.
type SceneMeta struct {
	Scene  string   `json:"scene"`
	Frames []string `json:"frames"`
}

// EditingTarget is the track currently under batch edit across the editor pool.
type EditingTarget struct {
	Scene      string
	ObjTrackID string
}

// IsZero reports whether no batch edit is in progress.
func (t EditingTarget) IsZero() bool {
	return t.Scene == "" && t.ObjTrackID == ""
}

// TransferOptions tune how an edited track is propagated across a frame range.
type TransferOptions struct {
	// CreateMissing adds interpolated boxes to frames inside the keyframe range
	// that do not contain the track yet.
	CreateMissing bool
}
