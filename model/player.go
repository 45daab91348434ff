package model

// Skin identifies the active player appearance.
type Skin string

const (
	SkinVinyl     Skin = "vinyl"
	SkinCoverflow Skin = "coverflow"
	SkinMinimal   Skin = "minimal"
)

// ValidSkin reports whether s is a known skin name.
func ValidSkin(s Skin) bool {
	switch s {
	case SkinVinyl, SkinCoverflow, SkinMinimal:
		return true
	}
	return false
}

// PlayerState is a snapshot of the playback engine.
// 由播放控制器独占写入，外部只读快照
type PlayerState struct {
	CurrentTrackID string   `json:"currentTrackId"`
	IsPlaying      bool     `json:"isPlaying"`
	CurrentTime    float64  `json:"currentTime"` // Seconds
	Volume         float64  `json:"volume"`      // 0.0 - 1.0
	Queue          []string `json:"queue"`       // Track IDs, duplicates allowed
	Skin           Skin     `json:"skin"`
}
