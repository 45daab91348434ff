package model

// Visibility values for a track.
const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

// Track represents an audio track in the music library.
type Track struct {
	ID         string  `json:"id"` // UUID
	OwnerID    int64   `json:"ownerId"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album"`
	AudioPath  string  `json:"-"` // Object key of the audio blob, not exposed directly
	CoverPath  string  `json:"coverPath"`
	Duration   float64 `json:"duration"`  // Duration in seconds
	TrimStart  float64 `json:"trimStart"` // Playback window start in seconds
	TrimEnd    float64 `json:"trimEnd"`   // Playback window end in seconds
	Visibility string  `json:"visibility"`
	PlaysCount int64   `json:"playsCount"`
	AddedAt    int64   `json:"addedAt"` // Epoch milliseconds
}
