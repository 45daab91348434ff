package player

import (
	"errors"
	"fmt"
)

// ErrInterrupted marks a load that was superseded by a newer play request.
// 被更新的播放请求打断属于正常流转，不作为失败上报
var ErrInterrupted = errors.New("playback interrupted by a newer request")

// ErrTrackNotFound is returned when playing a track absent from the library.
var ErrTrackNotFound = errors.New("track not found in library")

// ErrUnknownSkin is returned for an unrecognized skin name.
var ErrUnknownSkin = errors.New("unknown player skin")

// PlaybackError wraps a genuine playback failure. The current selection
// is preserved so the user can retry.
type PlaybackError struct {
	TrackID string
	Err     error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback failed for track %s: %v", e.TrackID, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// LoadError wraps a media source loading failure.
type LoadError struct {
	Src string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load source %s: %v", e.Src, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
