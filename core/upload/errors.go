package upload

import (
	"errors"
	"fmt"
)

// ErrNoAudio is returned when confirming a draft without an audio file.
var ErrNoAudio = errors.New("draft has no audio file")

// ErrInvalidTrim is returned when the trim window violates
// 0 <= start < end <= duration at confirm time.
var ErrInvalidTrim = errors.New("invalid trim window")

// PreviewError 预览失败不影响草稿内容
type PreviewError struct {
	Err error
}

func (e *PreviewError) Error() string {
	return fmt.Sprintf("preview failed: %v", e.Err)
}

func (e *PreviewError) Unwrap() error {
	return e.Err
}

// SaveError 保存失败，草稿完整保留，可直接重试
type SaveError struct {
	Err error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("failed to save track: %v", e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}
