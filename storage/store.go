package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"
)

// ObjectStore 对象存储抽象，MinIO 与本地磁盘两种后端可互换
type ObjectStore interface {
	// Put uploads an object under the given key.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// SignedURL returns a time-bounded URL for reading the object.
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	// Remove deletes the object. Missing objects are not an error.
	Remove(ctx context.Context, key string) error
}

// audio extension -> MIME type, used when the declared type is absent or generic
var audioContentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".amr":  "audio/amr",
	".3gp":  "audio/3gpp",
}

var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// GuessContentType resolves the MIME type for a filename. The declared
// type wins unless it is empty or the generic octet-stream.
func GuessContentType(filename, declared string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	ext := strings.ToLower(path.Ext(filename))
	if ct, ok := audioContentTypes[ext]; ok {
		return ct
	}
	if ct, ok := imageContentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// IsAudioFilename reports whether the filename has a recognized audio extension.
func IsAudioFilename(filename string) bool {
	_, ok := audioContentTypes[strings.ToLower(path.Ext(filename))]
	return ok
}
