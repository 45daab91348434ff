package upload

import (
	"bytes"
	"path"
	"strings"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
)

// probeTags reads embedded metadata from the audio bytes. Best effort,
// missing or unreadable tags return empty strings.
func probeTags(data []byte) (title, artist, album string) {
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return "", "", ""
	}
	return strings.TrimSpace(m.Title()), strings.TrimSpace(m.Artist()), strings.TrimSpace(m.Album())
}

// probeMP3Duration walks the mp3 frames and sums their durations.
// Returns 0 when the bytes are not a decodable mp3 stream.
func probeMP3Duration(data []byte) float64 {
	dec := mp3.NewDecoder(bytes.NewReader(data))

	var frame mp3.Frame
	var skipped int
	var total float64
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			break
		}
		total += frame.Duration().Seconds()
	}
	return total
}

// deriveFromFilename splits "artist - title.ext" style filenames.
// A name without a separator becomes the title alone.
func deriveFromFilename(filename string) (artist, title string) {
	base := strings.TrimSuffix(filename, path.Ext(filename))
	parts := strings.SplitN(base, "-", 2)
	if len(parts) == 2 {
		artist = strings.TrimSpace(parts[0])
		title = strings.TrimSpace(parts[1])
		if title == "" {
			title = strings.TrimSpace(base)
		}
		return artist, title
	}
	return "", strings.TrimSpace(base)
}
