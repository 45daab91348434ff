package player

import (
	"sync"

	"jzonefm/model"
)

// Library 内存中的有序曲库快照，新增曲目排在最前
type Library struct {
	mu     sync.RWMutex
	order  []string
	tracks map[string]*model.Track
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{tracks: make(map[string]*model.Track)}
}

// Rebuild replaces the library contents, keeping the given order.
func (l *Library) Rebuild(tracks []*model.Track) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = l.order[:0]
	l.tracks = make(map[string]*model.Track, len(tracks))
	for _, t := range tracks {
		l.order = append(l.order, t.ID)
		l.tracks[t.ID] = t
	}
}

// Prepend puts a track at the head of the library.
func (l *Library) Prepend(t *model.Track) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.tracks[t.ID]; !exists {
		l.order = append([]string{t.ID}, l.order...)
	}
	l.tracks[t.ID] = t
}

// Remove drops a track from the library.
func (l *Library) Remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.tracks[id]; !exists {
		return
	}
	delete(l.tracks, id)
	filtered := l.order[:0]
	for _, item := range l.order {
		if item != id {
			filtered = append(filtered, item)
		}
	}
	l.order = filtered
}

// Get returns the track or nil when absent.
func (l *Library) Get(id string) *model.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tracks[id]
}

// Tracks returns the tracks in library order.
func (l *Library) Tracks() []*model.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*model.Track, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.tracks[id])
	}
	return out
}

// IDs returns the track IDs in library order.
func (l *Library) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Len returns the number of tracks.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}
