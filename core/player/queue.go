package player

import "sync"

// Queue 扁平播放队列，允许重复的曲目ID，导航支持首尾回绕
type Queue struct {
	mu    sync.RWMutex
	items []string
}

// NewQueue creates a queue seeded with the given track IDs.
func NewQueue(ids ...string) *Queue {
	q := &Queue{}
	q.items = append(q.items, ids...)
	return q
}

// Items returns a copy of the queue contents.
func (q *Queue) Items() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]string, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of entries.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

// Prepend puts a track at the head of the queue.
func (q *Queue) Prepend(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([]string{id}, q.items...)
}

// RemoveAll filters out every occurrence of the track.
func (q *Queue) RemoveAll(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	filtered := q.items[:0]
	for _, item := range q.items {
		if item != id {
			filtered = append(filtered, item)
		}
	}
	q.items = filtered
}

// Replace swaps the whole queue contents.
func (q *Queue) Replace(ids []string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = make([]string, len(ids))
	copy(q.items, ids)
}

// IndexOf returns the first index of the track, -1 when absent.
func (q *Queue) IndexOf(id string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for i, item := range q.items {
		if item == id {
			return i
		}
	}
	return -1
}

// NextAfter returns the entry after the given track, wrapping at the
// end. An absent current track resolves to the head of the queue.
func (q *Queue) NextAfter(id string) (string, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if len(q.items) == 0 {
		return "", false
	}
	idx := -1
	for i, item := range q.items {
		if item == id {
			idx = i
			break
		}
	}
	return q.items[(idx+1)%len(q.items)], true
}

// PrevBefore returns the entry before the given track, wrapping at the
// head.
func (q *Queue) PrevBefore(id string) (string, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if len(q.items) == 0 {
		return "", false
	}
	idx := -1
	for i, item := range q.items {
		if item == id {
			idx = i
			break
		}
	}
	return q.items[(idx-1+len(q.items))%len(q.items)], true
}
