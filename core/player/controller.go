package player

import (
	"context"
	"sync"

	"jzonefm/logger"
	"jzonefm/model"
)

// SourceResolver turns a track into a playable source URL. Resolution
// may be slow (signed URL round trip), so it runs outside the state lock.
type SourceResolver func(ctx context.Context, track *model.Track) (string, error)

// 进度回调允许的漂移，超过则向前对齐到试听起点
const progressEpsilon = 0.25

// Controller 播放控制器，是 PlayerState 的唯一写入方
// 并发的播放请求通过单调递增的序号仲裁，旧请求静默丢弃
type Controller struct {
	mu      sync.Mutex
	state   model.PlayerState
	device  Device
	library *Library
	queue   *Queue
	resolve SourceResolver

	// recordPlay is invoked fire-and-forget after playback actually starts.
	recordPlay func(trackID string)

	loadSeq    int64
	listeners  map[int]func(model.PlayerState)
	listenerID int
	cancels    []func()
}

// NewController wires a controller to its device and collaborators.
func NewController(device Device, library *Library, queue *Queue, resolve SourceResolver, recordPlay func(trackID string)) *Controller {
	c := &Controller{
		device:     device,
		library:    library,
		queue:      queue,
		resolve:    resolve,
		recordPlay: recordPlay,
		listeners:  make(map[int]func(model.PlayerState)),
	}
	c.state.Volume = 1.0
	c.state.Skin = model.SkinVinyl
	c.state.Queue = queue.Items()

	c.cancels = append(c.cancels,
		device.OnProgress(c.onProgress),
		device.OnEnded(c.onEnded),
	)
	return c
}

// State returns a snapshot of the player state.
func (c *Controller) State() model.PlayerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() model.PlayerState {
	snap := c.state
	snap.Queue = make([]string, len(c.state.Queue))
	copy(snap.Queue, c.state.Queue)
	return snap
}

// Subscribe registers a state listener and returns its deregistration
// func. Listeners fire on every committed state change.
func (c *Controller) Subscribe(fn func(model.PlayerState)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.listenerID
	c.listenerID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Controller) notifyLocked() {
	snap := c.snapshotLocked()
	fns := make([]func(model.PlayerState), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	// 监听器在锁外触发
	go func() {
		for _, fn := range fns {
			fn(snap)
		}
	}()
}

func (c *Controller) syncQueueLocked() {
	c.state.Queue = c.queue.Items()
}

// Play starts playback of a track. Calling it for the track already
// selected toggles play/pause instead of reloading.
func (c *Controller) Play(ctx context.Context, trackID string) error {
	c.mu.Lock()
	if trackID == c.state.CurrentTrackID && trackID != "" {
		c.mu.Unlock()
		return c.TogglePlay()
	}

	track := c.library.Get(trackID)
	if track == nil {
		c.mu.Unlock()
		return &PlaybackError{TrackID: trackID, Err: ErrTrackNotFound}
	}

	// 先暂停旧源，乐观更新当前选择
	c.device.Pause()
	c.loadSeq++
	seq := c.loadSeq
	c.state.CurrentTrackID = trackID
	c.state.CurrentTime = track.TrimStart
	c.state.IsPlaying = false
	c.notifyLocked()
	c.mu.Unlock()

	src, err := c.resolve(ctx, track)
	if err != nil {
		return c.finishLoad(seq, track, err)
	}

	err = c.device.Load(ctx, src, track.Duration)
	return c.finishLoad(seq, track, err)
}

func (c *Controller) finishLoad(seq int64, track *model.Track, loadErr error) error {
	c.mu.Lock()
	if seq != c.loadSeq {
		// 已被更新的播放请求取代
		c.mu.Unlock()
		logger.Debug("[Player] 加载被新请求取代",
			logger.String("trackId", track.ID))
		return nil
	}

	if loadErr != nil {
		c.state.IsPlaying = false
		c.notifyLocked()
		c.mu.Unlock()
		return &PlaybackError{TrackID: track.ID, Err: loadErr}
	}

	c.device.Seek(track.TrimStart)
	if err := c.device.Play(); err != nil {
		c.state.IsPlaying = false
		c.notifyLocked()
		c.mu.Unlock()
		return &PlaybackError{TrackID: track.ID, Err: err}
	}

	c.state.CurrentTime = track.TrimStart
	c.state.IsPlaying = true
	track.PlaysCount++
	c.notifyLocked()
	c.mu.Unlock()

	if c.recordPlay != nil {
		go c.recordPlay(track.ID)
	}
	return nil
}

// TogglePlay pauses when playing and resumes otherwise. Resuming clamps
// a stale position forward to the trim start.
func (c *Controller) TogglePlay() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.CurrentTrackID == "" {
		return nil
	}

	if c.state.IsPlaying {
		c.device.Pause()
		c.state.IsPlaying = false
		c.notifyLocked()
		return nil
	}

	if track := c.library.Get(c.state.CurrentTrackID); track != nil {
		if c.state.CurrentTime < track.TrimStart {
			c.device.Seek(track.TrimStart)
			c.state.CurrentTime = track.TrimStart
		}
	}
	if err := c.device.Play(); err != nil {
		return &PlaybackError{TrackID: c.state.CurrentTrackID, Err: err}
	}
	c.state.IsPlaying = true
	c.notifyLocked()
	return nil
}

// Next advances to the following queue entry, wrapping at the end.
// An empty queue is a no-op.
func (c *Controller) Next(ctx context.Context) error {
	c.mu.Lock()
	current := c.state.CurrentTrackID
	c.mu.Unlock()

	next, ok := c.queue.NextAfter(current)
	if !ok {
		return nil
	}
	return c.Play(ctx, next)
}

// Previous steps back to the preceding queue entry, wrapping at the head.
func (c *Controller) Previous(ctx context.Context) error {
	c.mu.Lock()
	current := c.state.CurrentTrackID
	c.mu.Unlock()

	prev, ok := c.queue.PrevBefore(current)
	if !ok {
		return nil
	}
	return c.Play(ctx, prev)
}

// Seek moves the play position, clamped to the current track's trim
// window. The state updates optimistically.
func (c *Controller) Seek(pos float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pos < 0 {
		pos = 0
	}
	if track := c.library.Get(c.state.CurrentTrackID); track != nil {
		if pos < track.TrimStart {
			pos = track.TrimStart
		}
		if track.TrimEnd > 0 && pos > track.TrimEnd {
			pos = track.TrimEnd
		}
	}

	c.state.CurrentTime = pos
	c.device.Seek(pos)
	c.notifyLocked()
	return nil
}

// SetVolume clamps the volume into [0,1] and applies it immediately.
func (c *Controller) SetVolume(v float64) error {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Volume = v
	c.device.SetVolume(v)
	c.notifyLocked()
	return nil
}

// SetSkin switches the active player appearance.
func (c *Controller) SetSkin(skin model.Skin) error {
	if !model.ValidSkin(skin) {
		return ErrUnknownSkin
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Skin = skin
	c.notifyLocked()
	return nil
}

// AddTrack prepends a freshly created track to the library and the queue.
func (c *Controller) AddTrack(track *model.Track) {
	c.library.Prepend(track)
	c.queue.Prepend(track.ID)

	c.mu.Lock()
	c.syncQueueLocked()
	c.notifyLocked()
	c.mu.Unlock()
}

// RemoveTrack drops a track everywhere. Removing the current track
// stops playback and clears the selection.
func (c *Controller) RemoveTrack(id string) {
	c.library.Remove(id)
	c.queue.RemoveAll(id)

	c.mu.Lock()
	c.syncQueueLocked()
	if c.state.CurrentTrackID == id {
		c.device.Pause()
		c.loadSeq++
		c.state.CurrentTrackID = ""
		c.state.IsPlaying = false
		c.state.CurrentTime = 0
	}
	c.notifyLocked()
	c.mu.Unlock()
}

// RemoveFromQueue filters a track out of the queue only.
func (c *Controller) RemoveFromQueue(id string) {
	c.queue.RemoveAll(id)

	c.mu.Lock()
	c.syncQueueLocked()
	c.notifyLocked()
	c.mu.Unlock()
}

// Rebuild replaces the library and queue from a fresh track listing,
// used at startup and when the backing library changes on disk.
func (c *Controller) Rebuild(tracks []*model.Track) {
	c.library.Rebuild(tracks)
	c.queue.Replace(c.library.IDs())

	c.mu.Lock()
	c.syncQueueLocked()
	if c.state.CurrentTrackID != "" && c.library.Get(c.state.CurrentTrackID) == nil {
		c.device.Pause()
		c.loadSeq++
		c.state.CurrentTrackID = ""
		c.state.IsPlaying = false
		c.state.CurrentTime = 0
	}
	c.notifyLocked()
	c.mu.Unlock()
}

func (c *Controller) onProgress(pos float64) {
	c.mu.Lock()

	track := c.library.Get(c.state.CurrentTrackID)
	if track == nil || !c.state.IsPlaying {
		c.mu.Unlock()
		return
	}

	// 漂移到试听起点之前时向前对齐
	if pos < track.TrimStart-progressEpsilon {
		c.device.Seek(track.TrimStart)
		c.state.CurrentTime = track.TrimStart
		c.notifyLocked()
		c.mu.Unlock()
		return
	}

	// 到达试听终点后回到起点继续播放
	if track.TrimEnd > 0 && pos >= track.TrimEnd {
		c.device.Seek(track.TrimStart)
		c.state.CurrentTime = track.TrimStart
		c.notifyLocked()
		c.mu.Unlock()
		return
	}

	c.state.CurrentTime = pos
	c.notifyLocked()
	c.mu.Unlock()
}

func (c *Controller) onEnded() {
	go func() {
		if err := c.Next(context.Background()); err != nil {
			logger.Warn("[Player] 自动切歌失败", logger.ErrorField(err))
		}
	}()
}

// Close deregisters device listeners and shuts the device down.
func (c *Controller) Close() error {
	for _, cancel := range c.cancels {
		cancel()
	}
	return c.device.Close()
}
