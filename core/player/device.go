package player

import (
	"context"
	"sync"
	"time"
)

// Device 播放设备抽象，对应一次媒体会话
// Load 在媒体元数据就绪后才返回，进度与结束事件通过监听器回调
type Device interface {
	// Load prepares a new source. Duration is the full media length in
	// seconds and is known by the caller from track metadata.
	Load(ctx context.Context, src string, duration float64) error
	Play() error
	Pause() error
	Seek(pos float64) error
	SetVolume(v float64) error
	Position() float64
	// OnProgress registers a progress listener and returns its
	// deregistration func.
	OnProgress(fn func(pos float64)) (cancel func())
	// OnEnded registers an end-of-media listener.
	OnEnded(fn func()) (cancel func())
	Close() error
}

// ClockDevice 基于时钟推进播放位置的设备实现
// 不做任何解码，位置按真实时间流逝推进
type ClockDevice struct {
	mu         sync.Mutex
	src        string
	duration   float64
	pos        float64
	playing    bool
	volume     float64
	lastTick   time.Time
	progressID int
	endedID    int
	onProgress map[int]func(pos float64)
	onEnded    map[int]func()

	ticker *time.Ticker
	done   chan struct{}
}

const tickInterval = 200 * time.Millisecond

// NewClockDevice starts the device clock.
func NewClockDevice() *ClockDevice {
	d := &ClockDevice{
		volume:     1.0,
		onProgress: make(map[int]func(pos float64)),
		onEnded:    make(map[int]func()),
		ticker:     time.NewTicker(tickInterval),
		done:       make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *ClockDevice) loop() {
	for {
		select {
		case <-d.done:
			return
		case now := <-d.ticker.C:
			d.tick(now)
		}
	}
}

func (d *ClockDevice) tick(now time.Time) {
	d.mu.Lock()
	if !d.playing || d.src == "" {
		d.lastTick = now
		d.mu.Unlock()
		return
	}

	elapsed := now.Sub(d.lastTick).Seconds()
	d.lastTick = now
	d.pos += elapsed

	ended := d.duration > 0 && d.pos >= d.duration
	if ended {
		d.pos = d.duration
		d.playing = false
	}

	// 回调在锁外触发
	progress := make([]func(pos float64), 0, len(d.onProgress))
	for _, fn := range d.onProgress {
		progress = append(progress, fn)
	}
	var endedFns []func()
	if ended {
		for _, fn := range d.onEnded {
			endedFns = append(endedFns, fn)
		}
	}
	pos := d.pos
	d.mu.Unlock()

	for _, fn := range progress {
		fn(pos)
	}
	for _, fn := range endedFns {
		fn()
	}
}

// Load swaps in a new source and resets the position.
func (d *ClockDevice) Load(ctx context.Context, src string, duration float64) error {
	if err := ctx.Err(); err != nil {
		return &LoadError{Src: src, Err: err}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.src = src
	d.duration = duration
	d.pos = 0
	d.playing = false
	d.lastTick = time.Now()
	return nil
}

func (d *ClockDevice) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = true
	d.lastTick = time.Now()
	return nil
}

func (d *ClockDevice) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = false
	return nil
}

func (d *ClockDevice) Seek(pos float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if pos < 0 {
		pos = 0
	}
	if d.duration > 0 && pos > d.duration {
		pos = d.duration
	}
	d.pos = pos
	d.lastTick = time.Now()
	return nil
}

func (d *ClockDevice) SetVolume(v float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = v
	return nil
}

func (d *ClockDevice) Position() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos
}

func (d *ClockDevice) OnProgress(fn func(pos float64)) (cancel func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.progressID
	d.progressID++
	d.onProgress[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.onProgress, id)
	}
}

func (d *ClockDevice) OnEnded(fn func()) (cancel func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.endedID
	d.endedID++
	d.onEnded[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.onEnded, id)
	}
}

func (d *ClockDevice) Close() error {
	d.ticker.Stop()
	close(d.done)
	return nil
}
