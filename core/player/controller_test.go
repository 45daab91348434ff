package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"jzonefm/model"
)

type fakeDevice struct {
	mu       sync.Mutex
	src      string
	duration float64
	pos      float64
	playing  bool
	volume   float64
	blocks   map[string]chan struct{}
	loads    []string
	progress map[int]func(float64)
	ended    map[int]func()
	nextID   int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		volume:   1.0,
		blocks:   make(map[string]chan struct{}),
		progress: make(map[int]func(float64)),
		ended:    make(map[int]func()),
	}
}

// blockLoad makes Load for the given source wait until the returned
// channel is closed.
func (d *fakeDevice) blockLoad(src string) chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := make(chan struct{})
	d.blocks[src] = ch
	return ch
}

func (d *fakeDevice) Load(ctx context.Context, src string, duration float64) error {
	d.mu.Lock()
	ch := d.blocks[src]
	d.mu.Unlock()
	if ch != nil {
		<-ch
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.src = src
	d.duration = duration
	d.pos = 0
	d.playing = false
	d.loads = append(d.loads, src)
	return nil
}

func (d *fakeDevice) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = true
	return nil
}

func (d *fakeDevice) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = false
	return nil
}

func (d *fakeDevice) Seek(pos float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pos = pos
	return nil
}

func (d *fakeDevice) SetVolume(v float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = v
	return nil
}

func (d *fakeDevice) Position() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos
}

func (d *fakeDevice) OnProgress(fn func(pos float64)) (cancel func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.progress[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.progress, id)
	}
}

func (d *fakeDevice) OnEnded(fn func()) (cancel func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.ended[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.ended, id)
	}
}

func (d *fakeDevice) Close() error { return nil }

func (d *fakeDevice) fireProgress(pos float64) {
	d.mu.Lock()
	d.pos = pos
	fns := make([]func(float64), 0, len(d.progress))
	for _, fn := range d.progress {
		fns = append(fns, fn)
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn(pos)
	}
}

func (d *fakeDevice) fireEnded() {
	d.mu.Lock()
	fns := make([]func(), 0, len(d.ended))
	for _, fn := range d.ended {
		fns = append(fns, fn)
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func testTrack(id string, trimStart, trimEnd, duration float64) *model.Track {
	return &model.Track{
		ID:        id,
		Title:     "title-" + id,
		Duration:  duration,
		TrimStart: trimStart,
		TrimEnd:   trimEnd,
	}
}

func newTestController(tracks ...*model.Track) (*Controller, *fakeDevice) {
	dev := newFakeDevice()
	lib := NewLibrary()
	lib.Rebuild(tracks)
	queue := NewQueue(lib.IDs()...)
	resolve := func(ctx context.Context, t *model.Track) (string, error) {
		return "src-" + t.ID, nil
	}
	return NewController(dev, lib, queue, resolve, nil), dev
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestPlayStartsFromTrimStart(t *testing.T) {
	c, dev := newTestController(testTrack("a", 10, 50, 100))

	if err := c.Play(context.Background(), "a"); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}

	state := c.State()
	if state.CurrentTrackID != "a" {
		t.Fatalf("expected current track a, got %q", state.CurrentTrackID)
	}
	if !state.IsPlaying {
		t.Fatal("expected playing state")
	}
	if state.CurrentTime != 10 {
		t.Fatalf("expected position at trim start 10, got %v", state.CurrentTime)
	}
	if dev.Position() != 10 {
		t.Fatalf("expected device seeked to 10, got %v", dev.Position())
	}
}

func TestPlaySameTrackToggles(t *testing.T) {
	c, _ := newTestController(testTrack("a", 0, 100, 100))

	ctx := context.Background()
	if err := c.Play(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := c.Play(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if c.State().IsPlaying {
		t.Fatal("second Play of the same track should pause")
	}
	if got := c.State().CurrentTrackID; got != "a" {
		t.Fatalf("selection should be preserved, got %q", got)
	}

	if err := c.Play(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if !c.State().IsPlaying {
		t.Fatal("third Play of the same track should resume")
	}
}

func TestRapidPlayDiscardsStaleLoad(t *testing.T) {
	c, dev := newTestController(
		testTrack("a", 0, 100, 100),
		testTrack("b", 5, 90, 100),
	)

	release := dev.blockLoad("src-a")

	done := make(chan error, 1)
	go func() { done <- c.Play(context.Background(), "a") }()

	// b 的请求在 a 还在加载时发出
	waitFor(t, func() bool { return c.State().CurrentTrackID == "a" }, "selection never moved to a")
	if err := c.Play(context.Background(), "b"); err != nil {
		t.Fatalf("Play(b) returned error: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("superseded Play(a) should be silently discarded, got %v", err)
	}

	state := c.State()
	if state.CurrentTrackID != "b" {
		t.Fatalf("expected current track b, got %q", state.CurrentTrackID)
	}
	if !state.IsPlaying {
		t.Fatal("expected b to be playing")
	}
	if state.CurrentTime != 5 {
		t.Fatalf("expected b position at its trim start 5, got %v", state.CurrentTime)
	}
}

func TestPlayUnknownTrack(t *testing.T) {
	c, _ := newTestController(testTrack("a", 0, 100, 100))

	err := c.Play(context.Background(), "missing")
	var pe *PlaybackError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PlaybackError, got %v", err)
	}
	if !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("expected ErrTrackNotFound, got %v", err)
	}
	if c.State().CurrentTrackID != "" {
		t.Fatal("failed play should not select a track")
	}
}

func TestPlayResolveFailureKeepsSelection(t *testing.T) {
	dev := newFakeDevice()
	lib := NewLibrary()
	lib.Rebuild([]*model.Track{testTrack("a", 0, 100, 100)})
	queue := NewQueue(lib.IDs()...)
	resolve := func(ctx context.Context, tr *model.Track) (string, error) {
		return "", fmt.Errorf("signed url unavailable")
	}
	c := NewController(dev, lib, queue, resolve, nil)

	err := c.Play(context.Background(), "a")
	var pe *PlaybackError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PlaybackError, got %v", err)
	}

	state := c.State()
	if state.CurrentTrackID != "a" {
		t.Fatal("selection should be preserved after a genuine failure")
	}
	if state.IsPlaying {
		t.Fatal("failed play must not report playing")
	}
}

func TestSeekClampsToTrimWindow(t *testing.T) {
	c, _ := newTestController(testTrack("a", 10, 50, 100))
	if err := c.Play(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		seek float64
		want float64
	}{
		{5, 10},
		{60, 50},
		{30, 30},
		{-3, 10},
	}
	for _, tc := range cases {
		if err := c.Seek(tc.seek); err != nil {
			t.Fatal(err)
		}
		if got := c.State().CurrentTime; got != tc.want {
			t.Errorf("Seek(%v) = %v, want %v", tc.seek, got, tc.want)
		}
	}
}

func TestSetVolumeClamps(t *testing.T) {
	c, dev := newTestController(testTrack("a", 0, 100, 100))

	if err := c.SetVolume(1.5); err != nil {
		t.Fatal(err)
	}
	if got := c.State().Volume; got != 1.0 {
		t.Fatalf("SetVolume(1.5) = %v, want 1.0", got)
	}

	if err := c.SetVolume(-0.2); err != nil {
		t.Fatal(err)
	}
	if got := c.State().Volume; got != 0.0 {
		t.Fatalf("SetVolume(-0.2) = %v, want 0.0", got)
	}

	dev.mu.Lock()
	v := dev.volume
	dev.mu.Unlock()
	if v != 0.0 {
		t.Fatalf("device volume = %v, want 0.0", v)
	}
}

func TestTrimEndLoopsBackAndKeepsPlaying(t *testing.T) {
	c, dev := newTestController(testTrack("a", 10, 50, 100))
	if err := c.Play(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}

	dev.fireProgress(50.2)

	state := c.State()
	if state.CurrentTime != 10 {
		t.Fatalf("expected loop back to trim start 10, got %v", state.CurrentTime)
	}
	if !state.IsPlaying {
		t.Fatal("playback must continue after looping")
	}
	if dev.Position() != 10 {
		t.Fatalf("device should be seeked to 10, got %v", dev.Position())
	}
}

func TestProgressSnapsForwardBeforeTrimStart(t *testing.T) {
	c, dev := newTestController(testTrack("a", 10, 50, 100))
	if err := c.Play(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}

	dev.fireProgress(3)

	if got := c.State().CurrentTime; got != 10 {
		t.Fatalf("expected snap forward to 10, got %v", got)
	}
}

func TestQueueWraparound(t *testing.T) {
	c, _ := newTestController(
		testTrack("a", 0, 100, 100),
		testTrack("b", 0, 100, 100),
		testTrack("c", 0, 100, 100),
	)

	ctx := context.Background()
	if err := c.Play(ctx, "a"); err != nil {
		t.Fatal(err)
	}

	want := []string{"b", "c", "a"}
	for _, expected := range want {
		if err := c.Next(ctx); err != nil {
			t.Fatal(err)
		}
		if got := c.State().CurrentTrackID; got != expected {
			t.Fatalf("Next moved to %q, want %q", got, expected)
		}
	}
}

func TestNextThenPreviousReturnsToSameTrack(t *testing.T) {
	c, _ := newTestController(
		testTrack("a", 0, 100, 100),
		testTrack("b", 0, 100, 100),
		testTrack("c", 0, 100, 100),
	)

	ctx := context.Background()
	if err := c.Play(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if err := c.Next(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Previous(ctx); err != nil {
		t.Fatal(err)
	}
	if got := c.State().CurrentTrackID; got != "b" {
		t.Fatalf("next then previous should return to b, got %q", got)
	}
}

func TestNextOnEmptyQueueIsNoop(t *testing.T) {
	c, _ := newTestController()
	if err := c.Next(context.Background()); err != nil {
		t.Fatalf("Next on empty queue should be a no-op, got %v", err)
	}
	if c.State().CurrentTrackID != "" {
		t.Fatal("no track should be selected")
	}
}

func TestEndedAdvancesToNextTrack(t *testing.T) {
	c, dev := newTestController(
		testTrack("a", 0, 100, 100),
		testTrack("b", 0, 100, 100),
	)

	if err := c.Play(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}

	dev.fireEnded()
	waitFor(t, func() bool { return c.State().CurrentTrackID == "b" }, "ended should advance to b")
}

func TestRemoveTrackClearsCurrentSelection(t *testing.T) {
	c, _ := newTestController(
		testTrack("a", 0, 100, 100),
		testTrack("b", 0, 100, 100),
	)

	if err := c.Play(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}

	c.RemoveTrack("a")
	state := c.State()
	if state.CurrentTrackID != "" || state.IsPlaying {
		t.Fatal("removing the current track should stop playback and clear selection")
	}
	for _, id := range state.Queue {
		if id == "a" {
			t.Fatal("removed track still present in queue")
		}
	}
}

func TestAddTrackPrependsToQueue(t *testing.T) {
	c, _ := newTestController(testTrack("a", 0, 100, 100))

	c.AddTrack(testTrack("new", 0, 60, 60))
	state := c.State()
	if len(state.Queue) != 2 || state.Queue[0] != "new" {
		t.Fatalf("expected new track at queue head, got %v", state.Queue)
	}
}

func TestSubscribeReceivesStateChanges(t *testing.T) {
	c, _ := newTestController(testTrack("a", 0, 100, 100))

	var mu sync.Mutex
	var last model.PlayerState
	var seen bool
	cancel := c.Subscribe(func(s model.PlayerState) {
		mu.Lock()
		last = s
		seen = true
		mu.Unlock()
	})
	defer cancel()

	if err := c.Play(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen && last.CurrentTrackID == "a"
	}, "subscriber never observed the play state")
}
