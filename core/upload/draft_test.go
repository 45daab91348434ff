package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"jzonefm/model"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
	failPut bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if s.failPut {
		return fmt.Errorf("storage unavailable")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *fakeStore) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://signed/" + key, nil
}

func (s *fakeStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.removed = append(s.removed, key)
	return nil
}

type fakeTrackRepo struct {
	mu         sync.Mutex
	created    []*model.Track
	failCreate bool
}

func (r *fakeTrackRepo) CreateTrack(track *model.Track) error {
	if r.failCreate {
		return fmt.Errorf("insert failed")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, track)
	return nil
}

func (r *fakeTrackRepo) GetTrackByID(id string) (*model.Track, error) { return nil, nil }
func (r *fakeTrackRepo) GetTracksVisibleTo(userID int64) ([]*model.Track, error) {
	return nil, nil
}
func (r *fakeTrackRepo) GetTracksByOwner(ownerID int64) ([]*model.Track, error) {
	return nil, nil
}
func (r *fakeTrackRepo) IncrementPlays(id string) error            { return nil }
func (r *fakeTrackRepo) DeleteTrack(id string, ownerID int64) error { return nil }

func newTestManager(store *fakeStore, repo *fakeTrackRepo, onCreated func(*model.Track)) *Manager {
	return NewManager(store, repo, time.Hour, 25<<20, onCreated)
}

const testUser int64 = 7

func selectTestAudio(t *testing.T, m *Manager, filename string, duration float64) Meta {
	t.Helper()
	meta, err := m.SelectAudio(context.Background(), testUser, filename, "audio/mpeg", duration, []byte("not-a-real-mp3"))
	if err != nil {
		t.Fatalf("SelectAudio failed: %v", err)
	}
	return meta
}

func TestSelectAudioDerivesTitleAndArtistFromFilename(t *testing.T) {
	m := newTestManager(newFakeStore(), &fakeTrackRepo{}, nil)

	meta := selectTestAudio(t, m, "周杰伦 - 晴天.mp3", 240)

	if meta.Phase != PhaseEditing {
		t.Fatalf("expected editing phase, got %s", meta.Phase)
	}
	if meta.Artist != "周杰伦" || meta.Title != "晴天" {
		t.Fatalf("filename split gave artist=%q title=%q", meta.Artist, meta.Title)
	}
	if meta.TrimStart != 0 || meta.TrimEnd != 240 {
		t.Fatalf("fresh trim window should span the track, got [%v, %v]", meta.TrimStart, meta.TrimEnd)
	}
}

func TestSelectAudioWithoutSeparatorKeepsTitleOnly(t *testing.T) {
	m := newTestManager(newFakeStore(), &fakeTrackRepo{}, nil)

	meta := selectTestAudio(t, m, "demo.mp3", 30)
	if meta.Title != "demo" || meta.Artist != "" {
		t.Fatalf("got title=%q artist=%q", meta.Title, meta.Artist)
	}
}

func TestTrimDragKeepsOneSecondGap(t *testing.T) {
	m := newTestManager(newFakeStore(), &fakeTrackRepo{}, nil)
	ctx := context.Background()
	selectTestAudio(t, m, "a.mp3", 240)

	// 起点不能顶到终点
	meta := m.SetTrimStart(ctx, testUser, 239.5)
	if meta.TrimStart != 239 {
		t.Fatalf("SetTrimStart(239.5) with end 240 should clamp to 239, got %v", meta.TrimStart)
	}

	m.SetTrimStart(ctx, testUser, 10)
	meta = m.SetTrimEnd(ctx, testUser, 10.2)
	if meta.TrimEnd != 11 {
		t.Fatalf("SetTrimEnd(10.2) with start 10 should clamp to 11, got %v", meta.TrimEnd)
	}

	meta = m.SetTrimEnd(ctx, testUser, 400)
	if meta.TrimEnd != 240 {
		t.Fatalf("SetTrimEnd beyond duration should clamp to 240, got %v", meta.TrimEnd)
	}

	meta = m.SetTrimStart(ctx, testUser, -5)
	if meta.TrimStart != 0 {
		t.Fatalf("negative trim start should clamp to 0, got %v", meta.TrimStart)
	}
}

func TestClickSeekFollowsPointerOutsideWindow(t *testing.T) {
	m := newTestManager(newFakeStore(), &fakeTrackRepo{}, nil)
	ctx := context.Background()
	selectTestAudio(t, m, "a.mp3", 100)
	m.SetTrimStart(ctx, testUser, 20)
	m.SetTrimEnd(ctx, testUser, 80)

	if pos := m.ClickSeek(ctx, testUser, 0.5); pos != 50 {
		t.Fatalf("ClickSeek(0.5) = %v, want 50", pos)
	}
	// 点击区间之外时跟随指针位置，不吸附到区间边缘
	if pos := m.ClickSeek(ctx, testUser, 0.1); pos != 10 {
		t.Fatalf("ClickSeek(0.1) = %v, want 10", pos)
	}
	if pos := m.ClickSeek(ctx, testUser, 0.9); pos != 90 {
		t.Fatalf("ClickSeek(0.9) = %v, want 90", pos)
	}
	// 比例本身仍限定在 0..1
	if pos := m.ClickSeek(ctx, testUser, -0.5); pos != 0 {
		t.Fatalf("ClickSeek(-0.5) = %v, want 0", pos)
	}
	if pos := m.ClickSeek(ctx, testUser, 1.5); pos != 100 {
		t.Fatalf("ClickSeek(1.5) = %v, want 100", pos)
	}
}

func TestPreviewPausesAtWindowEnd(t *testing.T) {
	m := newTestManager(newFakeStore(), &fakeTrackRepo{}, nil)
	ctx := context.Background()
	selectTestAudio(t, m, "a.mp3", 100)
	m.SetTrimEnd(ctx, testUser, 40)

	m.StartPreview(ctx, testUser)
	if !m.PreviewProgress(ctx, testUser, 30) {
		t.Fatal("preview should still be playing inside the window")
	}
	if m.PreviewProgress(ctx, testUser, 40.1) {
		t.Fatal("preview should pause at the window end")
	}
}

func TestConfirmAppliesFallbacks(t *testing.T) {
	store := newFakeStore()
	repo := &fakeTrackRepo{}
	m := newTestManager(store, repo, nil)
	ctx := context.Background()

	selectTestAudio(t, m, "a.mp3", 60)
	m.UpdateInfo(ctx, testUser, "  ", "", "", "", nil)

	track, err := m.Confirm(ctx, testUser)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if track.Title != FallbackTitle {
		t.Errorf("title = %q, want %q", track.Title, FallbackTitle)
	}
	if track.Artist != "未知艺人" {
		t.Errorf("artist = %q, want %q", track.Artist, "未知艺人")
	}
	if track.Album != FallbackAlbum {
		t.Errorf("album = %q, want %q", track.Album, FallbackAlbum)
	}
	if !strings.Contains(track.CoverPath, "picsum.photos/seed/") {
		t.Errorf("missing placeholder cover, got %q", track.CoverPath)
	}
}

func TestConfirmWithoutAudio(t *testing.T) {
	m := newTestManager(newFakeStore(), &fakeTrackRepo{}, nil)

	_, err := m.Confirm(context.Background(), testUser)
	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
}

func TestConfirmRejectsInvalidTrimWindow(t *testing.T) {
	m := newTestManager(newFakeStore(), &fakeTrackRepo{}, nil)

	// 时长未知时试听区间无法成立
	selectTestAudio(t, m, "a.mp3", 0)
	_, err := m.Confirm(context.Background(), testUser)
	if !errors.Is(err, ErrInvalidTrim) {
		t.Fatalf("expected ErrInvalidTrim, got %v", err)
	}
}

func TestConfirmRowFailureRemovesUploadedBlobsAndKeepsDraft(t *testing.T) {
	store := newFakeStore()
	repo := &fakeTrackRepo{failCreate: true}
	m := newTestManager(store, repo, nil)
	ctx := context.Background()

	selectTestAudio(t, m, "a.mp3", 60)

	_, err := m.Confirm(ctx, testUser)
	var se *SaveError
	if !errors.As(err, &se) {
		t.Fatalf("expected SaveError, got %v", err)
	}

	store.mu.Lock()
	removed := len(store.removed)
	remaining := len(store.objects)
	store.mu.Unlock()
	if removed == 0 || remaining != 0 {
		t.Fatalf("uploaded blobs should be compensated away, removed=%d remaining=%d", removed, remaining)
	}

	meta, hasAudio, _ := m.Snapshot(ctx, testUser)
	if meta.Phase != PhaseEditing || !hasAudio {
		t.Fatal("draft must survive a failed save for retry")
	}
}

func TestConfirmSuccessResetsDraftAndNotifies(t *testing.T) {
	store := newFakeStore()
	repo := &fakeTrackRepo{}
	var created *model.Track
	m := newTestManager(store, repo, func(tr *model.Track) { created = tr })
	ctx := context.Background()

	selectTestAudio(t, m, "b.mp3", 90)

	track, err := m.Confirm(ctx, testUser)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if track.ID == "" {
		t.Fatal("track should get a generated ID")
	}
	if !strings.HasPrefix(track.AudioPath, fmt.Sprintf("%d/%s/", testUser, track.ID)) {
		t.Fatalf("audio path layout wrong: %q", track.AudioPath)
	}
	if created == nil || created.ID != track.ID {
		t.Fatal("onCreated callback should receive the new track")
	}

	meta, hasAudio, _ := m.Snapshot(ctx, testUser)
	if meta.Phase != PhaseSelecting || hasAudio {
		t.Fatal("draft should reset after a successful confirm")
	}
}

func TestDiscardResetsCoverSeed(t *testing.T) {
	m := newTestManager(newFakeStore(), &fakeTrackRepo{}, nil)
	ctx := context.Background()

	first, _, _ := m.Snapshot(ctx, testUser)
	m.Discard(ctx, testUser)
	second, _, _ := m.Snapshot(ctx, testUser)

	if first.CoverSeed == "" || first.CoverSeed == second.CoverSeed {
		t.Fatalf("discard should roll a fresh cover seed, got %q then %q", first.CoverSeed, second.CoverSeed)
	}
}
