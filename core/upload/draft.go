package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"jzonefm/cache"
	"jzonefm/logger"
	"jzonefm/model"
	"jzonefm/repository"
	"jzonefm/storage"
)

// Phase of the upload flow.
type Phase string

const (
	PhaseSelecting Phase = "selecting"
	PhaseEditing   Phase = "editing"
)

// 元数据缺失时的兜底文案
const (
	FallbackTitle  = "未命名"
	FallbackArtist = "未知艺人"
	FallbackAlbum  = "未知专辑"
)

// 试听区间的最小长度（秒）
const minTrimGap = 1.0

// Meta 草稿元数据，作为 JSON 持久化到草稿存储的 meta 键
type Meta struct {
	Phase         Phase    `json:"phase"`
	Title         string   `json:"title"`
	Artist        string   `json:"artist"`
	Album         string   `json:"album"`
	Tags          []string `json:"tags,omitempty"`
	Note          string   `json:"note,omitempty"`
	TrimStart     float64  `json:"trimStart"`
	TrimEnd       float64  `json:"trimEnd"`
	Duration      float64  `json:"duration"`
	CoverSeed     string   `json:"coverSeed"`
	AudioFilename string   `json:"audioFilename,omitempty"`
	CoverFilename string   `json:"coverFilename,omitempty"`
	UpdatedAt     int64    `json:"updatedAt"`
}

// Blob 草稿中的音频或封面文件
type Blob struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Draft 单个用户的上传草稿
type Draft struct {
	meta           Meta
	audio          *Blob
	cover          *Blob
	previewPlaying bool
}

// Manager owns one draft per user and drives the upload flow from file
// selection through trim editing to confirmation.
type Manager struct {
	mu     sync.Mutex
	drafts map[int64]*Draft

	store  storage.ObjectStore
	tracks repository.TrackRepository

	draftTTL      time.Duration
	maxDraftBytes int64

	// onCreated runs after a confirmed track is persisted, wiring the
	// new track into the library and queue.
	onCreated func(*model.Track)
}

// NewManager creates an upload manager.
func NewManager(store storage.ObjectStore, tracks repository.TrackRepository, draftTTL time.Duration, maxDraftBytes int64, onCreated func(*model.Track)) *Manager {
	return &Manager{
		drafts:        make(map[int64]*Draft),
		store:         store,
		tracks:        tracks,
		draftTTL:      draftTTL,
		maxDraftBytes: maxDraftBytes,
		onCreated:     onCreated,
	}
}

func newDraft() *Draft {
	return &Draft{
		meta: Meta{
			Phase:     PhaseSelecting,
			CoverSeed: uuid.NewString()[:8],
		},
	}
}

// draftLocked returns the in-memory draft for a user, restoring it from
// the draft store on first access. Partial or corrupt persisted state
// falls back to whatever survives.
func (m *Manager) draftLocked(ctx context.Context, userID int64) *Draft {
	if d, ok := m.drafts[userID]; ok {
		return d
	}

	d := newDraft()
	if metaJSON, err := cache.GetDraftMeta(ctx, userID); err == nil && metaJSON != nil {
		var meta Meta
		if err := json.Unmarshal(metaJSON, &meta); err == nil {
			d.meta = meta
		} else {
			logger.Warn("[Upload] 草稿元数据损坏，已忽略",
				logger.Int64("userId", userID),
				logger.ErrorField(err))
		}
	}
	if blob, err := cache.GetDraftBlob(ctx, userID, cache.DraftSlotAudio); err == nil && blob != nil {
		d.audio = &Blob{Filename: blob.Filename, ContentType: blob.ContentType, Data: blob.Data}
	}
	if blob, err := cache.GetDraftBlob(ctx, userID, cache.DraftSlotCover); err == nil && blob != nil {
		d.cover = &Blob{Filename: blob.Filename, ContentType: blob.ContentType, Data: blob.Data}
	}

	// 有音频才算处于编辑阶段
	if d.audio == nil {
		d.meta.Phase = PhaseSelecting
	}

	m.drafts[userID] = d
	return d
}

// Snapshot returns a copy of the user's draft metadata plus whether the
// audio and cover blobs are present.
func (m *Manager) Snapshot(ctx context.Context, userID int64) (Meta, bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.draftLocked(ctx, userID)
	return d.meta, d.audio != nil, d.cover != nil
}

// SelectAudio moves the draft into the editing phase. Title and artist
// come from embedded tags first, then from splitting the filename on
// "-". Duration is probed from mp3 frames, falling back to the
// client-declared value. The bytes are persisted in the background.
func (m *Manager) SelectAudio(ctx context.Context, userID int64, filename, declaredType string, declaredDuration float64, data []byte) (Meta, error) {
	if len(data) == 0 {
		return Meta{}, fmt.Errorf("empty audio file")
	}
	if !storage.IsAudioFilename(filename) && !strings.HasPrefix(declaredType, "audio/") {
		return Meta{}, fmt.Errorf("unsupported audio file: %s", filename)
	}

	contentType := storage.GuessContentType(filename, declaredType)

	title, artist, album := probeTags(data)
	if title == "" || artist == "" {
		fnArtist, fnTitle := deriveFromFilename(filename)
		if title == "" {
			title = fnTitle
		}
		if artist == "" {
			artist = fnArtist
		}
	}

	duration := declaredDuration
	if strings.EqualFold(path.Ext(filename), ".mp3") {
		if probed := probeMP3Duration(data); probed > 0 {
			duration = probed
		}
	}

	m.mu.Lock()
	d := m.draftLocked(ctx, userID)
	d.audio = &Blob{Filename: filename, ContentType: contentType, Data: data}
	d.meta.Phase = PhaseEditing
	d.meta.Title = title
	d.meta.Artist = artist
	d.meta.Album = album
	d.meta.AudioFilename = filename
	d.meta.Duration = duration
	d.meta.TrimStart = 0
	d.meta.TrimEnd = duration
	d.meta.UpdatedAt = time.Now().UnixMilli()
	meta := d.meta
	m.mu.Unlock()

	m.persistBlob(userID, cache.DraftSlotAudio, filename, contentType, data)
	m.persistMeta(userID, meta)
	return meta, nil
}

// SetCover attaches a cover image to the draft.
func (m *Manager) SetCover(ctx context.Context, userID int64, filename, declaredType string, data []byte) (Meta, error) {
	if len(data) == 0 {
		return Meta{}, fmt.Errorf("empty cover file")
	}
	contentType := storage.GuessContentType(filename, declaredType)
	if !strings.HasPrefix(contentType, "image/") {
		return Meta{}, fmt.Errorf("unsupported cover file: %s", filename)
	}

	m.mu.Lock()
	d := m.draftLocked(ctx, userID)
	d.cover = &Blob{Filename: filename, ContentType: contentType, Data: data}
	d.meta.CoverFilename = filename
	d.meta.UpdatedAt = time.Now().UnixMilli()
	meta := d.meta
	m.mu.Unlock()

	m.persistBlob(userID, cache.DraftSlotCover, filename, contentType, data)
	m.persistMeta(userID, meta)
	return meta, nil
}

// UpdateInfo overwrites the editable text fields of the draft.
func (m *Manager) UpdateInfo(ctx context.Context, userID int64, title, artist, album, note string, tags []string) Meta {
	m.mu.Lock()
	d := m.draftLocked(ctx, userID)
	d.meta.Title = title
	d.meta.Artist = artist
	d.meta.Album = album
	d.meta.Note = note
	d.meta.Tags = tags
	d.meta.UpdatedAt = time.Now().UnixMilli()
	meta := d.meta
	m.mu.Unlock()

	m.persistMeta(userID, meta)
	return meta
}

// SetTrimStart moves the window start, clamped so at least one second
// remains before the window end.
func (m *Manager) SetTrimStart(ctx context.Context, userID int64, t float64) Meta {
	m.mu.Lock()
	d := m.draftLocked(ctx, userID)
	if t < 0 {
		t = 0
	}
	if max := d.meta.TrimEnd - minTrimGap; t > max {
		t = max
	}
	if t < 0 {
		t = 0
	}
	d.meta.TrimStart = t
	d.meta.UpdatedAt = time.Now().UnixMilli()
	meta := d.meta
	m.mu.Unlock()

	m.persistMeta(userID, meta)
	return meta
}

// SetTrimEnd moves the window end, clamped so at least one second
// remains after the window start, capped at the track duration.
func (m *Manager) SetTrimEnd(ctx context.Context, userID int64, t float64) Meta {
	m.mu.Lock()
	d := m.draftLocked(ctx, userID)
	if min := d.meta.TrimStart + minTrimGap; t < min {
		t = min
	}
	if d.meta.Duration > 0 && t > d.meta.Duration {
		t = d.meta.Duration
	}
	d.meta.TrimEnd = t
	d.meta.UpdatedAt = time.Now().UnixMilli()
	meta := d.meta
	m.mu.Unlock()

	m.persistMeta(userID, meta)
	return meta
}

// ClickSeek maps a proportional click on the waveform (0..1) to a
// playback position. The pointer time wins even outside the trim window.
func (m *Manager) ClickSeek(ctx context.Context, userID int64, frac float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.draftLocked(ctx, userID)

	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return frac * d.meta.Duration
}

// StartPreview marks the trim preview as playing.
func (m *Manager) StartPreview(ctx context.Context, userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.draftLocked(ctx, userID).previewPlaying = true
}

// PreviewProgress feeds a preview position. Reaching the window end
// pauses the preview rather than looping. Reports whether the preview
// is still playing.
func (m *Manager) PreviewProgress(ctx context.Context, userID int64, pos float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.draftLocked(ctx, userID)
	if d.meta.TrimEnd > 0 && pos >= d.meta.TrimEnd {
		d.previewPlaying = false
	}
	return d.previewPlaying
}

// Discard drops the draft and its persisted copy, resetting to the
// selection phase with a fresh placeholder cover seed.
func (m *Manager) Discard(ctx context.Context, userID int64) {
	m.mu.Lock()
	m.drafts[userID] = newDraft()
	m.mu.Unlock()

	cache.ClearDraft(ctx, userID)
}

// Confirm validates the draft, uploads its blobs, inserts the track row
// and hands the track to the library. On a failed insert the uploaded
// blobs are removed and the draft stays intact for a retry.
func (m *Manager) Confirm(ctx context.Context, userID int64) (*model.Track, error) {
	m.mu.Lock()
	d := m.draftLocked(ctx, userID)
	if d.audio == nil {
		m.mu.Unlock()
		return nil, ErrNoAudio
	}
	meta := d.meta
	audio := d.audio
	cover := d.cover
	m.mu.Unlock()

	if !(meta.TrimStart >= 0 && meta.TrimStart < meta.TrimEnd && meta.TrimEnd <= meta.Duration) {
		return nil, ErrInvalidTrim
	}

	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = FallbackTitle
	}
	artist := strings.TrimSpace(meta.Artist)
	if artist == "" {
		artist = FallbackArtist
	}
	album := strings.TrimSpace(meta.Album)
	if album == "" {
		album = FallbackAlbum
	}

	trackID := uuid.NewString()
	audioKey := fmt.Sprintf("%d/%s/audio%s", userID, trackID, strings.ToLower(path.Ext(audio.Filename)))

	if err := m.putBlob(ctx, audioKey, audio); err != nil {
		return nil, &SaveError{Err: err}
	}

	coverPath := fmt.Sprintf("https://picsum.photos/seed/%s/500", meta.CoverSeed)
	var coverKey string
	if cover != nil {
		coverKey = fmt.Sprintf("%d/%s/cover%s", userID, trackID, strings.ToLower(path.Ext(cover.Filename)))
		if err := m.putBlob(ctx, coverKey, cover); err != nil {
			m.removeBlob(audioKey)
			return nil, &SaveError{Err: err}
		}
		coverPath = coverKey
	}

	track := &model.Track{
		ID:         trackID,
		OwnerID:    userID,
		Title:      title,
		Artist:     artist,
		Album:      album,
		AudioPath:  audioKey,
		CoverPath:  coverPath,
		Duration:   meta.Duration,
		TrimStart:  meta.TrimStart,
		TrimEnd:    meta.TrimEnd,
		Visibility: model.VisibilityPublic,
		AddedAt:    time.Now().UnixMilli(),
	}

	if err := m.tracks.CreateTrack(track); err != nil {
		// 补偿删除已上传的对象，草稿保留以便重试
		m.removeBlob(audioKey)
		if coverKey != "" {
			m.removeBlob(coverKey)
		}
		logger.Error("[Upload] 保存曲目失败，已回收上传对象",
			logger.Int64("userId", userID),
			logger.String("trackId", trackID),
			logger.ErrorField(err))
		return nil, &SaveError{Err: err}
	}

	m.mu.Lock()
	m.drafts[userID] = newDraft()
	m.mu.Unlock()
	cache.ClearDraft(ctx, userID)

	if m.onCreated != nil {
		m.onCreated(track)
	}

	logger.Info("[Upload] 曲目创建成功",
		logger.Int64("userId", userID),
		logger.String("trackId", trackID),
		logger.String("title", title))
	return track, nil
}

// putBlob uploads a draft blob to the object store.
func (m *Manager) putBlob(ctx context.Context, key string, blob *Blob) error {
	return m.store.Put(ctx, key, bytes.NewReader(blob.Data), int64(len(blob.Data)), blob.ContentType)
}

func (m *Manager) removeBlob(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.store.Remove(ctx, key); err != nil {
		logger.Warn("[Upload] 回收对象失败", logger.String("key", key), logger.ErrorField(err))
	}
}

// persistBlob saves a draft blob in the background. Persistence is best
// effort and never blocks the upload flow.
func (m *Manager) persistBlob(userID int64, slot, filename, contentType string, data []byte) {
	blob := &cache.DraftBlob{Filename: filename, ContentType: contentType, Data: data}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		cache.SaveDraftBlob(ctx, userID, slot, blob, m.draftTTL, m.maxDraftBytes)
	}()
}

func (m *Manager) persistMeta(userID int64, meta Meta) {
	data, err := json.Marshal(meta)
	if err != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		cache.SaveDraftMeta(ctx, userID, data, m.draftTTL)
	}()
}
