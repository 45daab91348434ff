package server

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"jzonefm/cache"
	"jzonefm/logger"
	"jzonefm/model"

	"github.com/gorilla/mux"
)

// GetTracksHandler 返回当前用户可见的曲目：公开曲目加上自己的私有曲目
func (h *APIHandler) GetTracksHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	tracks, err := h.trackRepo.GetTracksVisibleTo(userID)
	if err != nil {
		logger.Error("[Tracks] 查询曲目列表失败", logger.ErrorField(err))
		http.Error(w, "Failed to list tracks", http.StatusInternalServerError)
		return
	}
	if tracks == nil {
		tracks = []*model.Track{}
	}

	writeJSON(w, http.StatusOK, tracks)
}

// TrackURLHandler 返回曲目音频的签名播放地址
func (h *APIHandler) TrackURLHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	trackID := mux.Vars(r)["id"]
	track, err := h.trackRepo.GetTrackByID(trackID)
	if err != nil {
		logger.Error("[Tracks] 查询曲目失败", logger.String("trackId", trackID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if track == nil {
		http.Error(w, "Track not found", http.StatusNotFound)
		return
	}
	if track.Visibility != model.VisibilityPublic && track.OwnerID != userID {
		http.Error(w, "Track not found", http.StatusNotFound)
		return
	}

	url, err := h.resolveObjectURL(r.Context(), track.AudioPath)
	if err != nil {
		logger.Error("[Tracks] 生成签名URL失败", logger.String("trackId", trackID), logger.ErrorField(err))
		http.Error(w, "Failed to sign URL", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// DeleteTrackHandler 删除曲目：先删数据库行，再尽力删除音频与封面对象
// 对象删除失败只记日志，不回滚
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	trackID := mux.Vars(r)["id"]
	track, err := h.trackRepo.GetTrackByID(trackID)
	if err != nil {
		logger.Error("[Tracks] 查询曲目失败", logger.String("trackId", trackID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if track == nil {
		http.Error(w, "Track not found", http.StatusNotFound)
		return
	}
	if track.OwnerID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := h.trackRepo.DeleteTrack(trackID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Track not found", http.StatusNotFound)
			return
		}
		logger.Error("[Tracks] 删除曲目行失败", logger.String("trackId", trackID), logger.ErrorField(err))
		http.Error(w, "Failed to delete track", http.StatusInternalServerError)
		return
	}

	// 数据库行已删，对象回收尽力而为
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := h.store.Remove(ctx, track.AudioPath); err != nil {
			logger.Warn("[Tracks] 删除音频对象失败",
				logger.String("trackId", trackID),
				logger.String("key", track.AudioPath),
				logger.ErrorField(err))
		}
		// 外链占位封面没有对应对象
		if track.CoverPath != "" && !strings.HasPrefix(track.CoverPath, "http") {
			if err := h.store.Remove(ctx, track.CoverPath); err != nil {
				logger.Warn("[Tracks] 删除封面对象失败",
					logger.String("trackId", trackID),
					logger.String("key", track.CoverPath),
					logger.ErrorField(err))
			}
		}
	}()

	h.player.RemoveTrack(trackID)

	logger.Info("[Tracks] 曲目已删除",
		logger.String("trackId", trackID),
		logger.Int64("userId", userID))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// resolveObjectURL 签名URL带缓存，提前30秒过期由缓存层处理
func (h *APIHandler) resolveObjectURL(ctx context.Context, key string) (string, error) {
	if url, ok := cache.GetSignedURL(ctx, key); ok {
		return url, nil
	}

	url, err := h.store.SignedURL(ctx, key, h.cfg.SignedURLTTL)
	if err != nil {
		return "", err
	}

	cache.SetSignedURL(ctx, key, url, h.cfg.SignedURLTTL)
	return url, nil
}
