package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"jzonefm/core/player"
	"jzonefm/logger"
	"jzonefm/model"

	"github.com/gorilla/mux"
)

// PlayHandler 播放指定曲目，重复请求同一曲目等价于切换播放/暂停
func (h *APIHandler) PlayHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TrackID string `json:"trackId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TrackID == "" {
		http.Error(w, "trackId is required", http.StatusBadRequest)
		return
	}

	if err := h.player.Play(r.Context(), req.TrackID); err != nil {
		if errors.Is(err, player.ErrTrackNotFound) {
			http.Error(w, "Track not found", http.StatusNotFound)
			return
		}
		logger.Error("[Player] 播放失败", logger.String("trackId", req.TrackID), logger.ErrorField(err))
		http.Error(w, "Playback failed", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, h.player.State())
}

// TogglePlayHandler 切换播放/暂停
func (h *APIHandler) TogglePlayHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.player.TogglePlay(); err != nil {
		logger.Error("[Player] 切换播放状态失败", logger.ErrorField(err))
		http.Error(w, "Playback failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, h.player.State())
}

// NextHandler 切到队列中的下一首，队尾回绕到队首
func (h *APIHandler) NextHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.player.Next(r.Context()); err != nil {
		logger.Error("[Player] 切歌失败", logger.ErrorField(err))
		http.Error(w, "Playback failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, h.player.State())
}

// PreviousHandler 切到队列中的上一首
func (h *APIHandler) PreviousHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.player.Previous(r.Context()); err != nil {
		logger.Error("[Player] 切歌失败", logger.ErrorField(err))
		http.Error(w, "Playback failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, h.player.State())
}

// SeekHandler 跳转播放位置，越界位置会被夹到试听区间内
func (h *APIHandler) SeekHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position float64 `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.player.Seek(req.Position); err != nil {
		http.Error(w, "Seek failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, h.player.State())
}

// VolumeHandler 设置音量，自动夹到 [0,1]
func (h *APIHandler) VolumeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume float64 `json:"volume"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.player.SetVolume(req.Volume); err != nil {
		http.Error(w, "Volume failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, h.player.State())
}

// SkinHandler 切换播放器皮肤
func (h *APIHandler) SkinHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Skin string `json:"skin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.player.SetSkin(model.Skin(req.Skin)); err != nil {
		http.Error(w, "Unknown skin", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.player.State())
}

// PlayerStateHandler 返回播放器状态快照
func (h *APIHandler) PlayerStateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.player.State())
}

// RemoveFromQueueHandler 只把曲目移出队列，曲库保持不变
func (h *APIHandler) RemoveFromQueueHandler(w http.ResponseWriter, r *http.Request) {
	trackID := mux.Vars(r)["id"]
	h.player.RemoveFromQueue(trackID)
	writeJSON(w, http.StatusOK, h.player.State())
}
