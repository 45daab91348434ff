package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"jzonefm/logger"
	"jzonefm/model"

	"github.com/gorilla/mux"
)

// GetCommentsHandler 返回曲目的评论，新评论在前
func (h *APIHandler) GetCommentsHandler(w http.ResponseWriter, r *http.Request) {
	trackID := mux.Vars(r)["id"]

	comments, err := h.commentRepo.GetCommentsByTrack(trackID)
	if err != nil {
		logger.Error("[Comments] 查询评论失败", logger.String("trackId", trackID), logger.ErrorField(err))
		http.Error(w, "Failed to list comments", http.StatusInternalServerError)
		return
	}
	if comments == nil {
		comments = []*model.Comment{}
	}

	writeJSON(w, http.StatusOK, comments)
}

// CreateCommentHandler 发表评论，时间锚点被夹到曲目时长范围内
// 评论写入后不可修改
func (h *APIHandler) CreateCommentHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	username, _ := GetUsernameFromContext(r.Context())

	trackID := mux.Vars(r)["id"]
	track, err := h.trackRepo.GetTrackByID(trackID)
	if err != nil {
		logger.Error("[Comments] 查询曲目失败", logger.String("trackId", trackID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if track == nil {
		http.Error(w, "Track not found", http.StatusNotFound)
		return
	}

	var req struct {
		Text         string  `json:"text"`
		AnchorOffset float64 `json:"anchorOffset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "Comment text is required", http.StatusBadRequest)
		return
	}

	anchor := req.AnchorOffset
	if anchor < 0 {
		anchor = 0
	}
	if track.Duration > 0 && anchor > track.Duration {
		anchor = track.Duration
	}

	var avatarURL string
	if user, err := h.userRepo.GetUserByID(userID); err == nil && user != nil {
		avatarURL = user.AvatarURL
	}

	comment := &model.Comment{
		TrackID:      trackID,
		UserID:       userID,
		Username:     username,
		AvatarURL:    avatarURL,
		Text:         req.Text,
		AnchorOffset: anchor,
	}

	if err := h.commentRepo.CreateComment(comment); err != nil {
		logger.Error("[Comments] 发表评论失败", logger.String("trackId", trackID), logger.ErrorField(err))
		http.Error(w, "Failed to create comment", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

// JumpToCommentHandler 从评论跳转播放：播放所属曲目并定位到锚点
func (h *APIHandler) JumpToCommentHandler(w http.ResponseWriter, r *http.Request) {
	commentID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid comment id", http.StatusBadRequest)
		return
	}

	comment, err := h.commentRepo.GetCommentByID(commentID)
	if err != nil {
		logger.Error("[Comments] 查询评论失败", logger.Int64("commentId", commentID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if comment == nil {
		http.Error(w, "Comment not found", http.StatusNotFound)
		return
	}

	// 目标曲目已在播放时只需定位，避免 Play 的同曲目暂停语义
	state := h.player.State()
	if state.CurrentTrackID != comment.TrackID {
		if err := h.player.Play(r.Context(), comment.TrackID); err != nil {
			logger.Error("[Comments] 跳转播放失败",
				logger.String("trackId", comment.TrackID),
				logger.ErrorField(err))
			http.Error(w, "Playback failed", http.StatusBadGateway)
			return
		}
	} else if !state.IsPlaying {
		if err := h.player.TogglePlay(); err != nil {
			http.Error(w, "Playback failed", http.StatusBadGateway)
			return
		}
	}
	if err := h.player.Seek(comment.AnchorOffset); err != nil {
		http.Error(w, "Seek failed", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, h.player.State())
}
