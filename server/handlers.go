package server

import (
	"encoding/json"
	"net/http"

	"jzonefm/config"
	"jzonefm/core/player"
	"jzonefm/core/upload"
	"jzonefm/logger"
	"jzonefm/repository"
	"jzonefm/storage"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	trackRepo   repository.TrackRepository
	userRepo    repository.UserRepository
	commentRepo repository.CommentRepository
	store       storage.ObjectStore
	local       *storage.LocalStore // local 后端时非空，用于 /media 回源
	player      *player.Controller
	uploads     *upload.Manager
	cfg         *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	trackRepo repository.TrackRepository,
	userRepo repository.UserRepository,
	commentRepo repository.CommentRepository,
	store storage.ObjectStore,
	local *storage.LocalStore,
	playerCtrl *player.Controller,
	uploads *upload.Manager,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		trackRepo:   trackRepo,
		userRepo:    userRepo,
		commentRepo: commentRepo,
		store:       store,
		local:       local,
		player:      playerCtrl,
		uploads:     uploads,
		cfg:         cfg,
	}
}

// writeJSON 写出JSON响应
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("[HTTP] 写响应失败", logger.ErrorField(err))
	}
}
