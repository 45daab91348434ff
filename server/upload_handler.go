package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"jzonefm/core/upload"
	"jzonefm/logger"
)

// 上传请求体上限：音频 100MB，封面 10MB
const (
	maxAudioUploadBytes = 100 << 20
	maxCoverUploadBytes = 10 << 20
)

type draftResponse struct {
	Meta     upload.Meta `json:"meta"`
	HasAudio bool        `json:"hasAudio"`
	HasCover bool        `json:"hasCover"`
}

// GetDraftHandler 返回草稿现状，首次访问时从草稿存储恢复
func (h *APIHandler) GetDraftHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	meta, hasAudio, hasCover := h.uploads.Snapshot(r.Context(), userID)
	writeJSON(w, http.StatusOK, draftResponse{Meta: meta, HasAudio: hasAudio, HasCover: hasCover})
}

// DraftAudioHandler 接收音频文件，进入编辑阶段
func (h *APIHandler) DraftAudioHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUploadBytes)
	if err := r.ParseMultipartForm(maxAudioUploadBytes); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "audio file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read audio file", http.StatusBadRequest)
		return
	}

	// 客户端解码得到的时长，mp3 会在服务端重新探测
	duration, _ := strconv.ParseFloat(r.FormValue("duration"), 64)

	meta, err := h.uploads.SelectAudio(r.Context(), userID, header.Filename,
		header.Header.Get("Content-Type"), duration, data)
	if err != nil {
		logger.Warn("[Upload] 音频文件不可用",
			logger.Int64("userId", userID),
			logger.String("filename", header.Filename),
			logger.ErrorField(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, draftResponse{Meta: meta, HasAudio: true})
}

// DraftCoverHandler 接收封面图片
func (h *APIHandler) DraftCoverHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCoverUploadBytes)
	if err := r.ParseMultipartForm(maxCoverUploadBytes); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("cover")
	if err != nil {
		http.Error(w, "cover file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read cover file", http.StatusBadRequest)
		return
	}

	meta, err := h.uploads.SetCover(r.Context(), userID, header.Filename,
		header.Header.Get("Content-Type"), data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, draftResponse{Meta: meta, HasAudio: true, HasCover: true})
}

// DraftMetaHandler 更新草稿的文本信息
func (h *APIHandler) DraftMetaHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Title  string   `json:"title"`
		Artist string   `json:"artist"`
		Album  string   `json:"album"`
		Note   string   `json:"note"`
		Tags   []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	meta := h.uploads.UpdateInfo(r.Context(), userID, req.Title, req.Artist, req.Album, req.Note, req.Tags)
	writeJSON(w, http.StatusOK, draftResponse{Meta: meta})
}

// DraftTrimHandler 调整试听区间端点，保证区间不短于1秒
func (h *APIHandler) DraftTrimHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Start *float64 `json:"start"`
		End   *float64 `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || (req.Start == nil && req.End == nil) {
		http.Error(w, "start or end is required", http.StatusBadRequest)
		return
	}

	var meta upload.Meta
	if req.Start != nil {
		meta = h.uploads.SetTrimStart(r.Context(), userID, *req.Start)
	}
	if req.End != nil {
		meta = h.uploads.SetTrimEnd(r.Context(), userID, *req.End)
	}

	writeJSON(w, http.StatusOK, draftResponse{Meta: meta})
}

// DraftSeekHandler 把波形上的比例点击换算成试听区间内的位置
func (h *APIHandler) DraftSeekHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Fraction float64 `json:"fraction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	pos := h.uploads.ClickSeek(r.Context(), userID, req.Fraction)
	writeJSON(w, http.StatusOK, map[string]float64{"position": pos})
}

// DraftPreviewHandler 驱动试听预览：上报进度，到达区间终点自动暂停
func (h *APIHandler) DraftPreviewHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Start    bool    `json:"start"`
		Position float64 `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Start {
		h.uploads.StartPreview(r.Context(), userID)
	}
	playing := h.uploads.PreviewProgress(r.Context(), userID, req.Position)
	writeJSON(w, http.StatusOK, map[string]bool{"playing": playing})
}

// DiscardDraftHandler 丢弃草稿并清空持久化副本
func (h *APIHandler) DiscardDraftHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	h.uploads.Discard(r.Context(), userID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

// ConfirmUploadHandler 确认发布：校验、上传对象、写库、进曲库与队列
// 写库失败时已上传的对象会被回收，草稿保留
func (h *APIHandler) ConfirmUploadHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	track, err := h.uploads.Confirm(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrNoAudio):
			http.Error(w, "Draft has no audio file", http.StatusBadRequest)
		case errors.Is(err, upload.ErrInvalidTrim):
			http.Error(w, "Invalid trim window", http.StatusBadRequest)
		default:
			logger.Error("[Upload] 确认发布失败", logger.Int64("userId", userID), logger.ErrorField(err))
			http.Error(w, "Failed to save track", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, track)
}
