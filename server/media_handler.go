package server

import (
	"net/http"
	"net/url"
	"strings"

	"jzonefm/logger"
	"jzonefm/storage"
)

// MediaHandler 本地后端的音频回源：校验签名URL携带的过期时间与HMAC
func (h *APIHandler) MediaHandler(w http.ResponseWriter, r *http.Request) {
	if h.local == nil {
		http.Error(w, "Local media serving is disabled", http.StatusNotFound)
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/media/")
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}

	q := r.URL.Query()
	if !h.local.VerifyToken(key, q.Get("exp"), q.Get("sig")) {
		http.Error(w, "Invalid or expired media token", http.StatusForbidden)
		return
	}

	f, err := h.local.Open(key)
	if err != nil {
		logger.Warn("[Media] 对象不存在", logger.String("key", key), logger.ErrorField(err))
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", storage.GuessContentType(key, ""))
	// ServeContent 处理 Range 请求，移动端拖动进度条依赖它
	http.ServeContent(w, r, key, stat.ModTime(), f)
}
