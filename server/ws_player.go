package server

import (
	"net/http"

	"jzonefm/logger"
	"jzonefm/model"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PlayerWSHandler 推送播放器状态流
// 连接建立先收到一次完整快照，之后每次状态变化推送一条
func (h *APIHandler) PlayerWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("[PlayerWS] websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	// 带缓冲，慢消费者丢弃中间状态而不是阻塞控制器
	updates := make(chan model.PlayerState, 16)
	cancel := h.player.Subscribe(func(s model.PlayerState) {
		select {
		case updates <- s:
		default:
		}
	})
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(h.player.State()); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case state := <-updates:
			if err := conn.WriteJSON(state); err != nil {
				return
			}
		}
	}
}
