package events

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is not checked; restrict at the proxy
	},
}

// ServeWS upgrades the request and streams topic until the client goes away.
func (h *Hub) ServeWS(c *gin.Context, topic string, first any) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "topic", topic, "err", err)
		return
	}
	h.Add(topic, ws, first)
	slog.Debug("websocket client connected", "topic", topic)

	// incoming messages are ignored; reading keeps close frames flowing
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	h.Remove(topic, ws)
	slog.Debug("websocket client disconnected", "topic", topic)
}
