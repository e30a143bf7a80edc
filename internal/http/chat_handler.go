package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"alfa-chat/internal/ws"
)

// ChatHandler hace el upgrade a websocket y entrega la conexión a una sesión.
type ChatHandler struct {
	logger   *zap.Logger
	deps     ws.Deps
	upgrader websocket.Upgrader
}

func NewChatHandler(logger *zap.Logger, deps ws.Deps) *ChatHandler {
	return &ChatHandler{
		logger: logger,
		deps:   deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// El frontend se sirve desde otros orígenes.
				return true
			},
		},
	}
}

// Chat maneja GET /chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	// Una sesión por conexión, atendida secuencialmente en esta goroutine.
	session := ws.NewSession(conn, h.deps)
	session.Run(c.Request.Context())
}
