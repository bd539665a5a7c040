// internal/handlers/websocket.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"civic-reports/internal/realtime"
	"civic-reports/pkg/auth"
	apperrors "civic-reports/pkg/errors"
	"civic-reports/pkg/logger"
	"civic-reports/pkg/response"
)

type WebSocketHandler struct {
	hub        *realtime.Hub
	jwtManager *auth.JWTManager
	upgrader   websocket.Upgrader
	log        *zap.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, jwtManager *auth.JWTManager, allowedOrigins []string) *WebSocketHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &WebSocketHandler{
		hub:        hub,
		jwtManager: jwtManager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Нативні клієнти не надсилають Origin
				return origin == "" || origins["*"] || origins[origin]
			},
		},
		log: logger.WithModule("websocket"),
	}
}

// HandleWebSocket - браузер не може передати заголовок Authorization при
// оновленні з'єднання, тому токен приходить у query-параметрі.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, apperrors.ErrUnauthorized.WithMessage("Token is required"))
		return
	}

	claims, err := h.jwtManager.ValidateToken(token)
	if err != nil {
		response.Error(c, apperrors.ErrUnauthorized.WithMessage("Invalid token"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade вже записав відповідь
		h.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	h.log.Debug("WebSocket connected", zap.String("user_id", claims.UserID.Hex()))
	h.hub.Serve(conn, claims.UserID)
}
