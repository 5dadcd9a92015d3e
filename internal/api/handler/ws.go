package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"beamchat/backend/internal/api/middleware"
	"beamchat/backend/internal/chathub"
	"beamchat/backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin policy is deployment-specific and handled at the edge.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades an authenticated request to a realtime
// connection and hands it to the hub. The Auth middleware has already
// refused unauthenticated callers, so a socket never reaches the hub
// without a user behind it.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	userID := middleware.UserID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
		return
	}

	client := &chathub.WebSocketClient{
		ConnID: uuid.New().String(),
		UserID: userID,
		Conn:   conn,
		Hub:    h.Hub,
		Send:   make(chan models.Envelope, 256),
	}

	h.Hub.RegisterCh <- client
	client.Run()
}
