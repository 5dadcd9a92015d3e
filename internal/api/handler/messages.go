package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"beamchat/backend/internal/api/middleware"
	"beamchat/backend/internal/chaterr"
)

// ListMessages returns a room's history, chronological ascending, capped at
// the configured page size. Only participants may read a room.
func (h *Handler) ListMessages(c *gin.Context) {
	roomID := c.Param("roomID")

	room, err := h.Storage.GetRoomByID(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !room.HasParticipant(middleware.UserID(c)) {
		respondError(c, chaterr.ErrForbidden)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	messages, err := h.Storage.ListMessages(c.Request.Context(), roomID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
