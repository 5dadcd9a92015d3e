package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"beamchat/backend/internal/api/middleware"
	"beamchat/backend/internal/worker"
)

// ListRooms returns the caller's rooms, most recently active first, with
// participant profiles and the last-message preview populated.
func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.Storage.FindRoomsForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

type createRoomRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
}

// CreateRoom finds or creates the pairwise room between the caller and the
// requested participant.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "participant_id is required"})
		return
	}
	callerID := middleware.UserID(c)
	if req.ParticipantID == callerID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot open a room with yourself"})
		return
	}

	// The participant must be a known account.
	if _, err := h.Storage.FindUserByID(c.Request.Context(), req.ParticipantID); err != nil {
		respondError(c, err)
		return
	}

	room, err := h.Storage.CreateRoom(c.Request.Context(), callerID, req.ParticipantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

// DeleteRoom removes a room and schedules its message log for purging.
// A room that does not exist and a room the caller is not part of look the
// same from the outside: 404.
func (h *Handler) DeleteRoom(c *gin.Context) {
	roomID := c.Param("roomID")
	callerID := middleware.UserID(c)

	room, err := h.Storage.GetRoomByID(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !room.HasParticipant(callerID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if err := h.Storage.DeleteRoom(c.Request.Context(), roomID); err != nil {
		respondError(c, err)
		return
	}

	// Best-effort cascade: the worker deletes the messages. An enqueue
	// failure leaves orphaned rows behind, not a broken listing.
	task, err := worker.NewPurgeRoomTask(roomID)
	if err == nil {
		_, err = h.Queue.EnqueueContext(c.Request.Context(), task)
	}
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Warn("failed to enqueue message purge")
	}

	c.Status(http.StatusNoContent)
}
