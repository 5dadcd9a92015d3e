package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"beamchat/backend/internal/api/middleware"
)

// ListUsers returns the chat-partner directory: every account except the
// caller's own.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Storage.ListUsers(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type updateProfileRequest struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// UpdateProfile lets the caller change display name and avatar reference.
// Avatar bytes are hosted elsewhere; only the reference is stored.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile payload"})
		return
	}

	user, err := h.Storage.FindUserByID(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	if name := strings.TrimSpace(req.DisplayName); name != "" {
		user.DisplayName = name
	}
	if req.AvatarURL != "" {
		user.AvatarURL = req.AvatarURL
	}
	user.ProfileComplete = user.DisplayName != ""

	if err := h.Storage.SaveUser(c.Request.Context(), user); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// OnlineUsers returns the IDs of currently connected users, read from the
// shared presence set so the answer spans all instances.
func (h *Handler) OnlineUsers(c *gin.Context) {
	ids, err := h.Storage.OnlineUserIDs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": ids})
}
