package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type tokenRequest struct {
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"display_name"`
}

// IssueToken exchanges an email for a signed bearer token, creating the
// account on first contact. Real credential verification (passwords, OTP,
// federated login) happens upstream of this service; this endpoint is the
// minimal issuance surface that keeps the system exercisable end to end.
func (h *Handler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid email is required"})
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = strings.SplitN(req.Email, "@", 2)[0]
	}

	user, err := h.Storage.FindOrCreateUserByEmail(c.Request.Context(), req.Email, req.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.Auth.Issue(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}
