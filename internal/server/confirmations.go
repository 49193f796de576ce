package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// confirmationRequest answers the open confirmation.
type confirmationRequest struct {
	Confirmed *bool `json:"confirmed"`
}

// handlePendingConfirmation returns the open prompt, or null.
func (s *Server) handlePendingConfirmation(c *gin.Context) {
	open, ok := s.confirm.Pending()
	if !ok {
		respondSuccess(c, http.StatusOK, gin.H{"confirmation": nil})
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"confirmation": open})
}

// handleRespondConfirmation answers the open prompt.
func (s *Server) handleRespondConfirmation(c *gin.Context) {
	var req confirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Confirmed == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confirmed is required"})
		return
	}
	if err := s.confirm.Respond(c.Param("id"), *req.Confirmed); err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "answered"})
}
