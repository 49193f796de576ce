package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kanban/internal/models"
)

// handleListUsers returns every board member.
func (s *Server) handleListUsers(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"users": s.board.Users.List()})
}

// handleCreateUser adds a board member.
func (s *Server) handleCreateUser(c *gin.Context) {
	var req models.User
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	user, err := s.board.Users.Add(req)
	if err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"user": user})
}

// handleUpdateUser applies a partial update to a member.
func (s *Server) handleUpdateUser(c *gin.Context) {
	var req models.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	user, ok := s.board.Users.Update(c.Param("id"), req)
	if !ok {
		respondNotFound(c, "user")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user})
}

// handleDeleteUser removes a user and unassigns their tasks.
func (s *Server) handleDeleteUser(c *gin.Context) {
	if !s.board.Users.Delete(c.Param("id")) {
		respondNotFound(c, "user")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleRefreshUsers replaces the users with the repository contributors.
// Failures are returned so the board can show them.
func (s *Server) handleRefreshUsers(c *gin.Context) {
	n, err := s.board.Users.RefreshFromGitHub(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusBadGateway, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"count": n, "users": s.board.Users.List()})
}
