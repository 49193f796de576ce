package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleGetSetting returns a stored setting as raw JSON.
func (s *Server) handleGetSetting(c *gin.Context) {
	var value json.RawMessage
	found, err := s.settings.Setting(c.Request.Context(), c.Param("key"), &value)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	if !found {
		respondNotFound(c, "setting")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"key": c.Param("key"), "value": value})
}

// handlePutSetting stores any JSON value under the key.
func (s *Server) handlePutSetting(c *gin.Context) {
	var value json.RawMessage
	if err := c.ShouldBindJSON(&value); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := s.settings.SaveSetting(c.Request.Context(), c.Param("key"), value); err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"key": c.Param("key"), "value": value})
}
