package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kanban/internal/board"
	"kanban/internal/models"
)

// currentSprintRequest selects the current sprint. An empty id clears it.
type currentSprintRequest struct {
	ID *string `json:"id"`
}

// handleListSprints returns all sprints with fresh story point totals.
func (s *Server) handleListSprints(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"sprints": s.board.Sprints.List()})
}

// handleCreateSprint creates a sprint. Either endDate or workingDays may be
// omitted and is then derived.
func (s *Server) handleCreateSprint(c *gin.Context) {
	var req models.SprintInput
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	sprint, err := s.board.Sprints.Add(req)
	if err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"sprint": sprint})
}

// handleGetSprint returns one sprint with fresh aggregates.
func (s *Server) handleGetSprint(c *gin.Context) {
	sprint, ok := s.board.Sprints.Get(c.Param("id"))
	if !ok {
		respondNotFound(c, "sprint")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprint": sprint})
}

// handleCurrentSprint returns the selected sprint, or null.
func (s *Server) handleCurrentSprint(c *gin.Context) {
	sprint, ok := s.board.Sprints.Current()
	if !ok {
		respondSuccess(c, http.StatusOK, gin.H{"sprint": nil})
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprint": sprint})
}

// handleSetCurrentSprint selects a sprint. A null or unknown id clears the
// selection.
func (s *Server) handleSetCurrentSprint(c *gin.Context) {
	var req currentSprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	id := ""
	if req.ID != nil {
		id = *req.ID
	}
	sprint, ok := s.board.Sprints.SetCurrent(id)
	if !ok {
		respondSuccess(c, http.StatusOK, gin.H{"sprint": nil})
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprint": sprint})
}

// handleUpdateSprint applies a partial update to a sprint.
func (s *Server) handleUpdateSprint(c *gin.Context) {
	var req models.SprintUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	sprint, ok := s.board.Sprints.Update(c.Param("id"), req)
	if !ok {
		respondNotFound(c, "sprint")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprint": sprint})
}

// handleDeleteSprint removes a sprint and detaches its tasks.
func (s *Server) handleDeleteSprint(c *gin.Context) {
	if !s.board.Sprints.Delete(c.Param("id")) {
		respondNotFound(c, "sprint")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleSprintTasks lists the tasks assigned to a sprint.
func (s *Server) handleSprintTasks(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.board.Sprints.Get(id); !ok {
		respondNotFound(c, "sprint")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": s.board.Tasks.BySprint(id)})
}

// handleRecomputeSprint forces a recount of the sprint's story points.
func (s *Server) handleRecomputeSprint(c *gin.Context) {
	sprint, ok := s.board.Sprints.UpdateStoryPoints(c.Param("id"))
	if !ok {
		respondNotFound(c, "sprint")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprint": sprint})
}

// handleSprintBurndown returns the ideal and actual burndown lines.
func (s *Server) handleSprintBurndown(c *gin.Context) {
	points, ok := s.board.Sprints.Burndown(c.Param("id"))
	if !ok {
		respondNotFound(c, "sprint")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"burndown": points})
}

// handleSprintProgress reports elapsed and remaining working days.
func (s *Server) handleSprintProgress(c *gin.Context) {
	sprint, ok := s.board.Sprints.Get(c.Param("id"))
	if !ok {
		respondNotFound(c, "sprint")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"progress": board.Progress(sprint, time.Now().UTC())})
}
