package server

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"kanban/internal/board"
	"kanban/internal/models"
)

// moveRequest is the body of a column move.
type moveRequest struct {
	Status models.TaskStatus `json:"status"`
}

// searchRequest sets the shared search term.
type searchRequest struct {
	Term string `json:"term"`
}

// handleListTasks returns every task, optionally narrowed by column, sprint
// and a search term.
func (s *Server) handleListTasks(c *gin.Context) {
	sprintID := c.Query("sprint")
	status := models.TaskStatus(c.Query("status"))
	var tasks []models.Task
	switch {
	case status != "":
		tasks = s.board.Tasks.ByStatus(status)
		if sprintID != "" {
			tasks = slices.DeleteFunc(tasks, func(t models.Task) bool { return !t.InSprint(sprintID) })
		}
	case sprintID != "":
		tasks = s.board.Tasks.BySprint(sprintID)
	default:
		tasks = s.board.Tasks.List()
	}
	tasks = board.FilterTasks(tasks, c.Query("q"))
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleCreateTask adds a task to the board.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req models.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	task, err := s.board.Tasks.Add(req)
	if err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleGetTask returns one task by id.
func (s *Server) handleGetTask(c *gin.Context) {
	task, ok := s.board.Tasks.Get(c.Param("id"))
	if !ok {
		respondNotFound(c, "task")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleUpdateTask merges a partial update. A JSON null clears the nullable
// fields; an omitted field is left alone.
func (s *Server) handleUpdateTask(c *gin.Context) {
	var req models.TaskUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	task, ok := s.board.Tasks.Update(c.Param("id"), req)
	if !ok {
		respondNotFound(c, "task")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleMoveTask changes the column of a task.
func (s *Server) handleMoveTask(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	task, ok := s.board.Tasks.Move(c.Param("id"), req.Status)
	if !ok {
		respondNotFound(c, "task")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	if !s.board.Tasks.Delete(c.Request.Context(), c.Param("id")) {
		respondNotFound(c, "task")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleGetSearch returns the shared search term and its matches.
func (s *Server) handleGetSearch(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{
		"term":  s.board.Search.Term(),
		"tasks": s.board.Search.Results(),
	})
}

// handleSetSearch replaces the shared search term.
func (s *Server) handleSetSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	s.board.Search.SetTerm(req.Term)
	s.handleGetSearch(c)
}

// handleClearSearch resets the shared search term.
func (s *Server) handleClearSearch(c *gin.Context) {
	s.board.Search.Clear()
	s.handleGetSearch(c)
}
