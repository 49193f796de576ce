package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"kanban/internal/models"
)

// prStatusRequest is the body of a simulated status change.
type prStatusRequest struct {
	Status models.PRStatus `json:"status"`
}

// handleGitHubInfo reports the configured repository and source mode.
func (s *Server) handleGitHubInfo(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"info": s.prs.Info()})
}

// handleRateLimit returns null in mock mode.
func (s *Server) handleRateLimit(c *gin.Context) {
	rl, err := s.prs.RateLimit(c.Request.Context())
	if err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"rateLimit": rl})
}

// handleSearchPRs lists pull requests, optionally filtered by q.
func (s *Server) handleSearchPRs(c *gin.Context) {
	prs, err := s.prs.SearchPRs(c.Request.Context(), c.Query("q"))
	if err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"prs": prs})
}

// handleGetPR returns one pull request by number.
func (s *Server) handleGetPR(c *gin.Context) {
	number, ok := parseNumber(c, "number")
	if !ok {
		return
	}
	pr, err := s.prs.GetPR(c.Request.Context(), number)
	if err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	if pr == nil {
		respondNotFound(c, "pull request")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"pr": pr})
}

// handleCreatePR opens a pull request for a task branch. The error message
// is returned as is so the form can show it.
func (s *Server) handleCreatePR(c *gin.Context) {
	var req models.NewPR
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	pr, err := s.prs.CreatePR(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"pr": pr})
}

// handleSetPRStatus changes a simulated pull request. Only available in mock
// mode.
func (s *Server) handleSetPRStatus(c *gin.Context) {
	sim, ok := s.prs.Simulated()
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "only available with simulated github data"})
		return
	}
	number, ok := parseNumber(c, "number")
	if !ok {
		return
	}
	var req prStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	pr, err := sim.UpdatePRStatus(c.Request.Context(), number, req.Status)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if pr == nil {
		respondNotFound(c, "pull request")
		return
	}
	if err := s.prs.ClearCache(c.Request.Context()); err != nil {
		s.logger.Warn("clear pr cache failed", slog.String("error", err.Error()))
	}
	respondSuccess(c, http.StatusOK, gin.H{"pr": pr})
}

// handleBranches lists repository branches.
func (s *Server) handleBranches(c *gin.Context) {
	branches, err := s.prs.Branches(c.Request.Context())
	if err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"branches": branches})
}

// handleClearCache drops the cached pull request and branch lists.
func (s *Server) handleClearCache(c *gin.Context) {
	if err := s.prs.ClearCache(c.Request.Context()); err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "cleared"})
}

// handleSync writes fresh pull request data to every drifted task and
// queues the suggested column moves as confirmations.
func (s *Server) handleSync(c *gin.Context) {
	report, err := s.sync.Sync(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	s.sync.Enqueue(report.Moves)
	respondSuccess(c, http.StatusOK, gin.H{
		"message": report.Message(),
		"report":  report,
		"queued":  len(report.Moves),
	})
}
