package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kanban/internal/board"
	"kanban/internal/confirm"
	"kanban/internal/metrics"
	"kanban/internal/models"
	"kanban/internal/prsource"
	"kanban/internal/reconcile"
)

// Settings is the key/value store behind /api/settings.
type Settings interface {
	SaveSetting(ctx context.Context, key string, value any) error
	Setting(ctx context.Context, key string, dst any) (bool, error)
}

// Deps are the components the HTTP layer exposes. PRs, Sync and Confirm may
// be nil, which disables their routes.
type Deps struct {
	Board    *board.Board
	PRs      *prsource.Service
	Sync     *reconcile.Engine
	Confirm  *confirm.Broker
	Settings Settings
}

// Server provides HTTP handlers for the kanban board backend.
type Server struct {
	engine    *gin.Engine
	board     *board.Board
	prs       *prsource.Service
	sync      *reconcile.Engine
	confirm   *confirm.Broker
	settings  Settings
	logger    *slog.Logger
	staticDir string
}

// New constructs the HTTP server with routes and middleware configured.
func New(deps Deps, logger *slog.Logger, staticDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz", "/metrics"))
	router.Use(observeDuration())

	srv := &Server{
		engine:    router,
		board:     deps.Board,
		prs:       deps.PRs,
		sync:      deps.Sync,
		confirm:   deps.Confirm,
		settings:  deps.Settings,
		logger:    logger,
		staticDir: staticDir,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		tasks := api.Group("/tasks")
		{
			tasks.GET("", s.handleListTasks)
			tasks.POST("", s.handleCreateTask)
			tasks.GET(":id", s.handleGetTask)
			tasks.PUT(":id", s.handleUpdateTask)
			tasks.PATCH(":id", s.handleUpdateTask)
			tasks.POST(":id/move", s.handleMoveTask)
			tasks.DELETE(":id", s.handleDeleteTask)
		}

		api.GET("/search", s.handleGetSearch)
		api.PUT("/search", s.handleSetSearch)
		api.DELETE("/search", s.handleClearSearch)

		sprints := api.Group("/sprints")
		{
			sprints.GET("", s.handleListSprints)
			sprints.POST("", s.handleCreateSprint)
			sprints.GET("current", s.handleCurrentSprint)
			sprints.PUT("current", s.handleSetCurrentSprint)
			sprints.GET(":id", s.handleGetSprint)
			sprints.PUT(":id", s.handleUpdateSprint)
			sprints.DELETE(":id", s.handleDeleteSprint)
			sprints.GET(":id/tasks", s.handleSprintTasks)
			sprints.POST(":id/recompute", s.handleRecomputeSprint)
			sprints.GET(":id/burndown", s.handleSprintBurndown)
			sprints.GET(":id/progress", s.handleSprintProgress)
		}

		users := api.Group("/users")
		{
			users.GET("", s.handleListUsers)
			users.POST("", s.handleCreateUser)
			users.POST("refresh", s.handleRefreshUsers)
			users.PUT(":id", s.handleUpdateUser)
			users.DELETE(":id", s.handleDeleteUser)
		}

		if s.prs != nil {
			gh := api.Group("/github")
			{
				gh.GET("info", s.handleGitHubInfo)
				gh.GET("rate-limit", s.handleRateLimit)
				gh.GET("prs", s.handleSearchPRs)
				gh.POST("prs", s.handleCreatePR)
				gh.GET("prs/:number", s.handleGetPR)
				gh.PUT("prs/:number/status", s.handleSetPRStatus)
				gh.GET("branches", s.handleBranches)
				gh.POST("cache/clear", s.handleClearCache)
				if s.sync != nil {
					gh.POST("sync", s.handleSync)
				}
			}
		}

		if s.confirm != nil {
			api.GET("/confirmations/pending", s.handlePendingConfirmation)
			api.POST("/confirmations/:id", s.handleRespondConfirmation)
		}

		if s.settings != nil {
			api.GET("/settings/:key", s.handleGetSetting)
			api.PUT("/settings/:key", s.handlePutSetting)
		}
	}

	s.mountStatic()
}

// handleHealth reports readiness once the board has loaded.
func (s *Server) handleHealth(c *gin.Context) {
	if s.board.Loading() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// observeDuration records request latency per route.
func observeDuration() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// parseNumber converts a path parameter to a positive int.
func parseNumber(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return n, true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidTask),
		errors.Is(err, models.ErrInvalidSprint),
		errors.Is(err, models.ErrInvalidUser),
		errors.Is(err, models.ErrInvalidPR):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrConfirmationNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrTokenRequired):
		return http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if err != nil {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondNotFound reports a missing resource without logging.
func respondNotFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

// respondSuccess writes payload as JSON, or only the status when nil.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
