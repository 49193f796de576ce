package server

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// mountStatic serves the compiled board frontend. Unknown non-API paths fall
// back to index.html so client side routes survive a reload.
func (s *Server) mountStatic() {
	index := s.frontendIndex()

	s.engine.NoRoute(func(c *gin.Context) {
		if index == "" || strings.HasPrefix(c.Request.URL.Path, "/api/") || c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
			return
		}
		c.File(index)
	})
	if index == "" {
		return
	}
	s.engine.GET("/", func(c *gin.Context) {
		c.File(index)
	})

	for _, dir := range []string{"assets", "_next"} {
		path := filepath.Join(s.staticDir, dir)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			s.engine.StaticFS("/"+dir, gin.Dir(path, false))
		}
	}
	for _, name := range []string{"favicon.ico", "manifest.json"} {
		path := filepath.Join(s.staticDir, name)
		if _, err := os.Stat(path); err == nil {
			s.engine.StaticFile("/"+name, path)
		}
	}
}

// frontendIndex returns the index.html path, or "" when there is no build.
func (s *Server) frontendIndex() string {
	if s.staticDir == "" {
		s.logger.Warn("static directory not configured; API only mode")
		return ""
	}
	info, err := os.Stat(s.staticDir)
	if err != nil || !info.IsDir() {
		s.logger.Warn("static directory missing", slog.String("path", s.staticDir))
		return ""
	}
	index := filepath.Join(s.staticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		s.logger.Warn("index.html not found", slog.String("path", index))
		return ""
	}
	return index
}
