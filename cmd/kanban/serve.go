package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kanban/internal/confirm"
	"kanban/internal/reconcile"
	"kanban/internal/server"
)

// serveCmd serves the HTTP API.
func serveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the board API and frontend (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
}

// runServe starts the background loops and the HTTP server and blocks
// until SIGINT or SIGTERM.
func runServe(cmd *cobra.Command, flags *rootFlags) error {
	a, err := newApp(cmd.Context(), flags)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger
	logger.Info("kanban board", slog.String("version", Version),
		slog.String("github_mode", a.cfg.GitHub.Mode))

	broker := confirm.NewBroker(logger)
	engine := reconcile.New(a.board.Tasks, a.prs, broker, reconcile.Options{Settings: a.store, Logger: logger})

	runCtx, stop := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.board.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		engine.Run(runCtx, a.cfg.GitHub.PollInterval)
	}()

	srv := server.New(server.Deps{
		Board:    a.board,
		PRs:      a.prs,
		Sync:     engine,
		Confirm:  broker,
		Settings: a.store,
	}, logger, a.cfg.StaticDir)

	httpServer := &http.Server{
		Addr:    a.cfg.Addr,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	stop()
	wg.Wait()

	logger.Info("server stopped")
	return nil
}
