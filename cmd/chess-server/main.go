package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-chess/internal/chessbuilder"
	appcfg "github.com/park285/cheese-chess/internal/config"
	"github.com/park285/cheese-chess/internal/httpapi"
	"github.com/park285/cheese-chess/internal/obslog"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	deps, err := chessbuilder.New(initCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("init_error", zap.Error(err))
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("shutdown_close_error", zap.Error(err))
		}
	}()

	err = httpapi.ListenAndServe(ctx, cfg.HTTPAddr, deps.Server, 10*time.Second)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http_serve_error", zap.Error(err))
		return
	}
	logger.Info("shutdown")
}
