// Command boardwatch-server exposes board sessions over HTTP.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/park285/boardwatch/internal/boardbuilder"
	appcfg "github.com/park285/boardwatch/internal/config"
	"github.com/park285/boardwatch/internal/httpapi"
	"github.com/park285/boardwatch/internal/obslog"
	"go.uber.org/zap"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger, err := obslog.Init(boardbuilder.LogOptions(cfg.Log))
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := boardbuilder.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init_failed", zap.Error(err))
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("shutdown_errors", zap.Error(err))
		}
	}()

	srv := httpapi.New(deps.Service, deps.Formatter, deps.Presenter, logger)
	if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		logger.Error("http_server_failed", zap.Error(err))
	}
	logger.Info("shutdown")
}
