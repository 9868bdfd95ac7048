package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"allergen-scan/api/internal/bootstrap"
	"allergen-scan/api/internal/config"
	"allergen-scan/api/internal/handle"
	"allergen-scan/api/internal/httpserver"
	"allergen-scan/api/internal/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}
	logger.SetLevel(cfg.LogLevel)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Startup failed")
	}
	defer app.Close()

	var scans handle.ScanStore
	if app.Scans != nil {
		scans = app.Scans
	}
	h := handle.New(app.Scanner, cfg, scans)

	if err := httpserver.Run(ctx, cfg.Addr(), h.Router()); err != nil {
		logger.WithError(err).Error("HTTP server stopped")
		app.Close()
		os.Exit(1)
	}
	logger.Info("Bye")
}
