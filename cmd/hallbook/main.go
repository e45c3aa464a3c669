package main

import (
	"context"
	"log/slog"
	"os"
	_ "time/tzdata"

	_ "github.com/kirinyoku/hallbook/docs"
	"github.com/kirinyoku/hallbook/internal/app"
	"github.com/kirinyoku/hallbook/internal/config"
)

// @title Hallbook API
// @version 1.0
// @description Hall booking with occurrence expansion and overlap prevention.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx := context.Background()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}
