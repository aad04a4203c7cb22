package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/iamvkosarev/llm-relay/config"
	"github.com/iamvkosarev/llm-relay/internal/app"
	"github.com/iamvkosarev/llm-relay/internal/observability"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the yaml config")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		observability.Logger().Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.Setup(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = app.Run(ctx, cfg); err != nil {
		logger.Error("app stopped with error", "error", err)
		os.Exit(1)
	}
}
