package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/todoapp/todo-api/internal/app"
	"github.com/todoapp/todo-api/internal/config"
	"github.com/todoapp/todo-api/internal/logger"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Must(cfg.LogLevel, cfg.IsDevelopment(), cfg.LogFile)
	defer log.Sync()

	if envErr != nil {
		log.Warn("no .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, log); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
