package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	service "github.com/rakhargo/LotteryFoundry/internal"
	"github.com/rakhargo/LotteryFoundry/internal/config"
)

func main() {
	logger := log.New(os.Stdout, "raffled ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	app, err := service.NewApp(cfg, logger)
	if err != nil {
		logger.Fatalf("failed to build app: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		logger.Fatalf("service exited with error: %v", err)
	}
}
