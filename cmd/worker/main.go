package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fanforge-server/internal/bootstrap"
	"fanforge-server/internal/config"
	"fanforge-server/internal/observability"
	"fanforge-server/internal/socialaccounts/worker"
)

// The sweeper re-checks pending verifications whose clients stopped polling
// and whose webhooks never arrived.
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := observability.NewLogger()
	logger.Info(ctx, "Starting verification sweeper...")

	deps, err := bootstrap.Initialize(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize dependencies", err)
	}

	sweeper := worker.New(&deps.Store, &deps.SocialProcessor, logger, 30*time.Second)
	go sweeper.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "Shutting down verification sweeper...")
	sweeper.Stop()
	deps.Cleanup()
	logger.Info(ctx, "Verification sweeper exited")
}
