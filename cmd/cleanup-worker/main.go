package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/equipqr/equipqr-backend/internal/images/consumer"
	"github.com/equipqr/equipqr-backend/pkg/config"
	"github.com/equipqr/equipqr-backend/pkg/logger"
	"github.com/equipqr/equipqr-backend/pkg/metrics"
	"github.com/equipqr/equipqr-backend/pkg/pubsub"
	"github.com/equipqr/equipqr-backend/pkg/storage/gcs"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "cleanup-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "cleanup-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cleanup-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	requireResource(ctx, logg, "gcs", err)
	defer gcsClient.Close()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	jobMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	cleanupConsumer, err := consumer.NewCleanupConsumer(
		gcsClient.BucketHandle(gcsClient.DefaultBucket()),
		pubsubClient.CleanupSubscription(),
		jobMetrics,
		logg,
	)
	requireResource(ctx, logg, "cleanup consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"env":         cfg.App.Env,
	})
	logg.Info(runCtx, "cleanup worker ready")

	if err := cleanupConsumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "cleanup worker not working", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
