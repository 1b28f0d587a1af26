package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/equipqr/equipqr-backend/api/routes"
	"github.com/equipqr/equipqr-backend/internal/compat"
	"github.com/equipqr/equipqr-backend/internal/costs"
	"github.com/equipqr/equipqr-backend/internal/images"
	"github.com/equipqr/equipqr-backend/internal/inventory"
	"github.com/equipqr/equipqr-backend/internal/profiles"
	"github.com/equipqr/equipqr-backend/internal/quickbooks"
	"github.com/equipqr/equipqr-backend/pkg/auth/session"
	"github.com/equipqr/equipqr-backend/pkg/config"
	"github.com/equipqr/equipqr-backend/pkg/db"
	"github.com/equipqr/equipqr-backend/pkg/logger"
	"github.com/equipqr/equipqr-backend/pkg/metrics"
	"github.com/equipqr/equipqr-backend/pkg/migrate"
	"github.com/equipqr/equipqr-backend/pkg/pubsub"
	qbclient "github.com/equipqr/equipqr-backend/pkg/quickbooks"
	"github.com/equipqr/equipqr-backend/pkg/redis"
	"github.com/equipqr/equipqr-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer gcsClient.Close()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer pubsubClient.Close()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	domainMetrics := metrics.NewDomainMetrics(prometheus.DefaultRegisterer)
	profilesRepo := profiles.NewRepository(dbClient.DB())

	imagesService, err := images.NewService(
		images.NewRepository(dbClient.DB()),
		gcsClient.BucketHandle(gcsClient.DefaultBucket()),
		pubsubClient,
		domainMetrics,
		cfg.Images,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create images service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(
		inventory.NewRepository(dbClient.DB()),
		dbClient,
		profilesRepo,
		imagesService,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	costsRepo := costs.NewRepository(dbClient.DB())
	costsService, err := costs.NewService(costsRepo, inventoryService, profilesRepo, domainMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create costs service", err)
		os.Exit(1)
	}

	compatService, err := compat.NewService(compat.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create compatibility service", err)
		os.Exit(1)
	}

	intuitClient, err := qbclient.NewClient(cfg.QuickBooks, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create quickbooks client", err)
		os.Exit(1)
	}

	quickbooksService, err := quickbooks.NewService(
		quickbooks.NewRepository(dbClient.DB()),
		intuitClient,
		costsRepo,
		domainMetrics,
		cfg.QuickBooks,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create quickbooks service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	handler := routes.NewRouter(cfg, logg, routes.Dependencies{
		DB:               dbClient,
		Redis:            redisClient,
		Storage:          gcsClient,
		PubSub:           pubsubClient,
		Sessions:         sessionManager,
		SessionLifecycle: sessionManager,
		Members:          profilesRepo,
	}, routes.Services{
		Inventory:  inventoryService,
		Costs:      costsService,
		Compat:     compatService,
		Images:     imagesService,
		QuickBooks: quickbooksService,
	})

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
