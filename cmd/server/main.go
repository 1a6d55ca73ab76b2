package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/safewalk/server/internal/clients/assistant"
	"github.com/safewalk/server/internal/clients/google"
	"github.com/safewalk/server/internal/clients/sfdata"
	"github.com/safewalk/server/internal/config"
	httpdelivery "github.com/safewalk/server/internal/delivery/http"
	"github.com/safewalk/server/internal/lib/routing"
	"github.com/safewalk/server/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg, err := config.Load(os.Getenv("SAFEWALK_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	feedLoc, err := time.LoadLocation(cfg.Feed.Timezone)
	if err != nil {
		logger.Fatal("invalid feed timezone", zap.String("timezone", cfg.Feed.Timezone), zap.Error(err))
	}

	feedClient := sfdata.NewClient(cfg.Feed.BaseURL, cfg.Feed.Dataset, cfg.Feed.Limit, cfg.Feed.FetchTimeout)
	googleClient := google.NewClient(cfg.Google.APIKey, cfg.Google.BaseURL, cfg.Google.Timeout)
	assistantClient := assistant.NewClient(cfg.Assistant.APIKey, cfg.Assistant.Model, cfg.Assistant.Timeout)

	correlator := routing.NewCorrelator(routing.Options{
		BufferMeters: cfg.Correlation.BufferMeters,
		SampleStride: cfg.Correlation.SampleStride,
	})

	incidentSvc := services.NewIncidentService(feedClient, feedLoc, logger.Named("incidents"))
	routeSvc := services.NewRouteService(googleClient, incidentSvc, correlator, logger.Named("routes"))
	routeSvc.SetTravelDefaults(cfg.Google.Mode, cfg.Google.Alternatives)
	assistantSvc := services.NewAssistantService(assistantClient, logger.Named("assistant"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refresher := services.NewRefresher(incidentSvc, cfg.Feed.RefreshInterval, cfg.Feed.FetchTimeout, logger.Named("refresher"))
	refresher.Start(ctx)
	defer refresher.Stop()

	app := fiber.New(fiber.Config{
		AppName:      "SafeWalk API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.Server.CorsOrigins, ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	handler := httpdelivery.NewHandler(incidentSvc, routeSvc, assistantSvc, cfg.Assistant.FallbackMessage, logger.Named("http"))
	httpdelivery.SetupRoutes(app, handler)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("server listening", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	refresher.Stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
