package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/kofiasare/storefront/internal/config"
	"github.com/kofiasare/storefront/internal/events"
	"github.com/kofiasare/storefront/internal/logging"
	"github.com/kofiasare/storefront/internal/metrics"
	"github.com/kofiasare/storefront/internal/payment"
	"github.com/kofiasare/storefront/internal/pricing"
	"github.com/kofiasare/storefront/internal/service/catalog"
	"github.com/kofiasare/storefront/internal/service/checkout"
	"github.com/kofiasare/storefront/internal/service/search"
	"github.com/kofiasare/storefront/internal/service/user"
	httpserver "github.com/kofiasare/storefront/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	var producer *events.Producer
	if configuration.KAFKA_ADDRESS != "" {
		producer = events.NewProducer([]string{configuration.KAFKA_ADDRESS})
	} else {
		logger.Warn("kafka disabled, no broker address configured")
	}

	var esClient *elasticsearch.Client
	if configuration.ES_URL != "" {
		esClient, err = search.NewClient(configuration)
		if err != nil {
			logger.Warn("elasticsearch disabled", "error", err)
			esClient = nil
		}
	} else {
		logger.Warn("elasticsearch disabled, no url configured")
	}

	serverMetrics := metrics.NewServerMetrics("api")

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(logging.RequestLogger(logger))
	e.Use(metrics.Middleware(serverMetrics))

	httpserver.Register(e, httpserver.Deps{
		DB:            db,
		JWTSecret:     []byte(configuration.JWT_SECRET),
		Producer:      producer,
		ES:            esClient,
		Stripe:        payment.NewClient(configuration.STRIPE_SECRET_KEY),
		WebhookSecret: configuration.STRIPE_WEBHOOK_SECRET,
		ClientURL:     configuration.CLIENT_URL,
		Catalog:       &catalog.Service{DB: db},
		Checkout:      &checkout.Service{DB: db, Pricing: pricing.Default()},
		Users:         &user.Service{DB: db},
	})

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	logger.Info("shutdown complete")
}
