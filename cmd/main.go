package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"storefront/internal/api"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/consumer"
	"storefront/internal/events"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/migrations"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

func connectDB(cfg *config.Config) (*sql.DB, error) {
	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("mysql", cfg.DSN())
		if err == nil {
			err = db.Ping()
			if err == nil {
				logger.Info().Msgf("Connected to DB %s", cfg.DBName)
				return db, nil
			}
			db.Close()
		}
		logger.Warn().Err(err).Msgf("Retry %d: failed to connect to DB %s (%s:%s)", i+1, cfg.DBName, cfg.DBHost, cfg.DBPort)
		time.Sleep(3 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to DB %s at %s:%s after retries: %w", cfg.DBName, cfg.DBHost, cfg.DBPort, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	db, err := connectDB(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Database unavailable")
	}
	defer db.Close()

	if err := migrations.AutoMigrate(3, db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate tables")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	userRepo := repository.NewUserRepository(db)

	// set below, once the consumer exists
	publisher := &publisherRef{}

	productService := service.NewProductService(productRepo, cache.NewCatalogCache(rdb, cfg.CatalogCacheTTL), publisher)
	eventConsumer := consumer.NewConsumer(productService)

	if len(cfg.KafkaBrokers) > 0 {
		writer := config.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer writer.Close()
		publisher.EventPublisher = events.NewKafkaPublisher(writer)

		reader := config.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaTopic, "storefront-group")
		defer reader.Close()
		go eventConsumer.Start(ctx, reader)
	} else {
		logger.Info().Msg("KAFKA_BROKERS not set, dispatching events in process")
		publisher.EventPublisher = events.NewLocalPublisher(eventConsumer)
	}

	orderService := service.NewOrderService(
		repository.NewTransactor(db),
		orderRepo,
		cfg.PickupLocations,
		publisher,
		cache.NewIdempotencyStore(rdb),
	)
	userService := service.NewUserService(userRepo, cache.NewSessionStore(rdb), cfg.JWTSecret, cfg.JWTTTL)
	dashboardService := service.NewDashboardService(repository.NewDashboardRepository(db))

	e := echo.New()
	e.HideBanner = true

	e.Use(api.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(api.RateLimiter(cfg.RateLimit, cfg.RateBurst))

	api.RegisterRoutes(e, cfg.JWTSecret, api.Services{
		Orders:    orderService,
		Products:  productService,
		Users:     userService,
		Dashboard: dashboardService,
		Locations: cfg.PickupLocations,
	})

	go func() {
		if err := e.Start(cfg.HTTPAddr); err != nil {
			logger.Info().Err(err).Msg("HTTP server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown")
	}
}

// publisherRef forwards to the publisher chosen at startup.
type publisherRef struct {
	service.EventPublisher
}
