package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sakay-ph/service-booking/internal/application"
	"github.com/sakay-ph/service-booking/internal/config"
	"github.com/sakay-ph/service-booking/internal/database"
	bookingDomain "github.com/sakay-ph/service-booking/internal/domain/booking"
	bookingEvents "github.com/sakay-ph/service-booking/internal/events"
	"github.com/sakay-ph/service-booking/internal/geocoding"
	"github.com/sakay-ph/service-booking/internal/handler"
	"github.com/sakay-ph/service-booking/internal/httpx"
	"github.com/sakay-ph/service-booking/internal/kafka"
	"github.com/sakay-ph/service-booking/internal/logger"
	"github.com/sakay-ph/service-booking/internal/middleware"
	"github.com/sakay-ph/service-booking/internal/repository"
	"github.com/sakay-ph/service-booking/internal/routing"
	"go.uber.org/zap"
)

const serviceName = "service-booking"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-booking",
		zap.String("port", cfg.Port),
		zap.String("routing_provider", cfg.Routing.Provider),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.Connect(ctx, cfg.DBConfig.DSN(), database.DefaultPoolConfig(), log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.BookingModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	}

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Outbound HTTP for geocoding and routing
	httpClient := httpx.NewClient(
		httpx.WithTimeout(cfg.HTTPClient.Timeout),
		httpx.WithUserAgent(cfg.Geocoding.UserAgent),
		httpx.WithRetry(cfg.HTTPClient.RetryAttempts+1, cfg.HTTPClient.RetryBackoff),
	)

	addresses := newAddressResolver(ctx, cfg, httpClient, log)
	routes := routing.NewResolver(
		newRouteProvider(cfg, httpClient, log),
		log,
		routing.WithTimeout(cfg.HTTPClient.Timeout),
		routing.WithMaxAlternatives(cfg.Routing.MaxAlternatives),
	)

	// Initialize application services
	bookingRepo := repository.NewGormBookingRepository(db)
	bookingService := application.NewBookingService(
		bookingRepo,
		kafkaProducer,
		log,
		application.WithBookingLocation(cfg.Location),
	)

	sessions := application.NewSessionStore(cfg.Session.IdleTTL)
	go sessions.RunJanitor(ctx, cfg.Session.SweepInterval, log)

	quoteService := application.NewQuoteService(
		cfg.ServiceArea,
		bookingDomain.NewStandardFareModel(cfg.Fare),
		routes,
		addresses,
		sessions,
		bookingService,
		log,
		application.WithQuoteClock(func() time.Time { return time.Now().In(cfg.Location) }),
	)

	// Initialize and start dispatch event consumer in a goroutine
	groupID := cfg.KafkaConfig.GroupPrefix + serviceName
	dispatchConsumer := bookingEvents.NewDispatchEventConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		bookingService,
		log,
	)
	defer func() { _ = dispatchConsumer.Close() }()

	go func() {
		log.Info("starting dispatch event consumer")
		if err := dispatchConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("dispatch event consumer error", zap.Error(err))
		}
	}()

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := handler.NewHealthHandler(serviceName, map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
	})
	healthHandler.RegisterRoutes(router)

	// Register routes
	handler.NewQuoteHandler(quoteService).RegisterRoutes(&router.RouterGroup)
	handler.NewGeocodeHandler(quoteService).RegisterRoutes(&router.RouterGroup)
	handler.NewFareHandler(quoteService).RegisterRoutes(&router.RouterGroup)
	handler.NewBookingHandler(bookingService).RegisterRoutes(&router.RouterGroup)
	handler.NewAdminBookingHandler(bookingService).RegisterRoutes(&router.RouterGroup)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-booking...")

	// Stop the consumer and the session janitor
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-booking stopped")
}

// newAddressResolver builds the Nominatim-backed resolver, cached in Redis when Redis is
// configured and reachable.
func newAddressResolver(ctx context.Context, cfg *config.ServiceConfig, client *httpx.Client, log *zap.Logger) *geocoding.Resolver {
	opts := []geocoding.Option{
		geocoding.WithLimit(cfg.Geocoding.Limit),
		geocoding.WithTimeout(cfg.HTTPClient.Timeout),
	}

	if cfg.RedisConfig.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unavailable, geocoding cache disabled",
				zap.String("addr", cfg.RedisConfig.Addr),
				zap.Error(err),
			)
			_ = rdb.Close()
		} else {
			opts = append(opts, geocoding.WithCache(geocoding.NewRedisCache(rdb, cfg.RedisConfig.CacheTTL)))
		}
	}

	nominatim := geocoding.NewNominatimClient(
		cfg.Geocoding.BaseURL,
		cfg.Geocoding.CountryCodes,
		cfg.Geocoding.Language,
		client,
	)
	return geocoding.NewResolver(nominatim, log, opts...)
}

// newRouteProvider selects the routing backend. A nil provider makes every route a
// straight-line fallback.
func newRouteProvider(cfg *config.ServiceConfig, client *httpx.Client, log *zap.Logger) routing.Provider {
	switch cfg.Routing.Provider {
	case "google":
		p, err := routing.NewGoogleProvider(cfg.Routing.GoogleAPIKey, cfg.Routing.Region)
		if err != nil {
			log.Warn("google routing unavailable, using straight-line estimates", zap.Error(err))
			return nil
		}
		return p
	case "none":
		return nil
	default:
		return routing.NewOSRMProvider(cfg.Routing.OSRMBaseURL, "driving", client)
	}
}
