package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/adpsports/nhl-projections/internal/api"
	"github.com/adpsports/nhl-projections/internal/api/handlers"
	"github.com/adpsports/nhl-projections/internal/api/middleware"
	"github.com/adpsports/nhl-projections/internal/providers"
	"github.com/adpsports/nhl-projections/internal/services"
	"github.com/adpsports/nhl-projections/internal/store"
	"github.com/adpsports/nhl-projections/pkg/config"
	"github.com/adpsports/nhl-projections/pkg/database"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	logger := logrus.StandardLogger()
	if cfg.IsDevelopment() {
		logrus.SetLevel(logrus.DebugLevel)
		gin.SetMode(gin.DebugMode)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.SQLitePath, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logrus.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logrus.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	cacheService := services.NewCacheService(redisClient)

	// Stat sources share one rate-limited, breaker-guarded fetcher
	fetcher := providers.NewFetcher(cacheService, providers.FetcherOptions{
		Timeout:          cfg.SourceTimeout,
		RateLimit:        cfg.SourceRateLimit,
		Burst:            cfg.SourceBurst,
		BreakerThreshold: cfg.BreakerThreshold,
		CacheTTL:         cfg.PayloadCacheTTL,
	}, logger)

	nstClient := providers.NewNSTClient(fetcher, cfg.NSTBaseURL, logger)
	scheduleClient := providers.NewScheduleClient(fetcher, cfg.ScheduleURL, logger)
	lineupsClient := providers.NewLineupsClient(fetcher, cacheService, cfg.LineupsURL, logger)
	salaryLoader := providers.NewSalaryLoader(cfg.SalaryFile, logger)

	baselineStore, err := store.NewBaselineStore(db, logger)
	if err != nil {
		logrus.Fatalf("Failed to initialize baseline store: %v", err)
	}

	alertService := buildAlertService(cfg, logger)

	pipeline := services.NewPipelineService(cfg, cacheService, nstClient, scheduleClient, lineupsClient, salaryLoader, baselineStore, alertService, logger)

	// Parse refresh interval
	refreshInterval, err := time.ParseDuration(cfg.RefreshInterval)
	if err != nil {
		logrus.Warnf("Invalid refresh interval, using default 2h: %v", err)
		refreshInterval = 2 * time.Hour
	}

	refresher := services.NewRefreshService(pipeline, refreshInterval, logger)
	if err := refresher.Start(); err != nil {
		logrus.Errorf("Failed to start refresh service: %v", err)
	}
	defer refresher.Stop()

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.ErrorLogger(logger))
	router.Use(middleware.CORS(cfg.CorsOrigins))

	// Liveness endpoint at the server root
	healthHandler := handlers.NewHealthHandler(refresher)
	router.GET("/health", healthHandler.GetHealth)

	// Setup API routes under /api/v1
	apiV1 := router.Group("/api/v1")
	api.SetupRoutes(apiV1, refresher, pipeline, logger)

	// Setup server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logrus.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

// buildAlertService wires SMS alerting from config; returns nil when alerts
// are disabled, which the pipeline treats as a no-op.
func buildAlertService(cfg *config.Config, logger *logrus.Logger) *services.AlertService {
	if !cfg.AlertsEnabled || cfg.AlertPhoneNumber == "" {
		return nil
	}

	var sms services.SMSService
	switch cfg.SMSProvider {
	case "twilio":
		sms = services.NewTwilioSMSService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger)
	default:
		sms = services.NewMockSMSService(logger)
	}

	limiter := services.NewAlertRateLimiter(5, time.Hour)
	return services.NewAlertService(sms, limiter, []string{cfg.AlertPhoneNumber}, logger)
}
