// Command projections builds one slate of projections from the command line
// and writes the CSV outputs, without running the API server.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/adpsports/nhl-projections/internal/export"
	"github.com/adpsports/nhl-projections/internal/providers"
	"github.com/adpsports/nhl-projections/internal/services"
	"github.com/adpsports/nhl-projections/internal/store"
	"github.com/adpsports/nhl-projections/pkg/config"
	"github.com/adpsports/nhl-projections/pkg/database"
)

func main() {
	dateFlag := flag.String("date", "", "slate date as YYYY-MM-DD (default today)")
	skipDB := flag.Bool("no-db", false, "skip baseline persistence")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger := logrus.StandardLogger()
	if cfg.IsDevelopment() {
		logrus.SetLevel(logrus.DebugLevel)
	}

	day := time.Now()
	if *dateFlag != "" {
		day, err = time.Parse("2006-01-02", *dateFlag)
		if err != nil {
			logrus.Fatalf("Invalid -date, expected YYYY-MM-DD: %v", err)
		}
	}

	// Redis is optional here; without it the run simply isn't cached
	var cacheService *services.CacheService
	if opt, err := redis.ParseURL(cfg.RedisURL); err == nil {
		client := redis.NewClient(opt)
		if err := client.Ping(context.Background()).Err(); err == nil {
			cacheService = services.NewCacheService(client)
			defer client.Close()
		} else {
			logger.WithError(err).Warn("Redis unavailable, run will not be cached")
			client.Close()
		}
	}

	var baselineStore *store.BaselineStore
	if !*skipDB {
		db, err := database.NewConnection(cfg.DatabaseURL, cfg.SQLitePath, cfg.IsDevelopment())
		if err != nil {
			logrus.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		baselineStore, err = store.NewBaselineStore(db, logger)
		if err != nil {
			logrus.Fatalf("Failed to initialize baseline store: %v", err)
		}
	}

	// a nil *CacheService must stay a nil interface inside the fetcher
	var payloadCache providers.PayloadCache
	if cacheService != nil {
		payloadCache = cacheService
	}

	fetcher := providers.NewFetcher(payloadCache, providers.FetcherOptions{
		Timeout:          cfg.SourceTimeout,
		RateLimit:        cfg.SourceRateLimit,
		Burst:            cfg.SourceBurst,
		BreakerThreshold: cfg.BreakerThreshold,
		CacheTTL:         cfg.PayloadCacheTTL,
	}, logger)

	nstClient := providers.NewNSTClient(fetcher, cfg.NSTBaseURL, logger)
	scheduleClient := providers.NewScheduleClient(fetcher, cfg.ScheduleURL, logger)
	lineupsClient := providers.NewLineupsClient(fetcher, payloadCache, cfg.LineupsURL, logger)
	salaryLoader := providers.NewSalaryLoader(cfg.SalaryFile, logger)

	pipeline := services.NewPipelineService(cfg, cacheService, nstClient, scheduleClient, lineupsClient, salaryLoader, baselineStore, nil, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	run, err := pipeline.Run(ctx, day)
	if err != nil {
		logrus.Fatalf("Projection run failed: %v", err)
	}

	exporter := export.NewExporter(cfg.OutputDir, logger)
	paths, err := exporter.WriteRun(run)
	if err != nil {
		logrus.Fatalf("Failed to export run: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"run_id":   run.RunID,
		"slate":    run.SlateDate,
		"games":    len(run.Games),
		"skaters":  len(run.Skaters),
		"goalies":  len(run.Goalies),
		"stacks":   len(run.Stacks),
		"warnings": len(run.Warnings),
		"files":    paths,
	}).Info("Projection run complete")

	for _, w := range run.Warnings {
		logger.Warn(w)
	}
}
