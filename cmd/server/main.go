package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tarifario/price-tracker/config"
	"github.com/tarifario/price-tracker/internal/coordinator"
	"github.com/tarifario/price-tracker/internal/database"
	"github.com/tarifario/price-tracker/internal/handlers"
	phttp "github.com/tarifario/price-tracker/internal/http"
	"github.com/tarifario/price-tracker/internal/http/ratelimit"
	"github.com/tarifario/price-tracker/internal/jobs"
	"github.com/tarifario/price-tracker/internal/middleware"
	"github.com/tarifario/price-tracker/internal/router"
	"github.com/tarifario/price-tracker/internal/source"
	"github.com/tarifario/price-tracker/internal/storage"
	"github.com/tarifario/price-tracker/internal/sweepers"
	"github.com/tarifario/price-tracker/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting price tracker")

	loc, err := time.LoadLocation(cfg.Source.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Str("timezone", cfg.Source.Timezone).Msg("Failed to load timezone")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry := telemetry.MustInit(ctx, telemetry.GetConfigFromEnv())
	defer shutdownTelemetry(context.Background())

	store, err := storage.NewLocalStorage(cfg.Cache.Dir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.Cache.Dir).Msg("Failed to initialize cache storage")
	}

	// The price archive is optional; without DATABASE_URL the tracker
	// runs on the disk cache alone.
	var priceArchive *database.PriceArchive
	if dbURL := config.GetDatabaseURL(); dbURL != "" {
		if err := database.Connect(
			ctx,
			dbURL,
			cfg.Database.MaxConnections,
			cfg.Database.MinConnections,
			cfg.Database.MaxConnLifetime,
			cfg.Database.MaxConnIdleTime,
		); err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer database.Close()

		if err := database.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to run migrations")
		}
		priceArchive = database.NewPriceArchive()
		logger.Info().Msg("Price archive enabled")
	} else {
		logger.Info().Msg("DATABASE_URL not set, price archive disabled")
	}

	client := phttp.NewClient(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		MaxRetries:        cfg.RateLimit.MaxRetries,
		InitialBackoff:    time.Duration(cfg.RateLimit.InitialBackoffMs) * time.Millisecond,
		MaxBackoff:        time.Duration(cfg.RateLimit.MaxBackoffMs) * time.Millisecond,
		AttemptTimeout:    time.Duration(cfg.RateLimit.AttemptTimeoutMs) * time.Millisecond,
	})

	fetcher := source.NewFetcher(source.Config{
		RawBaseURL:      cfg.Source.RawBaseURL,
		APIBaseURL:      cfg.Source.APIBaseURL,
		FilePath:        cfg.Source.FilePath,
		MemoryTTL:       cfg.Source.MemoryTTL,
		DownloadTimeout: cfg.Source.DownloadTimeout,
	}, client, store, loc)

	coordConfig := coordinator.Config{
		ScanInterval: cfg.Cache.ScanInterval,
		CutoffHour:   cfg.Cache.CutoffHour,
	}

	coords := make(map[string]*coordinator.Coordinator, len(cfg.Instances))
	for _, inst := range cfg.Instances {
		spec := source.Spec{Provider: inst.Provider, Tariff: inst.Tariff, VATRate: inst.VATRate}
		var archiver coordinator.Archiver
		if priceArchive != nil {
			archiver = priceArchive
		}
		coord := coordinator.New(spec, fetcher, archiver, coordConfig)
		coords[coord.Key()] = coord
		coord.Start(ctx)
	}
	logger.Info().Int("instances", len(coords)).Msg("Coordinators started")

	rt := router.New(router.NewSelection(cfg.Active.Selection))
	for _, coord := range coords {
		rt.Register(coord)
	}

	sweeper := sweepers.NewCacheSweeper(
		store,
		priceArchive,
		loc,
		jobs.CleanupConfig{RetentionDays: cfg.Cache.RetentionDays},
		cfg.Cache.SweepInterval,
		logger,
	)
	go sweeper.Start(ctx)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	setupMiddleware(engine, logger)

	svc := handlers.NewService(rt, coords, priceArchive, store, cfg.Cache.Dir)

	engine.GET("/health", svc.Health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	internal := engine.Group("/internal")
	internal.Use(middleware.InternalAuthMiddleware(cfg.API.InternalKey))
	internal.Use(middleware.RateLimitMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		BurstSize:         cfg.API.Burst,
	}))
	{
		internal.GET("/health", svc.Health)
		internal.GET("/providers", svc.GetProviders)
		internal.GET("/prices/:provider/:tariff", svc.GetPrices)
		internal.GET("/active", svc.GetActive)
		internal.GET("/active/selection", svc.GetSelection)
		internal.PUT("/active/selection", svc.PutSelection)
		internal.POST("/refresh", svc.PostRefresh)
		internal.GET("/archive/:provider/:tariff", svc.GetArchive)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")
	sweeper.Stop()
	for _, coord := range coords {
		coord.Stop()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "price-tracker").Logger()
	return &logger
}

func setupMiddleware(engine *gin.Engine, logger *zerolog.Logger) {
	engine.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Msg("HTTP request")
	})
}
