package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/JeffBrines/RealEstateInsightsPub/config"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/api"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/assistant"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/database"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/geocoding"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/ingest"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/mapping"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/processor"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/queue"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/scheduler"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("level", cfg.Log.Level).Warn("Unknown log level, using info")
	}

	table, err := loadColumnTable(cfg.Ingestion.ColumnTablePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load column table")
	}

	// Initialize database
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open database")
	}
	store, err := database.NewStore(db, database.Options{
		BatchSize: cfg.Database.InsertBatchSize,
		CacheSize: cfg.Database.CacheSize,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ingestion runs off the request path
	ingestOpts := ingest.DefaultOptions()
	ingestOpts.DefaultSqft = cfg.Ingestion.DefaultSqft
	ingestOpts.MaxDiagnostics = cfg.Ingestion.MaxDiagnostics
	pipeline := ingest.NewPipeline(table, ingestOpts, logger)

	jobs := queue.NewJobQueue(cfg.Ingestion.QueueSize, logger)
	proc := processor.NewProcessor(store, pipeline, jobs, cfg, logger)
	if cfg.Geocoding.Enabled {
		proc.UseGeocoder(geocoding.NewGeocoder(geocoding.Options{
			BaseURL:      cfg.Geocoding.BaseURL,
			CountryCodes: cfg.Geocoding.CountryCodes,
			Interval:     cfg.Geocoding.Interval,
			CacheFile:    cfg.Geocoding.CacheFile,
		}, logger))
	}
	proc.Start(ctx)

	sched := scheduler.NewScheduler(store, cfg.Datasets.TTL, cfg.Datasets.SweepInterval, logger)
	if err := sched.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start scheduler")
	}

	var runtime assistant.Runtime
	if cfg.Assistant.APIKey != "" {
		runtime = assistant.NewClient(cfg.Assistant.APIKey, cfg.Assistant.BaseURL, cfg.Assistant.Timeout)
	} else {
		logger.Warn("OPENROUTER_API_KEY is not set; questions are answered locally")
	}
	adapter := assistant.NewAdapter(runtime, assistant.Options{
		Model:          cfg.Assistant.Model,
		MaxTokens:      cfg.Assistant.MaxTokens,
		Temperature:    cfg.Assistant.Temperature,
		Timeout:        cfg.Assistant.Timeout,
		IncludeRecords: cfg.Assistant.IncludeRecords,
	}, logger)

	handler := api.NewHandler(api.Options{
		Store:          store,
		Queue:          jobs,
		Processor:      proc,
		Assistant:      adapter,
		Table:          table,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, logger)

	// Initialize router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))
	api.SetupRoutes(router, handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Server stopped with error")
	}

	sched.Stop()
	proc.Stop()
	logger.Info("Server stopped")
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func loadColumnTable(path string) (*mapping.Table, error) {
	if path == "" {
		return mapping.Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return mapping.LoadTable(f)
}
