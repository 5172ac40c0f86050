package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/receipt-tracker/internal/api/handlers"
	"github.com/dvloznov/receipt-tracker/internal/api/middleware"
	"github.com/dvloznov/receipt-tracker/internal/archive"
	"github.com/dvloznov/receipt-tracker/internal/auth"
	"github.com/dvloznov/receipt-tracker/internal/config"
	"github.com/dvloznov/receipt-tracker/internal/gcs"
	"github.com/dvloznov/receipt-tracker/internal/gcsuploader"
	infraBQ "github.com/dvloznov/receipt-tracker/internal/infra/bigquery"
	"github.com/dvloznov/receipt-tracker/internal/jobs/inmemory"
	"github.com/dvloznov/receipt-tracker/internal/logger"
	"github.com/dvloznov/receipt-tracker/internal/pipeline"
)

// tokenTTL is the lifetime of tokens minted with the shared secret.
const tokenTTL = 24 * time.Hour

func main() {
	cfg := config.Load()

	// Parse command-line flags
	var (
		port   = flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
		bucket = flag.String("bucket", cfg.GCSBucket, "GCS bucket for receipt images (or set GCS_BUCKET env)")
	)
	flag.Parse()
	cfg.Port = *port
	cfg.GCSBucket = *bucket

	// Initialize logger
	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if !cfg.ArchiveEnabled() {
		log.Warn().Msg("No GCS bucket configured - receipt images will not be archived")
	}

	ctx := logger.WithContext(context.Background(), log)

	// Initialize repositories
	repo, err := infraBQ.NewRepository(ctx, cfg.GCPProjectID, cfg.BQDataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	var storage gcs.StorageService
	if cfg.ArchiveEnabled() {
		gcsService, err := gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer gcsService.Close()
		storage = gcsService
	}

	model, err := newVisionModel(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.VisionProvider).Msg("Failed to create vision model")
	}
	log.Info().Str("provider", cfg.VisionProvider).Str("model", model.Name()).Msg("Vision model ready")

	analyzer := pipeline.NewAnalyzer(repo, model,
		pipeline.WithMaxBytes(cfg.MaxUploadBytes),
		pipeline.WithTimeout(cfg.AnalyzeTimeout),
	)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore(inmemory.WithRetention(cfg.ArchiveRetention))
	jobQueue := inmemory.NewQueue(cfg.ArchiveQueueSize, jobStore, inmemory.WithWorkers(cfg.ArchiveWorkers))
	archiver := archive.NewArchiver(storage, repo, cfg.GCSBucket)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.ArchiveWorkers).Msg("Starting archive workers")
	if err := jobQueue.Start(workerCtx, archiver.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start archive workers")
	}

	// Initialize handlers
	receiptsHandler := handlers.NewReceiptsHandler(analyzer, jobQueue, cfg.GCSBucket, log)
	transactionsHandler := handlers.NewTransactionsHandler(repo, repo, cfg.GCSBucket, log)
	categoriesHandler := handlers.NewCategoriesHandler(repo, log)
	statsHandler := handlers.NewStatsHandler(repo, repo, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Authenticated routes
	api := http.NewServeMux()
	api.HandleFunc("POST /api/receipts/analyze", receiptsHandler.Analyze)

	api.HandleFunc("GET /api/transactions", transactionsHandler.ListTransactions)
	api.HandleFunc("POST /api/transactions/batch", transactionsHandler.CreateBatch)
	api.HandleFunc("PUT /api/transactions/{id}", transactionsHandler.UpdateTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", transactionsHandler.DeleteTransaction)

	api.HandleFunc("GET /api/categories", categoriesHandler.ListCategories)
	api.HandleFunc("POST /api/categories", categoriesHandler.CreateCategory)
	api.HandleFunc("DELETE /api/categories/{id}", categoriesHandler.DeleteCategory)

	api.HandleFunc("GET /api/stats/summary", statsHandler.Summary)

	api.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
	api.HandleFunc("GET /api/jobs/{id}", jobsHandler.GetJob)

	tokens := auth.NewTokenService(cfg.JWTSecret, tokenTTL)

	mux := http.NewServeMux()
	mux.Handle("/api/", middleware.Chain(api,
		middleware.Auth(tokens),
		middleware.MaxBytes(cfg.MaxUploadBytes+(1<<20)),
	))
	mux.HandleFunc("GET /health", handlers.Health)

	// Apply middleware
	handler := middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.AnalyzeTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}

// newVisionModel builds the configured provider client.
func newVisionModel(ctx context.Context, cfg *config.Config) (pipeline.VisionModel, error) {
	switch cfg.VisionProvider {
	case config.ProviderAnthropic:
		return pipeline.NewAnthropicVision(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	default:
		gemini, err := pipeline.NewGeminiVision(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return gemini, nil
	}
}
