package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dvloznov/receipt-tracker/internal/auth"
	"github.com/dvloznov/receipt-tracker/internal/config"
	"github.com/dvloznov/receipt-tracker/internal/gcsuploader"
	infraBQ "github.com/dvloznov/receipt-tracker/internal/infra/bigquery"
	"github.com/dvloznov/receipt-tracker/internal/logger"
	"github.com/dvloznov/receipt-tracker/internal/pipeline"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "analyze":
		runAnalyze(cfg, log)
	case "reanalyze":
		runReanalyze(cfg, log)
	case "categories":
		runCategories(cfg, log)
	case "token":
		runToken(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Receipt Tracker CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  analyze     Extract line items from a local receipt image")
	fmt.Println("  reanalyze   Extract line items from an archived receipt in GCS")
	fmt.Println("  categories  Print the category catalog for a user")
	fmt.Println("  token       Mint an API bearer token for a user")
	fmt.Println("  help        Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runAnalyze(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	imagePath := fs.String("image", "", "Path to a receipt image or payment screenshot")
	userID := fs.String("user", "cli", "Owner whose categories ground the extraction")
	save := fs.Bool("save", false, "Create proposed categories and save the transactions")
	fs.Parse(os.Args[2:])

	if *imagePath == "" {
		log.Fatal().Msg("Usage: cli analyze -image PATH [-user ID] [-save]")
	}

	f, err := os.Open(*imagePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *imagePath).Msg("Failed to open image")
	}
	defer f.Close()

	analyzeAndPrint(cfg, log, *userID, f, *save)
}

func runReanalyze(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("reanalyze", flag.ExitOnError)
	gcsURI := fs.String("gcs-uri", "", "GCS URI of an archived receipt image")
	userID := fs.String("user", "cli", "Owner whose categories ground the extraction")
	fs.Parse(os.Args[2:])

	if *gcsURI == "" {
		log.Fatal().Msg("Error: --gcs-uri is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	storage, err := gcsuploader.NewGCSStorageService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer storage.Close()

	data, err := storage.FetchFromGCS(ctx, *gcsURI)
	if err != nil {
		log.Fatal().Err(err).Str("gcs_uri", *gcsURI).Msg("Failed to fetch image")
	}

	analyzeAndPrint(cfg, log, *userID, bytes.NewReader(data), false)
}

func analyzeAndPrint(cfg *config.Config, log zerolog.Logger, userID string, image io.Reader, save bool) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.AnalyzeTimeout+30*time.Second)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo := openRepository(ctx, cfg, log)
	if repo != nil {
		defer repo.Close()
	}
	if save && repo == nil {
		log.Fatal().Msg("-save requires GCP_PROJECT_ID")
	}

	model, err := newVisionModel(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create vision model")
	}

	var categories pipeline.CategoryLister
	if repo != nil {
		categories = repo
	}
	analyzer := pipeline.NewAnalyzer(categories, model,
		pipeline.WithMaxBytes(cfg.MaxUploadBytes),
		pipeline.WithTimeout(cfg.AnalyzeTimeout),
	)

	analysis, err := analyzer.Analyze(ctx, userID, image, "")
	if err != nil {
		log.Fatal().Err(err).Msg("Analysis failed")
	}

	out := map[string]interface{}{
		"model":    analysis.ModelName,
		"items":    analysis.Items,
		"rejected": analysis.Rejected,
	}

	if save {
		catalog, err := pipeline.ReadCatalog(ctx, repo, userID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load categories")
		}
		items := pipeline.NewReconciler(repo).Reconcile(ctx, userID, analysis.Items, catalog, pipeline.NewCategoryCache{})
		result := pipeline.NewMaterializer(repo).Materialize(ctx, userID, items)
		if err := result.Err(); err != nil {
			log.Fatal().Err(err).Msg("Failed to save transactions")
		}
		out["saved"] = result
	}

	printJSON(log, out)
}

func runCategories(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("categories", flag.ExitOnError)
	userID := fs.String("user", "", "Owner to include custom categories for")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var categories pipeline.CategoryLister
	if *userID != "" {
		if repo := openRepository(ctx, cfg, log); repo != nil {
			defer repo.Close()
			categories = repo
		}
	}

	catalog := pipeline.LoadCatalog(ctx, categories, *userID)
	printJSON(log, map[string]interface{}{
		"categories": catalog.Categories(),
		"vocabulary": catalog.Vocabulary(),
	})
}

func runToken(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	userID := fs.String("user", "", "User ID to embed as the token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")
	fs.Parse(os.Args[2:])

	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("AUTH_JWT_SECRET is not set")
	}

	token, err := auth.NewTokenService(cfg.JWTSecret, *ttl).GenerateToken(*userID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign token")
	}
	fmt.Println(token)
}

// openRepository returns nil when no project is configured; the catalog then
// falls back to the default categories.
func openRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) *infraBQ.Repository {
	if cfg.GCPProjectID == "" {
		log.Warn().Msg("GCP_PROJECT_ID not set, using default categories only")
		return nil
	}
	repo, err := infraBQ.NewRepository(ctx, cfg.GCPProjectID, cfg.BQDataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	return repo
}

func newVisionModel(ctx context.Context, cfg *config.Config) (pipeline.VisionModel, error) {
	if cfg.VisionProvider == config.ProviderAnthropic {
		return pipeline.NewAnthropicVision(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	}
	gemini, err := pipeline.NewGeminiVision(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	return gemini, nil
}

func printJSON(log zerolog.Logger, v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatal().Err(err).Msg("Failed to encode output")
	}
}
