package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/receipt-tracker/internal/config"
	"github.com/dvloznov/receipt-tracker/internal/gcsuploader"
	"github.com/dvloznov/receipt-tracker/internal/logger"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	var (
		bucketName string
		userID     string
		filePath   string
	)

	flag.StringVar(&bucketName, "bucket", cfg.GCSBucket, "GCS bucket name (or set GCS_BUCKET env)")
	flag.StringVar(&userID, "user", "", "Owner of the receipt (required)")
	flag.StringVar(&filePath, "file", "", "Path to local receipt image (required)")
	flag.Parse()

	if bucketName == "" || userID == "" || filePath == "" {
		log.Fatal().Msg("Usage: upload-receipt -bucket BUCKET_NAME -user USER_ID -file /path/to/receipt.jpg")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", filePath).Msg("Failed to read file")
	}
	if int64(len(data)) > cfg.MaxUploadBytes {
		log.Fatal().Int("size", len(data)).Int64("max", cfg.MaxUploadBytes).Msg("Image too large")
	}

	contentType := mimetype.Detect(data).String()
	if !strings.HasPrefix(contentType, "image/") {
		log.Fatal().Str("content_type", contentType).Msg("Unsupported image type")
	}

	objectName := gcsuploader.ReceiptObjectName(userID, uuid.NewString(), contentType)

	ctx := logger.WithContext(context.Background(), log)

	log.Info().
		Str("bucket", bucketName).
		Str("object", objectName).
		Str("file", filePath).
		Msg("Uploading receipt to GCS")

	storage, err := gcsuploader.NewGCSStorageService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer storage.Close()

	uri, err := storage.UploadBytes(ctx, bucketName, objectName, contentType, data)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Println(uri)
}
