package archive

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	bq "github.com/dvloznov/receipt-tracker/internal/bigquery"
	"github.com/dvloznov/receipt-tracker/internal/gcs"
	"github.com/dvloznov/receipt-tracker/internal/jobs"
	"github.com/dvloznov/receipt-tracker/internal/logger"
)

// Archiver processes receipt archive jobs: the image goes to object storage
// and the raw model reply is recorded in model_outputs.
type Archiver struct {
	storage gcs.StorageService
	outputs bq.ModelOutputRepository
	bucket  string
}

// NewArchiver creates an Archiver. With a nil storage or an empty bucket
// only the model output is recorded.
func NewArchiver(storage gcs.StorageService, outputs bq.ModelOutputRepository, bucket string) *Archiver {
	return &Archiver{storage: storage, outputs: outputs, bucket: bucket}
}

// Handle implements jobs.JobHandler. It is safe to retry: a completed
// upload is not repeated.
func (a *Archiver) Handle(ctx context.Context, job jobs.Job) error {
	archiveJob, ok := job.(*jobs.ArchiveReceiptJob)
	if !ok {
		return fmt.Errorf("unexpected job type: %T", job)
	}

	log := logger.FromContext(ctx).With().
		Str("job_id", archiveJob.JobID).
		Str("receipt_id", archiveJob.ReceiptID).
		Logger()

	if archiveJob.ImageURI == "" && a.storage != nil && a.bucket != "" && len(archiveJob.Image) > 0 {
		uri, err := a.storage.UploadBytes(ctx, a.bucket, archiveJob.ObjectName, archiveJob.ContentType, archiveJob.Image)
		if err != nil {
			return fmt.Errorf("archive: upload receipt image: %w", err)
		}
		archiveJob.ImageURI = uri
		log.Debug().Str("gcs_uri", uri).Msg("receipt image archived")
	}

	if a.outputs == nil {
		return nil
	}

	row := &bq.ModelOutputRow{
		ReceiptID: archiveJob.ReceiptID,
		UserID:    archiveJob.UserID,
		ModelName: archiveJob.ModelName,
		RawText:   archiveJob.RawText,
		ItemCount: bigquery.NullInt64{Int64: int64(archiveJob.ItemCount), Valid: true},
	}
	if archiveJob.ImageURI != "" {
		row.ImageURI = bigquery.NullString{StringVal: archiveJob.ImageURI, Valid: true}
	}

	if err := a.outputs.InsertModelOutput(ctx, row); err != nil {
		return fmt.Errorf("archive: store model output: %w", err)
	}

	// Drop the payload once everything is persisted.
	archiveJob.Image = nil
	archiveJob.RawText = ""
	return nil
}
