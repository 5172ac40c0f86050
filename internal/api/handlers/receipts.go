package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dvloznov/receipt-tracker/internal/api/middleware"
	"github.com/dvloznov/receipt-tracker/internal/domain"
	"github.com/dvloznov/receipt-tracker/internal/gcsuploader"
	"github.com/dvloznov/receipt-tracker/internal/jobs"
	"github.com/dvloznov/receipt-tracker/internal/pipeline"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// imageField is the multipart field carrying the upload.
const imageField = "image"

// multipartMemory is kept in memory before multipart parts spill to disk.
const multipartMemory = 10 << 20

// ReceiptAnalyzer extracts line items from one uploaded image.
type ReceiptAnalyzer interface {
	Analyze(ctx context.Context, userID string, r io.Reader, declaredMIME string) (*pipeline.Analysis, error)
}

// ReceiptsHandler handles receipt analysis endpoints.
type ReceiptsHandler struct {
	analyzer  ReceiptAnalyzer
	publisher jobs.Publisher
	bucket    string
	log       zerolog.Logger
}

// NewReceiptsHandler creates a new receipts handler. publisher may be nil,
// in which case nothing is archived.
func NewReceiptsHandler(analyzer ReceiptAnalyzer, publisher jobs.Publisher, bucket string, log zerolog.Logger) *ReceiptsHandler {
	return &ReceiptsHandler{
		analyzer:  analyzer,
		publisher: publisher,
		bucket:    bucket,
		log:       log,
	}
}

type analyzeResponse struct {
	Items      []domain.LineItem    `json:"items"`
	Rejected   []pipeline.Rejection `json:"rejected,omitempty"`
	ReceiptID  string               `json:"receiptId"`
	ReceiptURL string               `json:"receiptUrl,omitempty"`
	JobID      string               `json:"jobId,omitempty"`
}

// Analyze handles POST /api/receipts/analyze
func (h *ReceiptsHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Image too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	file, header, err := r.FormFile(imageField)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "No image provided")
		return
	}
	defer file.Close()

	analysis, err := h.analyzer.Analyze(ctx, userID, file, header.Header.Get("Content-Type"))
	if err != nil {
		h.writeAnalyzeError(w, userID, err)
		return
	}

	resp := analyzeResponse{
		Items:     analysis.Items,
		Rejected:  analysis.Rejected,
		ReceiptID: uuid.New().String(),
	}
	if resp.Items == nil {
		resp.Items = []domain.LineItem{}
	}

	if h.publisher != nil {
		objectName := gcsuploader.ReceiptObjectName(userID, resp.ReceiptID, analysis.Image.MIMEType)
		job := &jobs.ArchiveReceiptJob{
			JobID:       uuid.New().String(),
			ReceiptID:   resp.ReceiptID,
			UserID:      userID,
			ObjectName:  objectName,
			ContentType: analysis.Image.MIMEType,
			Image:       analysis.Image.Data,
			RawText:     analysis.RawText,
			ModelName:   analysis.ModelName,
			ItemCount:   len(analysis.Items),
			Status:      jobs.JobStatusPending,
			CreatedAt:   time.Now(),
		}
		if err := h.publisher.PublishArchiveReceipt(ctx, job); err != nil {
			h.log.Warn().Err(err).Str("receipt_id", resp.ReceiptID).Msg("Failed to enqueue receipt archive")
		} else {
			resp.JobID = job.JobID
			if h.bucket != "" {
				resp.ReceiptURL = gcsuploader.ObjectURI(h.bucket, objectName)
			}
		}
	}

	h.log.Info().
		Str("user_id", userID).
		Str("receipt_id", resp.ReceiptID).
		Int("items", len(resp.Items)).
		Int("rejected", len(resp.Rejected)).
		Msg("Receipt analyzed")

	middleware.WriteJSON(w, http.StatusOK, resp)
}

func (h *ReceiptsHandler) writeAnalyzeError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, pipeline.ErrImageTooLarge):
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Image too large")
	case errors.Is(err, pipeline.ErrNoImage):
		middleware.WriteError(w, http.StatusBadRequest, "No image provided")
	case errors.Is(err, pipeline.ErrUnsupportedImage):
		middleware.WriteError(w, http.StatusBadRequest, "Unsupported image type")
	default:
		h.log.Error().Err(err).Str("user_id", userID).Msg("Receipt analysis failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to analyze receipt")
	}
}
