package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/receipt-tracker/internal/api/middleware"
	bq "github.com/dvloznov/receipt-tracker/internal/bigquery"
	"github.com/dvloznov/receipt-tracker/internal/domain"
	"github.com/dvloznov/receipt-tracker/internal/gcsuploader"
	"github.com/dvloznov/receipt-tracker/internal/pipeline"
	"github.com/rs/zerolog"
)

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	categories   bq.CategoryRepository
	transactions bq.TransactionRepository
	reconciler   *pipeline.Reconciler
	materializer *pipeline.Materializer
	bucket       string
	now          func() time.Time
	log          zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler. bucket is the
// receipt archive bucket; receipt URLs outside it are not accepted.
func NewTransactionsHandler(categories bq.CategoryRepository, transactions bq.TransactionRepository, bucket string, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		categories:   categories,
		transactions: transactions,
		reconciler:   pipeline.NewReconciler(categories),
		materializer: pipeline.NewMaterializer(transactions),
		bucket:       bucket,
		now:          time.Now,
		log:          log,
	}
}

type batchItem struct {
	Name           string  `json:"name" validate:"required,notblank"`
	Amount         float64 `json:"amount" validate:"gt=0"`
	Date           string  `json:"date" validate:"omitempty,isodate"`
	Type           string  `json:"type" validate:"omitempty,oneof=income expense"`
	Category       string  `json:"category"`
	IsNewCategory  bool    `json:"isNewCategory"`
	SuggestedIcon  string  `json:"suggestedIcon"`
	SuggestedColor string  `json:"suggestedColor"`
	CategoryID     *string `json:"categoryId"`
}

func (b batchItem) toLineItem() domain.LineItem {
	item := domain.LineItem{
		Name:            strings.TrimSpace(b.Name),
		Amount:          b.Amount,
		TransactionType: domain.ParseTransactionType(b.Type),
		CategoryLabel:   b.Category,
		IsNewCategory:   b.IsNewCategory,
		SuggestedIcon:   b.SuggestedIcon,
		SuggestedColor:  b.SuggestedColor,
		CategoryID:      b.CategoryID,
	}
	if d, err := civil.ParseDate(b.Date); err == nil {
		item.Date = d
	}
	return item
}

type batchRequest struct {
	Items      []batchItem `json:"items" validate:"required,min=1,dive"`
	ReceiptURL *string     `json:"receiptUrl" validate:"omitempty,startswith=gs://"`
}

// CreateBatch handles POST /api/transactions/batch
func (h *TransactionsHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req batchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.ReceiptURL != nil && !h.ownsReceipt(userID, *req.ReceiptURL) {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid receiptUrl")
		return
	}

	items := make([]domain.LineItem, len(req.Items))
	for i, b := range req.Items {
		items[i] = b.toLineItem()
	}

	catalog, err := pipeline.ReadCatalog(ctx, h.categories, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load categories")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save transactions")
		return
	}
	reconciled := h.reconciler.Reconcile(ctx, userID, items, catalog, pipeline.NewCategoryCache{})
	result := h.materializer.MaterializeReceipt(ctx, userID, reconciled, req.ReceiptURL)

	if err := result.Err(); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to save transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, result)
}

// ownsReceipt reports whether uri points into userID's area of the archive bucket.
func (h *TransactionsHandler) ownsReceipt(userID, uri string) bool {
	bucket, object, err := gcsuploader.ParseGCSURI(uri)
	if err != nil || h.bucket == "" || bucket != h.bucket {
		return false
	}
	return strings.HasPrefix(object, "receipts/"+userID+"/")
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	start, end, err := dateRange(r, h.now())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	transactions, err := h.transactions.ListTransactions(ctx, userID, start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return
	}

	// Return array directly for frontend compatibility
	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

type updateTransactionRequest struct {
	Name       string  `json:"name" validate:"required,notblank"`
	Amount     float64 `json:"amount" validate:"gt=0"`
	Type       string  `json:"type" validate:"required,oneof=income expense"`
	Date       string  `json:"date" validate:"required,isodate"`
	CategoryID *string `json:"categoryId"`
}

// UpdateTransaction handles PUT /api/transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req updateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var categoryID *string
	if req.CategoryID != nil && *req.CategoryID != "" {
		catalog, err := pipeline.ReadCatalog(ctx, h.categories, userID)
		if err != nil {
			h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load categories")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to update transaction")
			return
		}
		if _, ok := catalog.Get(*req.CategoryID); !ok {
			middleware.WriteError(w, http.StatusBadRequest, "Unknown category")
			return
		}
		categoryID = req.CategoryID
	}

	date, _ := civil.ParseDate(req.Date)
	tx := &domain.Transaction{
		ID:              r.PathValue("id"),
		OwnerID:         userID,
		CategoryID:      categoryID,
		Name:            strings.TrimSpace(req.Name),
		Amount:          req.Amount,
		TransactionType: domain.ParseTransactionType(req.Type),
		Date:            date,
	}

	if err := h.transactions.UpdateTransaction(ctx, tx); err != nil {
		if errors.Is(err, bq.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).Str("transaction_id", tx.ID).Msg("Failed to update transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := h.transactions.DeleteTransaction(ctx, userID, id); err != nil {
		if errors.Is(err, bq.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to delete transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
