package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/receipt-tracker/internal/api/middleware"
	bq "github.com/dvloznov/receipt-tracker/internal/bigquery"
	"github.com/dvloznov/receipt-tracker/internal/pipeline"
	"github.com/dvloznov/receipt-tracker/internal/stats"
	"github.com/rs/zerolog"
)

// StatsHandler serves aggregated views over transactions.
type StatsHandler struct {
	categories   bq.CategoryRepository
	transactions bq.TransactionRepository
	now          func() time.Time
	log          zerolog.Logger
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(categories bq.CategoryRepository, transactions bq.TransactionRepository, log zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		categories:   categories,
		transactions: transactions,
		now:          time.Now,
		log:          log,
	}
}

// Summary handles GET /api/stats/summary
func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
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

	txs, err := h.transactions.ListTransactions(ctx, userID, start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return
	}

	catalog := pipeline.LoadCatalog(ctx, h.categories, userID)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"startDate": start,
		"endDate":   end,
		"summary":   stats.Summarize(txs, catalog.Categories()),
	})
}
