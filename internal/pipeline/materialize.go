package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/receipt-tracker/internal/domain"
	"github.com/dvloznov/receipt-tracker/internal/logger"
)

// Result counts the outcome of one materialization batch.
type Result struct {
	Succeeded int `json:"succeeded"`
	Attempted int `json:"attempted"`
}

// Err returns ErrNothingMaterialized when items were attempted but none saved.
func (r Result) Err() error {
	if r.Attempted > 0 && r.Succeeded == 0 {
		return fmt.Errorf("%w: 0 of %d", ErrNothingMaterialized, r.Attempted)
	}
	return nil
}

// Materializer persists confirmed line items as transactions.
type Materializer struct {
	repo  TransactionInserter
	today func() civil.Date
}

// NewMaterializer creates a Materializer writing through repo.
func NewMaterializer(repo TransactionInserter) *Materializer {
	return &Materializer{
		repo:  repo,
		today: func() civil.Date { return civil.DateOf(time.Now()) },
	}
}

// Materialize inserts one transaction per item.
func (m *Materializer) Materialize(ctx context.Context, userID string, items []domain.LineItem) Result {
	return m.MaterializeReceipt(ctx, userID, items, nil)
}

// MaterializeReceipt inserts one transaction per item, each linked to
// receiptURL when set. Inserts are sequential and independent: a failed
// item is logged and does not stop the batch.
func (m *Materializer) MaterializeReceipt(ctx context.Context, userID string, items []domain.LineItem, receiptURL *string) Result {
	log := logger.FromContext(ctx)
	res := Result{Attempted: len(items)}

	for i, item := range items {
		tx, err := m.toTransaction(userID, item, receiptURL)
		if err != nil {
			log.Warn().Err(err).Int("index", i).Msg("skipping invalid line item")
			continue
		}
		if err := m.repo.InsertTransaction(ctx, tx); err != nil {
			log.Warn().Err(err).Int("index", i).Str("name", item.Name).Msg("transaction insert failed")
			continue
		}
		res.Succeeded++
	}

	log.Info().
		Str("user_id", userID).
		Int("succeeded", res.Succeeded).
		Int("attempted", res.Attempted).
		Msg("materialized line items")
	return res
}

func (m *Materializer) toTransaction(userID string, item domain.LineItem, receiptURL *string) (*domain.Transaction, error) {
	name := strings.TrimSpace(item.Name)
	if name == "" {
		return nil, fmt.Errorf("line item has no name")
	}
	if item.Amount <= 0 {
		return nil, fmt.Errorf("line item %q has non-positive amount %v", name, item.Amount)
	}

	date := item.Date
	if !date.IsValid() {
		date = m.today()
	}

	var categoryID *string
	if item.CategoryID != nil && *item.CategoryID != "" {
		id := *item.CategoryID
		categoryID = &id
	}

	return &domain.Transaction{
		OwnerID:         userID,
		CategoryID:      categoryID,
		Name:            name,
		Amount:          item.Amount,
		TransactionType: domain.ParseTransactionType(string(item.TransactionType)),
		Date:            date,
		ReceiptURL:      receiptURL,
		AIProcessed:     true,
	}, nil
}
