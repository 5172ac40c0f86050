package bigquery

import (
	"context"
	"errors"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/receipt-tracker/internal/domain"
)

var (
	// ErrNotFound is returned when an owner-scoped row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDefaultCategory is returned when a caller tries to delete a system default.
	ErrDefaultCategory = errors.New("default categories cannot be deleted")
)

// CategoryRepository provides category reads and writes scoped by owner.
type CategoryRepository interface {
	// ListCategories returns the owner's categories plus every system default.
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)

	// CreateCategory inserts c, filling ID and CreatedAt when empty.
	CreateCategory(ctx context.Context, c *domain.Category) error

	// DeleteCategory reassigns the owner's transactions to uncategorized and
	// then removes the category.
	DeleteCategory(ctx context.Context, userID, categoryID string) error
}

// TransactionRepository provides transaction reads and writes scoped by owner.
type TransactionRepository interface {
	// InsertTransaction inserts a single transaction, filling ID and CreatedAt when empty.
	InsertTransaction(ctx context.Context, tx *domain.Transaction) error

	// ListTransactions returns the owner's transactions dated within [start, end].
	ListTransactions(ctx context.Context, userID string, start, end civil.Date) ([]domain.Transaction, error)

	// UpdateTransaction overwrites the editable fields of an existing transaction.
	UpdateTransaction(ctx context.Context, tx *domain.Transaction) error

	// DeleteTransaction removes a transaction owned by userID.
	DeleteTransaction(ctx context.Context, userID, transactionID string) error
}

// ModelOutputRepository stores raw model replies for diagnostics.
type ModelOutputRepository interface {
	InsertModelOutput(ctx context.Context, row *ModelOutputRow) error
}

// CategoryRow represents a category record in BigQuery.
type CategoryRow struct {
	ID           string              `bigquery:"id"`
	UserID       bigquery.NullString `bigquery:"user_id"`
	Name         string              `bigquery:"name"`
	Icon         string              `bigquery:"icon"`
	Color        string              `bigquery:"color"`
	IsDefault    bool                `bigquery:"is_default"`
	CategoryType string              `bigquery:"category_type"`
	CreatedTS    time.Time           `bigquery:"created_at"`
}

// ToDomain converts the row, normalizing icon and category type.
func (r CategoryRow) ToDomain() domain.Category {
	c := domain.Category{
		ID:           r.ID,
		Name:         r.Name,
		Icon:         domain.ParseIcon(r.Icon),
		Color:        r.Color,
		IsDefault:    r.IsDefault,
		CategoryType: domain.ParseCategoryType(r.CategoryType),
		CreatedAt:    r.CreatedTS,
	}
	if r.UserID.Valid {
		owner := r.UserID.StringVal
		c.OwnerID = &owner
	}
	if c.Color == "" {
		c.Color = domain.DefaultColor
	}
	return c
}

// CategoryRowFromDomain builds a row for insertion.
func CategoryRowFromDomain(c *domain.Category) *CategoryRow {
	row := &CategoryRow{
		ID:           c.ID,
		Name:         c.Name,
		Icon:         string(domain.ParseIcon(string(c.Icon))),
		Color:        c.Color,
		IsDefault:    c.IsDefault,
		CategoryType: string(c.CategoryType),
		CreatedTS:    c.CreatedAt,
	}
	if c.OwnerID != nil {
		row.UserID = bigquery.NullString{StringVal: *c.OwnerID, Valid: true}
	}
	return row
}

// ExpenseRow represents a transaction record in the expenses table.
type ExpenseRow struct {
	ID          string              `bigquery:"id"`
	UserID      string              `bigquery:"user_id"`
	CategoryID  bigquery.NullString `bigquery:"category_id"`
	Name        string              `bigquery:"name"`
	Amount      *big.Rat            `bigquery:"amount"`
	Type        bigquery.NullString `bigquery:"type"`
	Date        civil.Date          `bigquery:"date"`
	ReceiptURL  bigquery.NullString `bigquery:"receipt_url"`
	AIProcessed bool                `bigquery:"ai_processed"`
	CreatedTS   time.Time           `bigquery:"created_at"`
}

// ToDomain converts the row. Rows written before the type column existed read as expense.
func (r ExpenseRow) ToDomain() domain.Transaction {
	tx := domain.Transaction{
		ID:              r.ID,
		OwnerID:         r.UserID,
		Name:            r.Name,
		TransactionType: domain.ParseTransactionType(r.Type.StringVal),
		Date:            r.Date,
		AIProcessed:     r.AIProcessed,
		CreatedAt:       r.CreatedTS,
	}
	if r.Amount != nil {
		tx.Amount, _ = r.Amount.Float64()
	}
	if r.CategoryID.Valid {
		id := r.CategoryID.StringVal
		tx.CategoryID = &id
	}
	if r.ReceiptURL.Valid {
		u := r.ReceiptURL.StringVal
		tx.ReceiptURL = &u
	}
	return tx
}

// ExpenseRowFromDomain builds a row for insertion.
func ExpenseRowFromDomain(tx *domain.Transaction) *ExpenseRow {
	row := &ExpenseRow{
		ID:          tx.ID,
		UserID:      tx.OwnerID,
		Name:        tx.Name,
		Amount:      new(big.Rat).SetFloat64(tx.Amount),
		Type:        bigquery.NullString{StringVal: string(tx.TransactionType), Valid: tx.TransactionType != ""},
		Date:        tx.Date,
		AIProcessed: tx.AIProcessed,
		CreatedTS:   tx.CreatedAt,
	}
	if tx.CategoryID != nil {
		row.CategoryID = bigquery.NullString{StringVal: *tx.CategoryID, Valid: true}
	}
	if tx.ReceiptURL != nil {
		row.ReceiptURL = bigquery.NullString{StringVal: *tx.ReceiptURL, Valid: true}
	}
	return row
}

// ModelOutputRow represents a raw model reply kept for diagnostics.
type ModelOutputRow struct {
	OutputID  string `bigquery:"output_id"`
	ReceiptID string `bigquery:"receipt_id"`
	UserID    string `bigquery:"user_id"`

	ModelName string              `bigquery:"model_name"`
	RawText   string              `bigquery:"raw_text"`
	ImageURI  bigquery.NullString `bigquery:"image_uri"`
	ItemCount bigquery.NullInt64  `bigquery:"item_count"`

	CreatedTS time.Time `bigquery:"created_at"`
}
