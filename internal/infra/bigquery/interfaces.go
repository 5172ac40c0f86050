package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	bq "github.com/dvloznov/receipt-tracker/internal/bigquery"
	"github.com/dvloznov/receipt-tracker/internal/domain"
)

// Re-export interfaces and rows from the shared package
type CategoryRepository = bq.CategoryRepository
type TransactionRepository = bq.TransactionRepository
type ModelOutputRepository = bq.ModelOutputRepository
type CategoryRow = bq.CategoryRow
type ExpenseRow = bq.ExpenseRow
type ModelOutputRow = bq.ModelOutputRow

const (
	categoriesTable   = "categories"
	expensesTable     = "expenses"
	modelOutputsTable = "model_outputs"
)

// Repository implements every repository interface against one BigQuery
// dataset. It holds a shared client to avoid a new connection per operation.
type Repository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewRepository creates a Repository with its own BigQuery client.
func NewRepository(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
	}, nil
}

// Close closes the BigQuery client connection. This should be called when
// the repository is no longer needed to release resources.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// table returns the fully qualified, backtick-quoted table name.
func (r *Repository) table(name string) string {
	return "`" + r.projectID + "." + r.datasetID + "." + name + "`"
}

// ListCategories delegates to ListCategoriesWithClient.
func (r *Repository) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	return ListCategoriesWithClient(ctx, r.client, r.table(categoriesTable), userID)
}

// CreateCategory delegates to CreateCategoryWithClient.
func (r *Repository) CreateCategory(ctx context.Context, c *domain.Category) error {
	return CreateCategoryWithClient(ctx, r.client, r.table(categoriesTable), c)
}

// DeleteCategory delegates to DeleteCategoryWithClient.
func (r *Repository) DeleteCategory(ctx context.Context, userID, categoryID string) error {
	return DeleteCategoryWithClient(ctx, r.client, r.table(categoriesTable), r.table(expensesTable), userID, categoryID)
}

// InsertTransaction delegates to InsertTransactionWithClient.
func (r *Repository) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	return InsertTransactionWithClient(ctx, r.client, r.table(expensesTable), tx)
}

// ListTransactions delegates to ListTransactionsWithClient.
func (r *Repository) ListTransactions(ctx context.Context, userID string, start, end civil.Date) ([]domain.Transaction, error) {
	return ListTransactionsWithClient(ctx, r.client, r.table(expensesTable), userID, start, end)
}

// UpdateTransaction delegates to UpdateTransactionWithClient.
func (r *Repository) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	return UpdateTransactionWithClient(ctx, r.client, r.table(expensesTable), tx)
}

// DeleteTransaction delegates to DeleteTransactionWithClient.
func (r *Repository) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	return DeleteTransactionWithClient(ctx, r.client, r.table(expensesTable), userID, transactionID)
}

// InsertModelOutput delegates to InsertModelOutputWithClient.
func (r *Repository) InsertModelOutput(ctx context.Context, row *ModelOutputRow) error {
	return InsertModelOutputWithClient(ctx, r.client, r.table(modelOutputsTable), row)
}

var (
	_ CategoryRepository    = (*Repository)(nil)
	_ TransactionRepository = (*Repository)(nil)
	_ ModelOutputRepository = (*Repository)(nil)
)
