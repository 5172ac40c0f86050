package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	bq "github.com/dvloznov/receipt-tracker/internal/bigquery"
	"github.com/dvloznov/receipt-tracker/internal/domain"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

// InsertTransactionWithClient inserts one row into the expenses table.
func InsertTransactionWithClient(ctx context.Context, client *bigquery.Client, table string, tx *domain.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	row := bq.ExpenseRowFromDomain(tx)

	q := client.Query(`
		INSERT INTO ` + table + ` (
			id, user_id, category_id, name, amount, type,
			date, receipt_url, ai_processed, created_at
		)
		VALUES (
			@id, @user_id, @category_id, @name, @amount, @type,
			@date, @receipt_url, @ai_processed, @created_at
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: row.ID},
		{Name: "user_id", Value: row.UserID},
		{Name: "category_id", Value: row.CategoryID},
		{Name: "name", Value: row.Name},
		{Name: "amount", Value: row.Amount},
		{Name: "type", Value: row.Type},
		{Name: "date", Value: row.Date},
		{Name: "receipt_url", Value: row.ReceiptURL},
		{Name: "ai_processed", Value: row.AIProcessed},
		{Name: "created_at", Value: row.CreatedTS},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	return nil
}

// ListTransactionsWithClient returns the owner's transactions in [start, end],
// newest first.
func ListTransactionsWithClient(ctx context.Context, client *bigquery.Client, table, userID string, start, end civil.Date) ([]domain.Transaction, error) {
	q := client.Query(`
		SELECT id, user_id, category_id, name, amount, type, date, receipt_url, ai_processed, created_at
		FROM ` + table + `
		WHERE user_id = @user_id
		  AND date >= @start_date
		  AND date <= @end_date
		ORDER BY date DESC, created_at DESC
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query read: %w", err)
	}

	var out []domain.Transaction
	for {
		var r ExpenseRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: iter next: %w", err)
		}
		out = append(out, r.ToDomain())
	}

	return out, nil
}

// UpdateTransactionWithClient rewrites the editable fields of tx.
func UpdateTransactionWithClient(ctx context.Context, client *bigquery.Client, table string, tx *domain.Transaction) error {
	row := bq.ExpenseRowFromDomain(tx)

	q := client.Query(`
		UPDATE ` + table + `
		SET name = @name,
		    amount = @amount,
		    type = @type,
		    date = @date,
		    category_id = @category_id
		WHERE id = @id AND user_id = @user_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "name", Value: row.Name},
		{Name: "amount", Value: row.Amount},
		{Name: "type", Value: row.Type},
		{Name: "date", Value: row.Date},
		{Name: "category_id", Value: row.CategoryID},
		{Name: "id", Value: row.ID},
		{Name: "user_id", Value: row.UserID},
	}

	n, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("UpdateTransaction: %s: %w", tx.ID, bq.ErrNotFound)
	}
	return nil
}

// DeleteTransactionWithClient deletes one of the owner's transactions.
func DeleteTransactionWithClient(ctx context.Context, client *bigquery.Client, table, userID, transactionID string) error {
	q := client.Query(`
		DELETE FROM ` + table + `
		WHERE id = @id AND user_id = @user_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: transactionID},
		{Name: "user_id", Value: userID},
	}

	n, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("DeleteTransaction: %s: %w", transactionID, bq.ErrNotFound)
	}
	return nil
}
