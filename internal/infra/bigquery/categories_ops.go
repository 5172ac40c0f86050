package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	bq "github.com/dvloznov/receipt-tracker/internal/bigquery"
	"github.com/dvloznov/receipt-tracker/internal/domain"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

// ListCategoriesWithClient returns the owner's categories and all defaults,
// defaults first, then newest user categories first.
func ListCategoriesWithClient(ctx context.Context, client *bigquery.Client, table, userID string) ([]domain.Category, error) {
	q := client.Query(`
		SELECT id, user_id, name, icon, color, is_default, category_type, created_at
		FROM ` + table + `
		WHERE user_id = @user_id OR is_default = TRUE
		ORDER BY is_default DESC, created_at DESC
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: query read: %w", err)
	}

	var out []domain.Category
	for {
		var r CategoryRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCategories: iter next: %w", err)
		}
		out = append(out, r.ToDomain())
	}

	return out, nil
}

// CreateCategoryWithClient inserts a user category.
func CreateCategoryWithClient(ctx context.Context, client *bigquery.Client, table string, c *domain.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	row := bq.CategoryRowFromDomain(c)

	q := client.Query(`
		INSERT INTO ` + table + ` (id, user_id, name, icon, color, is_default, category_type, created_at)
		VALUES (@id, @user_id, @name, @icon, @color, @is_default, @category_type, @created_at)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: row.ID},
		{Name: "user_id", Value: row.UserID},
		{Name: "name", Value: row.Name},
		{Name: "icon", Value: row.Icon},
		{Name: "color", Value: row.Color},
		{Name: "is_default", Value: row.IsDefault},
		{Name: "category_type", Value: row.CategoryType},
		{Name: "created_at", Value: row.CreatedTS},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("CreateCategory: %w", err)
	}
	return nil
}

// DeleteCategoryWithClient moves the owner's transactions off the category
// and then deletes it. Transactions are never deleted with their category.
func DeleteCategoryWithClient(ctx context.Context, client *bigquery.Client, categoriesTable, expensesTable, userID, categoryID string) error {
	check := client.Query(`
		SELECT is_default FROM ` + categoriesTable + `
		WHERE id = @id AND (user_id = @user_id OR is_default = TRUE)
		LIMIT 1
	`)
	check.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: categoryID},
		{Name: "user_id", Value: userID},
	}
	it, err := check.Read(ctx)
	if err != nil {
		return fmt.Errorf("DeleteCategory: lookup: %w", err)
	}
	var found struct {
		IsDefault bool `bigquery:"is_default"`
	}
	if err := it.Next(&found); err == iterator.Done {
		return fmt.Errorf("DeleteCategory: %s: %w", categoryID, bq.ErrNotFound)
	} else if err != nil {
		return fmt.Errorf("DeleteCategory: lookup next: %w", err)
	}
	if found.IsDefault {
		return fmt.Errorf("DeleteCategory: %s: %w", categoryID, bq.ErrDefaultCategory)
	}

	reassign := client.Query(`
		UPDATE ` + expensesTable + `
		SET category_id = NULL
		WHERE user_id = @user_id AND category_id = @category_id
	`)
	reassign.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "category_id", Value: categoryID},
	}
	if _, err := runDML(ctx, reassign); err != nil {
		return fmt.Errorf("DeleteCategory: reassign transactions: %w", err)
	}

	del := client.Query(`
		DELETE FROM ` + categoriesTable + `
		WHERE id = @id AND user_id = @user_id AND is_default = FALSE
	`)
	del.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: categoryID},
		{Name: "user_id", Value: userID},
	}
	n, err := runDML(ctx, del)
	if err != nil {
		return fmt.Errorf("DeleteCategory: delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("DeleteCategory: %s: %w", categoryID, bq.ErrNotFound)
	}
	return nil
}
