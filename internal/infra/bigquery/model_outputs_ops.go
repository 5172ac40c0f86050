package bigquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
)

// maxRawTextLen caps stored model replies.
const maxRawTextLen = 64 << 10

// InsertModelOutputWithClient inserts a single ModelOutputRow.
func InsertModelOutputWithClient(ctx context.Context, client *bigquery.Client, table string, row *ModelOutputRow) error {
	if row.OutputID == "" {
		row.OutputID = uuid.NewString()
	}
	if row.CreatedTS.IsZero() {
		row.CreatedTS = time.Now().UTC()
	}
	if len(row.RawText) > maxRawTextLen {
		row.RawText = strings.ToValidUTF8(row.RawText[:maxRawTextLen], "")
	}

	q := client.Query(`
		INSERT INTO ` + table + ` (
			output_id, receipt_id, user_id,
			model_name, raw_text, image_uri,
			item_count, created_at
		)
		VALUES (
			@output_id, @receipt_id, @user_id,
			@model_name, @raw_text, @image_uri,
			@item_count, @created_at
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "receipt_id", Value: row.ReceiptID},
		{Name: "user_id", Value: row.UserID},
		{Name: "model_name", Value: row.ModelName},
		{Name: "raw_text", Value: row.RawText},
		{Name: "image_uri", Value: row.ImageURI},
		{Name: "item_count", Value: row.ItemCount},
		{Name: "created_at", Value: row.CreatedTS},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertModelOutput: %w", err)
	}
	return nil
}
