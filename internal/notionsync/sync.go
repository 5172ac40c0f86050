// Package notionsync exports a user's transactions to a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/receipt-tracker/internal/domain"
	"github.com/dvloznov/receipt-tracker/internal/logger"
	"github.com/jomei/notionapi"
)

// pageSize is the Notion query page size (the API maximum).
const pageSize = 100

// TransactionSource lists stored transactions.
type TransactionSource interface {
	ListTransactions(ctx context.Context, userID string, start, end civil.Date) ([]domain.Transaction, error)
}

// CategorySource lists the categories visible to a user.
type CategorySource interface {
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)
}

// Options controls one export run.
type Options struct {
	UserID     string
	DatabaseID string
	Start      civil.Date
	End        civil.Date
	// Prune archives exported pages in the date range whose transaction no
	// longer exists.
	Prune  bool
	DryRun bool
}

// Report counts what an export run did.
type Report struct {
	Created  int
	Updated  int
	Archived int
	Failed   int
}

// Exporter upserts transactions into a Notion database keyed by transaction ID.
type Exporter struct {
	transactions TransactionSource
	categories   CategorySource
	notion       NotionService
}

// NewExporter creates an Exporter.
func NewExporter(transactions TransactionSource, categories CategorySource, notion NotionService) *Exporter {
	return &Exporter{
		transactions: transactions,
		categories:   categories,
		notion:       notion,
	}
}

// Export syncs the user's transactions in [opts.Start, opts.End] to Notion.
// Individual page failures are logged and counted; they do not stop the run.
func (e *Exporter) Export(ctx context.Context, opts Options) (Report, error) {
	log := logger.FromContext(ctx).With().
		Str("user_id", opts.UserID).
		Bool("dry_run", opts.DryRun).
		Logger()

	var report Report

	txs, err := e.transactions.ListTransactions(ctx, opts.UserID, opts.Start, opts.End)
	if err != nil {
		return report, fmt.Errorf("Export: list transactions: %w", err)
	}

	categoryNames := map[string]string{}
	for _, c := range domain.DefaultCategories() {
		categoryNames[c.ID] = c.Name
	}
	if e.categories != nil {
		cats, err := e.categories.ListCategories(ctx, opts.UserID)
		if err != nil {
			return report, fmt.Errorf("Export: list categories: %w", err)
		}
		for _, c := range cats {
			categoryNames[c.ID] = c.Name
		}
	}

	pages, err := queryOwnerPages(ctx, e.notion, opts.DatabaseID, opts.UserID)
	if err != nil {
		return report, fmt.Errorf("Export: %w", err)
	}

	existing := make(map[string]string, len(pages))
	for _, page := range pages {
		if id := pageTransactionID(page); id != "" {
			existing[id] = string(page.ID)
		}
	}

	log.Info().
		Int("transactions", len(txs)).
		Int("notion_pages", len(pages)).
		Msg("Starting Notion export")

	current := make(map[string]bool, len(txs))
	for _, tx := range txs {
		current[tx.ID] = true
		props := TransactionProperties(tx, categoryNames)
		txLog := log.With().Str("transaction_id", tx.ID).Logger()

		if pageID, ok := existing[tx.ID]; ok {
			if !opts.DryRun {
				if _, err := e.notion.UpdatePage(ctx, pageID, props); err != nil {
					txLog.Warn().Err(err).Str("page_id", pageID).Msg("Failed to update Notion page")
					report.Failed++
					continue
				}
			}
			report.Updated++
			continue
		}

		if !opts.DryRun {
			if _, err := e.notion.CreatePage(ctx, opts.DatabaseID, props); err != nil {
				txLog.Warn().Err(err).Msg("Failed to create Notion page")
				report.Failed++
				continue
			}
		}
		report.Created++
	}

	if opts.Prune {
		for _, page := range pages {
			txID := pageTransactionID(page)
			if txID == "" || current[txID] {
				continue
			}
			date, ok := pageDate(page)
			if !ok || date.Before(opts.Start) || date.After(opts.End) {
				continue
			}
			if !opts.DryRun {
				if err := e.notion.ArchivePage(ctx, string(page.ID)); err != nil {
					log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to archive stale Notion page")
					report.Failed++
					continue
				}
			}
			report.Archived++
		}
	}

	log.Info().
		Int("created", report.Created).
		Int("updated", report.Updated).
		Int("archived", report.Archived).
		Int("failed", report.Failed).
		Msg("Notion export completed")

	return report, nil
}

// queryOwnerPages reads every page of a Notion database exported for userID,
// following cursors. Pages of other owners, or without an owner, are dropped
// even if the database returns them.
func queryOwnerPages(ctx context.Context, notion NotionService, databaseID, userID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			Filter: notionapi.PropertyFilter{
				Property: propOwner,
				RichText: &notionapi.TextFilterCondition{Equals: userID},
			},
			PageSize: pageSize,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notion.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("query pages: %w", err)
		}

		for _, page := range resp.Results {
			if pageOwner(page) == userID {
				all = append(all, page)
			}
		}

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return all, nil
}
