package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/receipt-tracker/internal/api/middleware"
	bq "github.com/dvloznov/receipt-tracker/internal/bigquery"
	"github.com/dvloznov/receipt-tracker/internal/domain"
	"github.com/dvloznov/receipt-tracker/internal/pipeline"
)

const testUser = "user-1"

func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.WithUserID(r.Context(), userID))
}

type mockAnalyzer struct {
	AnalyzeFunc func(ctx context.Context, userID string, r io.Reader, declaredMIME string) (*pipeline.Analysis, error)
}

func (m *mockAnalyzer) Analyze(ctx context.Context, userID string, r io.Reader, declaredMIME string) (*pipeline.Analysis, error) {
	return m.AnalyzeFunc(ctx, userID, r, declaredMIME)
}

type mockVisionModel struct {
	reply string
	err   error
}

func (m *mockVisionModel) Analyze(ctx context.Context, img pipeline.Image, prompt pipeline.Prompt) (string, error) {
	return m.reply, m.err
}

func (m *mockVisionModel) Name() string { return "mock-vision" }

type mockCategoryRepo struct {
	ListCategoriesFunc func(ctx context.Context, userID string) ([]domain.Category, error)
	CreateCategoryFunc func(ctx context.Context, c *domain.Category) error
	DeleteCategoryFunc func(ctx context.Context, userID, categoryID string) error

	mu      sync.Mutex
	created []domain.Category
}

func (m *mockCategoryRepo) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	if m.ListCategoriesFunc != nil {
		return m.ListCategoriesFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockCategoryRepo) CreateCategory(ctx context.Context, c *domain.Category) error {
	if m.CreateCategoryFunc != nil {
		if err := m.CreateCategoryFunc(ctx, c); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = fmt.Sprintf("cat-%d", len(m.created)+1)
	}
	m.created = append(m.created, *c)
	return nil
}

func (m *mockCategoryRepo) DeleteCategory(ctx context.Context, userID, categoryID string) error {
	if m.DeleteCategoryFunc != nil {
		return m.DeleteCategoryFunc(ctx, userID, categoryID)
	}
	return nil
}

type mockTransactionRepo struct {
	InsertTransactionFunc func(ctx context.Context, tx *domain.Transaction) error
	ListTransactionsFunc  func(ctx context.Context, userID string, start, end civil.Date) ([]domain.Transaction, error)
	UpdateTransactionFunc func(ctx context.Context, tx *domain.Transaction) error
	DeleteTransactionFunc func(ctx context.Context, userID, transactionID string) error

	inserted []domain.Transaction
}

func (m *mockTransactionRepo) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	if m.InsertTransactionFunc != nil {
		if err := m.InsertTransactionFunc(ctx, tx); err != nil {
			return err
		}
	}
	m.inserted = append(m.inserted, *tx)
	return nil
}

func (m *mockTransactionRepo) ListTransactions(ctx context.Context, userID string, start, end civil.Date) ([]domain.Transaction, error) {
	if m.ListTransactionsFunc != nil {
		return m.ListTransactionsFunc(ctx, userID, start, end)
	}
	return nil, nil
}

func (m *mockTransactionRepo) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	if m.UpdateTransactionFunc != nil {
		return m.UpdateTransactionFunc(ctx, tx)
	}
	return nil
}

func (m *mockTransactionRepo) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	if m.DeleteTransactionFunc != nil {
		return m.DeleteTransactionFunc(ctx, userID, transactionID)
	}
	return nil
}

var (
	_ bq.CategoryRepository    = (*mockCategoryRepo)(nil)
	_ bq.TransactionRepository = (*mockTransactionRepo)(nil)
	_ ReceiptAnalyzer          = (*mockAnalyzer)(nil)
	_ ReceiptAnalyzer          = (*pipeline.Analyzer)(nil)
)
