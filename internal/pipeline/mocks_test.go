package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/receipt-tracker/internal/domain"
)

// mockCategoryRepo implements CategoryLister and CategoryCreator.
type mockCategoryRepo struct {
	ListCategoriesFunc func(ctx context.Context, userID string) ([]domain.Category, error)
	CreateCategoryFunc func(ctx context.Context, c *domain.Category) error

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

// mockTransactionRepo implements TransactionInserter.
type mockTransactionRepo struct {
	InsertTransactionFunc func(ctx context.Context, tx *domain.Transaction) error

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

// mockVisionModel implements VisionModel.
type mockVisionModel struct {
	AnalyzeFunc func(ctx context.Context, img Image, prompt Prompt) (string, error)
}

func (m *mockVisionModel) Analyze(ctx context.Context, img Image, prompt Prompt) (string, error) {
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, img, prompt)
	}
	return `{"items": []}`, nil
}

func (m *mockVisionModel) Name() string {
	return "mock-vision"
}

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
