package pipeline

import (
	"context"

	"github.com/dvloznov/receipt-tracker/internal/domain"
)

// Image is one uploaded picture to analyze.
type Image struct {
	Data     []byte
	MIMEType string
}

// Prompt is the grounding text sent alongside an image.
type Prompt struct {
	System string
	User   string
}

// VisionModel provides an interface for multimodal extraction calls.
// This interface enables mocking and testing of the provider round trip.
type VisionModel interface {
	// Analyze sends one image with the prompt and returns the model's raw text.
	Analyze(ctx context.Context, img Image, prompt Prompt) (string, error)

	// Name identifies the model for diagnostics.
	Name() string
}

// CategoryLister is the read side of the category store used by the catalog.
type CategoryLister interface {
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)
}

// CategoryCreator is the write side of the category store used by reconciliation.
type CategoryCreator interface {
	CreateCategory(ctx context.Context, c *domain.Category) error
}

// TransactionInserter persists one confirmed transaction.
type TransactionInserter interface {
	InsertTransaction(ctx context.Context, tx *domain.Transaction) error
}
