package pipeline

import (
	"context"
	"io"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/receipt-tracker/internal/domain"
)

// Analysis is the outcome of analyzing one uploaded image.
type Analysis struct {
	Items     []domain.LineItem
	Rejected  []Rejection
	RawText   string
	Image     Image
	ModelName string
}

// Analyzer runs the receipt analysis pipeline for one upload at a time.
type Analyzer struct {
	categories CategoryLister
	model      VisionModel
	maxBytes   int64
	timeout    time.Duration
	now        func() time.Time
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithMaxBytes limits the accepted image size.
func WithMaxBytes(n int64) AnalyzerOption {
	return func(a *Analyzer) { a.maxBytes = n }
}

// WithTimeout bounds the whole analysis, model call included.
func WithTimeout(d time.Duration) AnalyzerOption {
	return func(a *Analyzer) { a.timeout = d }
}

// WithClock overrides the clock used for the fallback date.
func WithClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) { a.now = now }
}

// NewAnalyzer creates an Analyzer using categories for grounding and model for extraction.
func NewAnalyzer(categories CategoryLister, model VisionModel, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		categories: categories,
		model:      model,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ModelName identifies the underlying vision model.
func (a *Analyzer) ModelName() string {
	return a.model.Name()
}

// Analyze reads the image from r and returns the extracted, catalog-resolved
// line items for userID.
func (a *Analyzer) Analyze(ctx context.Context, userID string, r io.Reader, declaredMIME string) (*Analysis, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	state := &PipelineState{
		UserID:       userID,
		Today:        civil.DateOf(a.now()),
		Source:       r,
		DeclaredMIME: declaredMIME,
		MaxBytes:     a.maxBytes,
	}

	if err := NewReceiptAnalysisPipeline(a.categories, a.model).Execute(ctx, state); err != nil {
		return nil, err
	}

	return &Analysis{
		Items:     state.Extraction.Items,
		Rejected:  state.Extraction.Rejected,
		RawText:   state.RawText,
		Image:     state.Image,
		ModelName: a.model.Name(),
	}, nil
}
