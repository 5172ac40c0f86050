package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/receipt-tracker/internal/logger"
)

// PipelineStep represents a single step in the analysis pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	UserID       string
	Today        civil.Date
	Source       io.Reader
	DeclaredMIME string
	MaxBytes     int64

	Image      Image
	Catalog    *Catalog
	Prompt     Prompt
	RawText    string
	Extraction *Extraction
}

// Step 1: LoadInputsStep reads the image and loads the category catalog concurrently.
type LoadInputsStep struct {
	Categories CategoryLister
}

func (s *LoadInputsStep) Execute(ctx context.Context, state *PipelineState) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		img, err := readImage(state.Source, state.DeclaredMIME, state.MaxBytes)
		if err != nil {
			return err
		}
		state.Image = img
		return nil
	})

	var catalog *Catalog
	g.Go(func() error {
		catalog = LoadCatalog(gctx, s.Categories, state.UserID)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	state.Catalog = catalog
	return nil
}

// Step 2: BuildPromptStep grounds the prompt with the catalog vocabulary.
type BuildPromptStep struct{}

func (s *BuildPromptStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Prompt = BuildPrompt(state.Catalog.Vocabulary(), state.Today)
	return nil
}

// Step 3: AnalyzeImageStep calls the vision model and keeps its raw text.
type AnalyzeImageStep struct {
	Model VisionModel
}

func (s *AnalyzeImageStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	text, err := s.Model.Analyze(ctx, state.Image, state.Prompt)
	if err != nil {
		log.Error().Err(err).Str("model", s.Model.Name()).Msg("vision analysis failed")
		return err
	}
	state.RawText = text
	return nil
}

// Step 4: ParseResponseStep recovers line items from the raw text.
type ParseResponseStep struct{}

func (s *ParseResponseStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	extraction, err := ParseModelResponse(state.RawText, state.Today)
	if err != nil {
		log.Warn().Err(err).
			Str("raw", logger.Truncate(state.RawText, rawLogLimit)).
			Msg("could not parse model response")
		return err
	}
	if len(extraction.Rejected) > 0 {
		log.Info().Int("rejected", len(extraction.Rejected)).Msg("model returned invalid line items")
	}
	state.Extraction = extraction
	return nil
}

// Step 5: ResolveCategoriesStep links extracted labels to catalog categories.
type ResolveCategoriesStep struct{}

func (s *ResolveCategoriesStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Extraction.Items = Resolve(state.Extraction.Items, state.Catalog)
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewReceiptAnalysisPipeline creates the standard 5-step analysis pipeline.
func NewReceiptAnalysisPipeline(categories CategoryLister, model VisionModel) *Pipeline {
	return NewPipeline(
		&LoadInputsStep{Categories: categories},
		&BuildPromptStep{},
		&AnalyzeImageStep{Model: model},
		&ParseResponseStep{},
		&ResolveCategoriesStep{},
	)
}

// readImage reads at most maxBytes and sniffs the content type. The
// declared type is used only when sniffing finds nothing image-like.
func readImage(r io.Reader, declared string, maxBytes int64) (Image, error) {
	if r == nil {
		return Image{}, ErrNoImage
	}
	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Image{}, fmt.Errorf("readImage: %w", err)
	}
	if len(data) == 0 {
		return Image{}, ErrNoImage
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return Image{}, ErrImageTooLarge
	}

	mimeType := mimetype.Detect(data).String()
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	if !strings.HasPrefix(mimeType, "image/") {
		declared = strings.ToLower(strings.TrimSpace(declared))
		if !strings.HasPrefix(declared, "image/") {
			return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, mimeType)
		}
		mimeType = declared
	}

	return Image{Data: data, MIMEType: mimeType}, nil
}

// IsInputError reports whether err is caused by the upload rather than the
// model or the stores.
func IsInputError(err error) bool {
	return errors.Is(err, ErrNoImage) ||
		errors.Is(err, ErrImageTooLarge) ||
		errors.Is(err, ErrUnsupportedImage)
}
