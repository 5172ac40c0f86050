package pipeline

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiVision is the VisionModel backed by Gemini.
type GeminiVision struct {
	model    string
	generate generateFunc
}

// NewGeminiVision creates a Gemini client. With an empty apiKey the client
// falls back to the GOOGLE_GENAI_* environment (Vertex AI or Gemini Dev).
func NewGeminiVision(ctx context.Context, apiKey, model string) (*GeminiVision, error) {
	cfg := &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
		cfg.Backend = genai.BackendGeminiAPI
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("NewGeminiVision: create genai client: %w", err)
	}

	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiVision{model: model, generate: client.Models.GenerateContent}, nil
}

// Name returns the configured model name.
func (g *GeminiVision) Name() string {
	return g.model
}

// Analyze sends the image inline with the prompt and returns the reply text.
func (g *GeminiVision) Analyze(ctx context.Context, img Image, prompt Prompt) (string, error) {
	if len(img.Data) == 0 {
		return "", ErrNoImage
	}
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     img.Data,
					},
				},
				{
					Text: prompt.User,
				},
			},
		},
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: prompt.System}},
		},
		MaxOutputTokens: maxOutputTokens,
	}

	resp, err := g.generate(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("%w: gemini generate content: %v", ErrAnalysisFailed, err)
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

var _ VisionModel = (*GeminiVision)(nil)
