package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type sendMessageFunc func(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)

// AnthropicVision is the VisionModel backed by Claude.
type AnthropicVision struct {
	model string
	send  sendMessageFunc
}

// NewAnthropicVision creates a Claude client authenticated with apiKey.
func NewAnthropicVision(apiKey, model string) *AnthropicVision {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicVision{model: model, send: client.Messages.New}
}

// Name returns the configured model name.
func (a *AnthropicVision) Name() string {
	return a.model
}

// Analyze sends the image as a base64 block followed by the instruction text.
func (a *AnthropicVision) Analyze(ctx context.Context, img Image, prompt Prompt) (string, error) {
	if len(img.Data) == 0 {
		return "", ErrNoImage
	}
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}

	message, err := a.send(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxOutputTokens,
		System: []anthropic.TextBlockParam{
			{Text: prompt.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mimeType, base64.StdEncoding.EncodeToString(img.Data)),
				anthropic.NewTextBlock(prompt.User),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: claude messages: %v", ErrAnalysisFailed, err)
	}
	if message == nil || len(message.Content) == 0 {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

var _ VisionModel = (*AnthropicVision)(nil)
