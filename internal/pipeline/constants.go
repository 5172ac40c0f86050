package pipeline

// Default values for receipt analysis.
const (
	// DefaultGeminiModel is the Gemini model used when none is configured.
	DefaultGeminiModel = "gemini-2.5-flash"

	// DefaultAnthropicModel is the Claude model used when none is configured.
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

	// DefaultMIMEType is assumed when an upload carries no usable content type.
	DefaultMIMEType = "image/jpeg"

	// maxOutputTokens bounds the model reply.
	maxOutputTokens = 2000

	// rawLogLimit caps how much model text is written to logs.
	rawLogLimit = 2048

	// userInstruction accompanies the image in the user turn.
	userInstruction = "Extract every transaction shown in this payment screenshot or receipt."
)
