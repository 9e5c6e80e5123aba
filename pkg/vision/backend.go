// Package vision turns product photos into article drafts using a
// multimodal chat model, abstracted behind a backend interface for
// testability.
package vision

import "context"

// FormatJSON requests JSON mode from backends that support it.
const FormatJSON = "json"

// ImageRequest defines the input for a single image description call.
type ImageRequest struct {
	Prompt      string
	SystemMsg   string
	ImageURL    string
	Format      string // FormatJSON for JSON mode
	Temperature float64
	MaxTokens   int
}

// TokenUsage tracks model token consumption.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response holds the result of a description call.
type Response struct {
	Content string
	Model   string
	Usage   TokenUsage
}

// Backend describes an image given a text prompt.
type Backend interface {
	Describe(ctx context.Context, req ImageRequest) (Response, error)
	Name() string
}
