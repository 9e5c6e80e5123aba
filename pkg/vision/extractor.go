package vision

import (
	"context"
	"fmt"
)

// Extractor reads article drafts from product photos.
type Extractor struct {
	backend     Backend
	prompt      PromptData
	temperature float64
	maxTokens   int
}

// ExtractorOption configures the Extractor.
type ExtractorOption func(*Extractor)

// WithLanguage sets the language of the generated text.
func WithLanguage(lang string) ExtractorOption {
	return func(e *Extractor) {
		e.prompt.Language = lang
	}
}

// WithCurrency sets the currency prices are estimated in.
func WithCurrency(currency string) ExtractorOption {
	return func(e *Extractor) {
		e.prompt.Currency = currency
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ExtractorOption {
	return func(e *Extractor) {
		e.temperature = t
	}
}

// WithMaxTokens sets the max tokens for model responses.
func WithMaxTokens(n int) ExtractorOption {
	return func(e *Extractor) {
		e.maxTokens = n
	}
}

// NewExtractor creates a new Extractor.
func NewExtractor(backend Backend, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		backend:     backend,
		temperature: 0.2,
		maxTokens:   600,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Backend returns the configured backend name.
func (e *Extractor) Backend() string {
	return e.backend.Name()
}

// ExtractProduct describes the image at imageURL and returns a validated
// article draft.
func (e *Extractor) ExtractProduct(ctx context.Context, imageURL string) (*Product, error) {
	prompt, err := RenderProductPrompt(e.prompt)
	if err != nil {
		return nil, fmt.Errorf("rendering product prompt: %w", err)
	}

	resp, err := e.backend.Describe(ctx, ImageRequest{
		Prompt:      prompt,
		ImageURL:    imageURL,
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("calling %s for product extraction: %w", e.backend.Name(), err)
	}

	p, err := ParseProduct(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("validating extraction: %w", err)
	}
	return p, nil
}
