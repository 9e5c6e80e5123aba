package vision

import (
	"bytes"
	"fmt"
	"text/template"
)

// MaxTitleLength is the longest title marketplaces accept.
const MaxTitleLength = 80

// productTmpl asks for the article fields as a bare JSON object.
const productTmpl = `Analyze this product photo and extract the listing information.
Respond ONLY with a JSON object (no markdown, no code fences) matching the schema below.
Write all text in {{.Language}}.

Schema:
{
  "Title": string (product title, max {{.MaxTitle}} characters),
  "SalePrice": number (estimated selling price in {{.Currency}}),
  "OriginalPrice": number | null (list price, if visible),
  "Quantity": integer (default 1),
  "ProductCode": string (SKU, EAN or model number if visible, else ""),
  "shortDescription": string (1-2 sentences),
  "longDescription": string (3-5 sentences)
}`

// PromptData holds the template variables for the product prompt.
type PromptData struct {
	Language string
	Currency string
	MaxTitle int
}

var productTemplate = template.Must(template.New("product").Parse(productTmpl))

// RenderProductPrompt renders the product extraction prompt.
func RenderProductPrompt(data PromptData) (string, error) {
	if data.Language == "" {
		data.Language = "English"
	}
	if data.Currency == "" {
		data.Currency = "EUR"
	}
	if data.MaxTitle <= 0 {
		data.MaxTitle = MaxTitleLength
	}

	var buf bytes.Buffer
	if err := productTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing product template: %w", err)
	}
	return buf.String(), nil
}
