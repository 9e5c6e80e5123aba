package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Validation errors.
var (
	ErrMissingField = errors.New("missing required field")
	ErrOutOfRange   = errors.New("value out of valid range")
)

// Product is an article draft read from a photo. Field names follow the
// Easy-Template article schema.
type Product struct {
	Title            string   `json:"Title"`
	SalePrice        float64  `json:"SalePrice"`
	OriginalPrice    *float64 `json:"OriginalPrice,omitempty"`
	Quantity         int      `json:"Quantity"`
	ProductCode      string   `json:"ProductCode"`
	ShortDescription string   `json:"shortDescription"`
	LongDescription  string   `json:"longDescription"`
}

// Fields returns the draft as article fields, with images attached when
// given.
func (p *Product) Fields(images ...string) map[string]any {
	m := map[string]any{
		"Title":            p.Title,
		"SalePrice":        p.SalePrice,
		"Quantity":         p.Quantity,
		"ProductCode":      p.ProductCode,
		"shortDescription": p.ShortDescription,
		"longDescription":  p.LongDescription,
	}
	if p.OriginalPrice != nil {
		m["OriginalPrice"] = *p.OriginalPrice
	}
	if len(images) > 0 {
		m["images"] = images
	}
	return m
}

var fenceRE = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// StripCodeFence removes a surrounding ``` or ```json fence, which models
// add despite being told not to.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRE.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// ParseProduct decodes and validates a model reply.
func ParseProduct(content string) (*Product, error) {
	var attrs map[string]any
	if err := json.Unmarshal([]byte(StripCodeFence(content)), &attrs); err != nil {
		return nil, fmt.Errorf("parsing model JSON response: %w", err)
	}

	p := &Product{Quantity: 1}

	title, ok := attrString(attrs, "Title")
	if !ok || strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("Title: %w", ErrMissingField)
	}
	p.Title = truncateRunes(strings.TrimSpace(title), MaxTitleLength)

	price, ok := attrFloat(attrs, "SalePrice")
	if !ok {
		return nil, fmt.Errorf("SalePrice: %w", ErrMissingField)
	}
	if price < 0 {
		return nil, fmt.Errorf("SalePrice %.2f: %w (must be >= 0)", price, ErrOutOfRange)
	}
	p.SalePrice = price

	if orig, ok := attrFloat(attrs, "OriginalPrice"); ok {
		if orig < 0 {
			return nil, fmt.Errorf("OriginalPrice %.2f: %w (must be >= 0)", orig, ErrOutOfRange)
		}
		p.OriginalPrice = &orig
	}

	if qty, ok := attrFloat(attrs, "Quantity"); ok {
		if qty < 1 {
			return nil, fmt.Errorf("Quantity %.0f: %w (must be >= 1)", qty, ErrOutOfRange)
		}
		p.Quantity = int(qty)
	}

	p.ProductCode, _ = attrString(attrs, "ProductCode")
	p.ShortDescription, _ = attrString(attrs, "shortDescription")
	p.LongDescription, _ = attrString(attrs, "longDescription")

	return p, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func attrString(attrs map[string]any, key string) (string, bool) {
	v, ok := attrs[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// attrFloat accepts JSON numbers and numeric strings ("19,99" included).
func attrFloat(attrs map[string]any, key string) (float64, bool) {
	v, ok := attrs[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", "."), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
