package easytemplate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// MaxTemplateItemIDs is the most listings a single template push accepts.
const MaxTemplateItemIDs = 10

// SendOptions selects which parts of an article are pushed to eBay. Nil
// fields are omitted so the server default applies.
type SendOptions struct {
	TestMode        *bool  `json:"testMode,omitempty"`
	TemplateID      *int64 `json:"template_id,omitempty"`
	Article         *bool  `json:"article,omitempty"`
	Picture         *bool  `json:"picture,omitempty"`
	Price           *bool  `json:"price,omitempty"`
	Amount          *bool  `json:"amount,omitempty"`
	Title           *bool  `json:"title,omitempty"`
	SKU             *bool  `json:"sku,omitempty"`
	HTML            *bool  `json:"html,omitempty"`
	Specifics       *bool  `json:"Specifics,omitempty"`
	EbaySettings    *bool  `json:"ebaySettings,omitempty"`
	UVP             *bool  `json:"uvp,omitempty"`
	StoreCategoryID *bool  `json:"StoreCategoryID,omitempty"`
	CategoryID      *bool  `json:"CategoryID,omitempty"`
	EAN             *bool  `json:"ean,omitempty"`
}

type sendToEbayBody struct {
	ArticleID int64 `json:"articleId"`
	SendOptions
}

// SendResult is the outcome of pushing an article to eBay.
type SendResult struct {
	Status     string          `json:"status"`
	ItemID     string          `json:"ItemID,omitempty"`
	EbayStatus string          `json:"ebayStatus,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

// OK reports whether the server accepted the listing.
func (r *SendResult) OK() bool {
	return r.Status == "ok"
}

// TemplateSendResult is the outcome of a template push.
type TemplateSendResult struct {
	SendItems int             `json:"sendItems"`
	Raw       json.RawMessage `json:"-"`
}

// TemplateRequest selects the rendered template for a listing. TemplateID
// of zero uses the account default.
type TemplateRequest struct {
	EbayItemID string
	TemplateID int64
}

// SendToEbay creates or revises the eBay listing for an article.
func (c *Client) SendToEbay(ctx context.Context, articleID int64, opts SendOptions) (*SendResult, error) {
	const op = "send to eBay"

	if articleID <= 0 {
		return nil, invalidRequest(op, "articleId must be positive")
	}

	raw, err := c.call(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   "/Item/sendToEbay",
		body:   sendToEbayBody{ArticleID: articleID, SendOptions: opts},
	})
	if err != nil {
		return nil, err
	}

	var decoded Article
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, withOp(op, fmt.Errorf("decoding send response: %w", err))
	}
	return &SendResult{
		Status:     decoded.Text("status"),
		ItemID:     decoded.Text("ItemID"),
		EbayStatus: decoded.Text("ebayStatus"),
		Raw:        raw,
	}, nil
}

// GetEbayItem returns an existing eBay listing.
func (c *Client) GetEbayItem(ctx context.Context, itemID string) (json.RawMessage, error) {
	const op = "get eBay item"

	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, invalidRequest(op, "itemID is required")
	}

	return c.call(ctx, request{
		op:     op,
		method: http.MethodGet,
		path:   "/eBayItem/" + url.PathEscape(itemID),
	})
}

// GetSellerEvents returns seller events (sales, revisions, relists) since
// the given time.
func (c *Client) GetSellerEvents(ctx context.Context, since time.Time) (json.RawMessage, error) {
	const op = "get seller events"

	if since.IsZero() {
		return nil, invalidRequest(op, "start time is required")
	}

	return c.call(ctx, request{
		op:     op,
		method: http.MethodGet,
		path:   "/eBaySellerEvents/" + strconv.FormatInt(since.Unix(), 10),
	})
}

// SendTemplateByItemIDs re-renders the template for up to ten existing
// listings.
func (c *Client) SendTemplateByItemIDs(ctx context.Context, itemIDs []int64) (*TemplateSendResult, error) {
	const op = "send template to eBay"

	switch {
	case len(itemIDs) == 0:
		return nil, invalidRequest(op, "at least one ItemID is required")
	case len(itemIDs) > MaxTemplateItemIDs:
		return nil, invalidRequest(op, fmt.Sprintf("at most %d ItemIDs per call, got %d", MaxTemplateItemIDs, len(itemIDs)))
	}

	raw, err := c.call(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   "/template/sendToEbay/ids",
		body:   map[string][]int64{"ItemIDs": itemIDs},
	})
	if err != nil {
		return nil, err
	}

	var decoded Article
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, withOp(op, fmt.Errorf("decoding template response: %w", err))
	}
	sent, _ := decoded.Int64("sendItems")
	return &TemplateSendResult{SendItems: int(sent), Raw: raw}, nil
}

// GetTemplate returns the rendered template HTML for a listing.
func (c *Client) GetTemplate(ctx context.Context, req TemplateRequest) (json.RawMessage, error) {
	const op = "get template"

	if strings.TrimSpace(req.EbayItemID) == "" {
		return nil, invalidRequest(op, "ebayItemId is required")
	}

	q := url.Values{"ebayItemId": {strings.TrimSpace(req.EbayItemID)}}
	if req.TemplateID > 0 {
		q.Set("templateId", strconv.FormatInt(req.TemplateID, 10))
	}

	return c.call(ctx, request{
		op:     op,
		method: http.MethodGet,
		path:   "/template",
		query:  q,
	})
}

// Bool returns a pointer to b for use in SendOptions.
func Bool(b bool) *bool {
	return &b
}
