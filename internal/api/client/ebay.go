package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
)

// SendResponse is the outcome of pushing an article to eBay.
type SendResponse struct {
	OK         bool            `json:"ok"`
	Status     string          `json:"status"`
	ItemID     string          `json:"item_id,omitempty"`
	EbayStatus string          `json:"ebay_status,omitempty"`
	Response   json.RawMessage `json:"response,omitempty"`
}

// SendToEbay creates or revises the eBay listing of an article.
func (c *Client) SendToEbay(
	ctx context.Context,
	articleID int64,
	opts easytemplate.SendOptions,
) (*SendResponse, error) {
	var resp SendResponse
	if err := c.post(ctx, fmt.Sprintf("/api/v1/items/%d/ebay", articleID), opts, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetEbayItem returns a listing as reported by eBay.
func (c *Client) GetEbayItem(ctx context.Context, itemID string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/v1/ebay/items/"+url.PathEscape(itemID), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// GetSellerEvents returns seller events after since. A zero since uses the
// server default.
func (c *Client) GetSellerEvents(ctx context.Context, since time.Time) (json.RawMessage, error) {
	path := "/api/v1/ebay/events"
	if !since.IsZero() {
		path += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339))
	}

	var raw json.RawMessage
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// SendTemplate regenerates the description of the given listings and
// returns how many were updated.
func (c *Client) SendTemplate(ctx context.Context, itemIDs []int64) (int, error) {
	body := map[string][]int64{"item_ids": itemIDs}
	var resp struct {
		SendItems int `json:"send_items"`
	}
	if err := c.post(ctx, "/api/v1/ebay/templates", body, &resp); err != nil {
		return 0, err
	}
	return resp.SendItems, nil
}

// GetTemplate returns the rendered template of a listing. templateID 0
// uses the account default.
func (c *Client) GetTemplate(ctx context.Context, itemID string, templateID int64) (json.RawMessage, error) {
	path := "/api/v1/ebay/templates/" + url.PathEscape(itemID)
	if templateID > 0 {
		path += "?template_id=" + strconv.FormatInt(templateID, 10)
	}

	var raw json.RawMessage
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
