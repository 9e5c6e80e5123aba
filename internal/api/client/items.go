package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
)

// ItemsResponse is a page of articles.
type ItemsResponse struct {
	Items []easytemplate.Article `json:"items"`
	Total int                    `json:"total"`
}

// ListItemsParams defines query parameters for article listings.
type ListItemsParams struct {
	Offset         int
	Limit          int
	OrderField     string
	OrderDirection int
	ArticleIDs     []int64
}

// CreateItemResponse identifies a created article.
type CreateItemResponse struct {
	ArticleID  int64  `json:"articleId"`
	TemplateID *int64 `json:"template_id,omitempty"`
}

// ListItems returns articles matching the given parameters.
func (c *Client) ListItems(ctx context.Context, params *ListItemsParams) (*ItemsResponse, error) {
	q := url.Values{}
	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.OrderField != "" {
		q.Set("order_field", params.OrderField)
	}
	if params.OrderDirection != 0 {
		q.Set("order_direction", strconv.Itoa(params.OrderDirection))
	}
	if len(params.ArticleIDs) > 0 {
		ids := make([]string, len(params.ArticleIDs))
		for i, id := range params.ArticleIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		q.Set("article_ids", strings.Join(ids, ","))
	}

	path := "/api/v1/items"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp ItemsResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetItem returns one article.
func (c *Client) GetItem(ctx context.Context, id int64) (easytemplate.Article, error) {
	var a easytemplate.Article
	if err := c.get(ctx, fmt.Sprintf("/api/v1/items/%d", id), &a); err != nil {
		return nil, err
	}
	return a, nil
}

// CreateItem creates an article.
func (c *Client) CreateItem(ctx context.Context, a easytemplate.Article) (*CreateItemResponse, error) {
	var resp CreateItemResponse
	if err := c.post(ctx, "/api/v1/items", a, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateItem updates the given fields of an article and returns the
// server's response.
func (c *Client) UpdateItem(ctx context.Context, id int64, a easytemplate.Article) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.put(ctx, fmt.Sprintf("/api/v1/items/%d", id), a, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
