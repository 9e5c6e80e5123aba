package easytemplate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// Order directions for ListItemsRequest.
const (
	OrderDescending = 0
	OrderAscending  = 1
)

// Article is an article record. The API schema is open-ended, so fields are
// kept as decoded JSON with typed accessors for the common ones.
type Article map[string]any

// Text returns the value of key as text, formatting numbers if needed.
func (a Article) Text(key string) string {
	switch v := a[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int64 returns the integer value of key.
func (a Article) Int64(key string) (int64, bool) {
	switch v := a[key].(type) {
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// ID returns the article id.
func (a Article) ID() int64 {
	if id, ok := a.Int64("articleId"); ok {
		return id
	}
	id, _ := a.Int64("id")
	return id
}

// Title returns the article title.
func (a Article) Title() string {
	return a.Text("Title")
}

// SalePrice returns the sale price as text.
func (a Article) SalePrice() string {
	return a.Text("SalePrice")
}

// Images returns the article image URLs.
func (a Article) Images() []string {
	raw, ok := a["images"].([]any)
	if !ok {
		if s, ok := a["images"].([]string); ok {
			return s
		}
		return nil
	}
	images := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			images = append(images, s)
		}
	}
	return images
}

// ListItemsRequest selects a page of articles.
type ListItemsRequest struct {
	Offset         int
	Limit          int
	OrderField     string
	OrderDirection int
	ArticleIDs     []int64
}

func (r ListItemsRequest) query() url.Values {
	limit := r.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	q := url.Values{}
	q.Set("offset", strconv.Itoa(max(r.Offset, 0)))
	q.Set("limit", strconv.Itoa(limit))
	if r.OrderField != "" {
		q.Set("orderField", r.OrderField)
		q.Set("orderDirection", strconv.Itoa(r.OrderDirection))
	}
	if len(r.ArticleIDs) > 0 {
		ids := make([]string, len(r.ArticleIDs))
		for i, id := range r.ArticleIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		q.Set("articleIds", strings.Join(ids, ","))
	}
	return q
}

// ParseArticleIDs parses a comma-separated id list such as "123,456".
func ParseArticleIDs(s string) ([]int64, error) {
	var ids []int64
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid article id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ItemList is a page of articles. Raw keeps the response as received.
type ItemList struct {
	Items []Article
	Total int
	Raw   json.RawMessage
}

// decodeItemList accepts either a bare array or an object wrapping the
// array in "list" or "items".
func decodeItemList(raw json.RawMessage) (*ItemList, error) {
	out := &ItemList{Raw: raw}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		out.Items = []Article{}
		return out, nil
	}

	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &out.Items); err != nil {
			return nil, fmt.Errorf("decoding item list: %w", err)
		}
		out.Total = len(out.Items)
		return out, nil
	}

	var wrapped struct {
		List  []Article `json:"list"`
		Items []Article `json:"items"`
		Total *int      `json:"total"`
		Count *int      `json:"count"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding item list: %w", err)
	}

	out.Items = wrapped.List
	if out.Items == nil {
		out.Items = wrapped.Items
	}
	if out.Items == nil {
		out.Items = []Article{}
	}

	switch {
	case wrapped.Total != nil:
		out.Total = *wrapped.Total
	case wrapped.Count != nil:
		out.Total = *wrapped.Count
	default:
		out.Total = len(out.Items)
	}
	return out, nil
}

// CreateItemResult is the response to CreateItem.
type CreateItemResult struct {
	ArticleID  int64           `json:"articleId"`
	TemplateID *int64          `json:"template_id,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

// ListItems returns a page of articles.
func (c *Client) ListItems(ctx context.Context, req ListItemsRequest) (*ItemList, error) {
	const op = "get items"

	raw, err := c.call(ctx, request{
		op:     op,
		method: http.MethodGet,
		path:   "/Items",
		query:  req.query(),
	})
	if err != nil {
		return nil, err
	}

	list, err := decodeItemList(raw)
	if err != nil {
		return nil, withOp(op, err)
	}
	return list, nil
}

// GetItem returns one article. Responses that wrap the record in an
// "article" field are unwrapped.
func (c *Client) GetItem(ctx context.Context, articleID int64) (Article, error) {
	const op = "get item"

	if articleID <= 0 {
		return nil, invalidRequest(op, "articleId must be positive")
	}

	raw, err := c.call(ctx, request{
		op:     op,
		method: http.MethodGet,
		path:   "/Item",
		query:  url.Values{"articleId": {strconv.FormatInt(articleID, 10)}},
	})
	if err != nil {
		return nil, err
	}

	var item Article
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, withOp(op, fmt.Errorf("decoding item: %w", err))
	}
	if inner, ok := item["article"].(map[string]any); ok && item.Title() == "" {
		item = Article(inner)
	}
	return item, nil
}

// CreateItem creates an article and returns its id.
func (c *Client) CreateItem(ctx context.Context, article Article) (*CreateItemResult, error) {
	const op = "create item"

	if len(article) == 0 {
		return nil, invalidRequest(op, "article must not be empty")
	}

	raw, err := c.call(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   "/Item",
		body:   map[string]any{"article": article},
	})
	if err != nil {
		return nil, err
	}

	result := &CreateItemResult{Raw: raw}
	var decoded Article
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, withOp(op, fmt.Errorf("decoding create response: %w", err))
	}
	result.ArticleID = decoded.ID()
	if tid, ok := decoded.Int64("template_id"); ok {
		result.TemplateID = &tid
	}
	return result, nil
}

// UpdateItem applies a partial update; only the given fields change.
func (c *Client) UpdateItem(ctx context.Context, articleID int64, article Article) (json.RawMessage, error) {
	const op = "update item"

	if articleID <= 0 {
		return nil, invalidRequest(op, "articleId must be positive")
	}
	if len(article) == 0 {
		return nil, invalidRequest(op, "article must not be empty")
	}

	return c.call(ctx, request{
		op:     op,
		method: http.MethodPut,
		path:   "/Item",
		body: map[string]any{
			"articleId": articleID,
			"article":   article,
		},
	})
}
