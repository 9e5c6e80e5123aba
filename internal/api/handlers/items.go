package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
)

// ItemsHandler handles article endpoints.
type ItemsHandler struct {
	client Client
}

// NewItemsHandler creates a new ItemsHandler.
func NewItemsHandler(c Client) *ItemsHandler {
	return &ItemsHandler{client: c}
}

// --- Input/Output types ---

// ListItemsInput selects a page of articles.
type ListItemsInput struct {
	Offset         int    `query:"offset"          doc:"Pagination offset"                         minimum:"0"`
	Limit          int    `query:"limit"           doc:"Number of results (default 10)"            minimum:"0" maximum:"100"`
	OrderField     string `query:"order_field"     doc:"Field to sort by"`
	OrderDirection int    `query:"order_direction" doc:"Sort direction, 0 descending, 1 ascending" enum:"0,1"`
	ArticleIDs     string `query:"article_ids"     doc:"Comma-separated article ids"               example:"123,456"`
}

// ListItemsOutput is a page of articles.
type ListItemsOutput struct {
	Body struct {
		Items []easytemplate.Article `json:"items"`
		Total int                    `json:"total"`
	}
}

// ItemIDInput addresses one article.
type ItemIDInput struct {
	ID int64 `path:"id" doc:"Article id" minimum:"1"`
}

// ArticleOutput is a single article.
type ArticleOutput struct {
	Body easytemplate.Article
}

// CreateItemInput carries a new article.
type CreateItemInput struct {
	Body easytemplate.Article
}

// CreateItemOutput is the id assigned to a new article.
type CreateItemOutput struct {
	Body struct {
		ArticleID  int64  `json:"articleId"             example:"123456"`
		TemplateID *int64 `json:"template_id,omitempty"`
	}
}

// UpdateItemInput carries the fields to change on an article.
type UpdateItemInput struct {
	ID   int64 `path:"id" doc:"Article id" minimum:"1"`
	Body easytemplate.Article
}

// RawOutput passes the upstream response body through unchanged.
type RawOutput struct {
	Body any
}

// rawOutput wraps an upstream body; an empty body becomes {}.
func rawOutput(raw json.RawMessage) *RawOutput {
	if len(bytes.TrimSpace(raw)) == 0 {
		return &RawOutput{Body: map[string]any{}}
	}
	return &RawOutput{Body: raw}
}

// --- Handlers ---

// ListItems returns a page of articles.
func (h *ItemsHandler) ListItems(ctx context.Context, input *ListItemsInput) (*ListItemsOutput, error) {
	req := easytemplate.ListItemsRequest{
		Offset:         input.Offset,
		Limit:          input.Limit,
		OrderField:     input.OrderField,
		OrderDirection: input.OrderDirection,
	}
	if input.ArticleIDs != "" {
		ids, err := easytemplate.ParseArticleIDs(input.ArticleIDs)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		req.ArticleIDs = ids
	}

	list, err := h.client.ListItems(ctx, req)
	if err != nil {
		return nil, apiError(err)
	}

	resp := &ListItemsOutput{}
	resp.Body.Items = list.Items
	resp.Body.Total = list.Total
	return resp, nil
}

// GetItem returns one article.
func (h *ItemsHandler) GetItem(ctx context.Context, input *ItemIDInput) (*ArticleOutput, error) {
	article, err := h.client.GetItem(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &ArticleOutput{Body: article}, nil
}

// CreateItem creates an article.
func (h *ItemsHandler) CreateItem(ctx context.Context, input *CreateItemInput) (*CreateItemOutput, error) {
	res, err := h.client.CreateItem(ctx, input.Body)
	if err != nil {
		return nil, apiError(err)
	}

	resp := &CreateItemOutput{}
	resp.Body.ArticleID = res.ArticleID
	resp.Body.TemplateID = res.TemplateID
	return resp, nil
}

// UpdateItem changes fields of an article.
func (h *ItemsHandler) UpdateItem(ctx context.Context, input *UpdateItemInput) (*RawOutput, error) {
	raw, err := h.client.UpdateItem(ctx, input.ID, input.Body)
	if err != nil {
		return nil, apiError(err)
	}
	return rawOutput(raw), nil
}

// RegisterItemRoutes registers article endpoints with the Huma API.
func RegisterItemRoutes(api huma.API, h *ItemsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-items",
		Method:      http.MethodGet,
		Path:        "/api/v1/items",
		Summary:     "List articles",
		Description: "Returns a page of articles with optional ordering and id filter.",
		Tags:        []string{"items"},
	}, h.ListItems)

	huma.Register(api, huma.Operation{
		OperationID: "get-item",
		Method:      http.MethodGet,
		Path:        "/api/v1/items/{id}",
		Summary:     "Get an article",
		Tags:        []string{"items"},
		Errors:      []int{http.StatusNotFound},
	}, h.GetItem)

	huma.Register(api, huma.Operation{
		OperationID:   "create-item",
		Method:        http.MethodPost,
		Path:          "/api/v1/items",
		Summary:       "Create an article",
		Description:   "Creates an article from a free-form field map.",
		Tags:          []string{"items"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, h.CreateItem)

	huma.Register(api, huma.Operation{
		OperationID: "update-item",
		Method:      http.MethodPut,
		Path:        "/api/v1/items/{id}",
		Summary:     "Update an article",
		Description: "Changes the given fields of an article; omitted fields are left as they are.",
		Tags:        []string{"items"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, h.UpdateItem)
}
