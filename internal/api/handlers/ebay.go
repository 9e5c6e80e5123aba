package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
)

// EbayHandler handles the eBay-facing endpoints.
type EbayHandler struct {
	client  Client
	nowFunc func() time.Time
}

// NewEbayHandler creates a new EbayHandler.
func NewEbayHandler(c Client) *EbayHandler {
	return &EbayHandler{client: c, nowFunc: time.Now}
}

// SendToEbayInput selects the article and the parts to push.
type SendToEbayInput struct {
	ID   int64                    `path:"id" doc:"Article id" minimum:"1"`
	Body easytemplate.SendOptions `required:"false"`
}

// SendToEbayOutput is the listing outcome.
type SendToEbayOutput struct {
	Body struct {
		OK         bool   `json:"ok"`
		Status     string `json:"status"                example:"ok"`
		ItemID     string `json:"item_id,omitempty"     example:"110555123456"`
		EbayStatus string `json:"ebay_status,omitempty"`
		Response   any    `json:"response,omitempty"    doc:"Upstream response as received"`
	}
}

// EbayItemInput addresses one eBay listing.
type EbayItemInput struct {
	ItemID string `path:"item_id" doc:"eBay item id" example:"110555123456"`
}

// SellerEventsInput selects the event window.
type SellerEventsInput struct {
	Since time.Time `query:"since" doc:"Return events after this time (RFC 3339); defaults to one hour ago"`
}

// SendTemplateInput lists the listings whose description is regenerated.
type SendTemplateInput struct {
	Body struct {
		ItemIDs []int64 `json:"item_ids" minItems:"1" maxItems:"10" doc:"eBay item ids"`
	}
}

// SendTemplateOutput reports how many listings were updated.
type SendTemplateOutput struct {
	Body struct {
		SendItems int `json:"send_items" example:"2"`
	}
}

// GetTemplateInput selects a rendered template.
type GetTemplateInput struct {
	ItemID     string `path:"item_id"      doc:"eBay item id"`
	TemplateID int64  `query:"template_id" doc:"Template id; 0 uses the account default" minimum:"0"`
}

// SendToEbay creates or revises the eBay listing for an article.
func (h *EbayHandler) SendToEbay(ctx context.Context, input *SendToEbayInput) (*SendToEbayOutput, error) {
	res, err := h.client.SendToEbay(ctx, input.ID, input.Body)
	if err != nil {
		return nil, apiError(err)
	}

	resp := &SendToEbayOutput{}
	resp.Body.OK = res.OK()
	resp.Body.Status = res.Status
	resp.Body.ItemID = res.ItemID
	resp.Body.EbayStatus = res.EbayStatus
	if len(res.Raw) > 0 {
		resp.Body.Response = res.Raw
	}
	return resp, nil
}

// GetEbayItem returns an eBay listing.
func (h *EbayHandler) GetEbayItem(ctx context.Context, input *EbayItemInput) (*RawOutput, error) {
	raw, err := h.client.GetEbayItem(ctx, input.ItemID)
	if err != nil {
		return nil, apiError(err)
	}
	return rawOutput(raw), nil
}

// GetSellerEvents returns seller events since a point in time.
func (h *EbayHandler) GetSellerEvents(ctx context.Context, input *SellerEventsInput) (*RawOutput, error) {
	since := input.Since
	if since.IsZero() {
		since = h.nowFunc().Add(-time.Hour)
	}

	raw, err := h.client.GetSellerEvents(ctx, since)
	if err != nil {
		return nil, apiError(err)
	}
	return rawOutput(raw), nil
}

// SendTemplate regenerates the description of up to ten listings.
func (h *EbayHandler) SendTemplate(ctx context.Context, input *SendTemplateInput) (*SendTemplateOutput, error) {
	res, err := h.client.SendTemplateByItemIDs(ctx, input.Body.ItemIDs)
	if err != nil {
		return nil, apiError(err)
	}

	resp := &SendTemplateOutput{}
	resp.Body.SendItems = res.SendItems
	return resp, nil
}

// GetTemplate returns the rendered template for a listing.
func (h *EbayHandler) GetTemplate(ctx context.Context, input *GetTemplateInput) (*RawOutput, error) {
	raw, err := h.client.GetTemplate(ctx, easytemplate.TemplateRequest{
		EbayItemID: input.ItemID,
		TemplateID: input.TemplateID,
	})
	if err != nil {
		return nil, apiError(err)
	}
	return rawOutput(raw), nil
}

// RegisterEbayRoutes registers the eBay endpoints with the Huma API.
func RegisterEbayRoutes(api huma.API, h *EbayHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "send-to-ebay",
		Method:      http.MethodPost,
		Path:        "/api/v1/items/{id}/ebay",
		Summary:     "Send an article to eBay",
		Description: "Creates or revises the eBay listing; the body selects which parts are pushed.",
		Tags:        []string{"ebay"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, h.SendToEbay)

	huma.Register(api, huma.Operation{
		OperationID: "get-ebay-item",
		Method:      http.MethodGet,
		Path:        "/api/v1/ebay/items/{item_id}",
		Summary:     "Get an eBay listing",
		Tags:        []string{"ebay"},
		Errors:      []int{http.StatusNotFound},
	}, h.GetEbayItem)

	huma.Register(api, huma.Operation{
		OperationID: "get-seller-events",
		Method:      http.MethodGet,
		Path:        "/api/v1/ebay/events",
		Summary:     "Get seller events",
		Tags:        []string{"ebay"},
	}, h.GetSellerEvents)

	huma.Register(api, huma.Operation{
		OperationID: "send-template",
		Method:      http.MethodPost,
		Path:        "/api/v1/ebay/templates",
		Summary:     "Send the template to eBay",
		Description: "Regenerates the listing description of up to ten eBay items.",
		Tags:        []string{"ebay"},
		Errors:      []int{http.StatusBadRequest},
	}, h.SendTemplate)

	huma.Register(api, huma.Operation{
		OperationID: "get-template",
		Method:      http.MethodGet,
		Path:        "/api/v1/ebay/templates/{item_id}",
		Summary:     "Get a rendered template",
		Tags:        []string{"ebay"},
		Errors:      []int{http.StatusNotFound},
	}, h.GetTemplate)
}
