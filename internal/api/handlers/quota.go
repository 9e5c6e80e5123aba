package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
	"github.com/GV888/easy-template-mcp/internal/metrics"
)

// QuotaHandler provides the client-side API quota status endpoint.
type QuotaHandler struct {
	rl *easytemplate.RateLimiter
}

// NewQuotaHandler creates a new QuotaHandler.
func NewQuotaHandler(rl *easytemplate.RateLimiter) *QuotaHandler {
	return &QuotaHandler{rl: rl}
}

// QuotaOutput is the response body for the quota endpoint.
type QuotaOutput struct {
	Body struct {
		DailyLimit int64     `json:"daily_limit" example:"5000"                 doc:"Configured daily call limit, 0 when unlimited"`
		DailyUsed  int64     `json:"daily_used"  example:"142"                  doc:"Calls made in the current 24-hour window"`
		Remaining  int64     `json:"remaining"   example:"4858"                 doc:"Calls remaining in the current window, -1 when unlimited"`
		ResetAt    time.Time `json:"reset_at"    example:"2026-06-16T14:30:00Z" doc:"When the current 24-hour window expires"`
	}
}

// GetQuota returns the current quota status.
func (h *QuotaHandler) GetQuota(_ context.Context, _ *struct{}) (*QuotaOutput, error) {
	resp := &QuotaOutput{}
	if h.rl == nil {
		resp.Body.Remaining = -1
		return resp, nil
	}

	resp.Body.DailyLimit = h.rl.MaxDaily()
	resp.Body.DailyUsed = h.rl.DailyCount()
	resp.Body.Remaining = h.rl.Remaining()
	resp.Body.ResetAt = h.rl.ResetAt()

	if resp.Body.Remaining >= 0 {
		metrics.DailyQuotaRemaining.Set(float64(resp.Body.Remaining))
	}

	return resp, nil
}

// RegisterQuotaRoutes registers the quota endpoint with the Huma API.
func RegisterQuotaRoutes(api huma.API, h *QuotaHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-quota",
		Method:      http.MethodGet,
		Path:        "/api/v1/quota",
		Summary:     "Get API quota status",
		Description: "Returns the daily call usage, remaining quota, and window reset time of the client-side limiter.",
		Tags:        []string{"session"},
	}, h.GetQuota)
}
