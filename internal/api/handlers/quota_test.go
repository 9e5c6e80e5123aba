package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GV888/easy-template-mcp/internal/api/handlers"
	"github.com/GV888/easy-template-mcp/internal/easytemplate"
)

func TestGetQuota(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		rl         *easytemplate.RateLimiter
		preCalls   int
		wantLimit  int64
		wantUsed   int64
		wantRemain int64
	}{
		{
			name:       "nil rate limiter",
			rl:         nil,
			wantRemain: -1,
		},
		{
			name:       "no daily quota",
			rl:         easytemplate.NewRateLimiter(100, 10, 0),
			wantRemain: -1,
		},
		{
			name:       "fresh rate limiter",
			rl:         easytemplate.NewRateLimiter(100, 10, 5000),
			wantLimit:  5000,
			wantRemain: 5000,
		},
		{
			name:       "rate limiter with usage",
			rl:         easytemplate.NewRateLimiter(100, 10, 100),
			preCalls:   3,
			wantLimit:  100,
			wantUsed:   3,
			wantRemain: 97,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.rl != nil {
				for range tt.preCalls {
					require.NoError(t, tt.rl.Wait(t.Context()))
				}
			}

			_, api := humatest.New(t)
			handlers.RegisterQuotaRoutes(api, handlers.NewQuotaHandler(tt.rl))

			resp := api.Get("/api/v1/quota")
			require.Equal(t, http.StatusOK, resp.Code)

			var body struct {
				DailyLimit int64 `json:"daily_limit"`
				DailyUsed  int64 `json:"daily_used"`
				Remaining  int64 `json:"remaining"`
			}
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.Equal(t, tt.wantLimit, body.DailyLimit)
			assert.Equal(t, tt.wantUsed, body.DailyUsed)
			assert.Equal(t, tt.wantRemain, body.Remaining)
		})
	}
}
