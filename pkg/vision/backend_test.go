package vision_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GV888/easy-template-mcp/pkg/vision"
)

const photoURL = "https://res.cloudinary.com/demo/image/upload/easy-template/lamp.jpg"

func TestOpenAICompatBackend_Name(t *testing.T) {
	t.Parallel()
	b := vision.NewOpenAICompatBackend("http://localhost:8000/v1", "gpt-4o")
	assert.Equal(t, "openai_compat", b.Name())
}

func TestOpenAICompatBackend_Describe(t *testing.T) {
	t.Parallel()

	successResponse := `{
		"choices": [{"message": {"role": "assistant", "content": "{\"Title\":\"Lamp\"}"}}],
		"model": "gpt-4o",
		"usage": {"prompt_tokens": 800, "completion_tokens": 60, "total_tokens": 860}
	}`

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		req        vision.ImageRequest
		apiKey     string
		wantErrMsg string
		wantResp   string
		wantUsage  int
	}{
		{
			name:   "sends text and image parts",
			apiKey: "sk-test",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

				var req map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "gpt-4o", req["model"])
				assert.InDelta(t, 600, req["max_tokens"], 0)

				msgs := req["messages"].([]any)
				require.Len(t, msgs, 1)
				parts := msgs[0].(map[string]any)["content"].([]any)
				require.Len(t, parts, 2)
				assert.Equal(t, "text", parts[0].(map[string]any)["type"])
				assert.Equal(t, "describe", parts[0].(map[string]any)["text"])
				img := parts[1].(map[string]any)
				assert.Equal(t, "image_url", img["type"])
				assert.Equal(t, photoURL, img["image_url"].(map[string]any)["url"])

				_, _ = w.Write([]byte(successResponse))
			},
			req:       vision.ImageRequest{Prompt: "describe", ImageURL: photoURL, MaxTokens: 600},
			wantResp:  `{"Title":"Lamp"}`,
			wantUsage: 860,
		},
		{
			name: "system message and json mode",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Empty(t, r.Header.Get("Authorization"))

				var req map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				msgs := req["messages"].([]any)
				require.Len(t, msgs, 2)
				assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
				assert.Equal(t, "json_object", req["response_format"].(map[string]any)["type"])

				_, _ = w.Write([]byte(successResponse))
			},
			req: vision.ImageRequest{
				Prompt:    "describe",
				SystemMsg: "You write product listings",
				ImageURL:  photoURL,
				Format:    vision.FormatJSON,
			},
			wantResp:  `{"Title":"Lamp"}`,
			wantUsage: 860,
		},
		{
			name: "API error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"bad credentials"}`))
			},
			req:        vision.ImageRequest{Prompt: "describe", ImageURL: photoURL},
			wantErrMsg: "status 401",
		},
		{
			name: "empty choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"choices": [], "model": "gpt-4o"}`))
			},
			req:        vision.ImageRequest{Prompt: "describe", ImageURL: photoURL},
			wantErrMsg: "empty choices",
		},
		{
			name: "image required",
			handler: func(http.ResponseWriter, *http.Request) {
				t.Error("no request expected")
			},
			req:        vision.ImageRequest{Prompt: "describe"},
			wantErrMsg: "image URL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			b := vision.NewOpenAICompatBackend(
				srv.URL+"/v1/",
				"gpt-4o",
				vision.WithOpenAICompatAPIKey(tt.apiKey),
				vision.WithOpenAICompatHTTPClient(srv.Client()),
			)

			resp, err := b.Describe(context.Background(), tt.req)
			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantResp, resp.Content)
			assert.Equal(t, "gpt-4o", resp.Model)
			assert.Equal(t, tt.wantUsage, resp.Usage.TotalTokens)
		})
	}
}

func TestAnthropicBackend_Describe(t *testing.T) {
	t.Parallel()

	successResponse := `{
		"content": [{"type": "text", "text": "{\"Title\":\"Lamp\"}"}],
		"model": "claude-sonnet-4-20250514",
		"usage": {"input_tokens": 900, "output_tokens": 50}
	}`

	tests := []struct {
		name       string
		apiKey     string
		handler    http.HandlerFunc
		wantErrMsg string
	}{
		{
			name:   "sends image block then prompt",
			apiKey: "test-key",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
				assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

				var req map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.InDelta(t, 600, req["max_tokens"], 0)
				blocks := req["messages"].([]any)[0].(map[string]any)["content"].([]any)
				require.Len(t, blocks, 2)
				img := blocks[0].(map[string]any)
				assert.Equal(t, "image", img["type"])
				assert.Equal(t, map[string]any{"type": "url", "url": photoURL}, img["source"])
				assert.Equal(t, "describe", blocks[1].(map[string]any)["text"])

				_, _ = w.Write([]byte(successResponse))
			},
		},
		{
			name:       "missing API key",
			handler:    func(http.ResponseWriter, *http.Request) {},
			wantErrMsg: "ANTHROPIC_API_KEY is not set",
		},
		{
			name:   "structured API error",
			apiKey: "test-key",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"image too large"}}`))
			},
			wantErrMsg: "invalid_request_error: image too large",
		},
		{
			name:   "no text block",
			apiKey: "test-key",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"content": [], "model": "m"}`))
			},
			wantErrMsg: "empty response from anthropic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			b := vision.NewAnthropicBackend(
				"claude-sonnet-4-20250514",
				vision.WithAnthropicEndpoint(srv.URL),
				vision.WithAnthropicAPIKey(tt.apiKey),
				vision.WithAnthropicHTTPClient(srv.Client()),
			)
			assert.Equal(t, "anthropic", b.Name())

			resp, err := b.Describe(context.Background(), vision.ImageRequest{
				Prompt:   "describe",
				ImageURL: photoURL,
			})
			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, `{"Title":"Lamp"}`, resp.Content)
			assert.Equal(t, 950, resp.Usage.TotalTokens)
		})
	}
}
