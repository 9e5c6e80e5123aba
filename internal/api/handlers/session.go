package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// Credentials are the API keys used when a login request omits them.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// SessionHandler handles login and session inspection.
type SessionHandler struct {
	client   Client
	defaults Credentials
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(c Client, defaults Credentials) *SessionHandler {
	return &SessionHandler{client: c, defaults: defaults}
}

// LoginInput is the request body for a login.
type LoginInput struct {
	Body struct {
		ClientID     string `json:"client_id,omitempty"     doc:"API client id; defaults to the configured one"`
		ClientSecret string `json:"client_secret,omitempty" doc:"API client secret; defaults to the configured one"`
	} `required:"false"`
}

// SessionOutput describes the current session without exposing tokens.
type SessionOutput struct {
	Body struct {
		State            string     `json:"state"                        example:"valid" enum:"unauthenticated,valid,expiring,expired"`
		AccessExpiresAt  *time.Time `json:"access_expires_at,omitempty"`
		RefreshExpiresAt *time.Time `json:"refresh_expires_at,omitempty"`
	}
}

// Login authenticates with the given or configured credentials.
func (h *SessionHandler) Login(ctx context.Context, input *LoginInput) (*SessionOutput, error) {
	id, secret := input.Body.ClientID, input.Body.ClientSecret
	if id == "" && secret == "" {
		id, secret = h.defaults.ClientID, h.defaults.ClientSecret
	}
	if id == "" || secret == "" {
		return nil, huma.Error400BadRequest("client_id and client_secret are required")
	}

	if err := h.client.Login(ctx, id, secret); err != nil {
		return nil, apiError(err)
	}
	return h.describe(), nil
}

// GetSession reports the session state and expiries.
func (h *SessionHandler) GetSession(_ context.Context, _ *struct{}) (*SessionOutput, error) {
	return h.describe(), nil
}

func (h *SessionHandler) describe() *SessionOutput {
	resp := &SessionOutput{}
	resp.Body.State = h.client.State().String()

	access, refresh := h.client.Expiries()
	if !access.IsZero() {
		at := access.UTC()
		resp.Body.AccessExpiresAt = &at
	}
	if !refresh.IsZero() {
		at := refresh.UTC()
		resp.Body.RefreshExpiresAt = &at
	}
	return resp
}

// RegisterSessionRoutes registers session endpoints with the Huma API.
func RegisterSessionRoutes(api huma.API, h *SessionHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/session/login",
		Summary:     "Log in",
		Description: "Exchanges API credentials for a token pair and stores the session.",
		Tags:        []string{"session"},
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusTooManyRequests},
	}, h.Login)

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/v1/session",
		Summary:     "Get session state",
		Description: "Returns the session state and token expiries.",
		Tags:        []string{"session"},
	}, h.GetSession)
}
