package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
	"github.com/GV888/easy-template-mcp/internal/store"
)

// SessionStater reports the current session state.
type SessionStater interface {
	State() easytemplate.State
}

// HealthHandler provides health and readiness endpoints.
type HealthHandler struct {
	session SessionStater
	store   store.Store
}

// NewHealthHandler creates a new HealthHandler. s may be nil when no
// database is configured.
func NewHealthHandler(session SessionStater, s store.Store) *HealthHandler {
	return &HealthHandler{session: session, store: s}
}

// Healthz returns 200 if the process is running.
//
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /healthz [get]
func (*HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz returns 200 when the session can serve calls (valid or about to
// be refreshed) and the database, if any, is reachable. An expired or
// missing session reports 503 so operators know to log in again.
//
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} StatusResponse
// @Failure 503 {object} StatusResponse
// @Router /readyz [get]
func (h *HealthHandler) Readyz(c echo.Context) error {
	state := h.session.State()
	if state != easytemplate.StateValid && state != easytemplate.StateExpiring {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "unavailable",
			"session": state.String(),
		})
	}

	if h.store != nil {
		if err := h.store.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":   "unavailable",
				"session":  state.String(),
				"database": "unreachable",
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ready",
		"session": state.String(),
	})
}
