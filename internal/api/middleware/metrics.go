// Package middleware provides the Echo middleware stack of the HTTP API.
package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/GV888/easy-template-mcp/internal/metrics"
)

// Paths that are never counted as API traffic.
var metricsSkipPaths = map[string]struct{}{
	"/metrics": {},
	"/healthz": {},
	"/readyz":  {},
}

// Metrics returns Echo middleware that records request duration and status
// by route template. Probe and scrape paths are excluded; probes update the
// healthz/readyz gauges instead. Documentation routes are excluded too.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}

			if _, skip := metricsSkipPaths[route]; skip || isDocsRoute(route) {
				err := next(c)
				probeResult(route, c.Response().Status)
				return err
			}

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			labels := []string{c.Request().Method, route, strconv.Itoa(status)}
			metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.WithLabelValues(labels...).Inc()

			return err
		}
	}
}

func isDocsRoute(route string) bool {
	return route == "/docs" || strings.HasPrefix(route, "/openapi") || strings.HasPrefix(route, "/schemas/")
}

func probeResult(route string, status int) {
	up := 0.0
	if status >= 200 && status < 300 {
		up = 1
	}
	switch route {
	case "/healthz":
		metrics.HealthzUp.Set(up)
	case "/readyz":
		metrics.ReadyzUp.Set(up)
	}
}
