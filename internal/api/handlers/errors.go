package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
)

// apiError maps a client error onto an HTTP status. Rate-limited responses
// carry Retry-After when the upstream sent one.
func apiError(err error) error {
	msg := err.Error()

	switch {
	case errors.Is(err, easytemplate.ErrInvalidRequest):
		return huma.Error400BadRequest(msg)
	case easytemplate.IsKind(err, easytemplate.KindAuth):
		return huma.Error401Unauthorized(msg)
	case easytemplate.IsKind(err, easytemplate.KindRateLimited):
		herr := huma.Error429TooManyRequests(msg)
		var etErr *easytemplate.Error
		if errors.As(err, &etErr) && etErr.RetryAfter > 0 {
			secs := int(math.Ceil(etErr.RetryAfter.Seconds()))
			return huma.ErrorWithHeaders(herr, http.Header{
				"Retry-After": []string{strconv.Itoa(secs)},
			})
		}
		return herr
	case errors.Is(err, easytemplate.ErrNotFound):
		return huma.Error404NotFound(msg)
	case easytemplate.IsKind(err, easytemplate.KindRemote):
		return huma.Error502BadGateway(msg)
	default:
		return huma.Error500InternalServerError(msg)
	}
}
