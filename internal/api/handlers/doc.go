// Package handlers exposes the Easy-Template operations as an HTTP API.
package handlers

import "github.com/GV888/easy-template-mcp/internal/easytemplate"

// Client is what the handlers need from the Easy-Template session client.
type Client = easytemplate.API

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

// StatusResponse is a generic status response body.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}
