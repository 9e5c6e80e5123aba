// Package mcpserver exposes the Easy-Template operations as MCP tools over
// stdio.
package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
	"github.com/GV888/easy-template-mcp/internal/metrics"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "easy-template-mcp"

// Server wraps an MCP server whose tools call the Easy-Template API.
type Server struct {
	api easytemplate.API
	log *slog.Logger
	mcp *server.MCPServer
}

// New registers every tool on a fresh MCP server.
func New(api easytemplate.API, version string, log *slog.Logger) *Server {
	s := &Server{
		api: api,
		log: log,
		mcp: server.NewMCPServer(ServerName, version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}
	for _, t := range s.tools() {
		s.mcp.AddTool(t.tool, s.wrap(t.tool.Name, t.run))
	}
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// AutoLogin logs in with configured credentials. Failure is logged, not
// returned: the et_login tool can still be used.
func (s *Server) AutoLogin(ctx context.Context, clientID, clientSecret string) {
	if clientID == "" || clientSecret == "" {
		return
	}
	if err := s.api.Login(ctx, clientID, clientSecret); err != nil {
		s.log.Warn("auto-login failed", "error", err)
		return
	}
	s.log.Info("auto-login successful")
}

// ServeStdio serves JSON-RPC on in/out until ctx is done or in closes.
// Logs must go to stderr because stdout carries the protocol.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.log.Handler(), slog.LevelError))
	s.log.Info("MCP server running on stdio")
	return stdio.Listen(ctx, in, out)
}

type toolFunc func(ctx context.Context, args map[string]any) (string, error)

// wrap turns a tool error into an isError result with "Error: <message>"
// text, so the model sees the failure instead of a protocol error.
func (s *Server) wrap(name string, run toolFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		text, err := run(ctx, req.GetArguments())
		if err != nil {
			metrics.ToolCallsTotal.WithLabelValues(name, "error").Inc()
			s.log.Warn("tool failed", "tool", name, "error", err, "duration", time.Since(start))
			return mcp.NewToolResultError("Error: " + err.Error()), nil
		}
		metrics.ToolCallsTotal.WithLabelValues(name, "success").Inc()
		s.log.Debug("tool call", "tool", name, "duration", time.Since(start))
		return mcp.NewToolResultText(text), nil
	}
}
