// Package mcpserver exposes the tool registry to agents over the Model
// Context Protocol.
package mcpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"rationsmart/tools"
)

const (
	ServerName    = "rationsmart"
	ServerVersion = "0.1.0"
)

// Caller runs a tool by name and never fails; failures are carried in the
// response.
type Caller interface {
	GetTools() []tools.Tool
	Call(ctx context.Context, name string, input map[string]any) tools.Response
}

// New builds an MCP server with one MCP tool per registry tool.
func New(registry Caller) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: ServerVersion}, nil)
	for _, t := range registry.GetTools() {
		server.AddTool(&mcp.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		}, handler(registry, t.Name()))
	}
	slog.Debug("MCP: Server initialized", "tools", len(registry.GetTools()))
	return server
}

func handler(registry Caller, name string) mcp.ToolHandler {
	return func(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[map[string]any]) (*mcp.CallToolResultFor[any], error) {
		resp := registry.Call(ctx, name, params.Arguments)
		return &mcp.CallToolResultFor[any]{
			Content: []mcp.Content{&mcp.TextContent{Text: resp.Text}},
			IsError: resp.IsError,
		}, nil
	}
}

// ServeStdio serves a single agent over stdin/stdout until ctx is done or the
// peer disconnects.
func ServeStdio(ctx context.Context, registry Caller) error {
	slog.Info("MCP: Serving over stdio")
	return New(registry).Run(ctx, mcp.NewStdioTransport())
}

// Handler serves MCP over streamable HTTP. All sessions share one server.
func Handler(registry Caller) http.Handler {
	server := New(registry)
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
}
