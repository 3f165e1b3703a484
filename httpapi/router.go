// Package httpapi serves the tool registry over plain HTTP and MCP.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"rationsmart/mcpserver"
	"rationsmart/tools"
)

const serviceName = "rationsmart-tools"

type Options struct {
	Registry mcpserver.Caller
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/", healthHandler)
	r.Get("/health", healthHandler)

	r.Route("/tools", func(tr chi.Router) {
		tr.Get("/", listToolsHandler(opts.Registry))
		tr.Post("/call", callToolHandler(opts.Registry))
	})

	r.Handle("/mcp", mcpserver.Handler(opts.Registry))

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": serviceName})
}

type toolResponse struct {
	Name         string             `json:"name"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	InputSchema  *jsonschema.Schema `json:"inputSchema"`
	OutputSchema *jsonschema.Schema `json:"outputSchema,omitempty"`
}

func listToolsHandler(registry mcpserver.Caller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tools := registry.GetTools()
		out := make([]toolResponse, 0, len(tools))
		for _, t := range tools {
			out = append(out, toolResponse{
				Name:         t.Name(),
				Title:        t.Title(),
				Description:  t.Description(),
				InputSchema:  t.InputSchema(),
				OutputSchema: t.OutputSchema(),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"tools": out})
	}
}

type callResponse struct {
	Success   bool           `json:"success"`
	Result    string         `json:"result"`
	Data      map[string]any `json:"data,omitempty"`
	IsError   bool           `json:"is_error"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
}

func callToolHandler(registry mcpserver.Caller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tools.Call
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing 'name' field"})
			return
		}

		resp := registry.Call(r.Context(), req.Name, req.Input)
		slog.Debug("HTTP: Tool call served", "tool", req.Name, "is_error", resp.IsError,
			"tool_use_id", req.ToolUseID, "request_id", chimw.GetReqID(r.Context()))

		writeJSON(w, http.StatusOK, callResponse{
			Success:   true,
			Result:    resp.Text,
			Data:      resp.Result,
			IsError:   resp.IsError,
			ToolUseID: req.ToolUseID,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
