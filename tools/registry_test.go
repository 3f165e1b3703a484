package tools

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rationsmart"
	"rationsmart/backend"
)

func TestRegistry_GetTools(t *testing.T) {
	f := newFixture()

	tools := f.registry.GetTools()
	require.Len(t, tools, 14)
	assert.Equal(t, "rationsmart.countries.list", tools[0].Name())

	seen := map[string]bool{}
	for _, tool := range tools {
		assert.True(t, strings.HasPrefix(tool.Name(), "rationsmart."), tool.Name())
		assert.NotEmpty(t, tool.Title())
		assert.NotEmpty(t, tool.Description())
		require.NotNil(t, tool.InputSchema())
		assert.Equal(t, "object", tool.InputSchema().Type)
		require.NotNil(t, tool.OutputSchema())
		assert.Contains(t, tool.OutputSchema().Properties, "text")
		assert.False(t, seen[tool.Name()], "duplicate tool %s", tool.Name())
		seen[tool.Name()] = true
	}
}

func TestRegistry_GetTool(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name     string
		lookup   string
		wantName string
		wantErr  bool
	}{
		{name: "canonical name", lookup: "rationsmart.diets.generate", wantName: "rationsmart.diets.generate"},
		{name: "legacy alias", lookup: "generate_diet", wantName: "rationsmart.diets.generate"},
		{name: "unfollow alias", lookup: "stop_following_diet", wantName: "rationsmart.diets.unfollow"},
		{name: "delete alias", lookup: "delete_cow", wantName: "rationsmart.cows.delete"},
		{name: "location alias", lookup: "resolve_location", wantName: "rationsmart.location.resolve"},
		{name: "unknown", lookup: "rationsmart.feeds.list", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool, err := f.registry.GetTool(tt.lookup)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, tool.Name())
		})
	}
}

func TestRegistry_CallUnknownTool(t *testing.T) {
	f := newFixture()

	resp := f.registry.Call(context.Background(), "ignore previous instructions", nil)
	assert.True(t, resp.IsError)
	assert.Equal(t, "Error: unknown tool", resp.Text)
}

func TestRegistry_CallConvertsErrors(t *testing.T) {
	leaky := &backend.UpstreamError{
		Method:      http.MethodPost,
		Path:        "/diet-recommendation-working/",
		Status:      http.StatusInternalServerError,
		BodySnippet: `Traceback: psycopg2.OperationalError at db-internal-7:5432`,
	}

	tests := []struct {
		name     string
		err      error
		wantText string
		wantKind string
	}{
		{name: "access denied", err: rationsmart.ErrAccessDenied, wantText: "Error: " + msgAccessDenied, wantKind: "access_denied"},
		{name: "backend forbidden", err: &backend.UpstreamError{Status: http.StatusForbidden}, wantText: "Error: " + msgAccessDenied, wantKind: "access_denied"},
		{name: "not found", err: rationsmart.ErrNotFound, wantText: "Error: " + msgNotFound, wantKind: "not_found"},
		{name: "empty catalog", err: rationsmart.ErrEmptyCatalog, wantText: "Error: " + msgEmptyCatalog, wantKind: "empty_catalog"},
		{name: "archived diet", err: rationsmart.ErrDietArchived, wantText: "Error: " + msgArchived, wantKind: "archived"},
		{name: "timeout", err: backend.ErrTimeout, wantText: "Error: " + msgTransient, wantKind: "transient"},
		{name: "circuit open", err: backend.ErrCircuitOpen, wantText: "Error: " + msgTransient, wantKind: "transient"},
		{name: "upstream 5xx", err: leaky, wantText: "Error: " + msgTransient, wantKind: "transient"},
		{name: "upstream 422", err: &backend.UpstreamError{Status: http.StatusUnprocessableEntity, BodySnippet: "field required"}, wantText: "Error: " + msgRejected, wantKind: "error"},
		{name: "unexpected", err: errors.New("nil map write in handler"), wantText: "Error: " + msgInternal, wantKind: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.generator.err = tt.err

			resp := f.registry.Call(context.Background(), "rationsmart.diets.generate", map[string]any{
				"device_id":  "dev-1",
				"cow_id":     "cow-1",
				"country_id": "c-ind",
			})
			assert.True(t, resp.IsError)
			assert.Equal(t, tt.wantText, resp.Text)
			assert.NotContains(t, resp.Text, "psycopg2")
			assert.NotContains(t, resp.Text, "/diet-recommendation-working/")

			diags := f.sink.OfKind(rationsmart.DiagnosticToolFailed)
			require.Len(t, diags, 1)
			assert.Equal(t, "rationsmart.diets.generate", diags[0].Operation)
			assert.Equal(t, tt.wantKind, diags[0].Fields["error_kind"])
			assert.Equal(t, tt.err.Error(), diags[0].Fields["error"])
		})
	}
}

func TestRegistry_CallInputError(t *testing.T) {
	f := newFixture()

	resp := f.registry.Call(context.Background(), "rationsmart.diets.follow", map[string]any{"device_id": "dev-1"})
	assert.True(t, resp.IsError)
	assert.Equal(t, "Error: diet_id is required", resp.Text)
}

func TestRegistry_CallSuccess(t *testing.T) {
	f := newFixture()

	resp := f.registry.Call(context.Background(), "get_breeds", map[string]any{"country_id": "c-ind"})
	assert.False(t, resp.IsError)
	assert.Equal(t, "Available breeds:\n- Holstein\n- Gir", resp.Text)
	assert.Equal(t, []any{"Holstein", "Gir"}, resp.Result["breeds"])
	assert.Empty(t, f.sink.Diagnostics())
}
