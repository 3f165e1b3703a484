package mcpserver

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rationsmart/tools"
)

type echoTool struct{}

func (echoTool) Name() string        { return "rationsmart.echo" }
func (echoTool) Title() string       { return "Echo" }
func (echoTool) Description() string { return "Echoes the message." }
func (echoTool) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{"message": {Type: "string"}},
	}
}
func (echoTool) OutputSchema() *jsonschema.Schema { return &jsonschema.Schema{Type: "object"} }
func (echoTool) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	return map[string]any{"text": input["message"]}, nil
}

type fakeRegistry struct {
	calls []string
	resp  tools.Response
}

func (r *fakeRegistry) GetTools() []tools.Tool { return []tools.Tool{echoTool{}} }

func (r *fakeRegistry) Call(ctx context.Context, name string, input map[string]any) tools.Response {
	r.calls = append(r.calls, name)
	if r.resp.Text != "" {
		return r.resp
	}
	text, _ := input["message"].(string)
	return tools.Response{Text: text}
}

func connect(t *testing.T, registry Caller) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	_, err := New(registry).Connect(ctx, serverTransport)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestServer_ListTools(t *testing.T) {
	session := connect(t, &fakeRegistry{})

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Tools, 1)
	assert.Equal(t, "rationsmart.echo", res.Tools[0].Name)
	assert.Equal(t, "Echoes the message.", res.Tools[0].Description)
}

func TestServer_CallTool(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		registry := &fakeRegistry{}
		session := connect(t, registry)

		res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
			Name:      "rationsmart.echo",
			Arguments: map[string]any{"message": "DIET_ID: d-1"},
		})
		require.NoError(t, err)
		assert.False(t, res.IsError)
		require.Len(t, res.Content, 1)
		text, ok := res.Content[0].(*mcp.TextContent)
		require.True(t, ok)
		assert.Equal(t, "DIET_ID: d-1", text.Text)
		assert.Equal(t, []string{"rationsmart.echo"}, registry.calls)
	})

	t.Run("tool failure is an error result", func(t *testing.T) {
		registry := &fakeRegistry{resp: tools.Response{Text: "Error: the requested cow or diet was not found", IsError: true}}
		session := connect(t, registry)

		res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
			Name:      "rationsmart.echo",
			Arguments: map[string]any{},
		})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		text, ok := res.Content[0].(*mcp.TextContent)
		require.True(t, ok)
		assert.Equal(t, "Error: the requested cow or diet was not found", text.Text)
	})
}
