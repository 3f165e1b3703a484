package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rationsmart/tools"
)

type stubCaller struct {
	name  string
	input map[string]any
}

func (s *stubCaller) Call(ctx context.Context, name string, input map[string]any) tools.Response {
	s.name, s.input = name, input
	return tools.Response{Text: "Error: the requested cow or diet was not found", IsError: true}
}

func TestHandler(t *testing.T) {
	stub := &stubCaller{}
	fn := handler(stub)

	out, err := fn(context.Background(), Params{Tool: "get_cow", Arguments: map[string]any{"device_id": "dev-1"}})
	require.NoError(t, err)
	assert.Equal(t, "get_cow", stub.name)
	assert.Equal(t, "dev-1", stub.input["device_id"])
	assert.True(t, out.IsError)
	assert.Equal(t, "Error: the requested cow or diet was not found", out.Text)

	_, err = fn(context.Background(), Params{})
	assert.ErrorIs(t, err, errMissingTool)
}
