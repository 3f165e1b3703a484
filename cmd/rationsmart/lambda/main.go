package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"

	"rationsmart"
	"rationsmart/app"
	"rationsmart/tools"
)

type Params struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

type Results struct {
	Text    string         `json:"text"`
	Result  map[string]any `json:"result,omitempty"`
	IsError bool           `json:"is_error"`
}

var errMissingTool = errors.New("missing 'tool' field")

type caller interface {
	Call(ctx context.Context, name string, input map[string]any) tools.Response
}

func handler(registry caller) func(context.Context, Params) (Results, error) {
	return func(ctx context.Context, params Params) (Results, error) {
		if strings.TrimSpace(params.Tool) == "" {
			return Results{}, errMissingTool
		}
		resp := registry.Call(ctx, params.Tool, params.Arguments)
		slog.Info("RESULT: Tool call finished", "tool", params.Tool, "is_error", resp.IsError)
		return Results{Text: resp.Text, Result: resp.Result, IsError: resp.IsError}, nil
	}
}

func main() {
	ctx := context.Background()

	// The providers are flushed by the runtime freezing the process; spans of
	// the last invocation may be lost.
	if _, err := rationsmart.InitOtel(ctx); err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %s", err)
	}

	a, err := app.New(ctx, app.Options{})
	if err != nil {
		log.Fatalf("Failed to wire tools: %s", err)
	}
	slog.Info("SETUP: Lambda handler ready", "tools", len(a.Registry.GetTools()))

	lambda.Start(handler(a.Registry))
}
