package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"rationsmart"
)

// aliases maps legacy tool names to their current names.
var aliases = map[string]string{
	"get_countries":       "rationsmart.countries.list",
	"resolve_country_id":  "rationsmart.countries.resolve",
	"resolve_location":    "rationsmart.location.resolve",
	"get_breeds":          "rationsmart.breeds.list",
	"list_cows":           "rationsmart.cows.list",
	"get_cow":             "rationsmart.cows.get",
	"create_cow":          "rationsmart.cows.create",
	"update_cow":          "rationsmart.cows.update",
	"delete_cow":          "rationsmart.cows.delete",
	"generate_diet":       "rationsmart.diets.generate",
	"follow_diet":         "rationsmart.diets.follow",
	"stop_following_diet": "rationsmart.diets.unfollow",
	"get_diet_schedule":   "rationsmart.diets.schedule.get",
	"get_diet_history":    "rationsmart.diets.history.list",
}

// Response is the outcome of a tool call as seen by the agent.
type Response struct {
	Text    string         `json:"text"`
	Result  map[string]any `json:"result,omitempty"`
	IsError bool           `json:"is_error"`
}

// Registry maps tool names to implementations
type Registry struct {
	tools       map[string]Tool
	order       []string
	diagnostics rationsmart.DiagnosticsSink
	tracer      trace.Tracer

	callsCounter  metric.Int64Counter
	callsDuration metric.Float64Histogram
}

type RegistryOpts struct {
	Diagnostics rationsmart.DiagnosticsSink
	Tracer      trace.Tracer
	Meter       metric.Meter
}

// NewRegistry builds the registry of every RationSmart tool.
func NewRegistry(deps Deps, opts RegistryOpts) *Registry {
	return newRegistry([]Tool{
		NewCountriesList(deps.Countries),
		NewCountriesResolve(deps.Countries),
		NewLocationResolve(deps.Countries),
		NewBreedsList(deps.Backend),
		NewCowsList(deps.Backend),
		NewCowsGet(deps.Backend, deps.Verifier),
		NewCowsCreate(deps.Backend),
		NewCowsUpdate(deps.Backend, deps.Verifier),
		NewCowsDelete(deps.Backend, deps.Verifier),
		NewDietsGenerate(deps.Diets),
		NewDietsFollow(deps.FollowUps),
		NewDietsUnfollow(deps.FollowUps),
		NewDietsScheduleGet(deps.Backend, deps.Verifier),
		NewDietsHistoryList(deps.Backend),
	}, opts)
}

func newRegistry(tools []Tool, opts RegistryOpts) *Registry {
	if opts.Diagnostics == nil {
		opts.Diagnostics = rationsmart.NoOpDiagnosticsSink{}
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(rationsmart.TracerNameTools)
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter(rationsmart.TracerNameTools)
	}

	callsCounter, _ := opts.Meter.Int64Counter("tool_calls_total",
		metric.WithDescription("Total number of tool calls executed"))
	callsDuration, _ := opts.Meter.Float64Histogram("tool_call_duration_seconds",
		metric.WithDescription("Duration of tool calls in seconds"))

	r := &Registry{
		tools:         make(map[string]Tool, len(tools)),
		diagnostics:   opts.Diagnostics,
		tracer:        opts.Tracer,
		callsCounter:  callsCounter,
		callsDuration: callsDuration,
	}
	for _, t := range tools {
		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}
	return r
}

// GetTools returns all tools in registration order.
func (r *Registry) GetTools() []Tool {
	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// GetTool retrieves a tool by name or legacy alias.
func (r *Registry) GetTool(name string) (Tool, error) {
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	tool, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool %q not found in registry", name)
	}
	return tool, nil
}

// Call runs a tool and converts any failure into a user-safe response. The
// underlying error is only logged and recorded as a diagnostic.
func (r *Registry) Call(ctx context.Context, name string, input map[string]any) Response {
	ctx, span := r.tracer.Start(ctx, "Registry.Call", trace.WithAttributes(
		attribute.String("tool.name", name),
	))
	defer span.End()

	start := time.Now()
	tool, err := r.GetTool(name)
	if err != nil {
		r.record(ctx, "unknown", "unknown_tool", start)
		span.SetStatus(codes.Error, "unknown tool")
		return Response{Text: "Error: unknown tool", IsError: true}
	}
	if input == nil {
		input = map[string]any{}
	}

	out, err := tool.Run(ctx, input)
	if err != nil {
		kind := errorKind(err)
		r.record(ctx, tool.Name(), kind, start)
		span.SetStatus(codes.Error, kind)
		span.RecordError(err)

		rationsmart.RecordDiagnostic(r.diagnostics, rationsmart.Diagnostic{
			Kind:      rationsmart.DiagnosticToolFailed,
			Operation: tool.Name(),
			Message:   "Tool call failed",
			Fields: map[string]any{
				"error_kind": kind,
				"error":      err.Error(),
			},
		})
		return Response{Text: "Error: " + userMessage(err), IsError: true}
	}

	r.record(ctx, tool.Name(), "ok", start)
	text, _ := out["text"].(string)
	return Response{Text: text, Result: out}
}

func (r *Registry) record(ctx context.Context, name, outcome string, start time.Time) {
	attrs := metric.WithAttributes(
		attribute.String("tool", name),
		attribute.String("outcome", outcome),
	)
	r.callsCounter.Add(ctx, 1, attrs)
	r.callsDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	slog.Debug("TOOLS: Tool call finished", "tool", name, "outcome", outcome, "duration_ms", time.Since(start).Milliseconds())
}
