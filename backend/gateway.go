package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"rationsmart"
)

const (
	DefaultTimeout   = 30 * time.Second
	OptimizerTimeout = 60 * time.Second

	maxResponseBytes = 4 << 20
)

// Caller performs one backend call and returns the raw JSON body.
type Caller interface {
	Call(ctx context.Context, method, path string, body any, timeout time.Duration) (json.RawMessage, error)
}

// Gateway wraps the backend's HTTP API: bearer authentication, a timeout per
// call, typed failures and a circuit breaker. It never retries; not every
// backend operation is safe to repeat.
type Gateway struct {
	baseURL    string
	apiKey     string
	httpClient rationsmart.HTTPClient
	timeout    time.Duration
	breaker    *gobreaker.CircuitBreaker
	tracer     trace.Tracer

	callsCounter  metric.Int64Counter
	callsDuration metric.Float64Histogram
}

type GatewayOpts struct {
	BaseURL    string
	APIKey     string
	HTTPClient rationsmart.HTTPClient
	Timeout    time.Duration

	// BreakerFailures is the number of consecutive transient failures that
	// opens the breaker. BreakerOpenFor is how long it stays open.
	BreakerFailures uint32
	BreakerOpenFor  time.Duration

	Tracer trace.Tracer
	Meter  metric.Meter
}

func NewGateway(opts GatewayOpts) (*Gateway, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("%w: backend base url", rationsmart.ErrConfigurationMissing)
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("%w: backend api key", rationsmart.ErrConfigurationMissing)
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerOpenFor <= 0 {
		opts.BreakerOpenFor = 30 * time.Second
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(rationsmart.TracerNameBackend)
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter(rationsmart.TracerNameBackend)
	}

	failures := opts.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "rationsmart-backend",
		Timeout: opts.BreakerOpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("GATEWAY: Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	callsCounter, _ := opts.Meter.Int64Counter("backend_calls_total",
		metric.WithDescription("Total number of backend calls by outcome"))
	callsDuration, _ := opts.Meter.Float64Histogram("backend_call_duration_seconds",
		metric.WithDescription("Duration of backend calls in seconds"))

	return &Gateway{
		baseURL:       base,
		apiKey:        strings.TrimSpace(opts.APIKey),
		httpClient:    opts.HTTPClient,
		timeout:       opts.Timeout,
		breaker:       breaker,
		tracer:        opts.Tracer,
		callsCounter:  callsCounter,
		callsDuration: callsDuration,
	}, nil
}

// countsAsSuccess keeps client-side rejections (4xx) and caller
// cancellations from tripping the breaker; only transport failures, timeouts
// and 5xx responses count against the upstream.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Status < http.StatusInternalServerError
	}
	return false
}

// Call sends one request and returns the JSON body. timeout <= 0 uses the
// gateway default. It fails with ErrTimeout when no response arrives in time,
// *UpstreamError on a non-2xx status and ErrCircuitOpen while the breaker is open.
func (g *Gateway) Call(ctx context.Context, method, path string, body any, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = g.timeout
	}
	route := routeOf(path)

	ctx, span := g.tracer.Start(ctx, "Gateway.Call", trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("backend.route", route),
		attribute.Int64("backend.timeout_ms", timeout.Milliseconds()),
	))
	defer span.End()

	start := time.Now()
	res, err := g.breaker.Execute(func() (interface{}, error) {
		return g.do(ctx, method, path, body, timeout)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %s %s", ErrCircuitOpen, method, route)
	}

	outcome := "ok"
	if err != nil {
		outcome = outcomeOf(err)
		span.SetStatus(codes.Error, outcome)
		span.RecordError(err)
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	)
	g.callsCounter.Add(ctx, 1, attrs)
	g.callsDuration.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		slog.Warn("GATEWAY: Backend call failed",
			"method", method,
			"route", route,
			"outcome", outcome,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, err
	}
	return res.(json.RawMessage), nil
}

func (g *Gateway) do(ctx context.Context, method, path string, body any, timeout time.Duration) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("backend: marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("backend: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, g.transportError(ctx, method, path, timeout, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, g.transportError(ctx, method, path, timeout, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{
			Method:      method,
			Path:        routeOf(path),
			Status:      resp.StatusCode,
			BodySnippet: snippet(raw),
		}
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: %s %s: response is not valid json", ErrUnavailable, method, routeOf(path))
	}
	return json.RawMessage(raw), nil
}

func (g *Gateway) transportError(ctx context.Context, method, path string, timeout time.Duration, err error) error {
	var ne net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %s %s after %s", ErrTimeout, method, routeOf(path), timeout)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("backend: %s %s: %w", method, routeOf(path), context.Canceled)
	}
	return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, routeOf(path), err)
}

func outcomeOf(err error) string {
	var ue *UpstreamError
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.As(err, &ue):
		return fmt.Sprintf("status_%d", ue.Status)
	default:
		return "error"
	}
}

// routeOf strips the query string so ids passed as parameters stay out of
// logs and span attributes.
func routeOf(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
