package rationsmart

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Diagnostic kinds emitted by the orchestration layer.
const (
	DiagnosticCountryUnresolved  = "country_unresolved"
	DiagnosticOptimizerUnparsed  = "optimizer_unparsed"
	DiagnosticToolFailed         = "tool_failed"
	DiagnosticArchiveFailed      = "archive_failed"
	DiagnosticNotificationFailed = "notification_failed"
)

// DiagnosticsSink receives internal diagnostic records. Diagnostics carry
// details (upstream bodies, raw inputs) that must never reach the caller.
type DiagnosticsSink interface {
	Record(d Diagnostic) error
}

// Diagnostic is a single internal diagnostic record.
type Diagnostic struct {
	Timestamp time.Time      `json:"timestamp"`
	Kind      string         `json:"kind"`
	Operation string         `json:"operation,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// RecordDiagnostic logs the diagnostic through slog and forwards it to sink,
// handling sink errors gracefully.
func RecordDiagnostic(sink DiagnosticsSink, d Diagnostic) {
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now()
	}

	attrs := []any{"kind", d.Kind}
	if d.Operation != "" {
		attrs = append(attrs, "operation", d.Operation)
	}
	for k, v := range d.Fields {
		attrs = append(attrs, k, v)
	}
	slog.Warn("DIAGNOSTIC: "+d.Message, attrs...)

	if sink == nil {
		return
	}
	if err := sink.Record(d); err != nil {
		slog.Error("Failed to record diagnostic", "error", err, "kind", d.Kind)
	}
}

// WriterDiagnosticsSink writes each diagnostic as a JSON line to a writer.
type WriterDiagnosticsSink struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewWriterDiagnosticsSink creates a sink writing JSON lines to w
func NewWriterDiagnosticsSink(w io.Writer) *WriterDiagnosticsSink {
	return &WriterDiagnosticsSink{writer: w}
}

func (s *WriterDiagnosticsSink) Record(d Diagnostic) error {
	if s.writer == nil {
		return nil
	}

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal diagnostic: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintln(s.writer, string(data)); err != nil {
		return fmt.Errorf("failed to write diagnostic: %w", err)
	}
	return nil
}

// NewStdoutDiagnosticsSink writes diagnostics as JSON lines to os.Stdout (for Lambda/CloudWatch)
func NewStdoutDiagnosticsSink() *WriterDiagnosticsSink {
	return NewWriterDiagnosticsSink(os.Stdout)
}

// NewFileDiagnosticsSink opens (or creates) path in append mode. The returned
// close function must be called on shutdown.
func NewFileDiagnosticsSink(path string) (*WriterDiagnosticsSink, func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, func() error { return nil }, fmt.Errorf("failed to open diagnostics file: %w", err)
	}
	return NewWriterDiagnosticsSink(f), f.Close, nil
}

// NoOpDiagnosticsSink discards all diagnostics
type NoOpDiagnosticsSink struct{}

func (NoOpDiagnosticsSink) Record(Diagnostic) error { return nil }

// MemoryDiagnosticsSink keeps diagnostics in memory. Useful in tests.
type MemoryDiagnosticsSink struct {
	mu          sync.Mutex
	diagnostics []Diagnostic
}

func NewMemoryDiagnosticsSink() *MemoryDiagnosticsSink {
	return &MemoryDiagnosticsSink{}
}

func (m *MemoryDiagnosticsSink) Record(d Diagnostic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.diagnostics = append(m.diagnostics, d)
	return nil
}

// Diagnostics returns a copy of the recorded diagnostics.
func (m *MemoryDiagnosticsSink) Diagnostics() []Diagnostic {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Diagnostic, len(m.diagnostics))
	copy(out, m.diagnostics)
	return out
}

// OfKind returns the recorded diagnostics with the given kind.
func (m *MemoryDiagnosticsSink) OfKind(kind string) []Diagnostic {
	var out []Diagnostic
	for _, d := range m.Diagnostics() {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}
