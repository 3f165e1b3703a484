package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// maxSnippet bounds how much of an upstream body is kept on an UpstreamError.
const maxSnippet = 256

var (
	ErrTimeout     = errors.New("backend timeout")
	ErrCircuitOpen = errors.New("backend circuit open")
	ErrUnavailable = errors.New("backend unavailable")
)

// UpstreamError represents a non-2xx response from the backend.
type UpstreamError struct {
	Method      string
	Path        string
	Status      int
	BodySnippet string
}

func (e *UpstreamError) Error() string {
	if e.BodySnippet == "" {
		return fmt.Sprintf("backend: %s %s: status=%d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("backend: %s %s: status=%d body=%s", e.Method, e.Path, e.Status, e.BodySnippet)
}

// IsStatus reports whether err is an UpstreamError with the given status.
func IsStatus(err error, status int) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Status == status
}

func IsNotFound(err error) bool { return IsStatus(err, http.StatusNotFound) }

// IsForbidden reports whether the backend rejected the caller for the resource.
func IsForbidden(err error) bool {
	return IsStatus(err, http.StatusForbidden) || IsStatus(err, http.StatusUnauthorized)
}

// IsTransient reports whether err is worth retrying later: timeouts, an open
// breaker, transport failures and 5xx, 408 or 429 responses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrUnavailable) {
		return true
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Status >= http.StatusInternalServerError ||
			ue.Status == http.StatusTooManyRequests ||
			ue.Status == http.StatusRequestTimeout
	}
	return false
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) <= maxSnippet {
		return s
	}
	cut := maxSnippet
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
