package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"rationsmart"
	"rationsmart/backend"
)

// InputError is a problem with the caller's arguments. Its message is safe to
// show to the user.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func invalidInput(format string, args ...any) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

// Messages shown to the user for each failure class. Upstream bodies and
// internal identifiers never appear here.
const (
	msgAccessDenied = "you do not have access to that cow or diet"
	msgNotFound     = "the requested cow or diet was not found"
	msgEmptyCatalog = "no feeds are available for this country yet"
	msgArchived     = "this diet was stopped and cannot be followed again, generate a new diet instead"
	msgConfig       = "the RationSmart service is not configured"
	msgCancelled    = "the request was cancelled"
	msgTransient    = "the RationSmart service is temporarily unavailable, try again in a moment"
	msgRejected     = "the RationSmart service rejected the request, check the values and try again"
	msgInternal     = "something went wrong, try again in a moment"
)

// userMessage converts any failure into text that is safe to return.
func userMessage(err error) string {
	var ie *InputError
	var ue *backend.UpstreamError
	switch {
	case errors.As(err, &ie):
		return ie.Message
	case errors.Is(err, rationsmart.ErrAccessDenied), backend.IsForbidden(err):
		return msgAccessDenied
	case errors.Is(err, rationsmart.ErrNotFound), backend.IsNotFound(err):
		return msgNotFound
	case errors.Is(err, rationsmart.ErrEmptyCatalog):
		return msgEmptyCatalog
	case errors.Is(err, rationsmart.ErrDietArchived):
		return msgArchived
	case errors.Is(err, rationsmart.ErrConfigurationMissing):
		return msgConfig
	case errors.Is(err, context.Canceled):
		return msgCancelled
	case backend.IsTransient(err), errors.Is(err, context.DeadlineExceeded):
		return msgTransient
	case errors.As(err, &ue) && ue.Status >= http.StatusBadRequest && ue.Status < http.StatusInternalServerError:
		return msgRejected
	default:
		return msgInternal
	}
}

// errorKind labels a failure for diagnostics and metrics.
func errorKind(err error) string {
	var ie *InputError
	switch {
	case errors.As(err, &ie):
		return "input"
	case errors.Is(err, rationsmart.ErrAccessDenied), backend.IsForbidden(err):
		return "access_denied"
	case errors.Is(err, rationsmart.ErrNotFound), backend.IsNotFound(err):
		return "not_found"
	case errors.Is(err, rationsmart.ErrEmptyCatalog):
		return "empty_catalog"
	case errors.Is(err, rationsmart.ErrDietArchived):
		return "archived"
	case backend.IsTransient(err):
		return "transient"
	default:
		return "error"
	}
}
