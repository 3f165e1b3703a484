package rationsmart

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrAccessDenied         = errors.New("access denied")
	ErrEmptyCatalog         = errors.New("empty feed catalog")
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrDietArchived is returned when following a diet that was already
	// stopped. Archived diets stay archived; a new diet must be generated.
	ErrDietArchived = errors.New("diet is archived")
)
