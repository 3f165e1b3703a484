package country

import (
	"context"
	"fmt"
	"strings"

	"rationsmart"
	"rationsmart/backend"
)

// Query describes what is known about a user's location. Any field may be
// empty; coordinates are only used when both are set.
type Query struct {
	Name      string
	Code      string
	Latitude  *float64
	Longitude *float64
}

func (q Query) hasCoordinates() bool {
	return q.Latitude != nil && q.Longitude != nil
}

func (q Query) String() string {
	var parts []string
	if q.Name != "" {
		parts = append(parts, "name="+q.Name)
	}
	if q.Code != "" {
		parts = append(parts, "code="+q.Code)
	}
	if q.hasCoordinates() {
		parts = append(parts, fmt.Sprintf("lat=%g lon=%g", *q.Latitude, *q.Longitude))
	}
	return strings.Join(parts, " ")
}

// codeOverrides maps two-letter ISO codes to the backend's three-letter codes.
var codeOverrides = map[string]string{
	"vn": "vnm",
	"in": "ind",
	"et": "eth",
	"id": "idn",
	"ph": "phl",
	"pk": "pak",
	"bd": "bgd",
	"np": "npl",
	"ke": "ken",
	"tz": "tza",
	"ug": "uga",
}

// Resolver maps a Query to an active backend country.
type Resolver struct {
	cache       *Cache
	diagnostics rationsmart.DiagnosticsSink
}

func NewResolver(cache *Cache, diagnostics rationsmart.DiagnosticsSink) *Resolver {
	if diagnostics == nil {
		diagnostics = rationsmart.NoOpDiagnosticsSink{}
	}
	return &Resolver{cache: cache, diagnostics: diagnostics}
}

// Resolve tries the textual inputs first, then the coordinates, and finally
// falls back to the first active country. It returns nil only when the
// catalog has no active country.
func (r *Resolver) Resolve(ctx context.Context, q Query) (*backend.Country, error) {
	countries, err := r.cache.Active(ctx)
	if err != nil {
		return nil, err
	}
	if len(countries) == 0 {
		return nil, nil
	}

	if c := matchText(countries, q.Name, q.Code); c != nil {
		return c, nil
	}
	if q.hasCoordinates() {
		if c := matchBox(countries, *q.Latitude, *q.Longitude); c != nil {
			return c, nil
		}
	}

	fallback := countries[0]
	rationsmart.RecordDiagnostic(r.diagnostics, rationsmart.Diagnostic{
		Kind:      rationsmart.DiagnosticCountryUnresolved,
		Operation: "resolve-country",
		Message:   "No country matched, using first active country",
		Fields: map[string]any{
			"query":       q.String(),
			"fallback_id": fallback.ID,
		},
	})
	return &fallback, nil
}

// Locate returns the active country whose extent contains the point, or nil
// when none does. Unlike Resolve it never falls back.
func (r *Resolver) Locate(ctx context.Context, lat, lon float64) (*backend.Country, error) {
	countries, err := r.cache.Active(ctx)
	if err != nil {
		return nil, err
	}
	if c := matchBox(countries, lat, lon); c != nil {
		found := *c
		return &found, nil
	}
	return nil, nil
}

// ByID returns the active country with the given id, or nil.
func (r *Resolver) ByID(ctx context.Context, id string) (*backend.Country, error) {
	countries, err := r.cache.Active(ctx)
	if err != nil {
		return nil, err
	}
	for i := range countries {
		if countries[i].ID == id {
			c := countries[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (r *Resolver) List(ctx context.Context) ([]backend.Country, error) {
	return r.cache.Active(ctx)
}

func matchText(countries []backend.Country, name, code string) *backend.Country {
	for _, input := range []string{name, code} {
		text := normalize(input)
		if text == "" {
			continue
		}
		for i := range countries {
			if normalize(countries[i].Name) == text {
				return &countries[i]
			}
		}
		mapped := text
		if three, ok := codeOverrides[text]; ok {
			mapped = three
		}
		for i := range countries {
			if normalize(countries[i].Code) == mapped {
				return &countries[i]
			}
		}
	}

	// "United Republic of Tanzania" vs "Tanzania".
	if text := normalize(name); len(text) >= 4 {
		for i := range countries {
			n := normalize(countries[i].Name)
			if n != "" && (strings.Contains(n, text) || strings.Contains(text, n)) {
				return &countries[i]
			}
		}
	}
	return nil
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
