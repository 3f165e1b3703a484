package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"rationsmart/backend"
)

type countryOut struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"country_code"`
	Currency string `json:"currency"`
}

func toCountryOut(c backend.Country) countryOut {
	return countryOut{ID: c.ID, Name: c.Name, Code: c.Code, Currency: c.Currency}
}

var countrySchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"id":           {Type: "string"},
		"name":         {Type: "string"},
		"country_code": {Type: "string"},
		"currency":     {Type: "string"},
	},
	Required: []string{"id", "name"},
}

type CountriesList struct{ countries Countries }

func NewCountriesList(countries Countries) *CountriesList {
	return &CountriesList{countries: countries}
}

func (t *CountriesList) Name() string  { return "rationsmart.countries.list" }
func (t *CountriesList) Title() string { return "List Countries" }
func (t *CountriesList) Description() string {
	return "List supported countries for onboarding (id, name, currency).\n" +
		"Use when the user needs to select or confirm their country.\n" +
		"Read-only."
}

func (t *CountriesList) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{}}
}

func (t *CountriesList) OutputSchema() *jsonschema.Schema {
	return textOutputSchema(map[string]*jsonschema.Schema{
		"countries": {Type: "array", Items: countrySchema},
	})
}

func (t *CountriesList) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	countries, err := t.countries.List(ctx)
	if err != nil {
		return nil, err
	}

	out := struct {
		Text      string       `json:"text"`
		Countries []countryOut `json:"countries"`
	}{Countries: make([]countryOut, 0, len(countries))}

	if len(countries) == 0 {
		out.Text = "No countries are available."
		return output(out)
	}

	var b strings.Builder
	b.WriteString("Available countries:\n")
	for _, c := range countries {
		fmt.Fprintf(&b, "- COUNTRY_ID: %s | %s (%s)\n", c.ID, c.Name, orNA(c.Currency))
		out.Countries = append(out.Countries, toCountryOut(c))
	}
	out.Text = strings.TrimRight(b.String(), "\n")
	return output(out)
}

type CountriesResolve struct{ countries Countries }

func NewCountriesResolve(countries Countries) *CountriesResolve {
	return &CountriesResolve{countries: countries}
}

func (t *CountriesResolve) Name() string  { return "rationsmart.countries.resolve" }
func (t *CountriesResolve) Title() string { return "Resolve Country ID" }
func (t *CountriesResolve) Description() string {
	return "Resolve the backend country_id from a country code or name, or from latitude/longitude.\n" +
		"Use before generating a diet when only the location is known.\n" +
		"Read-only."
}

func (t *CountriesResolve) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"country_code": stringSchema("ISO country code, two or three letters"),
			"country_name": stringSchema("Country name"),
			"latitude":     numberSchema("Latitude"),
			"longitude":    numberSchema("Longitude"),
		},
	}
}

func (t *CountriesResolve) OutputSchema() *jsonschema.Schema {
	return textOutputSchema(map[string]*jsonschema.Schema{
		"country": countrySchema,
	})
}

func (t *CountriesResolve) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	q, err := countryQuery(input)
	if err != nil {
		return nil, err
	}
	if emptyQuery(q) {
		return nil, invalidInput("provide country_code/country_name or latitude/longitude")
	}

	c, err := t.countries.Resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, invalidInput("unable to resolve a country, no countries are available")
	}

	return output(struct {
		Text    string     `json:"text"`
		Country countryOut `json:"country"`
	}{
		Text:    fmt.Sprintf("COUNTRY_ID: %s\nCountry: %s (%s)\nCurrency: %s", c.ID, c.Name, c.Code, orNA(c.Currency)),
		Country: toCountryOut(*c),
	})
}

// LocationResolve maps coordinates to a supported country. It never guesses:
// a point outside every known extent reports that no country was found.
type LocationResolve struct{ countries Countries }

func NewLocationResolve(countries Countries) *LocationResolve {
	return &LocationResolve{countries: countries}
}

func (t *LocationResolve) Name() string  { return "rationsmart.location.resolve" }
func (t *LocationResolve) Title() string { return "Resolve Location" }
func (t *LocationResolve) Description() string {
	return "Find the supported country that contains a latitude/longitude.\n" +
		"Use when the farmer shares a location pin.\n" +
		"Read-only. Requires latitude and longitude."
}

func (t *LocationResolve) InputSchema() *jsonschema.Schema {
	minLat, maxLat := -90.0, 90.0
	minLon, maxLon := -180.0, 180.0
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"latitude":  {Type: "number", Description: "Latitude in degrees", Minimum: &minLat, Maximum: &maxLat},
			"longitude": {Type: "number", Description: "Longitude in degrees", Minimum: &minLon, Maximum: &maxLon},
		},
		Required: []string{"latitude", "longitude"},
	}
}

func (t *LocationResolve) OutputSchema() *jsonschema.Schema {
	return textOutputSchema(map[string]*jsonschema.Schema{
		"found":   {Type: "boolean"},
		"country": countrySchema,
	})
}

func (t *LocationResolve) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	lat, lon, ok, err := coordinates(input)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalidInput("latitude and longitude are required")
	}

	c, err := t.countries.Locate(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return output(struct {
			Text  string `json:"text"`
			Found bool   `json:"found"`
		}{Text: fmt.Sprintf("No supported country contains latitude %g, longitude %g.", lat, lon)})
	}

	return output(struct {
		Text    string     `json:"text"`
		Found   bool       `json:"found"`
		Country countryOut `json:"country"`
	}{
		Text:    fmt.Sprintf("COUNTRY_ID: %s\nCountry: %s (%s)\nCurrency: %s", c.ID, c.Name, c.Code, orNA(c.Currency)),
		Found:   true,
		Country: toCountryOut(*c),
	})
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
