package tools

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

type BreedsList struct{ backend Backend }

func NewBreedsList(b Backend) *BreedsList { return &BreedsList{backend: b} }

func (t *BreedsList) Name() string  { return "rationsmart.breeds.list" }
func (t *BreedsList) Title() string { return "List Breeds" }
func (t *BreedsList) Description() string {
	return "List cattle breeds available for a country.\n" +
		"Use after the user selects a country to show breed options.\n" +
		"Read-only. Requires a valid country_id."
}

func (t *BreedsList) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"country_id": stringSchema("The country id from rationsmart.countries.list"),
		},
		Required: []string{"country_id"},
	}
}

func (t *BreedsList) OutputSchema() *jsonschema.Schema {
	return textOutputSchema(map[string]*jsonschema.Schema{
		"breeds": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
	})
}

func (t *BreedsList) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	countryID, err := requireString(input, "country_id")
	if err != nil {
		return nil, err
	}

	breeds, err := t.backend.Breeds(ctx, countryID)
	if err != nil {
		return nil, err
	}

	out := struct {
		Text   string   `json:"text"`
		Breeds []string `json:"breeds"`
	}{Breeds: make([]string, 0, len(breeds))}

	if len(breeds) == 0 {
		out.Text = "No breeds found."
		return output(out)
	}

	lines := []string{"Available breeds:"}
	for _, b := range breeds {
		lines = append(lines, "- "+b.Name)
		out.Breeds = append(out.Breeds, b.Name)
	}
	out.Text = strings.Join(lines, "\n")
	return output(out)
}
