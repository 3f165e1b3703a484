package diet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rationsmart/backend"
)

func testCatalog() map[string]backend.FeedCatalogEntry {
	return map[string]backend.FeedCatalogEntry{
		"f1": {ID: "f1", Name: "Maize Silage"},
		"f2": {ID: "f2", Name: "Soybean Meal"},
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantLines []backend.DietLine
	}{
		{
			name:      "feeds with catalog name",
			raw:       `{"feeds":[{"feed_id":"f1","quantity_kg":2.5,"cost":1.25}]}`,
			wantLines: []backend.DietLine{{FeedID: "f1", Name: "Maize Silage", QuantityKg: 2.5, Cost: 1.25}},
		},
		{
			name:      "zero quantity dropped",
			raw:       `{"feeds":[{"feed_id":"f1","quantity_kg":0,"cost":0},{"feed_id":"f2","quantity_kg":-1}]}`,
			wantLines: []backend.DietLine{},
		},
		{
			name: "feed_results under first solution",
			raw: `{"status":"optimal","solutions":[
				{"feed_results":[{"id":"f2","quantity_as_fed":3,"total_cost":1.5}]},
				{"feed_results":[{"id":"f1","quantity_as_fed":9,"total_cost":9}]}
			]}`,
			wantLines: []backend.DietLine{{FeedID: "f2", Name: "Soybean Meal", QuantityKg: 3, Cost: 1.5}},
		},
		{
			name:      "diet_results with plain quantity",
			raw:       `{"diet_results":[{"feed_id":"f1","quantity":4}]}`,
			wantLines: []backend.DietLine{{FeedID: "f1", Name: "Maize Silage", QuantityKg: 4}},
		},
		{
			name:      "least_cost_diet with inline name",
			raw:       `{"least_cost_diet":[{"feed_id":"f9","feed_name":"Rice Straw","quantity_kg_per_day":6.2,"cost":0.62}]}`,
			wantLines: []backend.DietLine{{FeedID: "f9", Name: "Rice Straw", QuantityKg: 6.2, Cost: 0.62}},
		},
		{
			name:      "unknown feed falls back to raw id",
			raw:       `{"feeds":[{"feed_id":"f404","quantity_kg":1}]}`,
			wantLines: []backend.DietLine{{FeedID: "f404", Name: "f404", QuantityKg: 1}},
		},
		{
			name:      "numeric strings are accepted",
			raw:       `{"feeds":[{"feed_id":"f1","quantity_kg":"2.0","cost":"0.2"}]}`,
			wantLines: []backend.DietLine{{FeedID: "f1", Name: "Maize Silage", QuantityKg: 2, Cost: 0.2}},
		},
		{
			name:      "first present field wins",
			raw:       `{"feed_results":[{"feed_id":"f1","quantity_kg":1}],"feeds":[{"feed_id":"f2","quantity_kg":1}]}`,
			wantLines: []backend.DietLine{{FeedID: "f1", Name: "Maize Silage", QuantityKg: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Parse([]byte(tt.raw), testCatalog())

			parsed, ok := out.(Parsed)
			require.True(t, ok, "expected Parsed, got %T", out)
			assert.Equal(t, tt.wantLines, parsed.Lines)
		})
	}
}

func TestParse_Unparsed(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantTop      []string
		wantSolution []string
	}{
		{
			name:         "no recognised array",
			raw:          `{"result":{"rations":[]},"status":"ok"}`,
			wantTop:      []string{"result", "status"},
			wantSolution: []string{"result", "status"},
		},
		{
			name:         "recognised field is not an array",
			raw:          `{"solutions":[{"feeds":"none","objective":1}]}`,
			wantTop:      []string{"solutions"},
			wantSolution: []string{"feeds", "objective"},
		},
		{
			name: "not an object",
			raw:  `[1,2,3]`,
		},
		{
			name: "not json",
			raw:  `Internal Server Error`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out Outcome
			require.NotPanics(t, func() { out = Parse([]byte(tt.raw), testCatalog()) })

			unparsed, ok := out.(Unparsed)
			require.True(t, ok, "expected Unparsed, got %T", out)
			assert.Equal(t, tt.wantTop, unparsed.TopLevelFields)
			assert.Equal(t, tt.wantSolution, unparsed.SolutionFields)
		})
	}
}

func TestParse_ReportedTotal(t *testing.T) {
	out := Parse([]byte(`{"total_diet_cost":42.5,"least_cost_diet":[{"feed_id":"f1","quantity_kg_per_day":10}]}`), testCatalog())

	parsed, ok := out.(Parsed)
	require.True(t, ok)
	require.NotNil(t, parsed.ReportedTotal)
	assert.Equal(t, 42.5, *parsed.ReportedTotal)
	assert.Equal(t, 42.5, totalCost(parsed.Lines, parsed.ReportedTotal))
}
