package diet

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"rationsmart/backend"
)

// Candidate field names, tried in order.
var (
	arrayFields    = []string{"feed_results", "feeds", "diet_results", "least_cost_diet"}
	idFields       = []string{"feed_id", "id"}
	quantityFields = []string{"quantity_kg", "quantity_as_fed", "quantity", "quantity_kg_per_day"}
	costFields     = []string{"cost", "total_cost"}
	nameFields     = []string{"feed_name", "name"}
	totalFields    = []string{"total_diet_cost", "total_cost_per_day", "total_cost"}
)

// Outcome is the result of decoding an optimizer response: either Parsed or
// Unparsed. Unparsed is a normal outcome, not an error.
type Outcome interface {
	outcome()
}

// Parsed holds the diet lines found in a recognised response shape. Lines
// may be empty when the optimizer included nothing.
type Parsed struct {
	Lines []backend.DietLine
	// ReportedTotal is the optimizer's own daily total, when it sent one.
	ReportedTotal *float64
}

// Unparsed records the field names that were present so the shape can be
// triaged.
type Unparsed struct {
	TopLevelFields []string
	SolutionFields []string
}

func (Parsed) outcome()   {}
func (Unparsed) outcome() {}

// Parse extracts diet lines from an optimizer response. Feed names come from
// catalog, then from an inline name, then the raw feed id. Lines with a
// non-positive quantity are dropped.
func Parse(raw []byte, catalog map[string]backend.FeedCatalogEntry) Outcome {
	top, ok := decodeObject(raw)
	if !ok {
		return Unparsed{}
	}

	solution := top
	if solutions, ok := top["solutions"].([]any); ok && len(solutions) > 0 {
		if first, ok := solutions[0].(map[string]any); ok {
			solution = first
		}
	}

	var items []any
	found := false
	for _, field := range arrayFields {
		v, present := solution[field]
		if !present || v == nil {
			continue
		}
		items, found = v.([]any)
		break
	}
	if !found {
		return Unparsed{TopLevelFields: keys(top), SolutionFields: keys(solution)}
	}

	lines := make([]backend.DietLine, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		qty, _ := firstNumber(obj, quantityFields)
		if qty <= 0 {
			continue
		}
		cost, _ := firstNumber(obj, costFields)
		id := firstString(obj, idFields)

		lines = append(lines, backend.DietLine{
			FeedID:     id,
			Name:       feedName(id, obj, catalog),
			QuantityKg: qty,
			Cost:       cost,
		})
	}

	out := Parsed{Lines: lines}
	if total, ok := firstNumber(solution, totalFields); ok {
		out.ReportedTotal = &total
	} else if total, ok := firstNumber(top, totalFields); ok {
		out.ReportedTotal = &total
	}
	return out
}

func feedName(id string, obj map[string]any, catalog map[string]backend.FeedCatalogEntry) string {
	if entry, ok := catalog[id]; ok && entry.Name != "" {
		return entry.Name
	}
	if name := firstString(obj, nameFields); name != "" {
		return name
	}
	return id
}

func decodeObject(raw []byte) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func firstNumber(obj map[string]any, fields []string) (float64, bool) {
	for _, f := range fields {
		switch v := obj[f].(type) {
		case json.Number:
			if n, err := v.Float64(); err == nil {
				return n, true
			}
		case float64:
			return v, true
		case string:
			if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func firstString(obj map[string]any, fields []string) string {
	for _, f := range fields {
		switch v := obj[f].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func keys(obj map[string]any) []string {
	out := make([]string, 0, len(obj))
	for k := range obj {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
