package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"rationsmart"
	"rationsmart/backend"
	"rationsmart/diet"
)

type dietLineOut struct {
	FeedID     string  `json:"feed_id"`
	Name       string  `json:"name"`
	QuantityKg float64 `json:"quantity_kg"`
	Cost       float64 `json:"cost"`
}

type dietOut struct {
	ID           string        `json:"id"`
	CowID        string        `json:"cow_id"`
	Name         string        `json:"name,omitempty"`
	SimulationID string        `json:"simulation_id,omitempty"`
	Status       string        `json:"status"`
	Active       bool          `json:"is_active"`
	TotalCost    float64       `json:"total_cost_per_day"`
	Currency     string        `json:"currency,omitempty"`
	Feeds        []dietLineOut `json:"feeds"`
}

func toDietOut(rec backend.DietRecord) dietOut {
	out := dietOut{
		ID:           rec.ID,
		CowID:        rec.CowID,
		Name:         rec.Name,
		SimulationID: rec.SimulationID,
		Status:       string(rec.Status),
		Active:       rec.Active,
		TotalCost:    rec.TotalCost,
		Currency:     rec.Currency,
		Feeds:        make([]dietLineOut, 0, len(rec.Feeds)),
	}
	for _, l := range rec.Feeds {
		out.Feeds = append(out.Feeds, dietLineOut(l))
	}
	return out
}

var dietSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"id":                 {Type: "string"},
		"cow_id":             {Type: "string"},
		"name":               {Type: "string"},
		"status":             {Type: "string"},
		"is_active":          {Type: "boolean"},
		"total_cost_per_day": {Type: "number"},
		"currency":           {Type: "string"},
		"feeds": {
			Type: "array",
			Items: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"feed_id":     {Type: "string"},
					"name":        {Type: "string"},
					"quantity_kg": {Type: "number"},
					"cost":        {Type: "number"},
				},
			},
		},
	},
	Required: []string{"id", "status"},
}

type DietsGenerate struct{ diets DietGenerator }

func NewDietsGenerate(d DietGenerator) *DietsGenerate { return &DietsGenerate{diets: d} }

func (t *DietsGenerate) Name() string  { return "rationsmart.diets.generate" }
func (t *DietsGenerate) Title() string { return "Generate Diet" }
func (t *DietsGenerate) Description() string {
	return "Generate and save a least-cost diet for a cow from the country's feed catalog.\n" +
		"The reply starts with DIET_ID, which rationsmart.diets.follow accepts.\n" +
		"Requires device_id, cow_id, and a country (country_id, country_code/name or latitude/longitude)."
}

func (t *DietsGenerate) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"device_id":    deviceSchema(),
			"cow_id":       stringSchema("The cow id from rationsmart.cows.list"),
			"country_id":   stringSchema("The country id, when already known"),
			"country_code": stringSchema("ISO country code"),
			"country_name": stringSchema("Country name"),
			"latitude":     numberSchema("Latitude"),
			"longitude":    numberSchema("Longitude"),
		},
		Required: []string{"device_id", "cow_id"},
	}
}

func (t *DietsGenerate) OutputSchema() *jsonschema.Schema {
	return textOutputSchema(map[string]*jsonschema.Schema{
		"diet":   dietSchema,
		"parsed": {Type: "boolean"},
	})
}

func (t *DietsGenerate) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	deviceID, err := requireString(input, "device_id")
	if err != nil {
		return nil, err
	}
	cowID, err := requireString(input, "cow_id")
	if err != nil {
		return nil, err
	}
	q, err := countryQuery(input)
	if err != nil {
		return nil, err
	}
	countryID := stringArg(input, "country_id")
	if countryID == "" && emptyQuery(q) {
		return nil, invalidInput("country_id or country_code/latitude+longitude is required")
	}

	res, err := t.diets.Generate(ctx, diet.Request{
		OwnerID:   deviceID,
		CowID:     cowID,
		CountryID: countryID,
		Country:   q,
	})
	if err != nil {
		return nil, err
	}

	_, parsed := res.Outcome.(diet.Parsed)
	return output(struct {
		Text   string  `json:"text"`
		Diet   dietOut `json:"diet"`
		Parsed bool    `json:"parsed"`
	}{Text: res.Summary, Diet: toDietOut(res.Diet), Parsed: parsed})
}

func dietTargetSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"device_id": deviceSchema(),
			"diet_id":   stringSchema("The DIET_ID returned by rationsmart.diets.generate"),
		},
		Required: []string{"device_id", "diet_id"},
	}
}

func dietTarget(input map[string]any) (deviceID, dietID string, err error) {
	if deviceID, err = requireString(input, "device_id"); err != nil {
		return "", "", err
	}
	if dietID, err = requireString(input, "diet_id"); err != nil {
		return "", "", err
	}
	return deviceID, dietID, nil
}

type DietsFollow struct{ followUps DietFollower }

func NewDietsFollow(f DietFollower) *DietsFollow { return &DietsFollow{followUps: f} }

func (t *DietsFollow) Name() string  { return "rationsmart.diets.follow" }
func (t *DietsFollow) Title() string { return "Follow Diet" }
func (t *DietsFollow) Description() string {
	return "Start following a saved diet and schedule a check-in in 7 days.\n" +
		"Safe to repeat: following a diet twice changes nothing.\n" +
		"Requires device_id and diet_id."
}

func (t *DietsFollow) InputSchema() *jsonschema.Schema { return dietTargetSchema() }

func (t *DietsFollow) OutputSchema() *jsonschema.Schema {
	return textOutputSchema(map[string]*jsonschema.Schema{
		"diet":         dietSchema,
		"changed":      {Type: "boolean"},
		"follow_up_at": {Type: "string"},
	})
}

func (t *DietsFollow) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	deviceID, dietID, err := dietTarget(input)
	if err != nil {
		return nil, err
	}

	tr, err := t.followUps.Follow(ctx, deviceID, dietID)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "DIET_ID: %s\n", tr.Diet.ID)
	followUpAt := ""
	if tr.Changed {
		fmt.Fprintf(&b, "Now following: %s\nFollow-up reminders are now enabled.", orDefault(tr.Diet.Name, "diet"))
		if tr.FollowUp != nil {
			followUpAt = tr.FollowUp.ScheduledAt
			if at, err := time.Parse(time.RFC3339, followUpAt); err == nil {
				fmt.Fprintf(&b, "\nNext check-in: %s", at.Format(time.DateOnly))
			}
		}
	} else {
		fmt.Fprintf(&b, "Already following: %s", orDefault(tr.Diet.Name, "diet"))
	}

	return output(struct {
		Text       string  `json:"text"`
		Diet       dietOut `json:"diet"`
		Changed    bool    `json:"changed"`
		FollowUpAt string  `json:"follow_up_at,omitempty"`
	}{Text: b.String(), Diet: toDietOut(tr.Diet), Changed: tr.Changed, FollowUpAt: followUpAt})
}

type DietsUnfollow struct{ followUps DietFollower }

func NewDietsUnfollow(f DietFollower) *DietsUnfollow { return &DietsUnfollow{followUps: f} }

func (t *DietsUnfollow) Name() string  { return "rationsmart.diets.unfollow" }
func (t *DietsUnfollow) Title() string { return "Stop Following Diet" }
func (t *DietsUnfollow) Description() string {
	return "Stop following a diet and archive it.\n" +
		"Safe to repeat. Requires device_id and diet_id."
}

func (t *DietsUnfollow) InputSchema() *jsonschema.Schema { return dietTargetSchema() }

func (t *DietsUnfollow) OutputSchema() *jsonschema.Schema {
	return textOutputSchema(map[string]*jsonschema.Schema{
		"diet":    dietSchema,
		"changed": {Type: "boolean"},
	})
}

func (t *DietsUnfollow) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	deviceID, dietID, err := dietTarget(input)
	if err != nil {
		return nil, err
	}

	tr, err := t.followUps.Unfollow(ctx, deviceID, dietID)
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("DIET_ID: %s\nStopped following the diet.", tr.Diet.ID)
	if !tr.Changed {
		text = fmt.Sprintf("DIET_ID: %s\nThe diet was not being followed.", tr.Diet.ID)
	}
	return output(struct {
		Text    string  `json:"text"`
		Diet    dietOut `json:"diet"`
		Changed bool    `json:"changed"`
	}{Text: text, Diet: toDietOut(tr.Diet), Changed: tr.Changed})
}

type DietsScheduleGet struct {
	backend  Backend
	verifier CowVerifier
}

func NewDietsScheduleGet(b Backend, v CowVerifier) *DietsScheduleGet {
	return &DietsScheduleGet{backend: b, verifier: v}
}

func (t *DietsScheduleGet) Name() string  { return "rationsmart.diets.schedule.get" }
func (t *DietsScheduleGet) Title() string { return "Get Diet Schedule" }
func (t *DietsScheduleGet) Description() string {
	return "Show the morning and evening feeding schedule of the diet a cow is following.\n" +
		"Read-only. Requires device_id and cow_id."
}

func (t *DietsScheduleGet) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"device_id": deviceSchema(),
			"cow_id":    stringSchema("The cow id from rationsmart.cows.list"),
		},
		Required: []string{"device_id", "cow_id"},
	}
}

func (t *DietsScheduleGet) OutputSchema() *jsonschema.Schema {
	return textOutputSchema(map[string]*jsonschema.Schema{
		"diet":   dietSchema,
		"active": {Type: "boolean"},
	})
}

// NoActiveDietText is returned when a cow follows no diet.
const NoActiveDietText = "No active diet. Generate a diet and use 'rationsmart.diets.follow' to start following it."

func (t *DietsScheduleGet) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	deviceID, err := requireString(input, "device_id")
	if err != nil {
		return nil, err
	}
	cowID, err := requireString(input, "cow_id")
	if err != nil {
		return nil, err
	}

	cow, err := t.backend.GetCow(ctx, cowID, deviceID)
	if err != nil {
		return nil, err
	}
	if err := t.verifier.VerifyCow(cow, deviceID); err != nil {
		return nil, err
	}

	rec, err := t.backend.ActiveDiet(ctx, cowID, deviceID)
	if err != nil {
		if backend.IsNotFound(err) || errors.Is(err, rationsmart.ErrNotFound) {
			return output(struct {
				Text   string `json:"text"`
				Active bool   `json:"active"`
			}{Text: NoActiveDietText})
		}
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "DIET_ID: %s\nSchedule for %s:\n\n%s", rec.ID, orDefault(cow.Name, "cow"), diet.FormatSchedule(rec.Summary))
	if rec.TotalCost > 0 {
		fmt.Fprintf(&b, "\n\nDaily Cost: %s", diet.FormatCost(rec.Currency, rec.TotalCost))
	}

	return output(struct {
		Text   string  `json:"text"`
		Diet   dietOut `json:"diet"`
		Active bool    `json:"active"`
	}{Text: b.String(), Diet: toDietOut(rec), Active: true})
}

type DietsHistoryList struct{ backend Backend }

func NewDietsHistoryList(b Backend) *DietsHistoryList { return &DietsHistoryList{backend: b} }

func (t *DietsHistoryList) Name() string  { return "rationsmart.diets.history.list" }
func (t *DietsHistoryList) Title() string { return "List Diet History" }
func (t *DietsHistoryList) Description() string {
	return "List saved diets of a farmer, optionally for one cow.\n" +
		"Read-only. Requires device_id."
}

func (t *DietsHistoryList) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"device_id": deviceSchema(),
			"cow_id":    stringSchema("Only list diets of this cow"),
		},
		Required: []string{"device_id"},
	}
}

func (t *DietsHistoryList) OutputSchema() *jsonschema.Schema {
	return textOutputSchema(map[string]*jsonschema.Schema{
		"diets": {Type: "array", Items: dietSchema},
	})
}

func (t *DietsHistoryList) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	deviceID, err := requireString(input, "device_id")
	if err != nil {
		return nil, err
	}

	diets, err := t.backend.ListDiets(ctx, deviceID, stringArg(input, "cow_id"))
	if err != nil {
		return nil, err
	}

	out := struct {
		Text  string    `json:"text"`
		Diets []dietOut `json:"diets"`
	}{Diets: make([]dietOut, 0, len(diets))}

	// Records of other owners are never listed, even if the backend returns them.
	var b strings.Builder
	for _, d := range diets {
		if d.OwnerID != "" && d.OwnerID != deviceID {
			continue
		}
		active := ""
		if d.Active {
			active = " (ACTIVE)"
		}
		cost := ""
		if d.TotalCost > 0 {
			cost = fmt.Sprintf(", %s/day", diet.FormatCost(d.Currency, d.TotalCost))
		}
		fmt.Fprintf(&b, "- DIET_ID: %s | %s%s%s\n", d.ID, orDefault(d.Name, "Unnamed"), active, cost)
		out.Diets = append(out.Diets, toDietOut(d))
	}

	if len(out.Diets) == 0 {
		out.Text = "No diet history."
		return output(out)
	}
	out.Text = fmt.Sprintf("Found %d diet(s):\n%s", len(out.Diets), strings.TrimRight(b.String(), "\n"))
	return output(out)
}
