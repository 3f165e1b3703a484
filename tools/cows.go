package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"rationsmart/backend"
)

// Accepted ranges for cow biometrics.
const (
	minBodyWeight = 100.0
	maxBodyWeight = 1200.0
	minMilkYield  = 0.0
	maxMilkYield  = 80.0
	maxPregnancy  = 300
)

type cowOut struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Breed          string   `json:"breed,omitempty"`
	BodyWeight     float64  `json:"body_weight"`
	Lactating      bool     `json:"lactating"`
	MilkProduction float64  `json:"milk_production"`
	TargetMilk     *float64 `json:"target_milk_yield,omitempty"`
}

func toCowOut(c backend.CowProfile) cowOut {
	return cowOut{
		ID:             c.ID,
		Name:           c.Name,
		Breed:          c.Breed,
		BodyWeight:     c.BodyWeight,
		Lactating:      c.Lactating,
		MilkProduction: c.MilkProduction,
		TargetMilk:     c.TargetMilkYield,
	}
}

var cowSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"id":                {Type: "string"},
		"name":              {Type: "string"},
		"breed":             {Type: "string"},
		"body_weight":       {Type: "number"},
		"lactating":         {Type: "boolean"},
		"milk_production":   {Type: "number"},
		"target_milk_yield": {Type: "number"},
	},
	Required: []string{"id", "name"},
}

func deviceSchema() *jsonschema.Schema {
	return stringSchema("The farmer's device or user id")
}

type CowsList struct{ backend Backend }

func NewCowsList(b Backend) *CowsList { return &CowsList{backend: b} }

func (t *CowsList) Name() string  { return "rationsmart.cows.list" }
func (t *CowsList) Title() string { return "List Cow Profiles" }
func (t *CowsList) Description() string {
	return "List the cows registered by a farmer.\n" +
		"Use to find a cow_id before generating a diet.\n" +
		"Read-only."
}

func (t *CowsList) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"device_id": deviceSchema(),
		},
		Required: []string{"device_id"},
	}
}

func (t *CowsList) OutputSchema() *jsonschema.Schema {
	return textOutputSchema(map[string]*jsonschema.Schema{
		"cows": {Type: "array", Items: cowSchema},
	})
}

func (t *CowsList) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	deviceID, err := requireString(input, "device_id")
	if err != nil {
		return nil, err
	}

	cows, err := t.backend.ListCows(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	out := struct {
		Text string   `json:"text"`
		Cows []cowOut `json:"cows"`
	}{Cows: make([]cowOut, 0, len(cows))}

	if len(cows) == 0 {
		out.Text = "No cows found."
		return output(out)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d cow(s):\n", len(cows))
	for _, c := range cows {
		status, milk := "Dry", "N/A"
		if c.Lactating {
			status, milk = "Lactating", fmt.Sprintf("%g L/day", c.MilkProduction)
		}
		fmt.Fprintf(&b, "- COW_ID: %s | %s\n  Breed: %s | %s | Milk: %s\n", c.ID, c.Name, orDefault(c.Breed, "Unknown"), status, milk)
		out.Cows = append(out.Cows, toCowOut(c))
	}
	out.Text = strings.TrimRight(b.String(), "\n")
	return output(out)
}

type CowsGet struct {
	backend  Backend
	verifier CowVerifier
}

func NewCowsGet(b Backend, v CowVerifier) *CowsGet { return &CowsGet{backend: b, verifier: v} }

func (t *CowsGet) Name() string  { return "rationsmart.cows.get" }
func (t *CowsGet) Title() string { return "Get Cow Details" }
func (t *CowsGet) Description() string {
	return "Show the full profile of one cow.\n" +
		"Read-only. Requires device_id and cow_id."
}

func (t *CowsGet) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"device_id": deviceSchema(),
			"cow_id":    stringSchema("The cow id from rationsmart.cows.list"),
		},
		Required: []string{"device_id", "cow_id"},
	}
}

func (t *CowsGet) OutputSchema() *jsonschema.Schema {
	return textOutputSchema(map[string]*jsonschema.Schema{"cow": cowSchema})
}

func (t *CowsGet) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
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

	target := "Not set"
	if cow.TargetMilkYield != nil {
		target = fmt.Sprintf("%g L/day", *cow.TargetMilkYield)
	}
	lactating := "No"
	if cow.Lactating {
		lactating = "Yes"
	}
	text := fmt.Sprintf("COW_ID: %s\nCow: %s\nBreed: %s\nWeight: %g kg\nLactating: %s\nMilk: %g L/day\nTarget: %s\nDays in Milk: %d\nParity: %d\nPregnancy: %d days",
		cow.ID, cow.Name, orDefault(cow.Breed, "Not specified"), cow.BodyWeight, lactating, cow.MilkProduction, target,
		derefInt(cow.DaysInMilk), derefInt(cow.Parity), derefInt(cow.DaysOfPregnancy))

	return output(struct {
		Text string `json:"text"`
		Cow  cowOut `json:"cow"`
	}{Text: text, Cow: toCowOut(cow)})
}

type CowsCreate struct{ backend Backend }

func NewCowsCreate(b Backend) *CowsCreate { return &CowsCreate{backend: b} }

func (t *CowsCreate) Name() string  { return "rationsmart.cows.create" }
func (t *CowsCreate) Title() string { return "Create Cow Profile" }
func (t *CowsCreate) Description() string {
	return "Register a new cow for a farmer.\n" +
		"Body weight must be between 100 and 1200 kg and milk yield between 0 and 80 L/day.\n" +
		"Requires device_id and name."
}

func (t *CowsCreate) InputSchema() *jsonschema.Schema {
	minW, maxW := minBodyWeight, maxBodyWeight
	minM, maxM := minMilkYield, maxMilkYield
	zero := 0.0
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"device_id":         deviceSchema(),
			"name":              stringSchema("Name of the cow"),
			"breed":             stringSchema("Breed, e.g. Holstein"),
			"body_weight":       {Type: "number", Description: "Body weight in kg (default 400)", Minimum: &minW, Maximum: &maxW},
			"lactating":         {Type: "boolean", Description: "Whether the cow is milking (default true)"},
			"milk_production":   {Type: "number", Description: "Current milk yield in L/day (default 10)", Minimum: &minM, Maximum: &maxM},
			"target_milk_yield": {Type: "number", Description: "Target milk yield in L/day", Minimum: &minM, Maximum: &maxM},
			"days_in_milk":      {Type: "integer", Description: "Days since calving (default 100)", Minimum: &zero},
			"parity":            {Type: "integer", Description: "Number of calvings (default 2)", Minimum: &zero},
			"days_of_pregnancy": {Type: "integer", Description: "Days pregnant (default 0)", Minimum: &zero},
		},
		Required: []string{"device_id", "name"},
	}
}

func (t *CowsCreate) OutputSchema() *jsonschema.Schema {
	return textOutputSchema(map[string]*jsonschema.Schema{"cow": cowSchema})
}

func (t *CowsCreate) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	cow, err := cowFromInput(input)
	if err != nil {
		return nil, err
	}

	created, err := t.backend.CreateCow(ctx, cow)
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("COW_ID: %s\nCreated cow profile:\n- Name: %s\n- Breed: %s\n- Weight: %g kg\n- Milk: %g L/day",
		created.ID, created.Name, orDefault(created.Breed, "Not specified"), created.BodyWeight, created.MilkProduction)
	return output(struct {
		Text string `json:"text"`
		Cow  cowOut `json:"cow"`
	}{Text: text, Cow: toCowOut(created)})
}

func cowFromInput(input map[string]any) (backend.CowProfile, error) {
	deviceID, err := requireString(input, "device_id")
	if err != nil {
		return backend.CowProfile{}, err
	}
	name, err := requireString(input, "name")
	if err != nil {
		return backend.CowProfile{}, err
	}

	cow := backend.CowProfile{
		OwnerID:        deviceID,
		Name:           name,
		Breed:          stringArg(input, "breed"),
		BodyWeight:     400,
		Lactating:      boolArg(input, "lactating", true),
		MilkProduction: 10,
	}

	if w, ok, err := floatArg(input, "body_weight"); err != nil {
		return backend.CowProfile{}, err
	} else if ok {
		cow.BodyWeight = w
	}
	if m, ok, err := floatArg(input, "milk_production"); err != nil {
		return backend.CowProfile{}, err
	} else if ok {
		cow.MilkProduction = m
	}
	if m, ok, err := floatArg(input, "target_milk_yield"); err != nil {
		return backend.CowProfile{}, err
	} else if ok {
		cow.TargetMilkYield = &m
	}

	dim, parity, preg := 100, 2, 0
	for _, f := range []struct {
		key string
		dst *int
	}{
		{"days_in_milk", &dim},
		{"parity", &parity},
		{"days_of_pregnancy", &preg},
	} {
		v, ok, err := intArg(input, f.key)
		if err != nil {
			return backend.CowProfile{}, err
		}
		if ok {
			*f.dst = v
		}
	}
	if err := checkBiometrics(&cow.BodyWeight, &cow.MilkProduction, cow.TargetMilkYield, &preg); err != nil {
		return backend.CowProfile{}, err
	}
	cow.DaysInMilk, cow.Parity, cow.DaysOfPregnancy = &dim, &parity, &preg
	return cow, nil
}

// checkBiometrics enforces the accepted ranges on whichever values are set.
func checkBiometrics(weight, milk, target *float64, pregnancy *int) error {
	if weight != nil && (*weight < minBodyWeight || *weight > maxBodyWeight) {
		return invalidInput("body_weight must be between %g and %g kg", minBodyWeight, maxBodyWeight)
	}
	if milk != nil && (*milk < minMilkYield || *milk > maxMilkYield) {
		return invalidInput("milk_production must be between %g and %g L/day", minMilkYield, maxMilkYield)
	}
	if target != nil && (*target < minMilkYield || *target > maxMilkYield) {
		return invalidInput("target_milk_yield must be between %g and %g L/day", minMilkYield, maxMilkYield)
	}
	if pregnancy != nil && *pregnancy > maxPregnancy {
		return invalidInput("days_of_pregnancy must be at most %d", maxPregnancy)
	}
	return nil
}

type CowsUpdate struct {
	backend  Backend
	verifier CowVerifier
}

func NewCowsUpdate(b Backend, v CowVerifier) *CowsUpdate { return &CowsUpdate{backend: b, verifier: v} }

func (t *CowsUpdate) Name() string  { return "rationsmart.cows.update" }
func (t *CowsUpdate) Title() string { return "Update Cow Profile" }
func (t *CowsUpdate) Description() string {
	return "Update fields on a cow profile.\n" +
		"Use when the farmer edits weight, milk, or status.\n" +
		"Writes to the database. Requires device_id and cow_id; send only changed fields."
}

func (t *CowsUpdate) InputSchema() *jsonschema.Schema {
	minW, maxW := minBodyWeight, maxBodyWeight
	minM, maxM := minMilkYield, maxMilkYield
	zero, maxP := 0.0, float64(maxPregnancy)
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"device_id":         deviceSchema(),
			"cow_id":            stringSchema("The cow id from rationsmart.cows.list"),
			"name":              stringSchema("New name of the cow"),
			"body_weight":       {Type: "number", Description: "Body weight in kg", Minimum: &minW, Maximum: &maxW},
			"lactating":         {Type: "boolean", Description: "Whether the cow is milking"},
			"milk_production":   {Type: "number", Description: "Current milk yield in L/day", Minimum: &minM, Maximum: &maxM},
			"target_milk_yield": {Type: "number", Description: "Target milk yield in L/day", Minimum: &minM, Maximum: &maxM},
			"days_in_milk":      {Type: "integer", Description: "Days since calving", Minimum: &zero},
			"parity":            {Type: "integer", Description: "Number of calvings", Minimum: &zero},
			"days_of_pregnancy": {Type: "integer", Description: "Days pregnant", Minimum: &zero, Maximum: &maxP},
		},
		Required: []string{"device_id", "cow_id"},
	}
}

func (t *CowsUpdate) OutputSchema() *jsonschema.Schema {
	return textOutputSchema(map[string]*jsonschema.Schema{
		"updated": {Type: "boolean"},
		"cow":     cowSchema,
	})
}

func (t *CowsUpdate) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	deviceID, err := requireString(input, "device_id")
	if err != nil {
		return nil, err
	}
	cowID, err := requireString(input, "cow_id")
	if err != nil {
		return nil, err
	}
	update, err := cowUpdateFromInput(input)
	if err != nil {
		return nil, err
	}
	if update.Empty() {
		return output(struct {
			Text    string `json:"text"`
			Updated bool   `json:"updated"`
		}{Text: fmt.Sprintf("COW_ID: %s\nNo updates provided.", cowID)})
	}

	cow, err := t.backend.GetCow(ctx, cowID, deviceID)
	if err != nil {
		return nil, err
	}
	if err := t.verifier.VerifyCow(cow, deviceID); err != nil {
		return nil, err
	}

	updated, err := t.backend.UpdateCow(ctx, cowID, deviceID, update)
	if err != nil {
		return nil, err
	}
	if updated.ID == "" {
		updated.ID = cowID
	}
	if updated.Name == "" {
		updated.Name = cow.Name
	}

	return output(struct {
		Text    string `json:"text"`
		Updated bool   `json:"updated"`
		Cow     cowOut `json:"cow"`
	}{
		Text:    fmt.Sprintf("COW_ID: %s\nUpdated %s successfully.", updated.ID, updated.Name),
		Updated: true,
		Cow:     toCowOut(updated),
	})
}

func cowUpdateFromInput(input map[string]any) (backend.CowUpdate, error) {
	var u backend.CowUpdate

	if raw, ok := input["name"]; ok && raw != nil {
		name := stringArg(input, "name")
		if name == "" {
			return u, invalidInput("name cannot be empty")
		}
		u.Name = &name
	}

	for _, f := range []struct {
		key string
		dst **float64
	}{
		{"body_weight", &u.BodyWeight},
		{"milk_production", &u.MilkProduction},
		{"target_milk_yield", &u.TargetMilkYield},
	} {
		v, ok, err := floatArg(input, f.key)
		if err != nil {
			return u, err
		}
		if ok {
			*f.dst = &v
		}
	}

	for _, f := range []struct {
		key string
		dst **int
	}{
		{"days_in_milk", &u.DaysInMilk},
		{"parity", &u.Parity},
		{"days_of_pregnancy", &u.DaysOfPregnancy},
	} {
		v, ok, err := intArg(input, f.key)
		if err != nil {
			return u, err
		}
		if ok {
			*f.dst = &v
		}
	}

	lactating, ok, err := optionalBool(input, "lactating")
	if err != nil {
		return u, err
	}
	if ok {
		u.Lactating = &lactating
	}

	return u, checkBiometrics(u.BodyWeight, u.MilkProduction, u.TargetMilkYield, u.DaysOfPregnancy)
}

type CowsDelete struct {
	backend  Backend
	verifier CowVerifier
}

func NewCowsDelete(b Backend, v CowVerifier) *CowsDelete { return &CowsDelete{backend: b, verifier: v} }

func (t *CowsDelete) Name() string  { return "rationsmart.cows.delete" }
func (t *CowsDelete) Title() string { return "Delete Cow Profile" }
func (t *CowsDelete) Description() string {
	return "Deactivate a cow profile, or delete it permanently.\n" +
		"Use when the farmer removes a cow.\n" +
		"Writes to the database. Requires device_id and cow_id."
}

func (t *CowsDelete) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"device_id": deviceSchema(),
			"cow_id":    stringSchema("The cow id from rationsmart.cows.list"),
			"permanent": {Type: "boolean", Description: "Delete permanently instead of deactivating (default false)"},
		},
		Required: []string{"device_id", "cow_id"},
	}
}

func (t *CowsDelete) OutputSchema() *jsonschema.Schema {
	return textOutputSchema(map[string]*jsonschema.Schema{
		"permanent": {Type: "boolean"},
	})
}

func (t *CowsDelete) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	deviceID, err := requireString(input, "device_id")
	if err != nil {
		return nil, err
	}
	cowID, err := requireString(input, "cow_id")
	if err != nil {
		return nil, err
	}
	permanent, _, err := optionalBool(input, "permanent")
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

	if err := t.backend.DeleteCow(ctx, cowID, deviceID, permanent); err != nil {
		return nil, err
	}

	text := fmt.Sprintf("COW_ID: %s\nCow profile %s deactivated.", cowID, cow.Name)
	if permanent {
		text = fmt.Sprintf("COW_ID: %s\nCow profile %s permanently deleted.", cowID, cow.Name)
	}
	return output(struct {
		Text      string `json:"text"`
		Permanent bool   `json:"permanent"`
	}{Text: text, Permanent: permanent})
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
