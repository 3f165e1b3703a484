package diet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"rationsmart"
	"rationsmart/backend"
	"rationsmart/country"
	"rationsmart/storage"
)

// Defaults for optional biometrics, describing a typical mid-lactation cow.
const (
	DefaultBodyWeight      = 400.0
	DefaultDaysInMilk      = 100
	DefaultParity          = 2
	DefaultDaysOfPregnancy = 0
	DefaultMilkProtein     = 3.5
	DefaultMilkFat         = 4.0
	DefaultTemperature     = 25.0
	DefaultTopography      = "Flat"
	DefaultDistance        = 1.0
	DefaultCalvingInterval = 370
	DefaultBodyWeightGain  = 0.2
	DefaultBodyCondition   = 3.0
)

// Backend is the part of the backend client the orchestrator needs.
type Backend interface {
	GetCow(ctx context.Context, cowID, ownerID string) (backend.CowProfile, error)
	Feeds(ctx context.Context, countryID string) ([]backend.FeedCatalogEntry, error)
	Optimize(ctx context.Context, req backend.OptimizerRequest) (json.RawMessage, error)
	CreateDiet(ctx context.Context, rec backend.DietRecord) (backend.DietRecord, error)
}

type CountryLookup interface {
	Resolve(ctx context.Context, q country.Query) (*backend.Country, error)
	ByID(ctx context.Context, id string) (*backend.Country, error)
}

type CowVerifier interface {
	VerifyCow(cow backend.CowProfile, caller string) error
}

// Request asks for a diet for one cow. CountryID wins over Country; when it
// is empty the query is resolved.
type Request struct {
	OwnerID   string
	CowID     string
	CountryID string
	Country   country.Query
}

type Result struct {
	Diet    backend.DietRecord
	Cow     backend.CowProfile
	Outcome Outcome
	Summary string
}

// Orchestrator runs diet generation: fetch the cow and feed catalog,
// authorize, call the optimizer, persist the diet and summarize it.
type Orchestrator struct {
	backend        Backend
	countries      CountryLookup
	verifier       CowVerifier
	archive        storage.Archive
	diagnostics    rationsmart.DiagnosticsSink
	serviceAccount string
	debug          bool
	newID          func() string
	tracer         trace.Tracer

	generatedCounter metric.Int64Counter
}

type OrchestratorOpts struct {
	Backend   Backend
	Countries CountryLookup
	Verifier  CowVerifier
	// Archive, when set, receives every raw optimizer response.
	Archive        storage.Archive
	Diagnostics    rationsmart.DiagnosticsSink
	ServiceAccount string
	Debug          bool
	NewID          func() string
	Tracer         trace.Tracer
	Meter          metric.Meter
}

func NewOrchestrator(opts OrchestratorOpts) *Orchestrator {
	if opts.Diagnostics == nil {
		opts.Diagnostics = rationsmart.NoOpDiagnosticsSink{}
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.ServiceAccount == "" {
		opts.ServiceAccount = "rationsmart-tools"
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(rationsmart.TracerNameDiet)
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter(rationsmart.TracerNameDiet)
	}

	generatedCounter, _ := opts.Meter.Int64Counter("diets_generated_total",
		metric.WithDescription("Total number of generated diets by parse outcome"))

	return &Orchestrator{
		backend:          opts.Backend,
		countries:        opts.Countries,
		verifier:         opts.Verifier,
		archive:          opts.Archive,
		diagnostics:      opts.Diagnostics,
		serviceAccount:   opts.ServiceAccount,
		debug:            opts.Debug,
		newID:            opts.NewID,
		tracer:           opts.Tracer,
		generatedCounter: generatedCounter,
	}
}

// Generate runs the whole pipeline. Any failure before the diet is persisted
// aborts without writing anything.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (Result, error) {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.Generate", trace.WithAttributes(
		attribute.String("cow.id", req.CowID),
	))
	defer span.End()

	res, err := o.generate(ctx, req, span)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	return res, err
}

func (o *Orchestrator) generate(ctx context.Context, req Request, span trace.Span) (Result, error) {
	if strings.TrimSpace(req.OwnerID) == "" || strings.TrimSpace(req.CowID) == "" {
		return Result{}, errors.New("owner and cow are required")
	}

	countryID, err := o.countryID(ctx, req)
	if err != nil {
		return Result{}, err
	}
	span.SetAttributes(attribute.String("country.id", countryID))

	cow, catalog, err := o.fetchContext(ctx, req.OwnerID, req.CowID, countryID)
	if err != nil {
		return Result{}, err
	}
	span.AddEvent("context fetched", trace.WithAttributes(attribute.Int("catalog.size", len(catalog))))

	if err := o.verifier.VerifyCow(cow, req.OwnerID); err != nil {
		return Result{}, err
	}

	optReq := o.buildRequest(cow, catalog)
	span.SetAttributes(attribute.String("simulation.id", optReq.SimulationID))

	slog.Info("DIET: Invoking optimizer",
		"simulation_id", optReq.SimulationID,
		"cow_id", cow.ID,
		"country_id", countryID,
		"feeds", len(optReq.FeedSelection),
	)
	raw, err := o.backend.Optimize(ctx, optReq)
	if err != nil {
		return Result{}, err
	}
	rationsmart.DebugDump(o.debug, "optimizer response", string(raw))
	o.archiveResponse(ctx, optReq.SimulationID, raw)

	byID := make(map[string]backend.FeedCatalogEntry, len(catalog))
	for _, f := range catalog {
		byID[f.ID] = f
	}

	outcome := Parse(raw, byID)
	var lines []backend.DietLine
	var reported *float64
	switch out := outcome.(type) {
	case Parsed:
		lines = out.Lines
		reported = out.ReportedTotal
	case Unparsed:
		rationsmart.RecordDiagnostic(o.diagnostics, rationsmart.Diagnostic{
			Kind:      rationsmart.DiagnosticOptimizerUnparsed,
			Operation: "generate-diet",
			Message:   "Optimizer response had no recognised feed array",
			Fields: map[string]any{
				"simulation_id":   optReq.SimulationID,
				"top_level_keys":  out.TopLevelFields,
				"solution_fields": out.SolutionFields,
			},
		})
	}

	rec := backend.DietRecord{
		OwnerID:      req.OwnerID,
		CowID:        cow.ID,
		SimulationID: optReq.SimulationID,
		Name:         "Diet for " + orDefault(cow.Name, "cow"),
		Status:       backend.DietCreated,
		Active:       true,
		Feeds:        lines,
		TotalCost:    totalCost(lines, reported),
		Currency:     o.currency(ctx, countryID),
	}
	schedule := SplitSchedule(lines)
	rec.Summary = &schedule

	saved, err := o.backend.CreateDiet(ctx, rec)
	if err != nil {
		return Result{}, fmt.Errorf("persist diet: %w", err)
	}
	rec.ID = saved.ID
	rec.CreatedAt = saved.CreatedAt

	o.generatedCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("parsed", len(lines) > 0)))
	slog.Info("DIET: Diet generated",
		"diet_id", rec.ID,
		"simulation_id", rec.SimulationID,
		"lines", len(lines),
		"total_cost", rec.TotalCost,
	)

	return Result{
		Diet:    rec,
		Cow:     cow,
		Outcome: outcome,
		Summary: Summarize(rec, cow),
	}, nil
}

func (o *Orchestrator) countryID(ctx context.Context, req Request) (string, error) {
	if id := strings.TrimSpace(req.CountryID); id != "" {
		return id, nil
	}
	c, err := o.countries.Resolve(ctx, req.Country)
	if err != nil {
		return "", err
	}
	if c == nil {
		return "", fmt.Errorf("%w: no active country", rationsmart.ErrNotFound)
	}
	return c.ID, nil
}

// fetchContext loads the cow and the feed catalog concurrently. The first
// failure cancels the other fetch.
func (o *Orchestrator) fetchContext(ctx context.Context, ownerID, cowID, countryID string) (backend.CowProfile, []backend.FeedCatalogEntry, error) {
	var cow backend.CowProfile
	var catalog []backend.FeedCatalogEntry

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := o.backend.GetCow(gctx, cowID, ownerID)
		switch {
		case err == nil:
			cow = c
			return nil
		case backend.IsNotFound(err):
			return fmt.Errorf("%w: cow %s", rationsmart.ErrNotFound, cowID)
		case backend.IsForbidden(err):
			return fmt.Errorf("%w: cow %s", rationsmart.ErrAccessDenied, cowID)
		default:
			return err
		}
	})
	g.Go(func() error {
		feeds, err := o.backend.Feeds(gctx, countryID)
		if err != nil {
			if backend.IsNotFound(err) {
				return fmt.Errorf("%w: country %s", rationsmart.ErrEmptyCatalog, countryID)
			}
			return err
		}
		for _, f := range feeds {
			if f.ID != "" {
				catalog = append(catalog, f)
			}
		}
		if len(catalog) == 0 {
			return fmt.Errorf("%w: country %s", rationsmart.ErrEmptyCatalog, countryID)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return backend.CowProfile{}, nil, err
	}
	return cow, catalog, nil
}

func (o *Orchestrator) buildRequest(cow backend.CowProfile, catalog []backend.FeedCatalogEntry) backend.OptimizerRequest {
	prices := make([]backend.FeedPrice, 0, len(catalog))
	for _, f := range catalog {
		prices = append(prices, backend.FeedPrice{FeedID: f.ID, PricePerKg: f.Price()})
	}
	return backend.OptimizerRequest{
		SimulationID:  o.newID(),
		UserID:        o.serviceAccount,
		CattleInfo:    CattleInfoFor(cow),
		FeedSelection: prices,
	}
}

// CattleInfoFor projects a cow profile into the optimizer's biometrics
// snapshot, filling unset fields with defaults.
func CattleInfoFor(cow backend.CowProfile) backend.CattleInfo {
	info := backend.CattleInfo{
		BodyWeight:      cow.BodyWeight,
		Breed:           cow.Breed,
		Lactating:       cow.Lactating,
		MilkProduction:  cow.MilkProduction,
		DaysInMilk:      DefaultDaysInMilk,
		Parity:          DefaultParity,
		DaysOfPregnancy: DefaultDaysOfPregnancy,
		MilkProtein:     DefaultMilkProtein,
		MilkFat:         DefaultMilkFat,
		Temperature:     DefaultTemperature,
		Topography:      DefaultTopography,
		Distance:        DefaultDistance,
		CalvingInterval: DefaultCalvingInterval,
		BodyWeightGain:  DefaultBodyWeightGain,
		BodyCondition:   DefaultBodyCondition,
	}
	if info.BodyWeight <= 0 {
		info.BodyWeight = DefaultBodyWeight
	}
	if cow.TargetMilkYield != nil && *cow.TargetMilkYield > 0 {
		info.MilkProduction = *cow.TargetMilkYield
	}
	if cow.DaysInMilk != nil {
		info.DaysInMilk = *cow.DaysInMilk
	}
	if cow.Parity != nil {
		info.Parity = *cow.Parity
	}
	if cow.DaysOfPregnancy != nil {
		info.DaysOfPregnancy = *cow.DaysOfPregnancy
	}
	if cow.MilkProteinPercent != nil {
		info.MilkProtein = *cow.MilkProteinPercent
	}
	if cow.MilkFatPercent != nil {
		info.MilkFat = *cow.MilkFatPercent
	}
	return info
}

func (o *Orchestrator) currency(ctx context.Context, countryID string) string {
	c, err := o.countries.ByID(ctx, countryID)
	if err != nil {
		slog.Warn("DIET: Failed to resolve currency", "country_id", countryID, "error", err)
		return ""
	}
	if c == nil {
		return ""
	}
	return c.Currency
}

func (o *Orchestrator) archiveResponse(ctx context.Context, simulationID string, raw []byte) {
	if o.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := o.archive.Save(ctx, simulationID, raw); err != nil {
		rationsmart.RecordDiagnostic(o.diagnostics, rationsmart.Diagnostic{
			Kind:      rationsmart.DiagnosticArchiveFailed,
			Operation: "generate-diet",
			Message:   "Failed to archive optimizer response",
			Fields:    map[string]any{"simulation_id": simulationID, "error": err.Error()},
		})
	}
}

// totalCost sums line costs. The optimizer's own total is only used when no
// line carried a cost.
func totalCost(lines []backend.DietLine, reported *float64) float64 {
	var sum float64
	for _, l := range lines {
		sum += l.Cost
	}
	if sum == 0 && reported != nil && *reported > 0 {
		return roundTo(*reported, 2)
	}
	return roundTo(sum, 2)
}
