package diet

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rationsmart"
	"rationsmart/backend"
	"rationsmart/country"
	"rationsmart/ownership"
	"rationsmart/storage"
)

func price(p float64) *float64 { return &p }

// holsteinFixture seeds the backend with one Holstein cow and a two-feed
// catalog in India.
func holsteinFixture() *fakeBackend {
	fb := newFakeBackend()
	fb.cows["cow-1"] = backend.CowProfile{
		ID:             "cow-1",
		OwnerID:        "dev-1",
		Name:           "Ganga",
		Breed:          "Holstein",
		BodyWeight:     450,
		Lactating:      true,
		MilkProduction: 20,
	}
	fb.feeds["c-ind"] = []backend.FeedCatalogEntry{
		{ID: "silage", Name: "Maize Silage", BaselinePrice: price(0.1)},
		{ID: "meal", Name: "Soybean Meal", BaselinePrice: price(0.5)},
	}
	fb.optimizerResponse = `{"feeds":[
		{"feed_id":"silage","quantity_kg":15,"cost":1.5},
		{"feed_id":"meal","quantity_kg":3,"cost":1.5}
	]}`
	return fb
}

func newTestOrchestrator(fb *fakeBackend, opts OrchestratorOpts) *Orchestrator {
	opts.Backend = fb
	opts.Countries = country.NewResolver(country.NewCache(fb, country.CacheOpts{}), opts.Diagnostics)
	opts.Verifier = ownership.NewVerifier(fb)
	if opts.NewID == nil {
		opts.NewID = func() string { return "sim-fixed" }
	}
	return NewOrchestrator(opts)
}

func TestOrchestrator_GenerateHolstein(t *testing.T) {
	fb := holsteinFixture()
	o := newTestOrchestrator(fb, OrchestratorOpts{ServiceAccount: "svc"})

	res, err := o.Generate(context.Background(), Request{OwnerID: "dev-1", CowID: "cow-1", CountryID: "c-ind"})
	require.NoError(t, err)

	require.Len(t, fb.created, 1)
	saved := fb.created[0]
	assert.Equal(t, 3.0, saved.TotalCost)
	assert.Equal(t, "INR", saved.Currency)
	assert.Equal(t, backend.DietCreated, saved.Status)
	assert.True(t, saved.Active)
	assert.Equal(t, "dev-1", saved.OwnerID)
	assert.Equal(t, "cow-1", saved.CowID)
	assert.Equal(t, "sim-fixed", saved.SimulationID)
	assert.Equal(t, []backend.DietLine{
		{FeedID: "silage", Name: "Maize Silage", QuantityKg: 15, Cost: 1.5},
		{FeedID: "meal", Name: "Soybean Meal", QuantityKg: 3, Cost: 1.5},
	}, saved.Feeds)
	require.NotNil(t, saved.Summary)
	assert.Equal(t, 7.5, saved.Summary.Morning[0].QuantityKg)
	assert.Equal(t, 1.5, saved.Summary.Evening[1].QuantityKg)

	assert.Equal(t, "diet-1", res.Diet.ID)
	assert.True(t, strings.HasPrefix(res.Summary, "DIET_ID: diet-1\n"))
	assert.Contains(t, res.Summary, "Maize Silage")
	assert.Contains(t, res.Summary, "Soybean Meal")
	assert.Contains(t, res.Summary, "Holstein")
	assert.Contains(t, res.Summary, "450 kg")
	assert.Contains(t, res.Summary, "INR 3.00")
	assert.IsType(t, Parsed{}, res.Outcome)

	require.Len(t, fb.optimizeCalls, 1)
	call := fb.optimizeCalls[0]
	assert.Equal(t, "sim-fixed", call.SimulationID)
	assert.Equal(t, "svc", call.UserID)
	assert.ElementsMatch(t, []backend.FeedPrice{
		{FeedID: "silage", PricePerKg: 0.1},
		{FeedID: "meal", PricePerKg: 0.5},
	}, call.FeedSelection)
	assert.Equal(t, 450.0, call.CattleInfo.BodyWeight)
	assert.Equal(t, 20.0, call.CattleInfo.MilkProduction)
	assert.Equal(t, "Holstein", call.CattleInfo.Breed)
}

func TestOrchestrator_GenerateFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(fb *fakeBackend)
		req     Request
		wantErr error
	}{
		{
			name:    "cow owned by someone else",
			req:     Request{OwnerID: "intruder", CowID: "cow-1", CountryID: "c-ind"},
			wantErr: rationsmart.ErrAccessDenied,
		},
		{
			name:    "missing cow",
			req:     Request{OwnerID: "dev-1", CowID: "cow-404", CountryID: "c-ind"},
			wantErr: rationsmart.ErrNotFound,
		},
		{
			name:    "empty catalog",
			req:     Request{OwnerID: "dev-1", CowID: "cow-1", CountryID: "c-ken"},
			wantErr: rationsmart.ErrEmptyCatalog,
		},
		{
			name: "catalog without feed ids",
			setup: func(fb *fakeBackend) {
				fb.feeds["c-ind"] = []backend.FeedCatalogEntry{{Name: "Nameless"}}
			},
			req:     Request{OwnerID: "dev-1", CowID: "cow-1", CountryID: "c-ind"},
			wantErr: rationsmart.ErrEmptyCatalog,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := holsteinFixture()
			if tt.setup != nil {
				tt.setup(fb)
			}
			o := newTestOrchestrator(fb, OrchestratorOpts{})

			_, err := o.Generate(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, fb.optimizeCalls, "optimizer must not be called")
			assert.Empty(t, fb.created, "nothing may be persisted")
		})
	}
}

func TestOrchestrator_OptimizerFailureAbortsBeforePersist(t *testing.T) {
	fb := holsteinFixture()
	fb.optimizeErr = backend.ErrTimeout
	o := newTestOrchestrator(fb, OrchestratorOpts{})

	_, err := o.Generate(context.Background(), Request{OwnerID: "dev-1", CowID: "cow-1", CountryID: "c-ind"})
	assert.ErrorIs(t, err, backend.ErrTimeout)
	assert.Len(t, fb.optimizeCalls, 1)
	assert.Empty(t, fb.created)
}

func TestOrchestrator_UnparsedResponseStillPersists(t *testing.T) {
	fb := holsteinFixture()
	fb.optimizerResponse = `{"status":"infeasible","message":"no solution"}`
	sink := rationsmart.NewMemoryDiagnosticsSink()
	o := newTestOrchestrator(fb, OrchestratorOpts{Diagnostics: sink})

	res, err := o.Generate(context.Background(), Request{OwnerID: "dev-1", CowID: "cow-1", CountryID: "c-ind"})
	require.NoError(t, err)

	assert.IsType(t, Unparsed{}, res.Outcome)
	require.Len(t, fb.created, 1)
	assert.Empty(t, fb.created[0].Feeds)
	assert.Zero(t, fb.created[0].TotalCost)
	assert.True(t, strings.HasPrefix(res.Summary, "DIET_ID: diet-1"))
	assert.Contains(t, res.Summary, "did not return any feeds")

	diags := sink.OfKind(rationsmart.DiagnosticOptimizerUnparsed)
	require.Len(t, diags, 1)
	assert.Equal(t, []string{"message", "status"}, diags[0].Fields["top_level_keys"])
}

func TestOrchestrator_ResolvesCountryFromQuery(t *testing.T) {
	fb := holsteinFixture()
	fb.feeds["c-ken"] = fb.feeds["c-ind"]
	o := newTestOrchestrator(fb, OrchestratorOpts{})

	res, err := o.Generate(context.Background(), Request{
		OwnerID: "dev-1",
		CowID:   "cow-1",
		Country: country.Query{Code: "ke"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c-ken"}, fb.feedCountries)
	assert.Equal(t, "KES", res.Diet.Currency)
}

func TestOrchestrator_Archive(t *testing.T) {
	t.Run("raw response archived under simulation id", func(t *testing.T) {
		fb := holsteinFixture()
		archive := storage.NewTestArchive()
		o := newTestOrchestrator(fb, OrchestratorOpts{Archive: archive})

		_, err := o.Generate(context.Background(), Request{OwnerID: "dev-1", CowID: "cow-1", CountryID: "c-ind"})
		require.NoError(t, err)

		data, ok := archive.Get("sim-fixed")
		require.True(t, ok)
		assert.JSONEq(t, fb.optimizerResponse, string(data))
	})

	t.Run("archive failure does not fail generation", func(t *testing.T) {
		fb := holsteinFixture()
		sink := rationsmart.NewMemoryDiagnosticsSink()
		o := newTestOrchestrator(fb, OrchestratorOpts{Archive: storage.NewTestArchiveWithError(), Diagnostics: sink})

		_, err := o.Generate(context.Background(), Request{OwnerID: "dev-1", CowID: "cow-1", CountryID: "c-ind"})
		require.NoError(t, err)
		assert.Len(t, fb.created, 1)
		assert.Len(t, sink.OfKind(rationsmart.DiagnosticArchiveFailed), 1)
	})
}

func TestOrchestrator_FreshSimulationIDs(t *testing.T) {
	fb := holsteinFixture()
	o := NewOrchestrator(OrchestratorOpts{
		Backend:   fb,
		Countries: country.NewResolver(country.NewCache(fb, country.CacheOpts{}), nil),
		Verifier:  ownership.NewVerifier(fb),
	})

	for i := 0; i < 2; i++ {
		_, err := o.Generate(context.Background(), Request{OwnerID: "dev-1", CowID: "cow-1", CountryID: "c-ind"})
		require.NoError(t, err)
	}
	require.Len(t, fb.optimizeCalls, 2)
	assert.NotEmpty(t, fb.optimizeCalls[0].SimulationID)
	assert.NotEqual(t, fb.optimizeCalls[0].SimulationID, fb.optimizeCalls[1].SimulationID)
}

func TestCattleInfoFor(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		info := CattleInfoFor(backend.CowProfile{Lactating: true, MilkProduction: 12})
		assert.Equal(t, backend.CattleInfo{
			BodyWeight:      400,
			Lactating:       true,
			MilkProduction:  12,
			DaysInMilk:      100,
			Parity:          2,
			DaysOfPregnancy: 0,
			MilkProtein:     3.5,
			MilkFat:         4.0,
			Temperature:     25,
			Topography:      "Flat",
			Distance:        1,
			CalvingInterval: 370,
			BodyWeightGain:  0.2,
			BodyCondition:   3,
		}, info)
	})

	t.Run("profile values win", func(t *testing.T) {
		dim, parity, preg := 45, 4, 120
		info := CattleInfoFor(backend.CowProfile{
			BodyWeight:         520,
			MilkProduction:     18,
			TargetMilkYield:    price(24),
			DaysInMilk:         &dim,
			Parity:             &parity,
			DaysOfPregnancy:    &preg,
			MilkFatPercent:     price(3.8),
			MilkProteinPercent: price(3.2),
		})
		assert.Equal(t, 520.0, info.BodyWeight)
		assert.Equal(t, 24.0, info.MilkProduction)
		assert.Equal(t, 45, info.DaysInMilk)
		assert.Equal(t, 4, info.Parity)
		assert.Equal(t, 120, info.DaysOfPregnancy)
		assert.Equal(t, 3.8, info.MilkFat)
		assert.Equal(t, 3.2, info.MilkProtein)
	})
}
