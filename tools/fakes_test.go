package tools

import (
	"context"
	"net/http"

	"rationsmart"
	"rationsmart/backend"
	"rationsmart/country"
	"rationsmart/diet"
)

type fakeBackend struct {
	breeds    []backend.Breed
	cows      map[string]backend.CowProfile
	diets     []backend.DietRecord
	active    map[string]backend.DietRecord
	created   []backend.CowProfile
	updates   []backend.CowUpdate
	deleted   map[string]bool
	listCowID string
	err       error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		breeds: []backend.Breed{{Name: "Holstein"}, {Name: "Gir"}},
		cows: map[string]backend.CowProfile{
			"cow-1": {ID: "cow-1", OwnerID: "dev-1", Name: "Ganga", Breed: "Holstein", BodyWeight: 450, Lactating: true, MilkProduction: 20},
		},
		active:  map[string]backend.DietRecord{},
		deleted: map[string]bool{},
	}
}

func (f *fakeBackend) Breeds(ctx context.Context, countryID string) ([]backend.Breed, error) {
	return f.breeds, f.err
}

func (f *fakeBackend) ListCows(ctx context.Context, ownerID string) ([]backend.CowProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []backend.CowProfile
	for _, c := range f.cows {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeBackend) GetCow(ctx context.Context, cowID, ownerID string) (backend.CowProfile, error) {
	if f.err != nil {
		return backend.CowProfile{}, f.err
	}
	c, ok := f.cows[cowID]
	if !ok {
		return backend.CowProfile{}, &backend.UpstreamError{Method: http.MethodGet, Path: "/cow-profiles/detail/" + cowID, Status: http.StatusNotFound}
	}
	return c, nil
}

func (f *fakeBackend) CreateCow(ctx context.Context, cow backend.CowProfile) (backend.CowProfile, error) {
	if f.err != nil {
		return backend.CowProfile{}, f.err
	}
	f.created = append(f.created, cow)
	cow.ID = "cow-new"
	return cow, nil
}

func (f *fakeBackend) UpdateCow(ctx context.Context, cowID, ownerID string, update backend.CowUpdate) (backend.CowProfile, error) {
	if f.err != nil {
		return backend.CowProfile{}, f.err
	}
	f.updates = append(f.updates, update)
	cow := f.cows[cowID]
	if update.Name != nil {
		cow.Name = *update.Name
	}
	if update.BodyWeight != nil {
		cow.BodyWeight = *update.BodyWeight
	}
	if update.Lactating != nil {
		cow.Lactating = *update.Lactating
	}
	f.cows[cowID] = cow
	return cow, nil
}

// DeleteCow records whether the cow was removed permanently.
func (f *fakeBackend) DeleteCow(ctx context.Context, cowID, ownerID string, hard bool) error {
	if f.err != nil {
		return f.err
	}
	f.deleted[cowID] = hard
	return nil
}

func (f *fakeBackend) ListDiets(ctx context.Context, ownerID, cowID string) ([]backend.DietRecord, error) {
	f.listCowID = cowID
	return f.diets, f.err
}

func (f *fakeBackend) ActiveDiet(ctx context.Context, cowID, ownerID string) (backend.DietRecord, error) {
	if f.err != nil {
		return backend.DietRecord{}, f.err
	}
	rec, ok := f.active[cowID]
	if !ok {
		return backend.DietRecord{}, &backend.UpstreamError{Method: http.MethodGet, Path: "/bot-diet-history/active/" + cowID, Status: http.StatusNotFound}
	}
	return rec, nil
}

type fakeCountries struct {
	countries []backend.Country
	queries   []country.Query
	located   *backend.Country
	err       error
}

func (f *fakeCountries) Resolve(ctx context.Context, q country.Query) (*backend.Country, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.countries) == 0 {
		return nil, nil
	}
	c := f.countries[0]
	return &c, nil
}

func (f *fakeCountries) Locate(ctx context.Context, lat, lon float64) (*backend.Country, error) {
	return f.located, f.err
}

func (f *fakeCountries) List(ctx context.Context) ([]backend.Country, error) {
	return f.countries, f.err
}

type fakeVerifier struct{}

func (fakeVerifier) VerifyCow(cow backend.CowProfile, caller string) error {
	if cow.OwnerID != caller {
		return rationsmart.ErrAccessDenied
	}
	return nil
}

type fakeGenerator struct {
	requests []diet.Request
	result   diet.Result
	err      error
}

func (f *fakeGenerator) Generate(ctx context.Context, req diet.Request) (diet.Result, error) {
	f.requests = append(f.requests, req)
	return f.result, f.err
}

type fakeFollower struct {
	follow   diet.Transition
	unfollow diet.Transition
	err      error
}

func (f *fakeFollower) Follow(ctx context.Context, caller, dietID string) (diet.Transition, error) {
	return f.follow, f.err
}

func (f *fakeFollower) Unfollow(ctx context.Context, caller, dietID string) (diet.Transition, error) {
	return f.unfollow, f.err
}

type fixture struct {
	backend   *fakeBackend
	countries *fakeCountries
	generator *fakeGenerator
	follower  *fakeFollower
	sink      *rationsmart.MemoryDiagnosticsSink
	registry  *Registry
}

func newFixture() *fixture {
	f := &fixture{
		backend: newFakeBackend(),
		countries: &fakeCountries{countries: []backend.Country{
			{ID: "c-ind", Name: "India", Code: "IND", Currency: "INR", Active: true},
			{ID: "c-ken", Name: "Kenya", Code: "KEN", Currency: "KES", Active: true},
		}},
		generator: &fakeGenerator{},
		follower:  &fakeFollower{},
		sink:      rationsmart.NewMemoryDiagnosticsSink(),
	}
	f.registry = NewRegistry(Deps{
		Backend:   f.backend,
		Countries: f.countries,
		Verifier:  fakeVerifier{},
		Diets:     f.generator,
		FollowUps: f.follower,
	}, RegistryOpts{Diagnostics: f.sink})
	return f
}
