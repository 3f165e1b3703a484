package diet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"rationsmart/backend"
	"rationsmart/notify"
)

// fakeBackend is an in-memory stand-in for the RationSmart backend.
type fakeBackend struct {
	mu sync.Mutex

	countries []backend.Country
	cows      map[string]backend.CowProfile
	feeds     map[string][]backend.FeedCatalogEntry
	diets     map[string]backend.DietRecord

	optimizerResponse string
	optimizeErr       error
	createErr         error
	followUpErr       error
	updateErr         error

	feedCountries []string
	optimizeCalls []backend.OptimizerRequest
	created       []backend.DietRecord
	statusUpdates []backend.DietStatusUpdate
	followUps     []backend.FollowUpEntry
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		countries: []backend.Country{
			{ID: "c-ind", Name: "India", Code: "IND", Currency: "INR", Active: true},
			{ID: "c-ken", Name: "Kenya", Code: "KEN", Currency: "KES", Active: true},
		},
		cows:  map[string]backend.CowProfile{},
		feeds: map[string][]backend.FeedCatalogEntry{},
		diets: map[string]backend.DietRecord{},
	}
}

func notFound(path string) error {
	return &backend.UpstreamError{Method: http.MethodGet, Path: path, Status: http.StatusNotFound}
}

func (f *fakeBackend) Countries(ctx context.Context) ([]backend.Country, error) {
	return f.countries, nil
}

func (f *fakeBackend) GetCow(ctx context.Context, cowID, ownerID string) (backend.CowProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cow, ok := f.cows[cowID]
	if !ok {
		return backend.CowProfile{}, notFound("/cow-profiles/detail/" + cowID)
	}
	return cow, nil
}

func (f *fakeBackend) Feeds(ctx context.Context, countryID string) ([]backend.FeedCatalogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedCountries = append(f.feedCountries, countryID)
	return f.feeds[countryID], nil
}

func (f *fakeBackend) Optimize(ctx context.Context, req backend.OptimizerRequest) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.optimizeCalls = append(f.optimizeCalls, req)
	if f.optimizeErr != nil {
		return nil, f.optimizeErr
	}
	return json.RawMessage(f.optimizerResponse), nil
}

func (f *fakeBackend) CreateDiet(ctx context.Context, rec backend.DietRecord) (backend.DietRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return backend.DietRecord{}, f.createErr
	}
	rec.ID = fmt.Sprintf("diet-%d", len(f.created)+1)
	rec.CreatedAt = "2026-03-01T10:00:00Z"
	f.created = append(f.created, rec)
	f.diets[rec.ID] = rec
	return rec, nil
}

func (f *fakeBackend) GetDiet(ctx context.Context, dietID string) (backend.DietRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.diets[dietID]
	if !ok {
		return backend.DietRecord{}, notFound("/bot-diet-history/" + dietID)
	}
	return rec, nil
}

func (f *fakeBackend) UpdateDietStatus(ctx context.Context, dietID, ownerID string, update backend.DietStatusUpdate) (backend.DietRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.diets[dietID]
	if !ok {
		return backend.DietRecord{}, notFound("/bot-diet-history/" + dietID)
	}
	if f.updateErr != nil {
		return backend.DietRecord{}, f.updateErr
	}
	f.statusUpdates = append(f.statusUpdates, update)
	rec.Status = update.Status
	rec.Active = update.Active
	f.diets[dietID] = rec
	return rec, nil
}

func (f *fakeBackend) CreateFollowUp(ctx context.Context, entry backend.FollowUpEntry) (backend.FollowUpEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.followUpErr != nil {
		return backend.FollowUpEntry{}, f.followUpErr
	}
	entry.ID = fmt.Sprintf("fu-%d", len(f.followUps)+1)
	f.followUps = append(f.followUps, entry)
	return entry, nil
}

type fakeNotifier struct {
	notices []notify.FollowUpNotice
	err     error
}

func (n *fakeNotifier) NotifyFollowUp(ctx context.Context, notice notify.FollowUpNotice) error {
	n.notices = append(n.notices, notice)
	return n.err
}
