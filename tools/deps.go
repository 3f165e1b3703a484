package tools

import (
	"context"

	"rationsmart/backend"
	"rationsmart/country"
	"rationsmart/diet"
)

// Backend is the part of the backend client the relay tools use.
type Backend interface {
	Breeds(ctx context.Context, countryID string) ([]backend.Breed, error)
	ListCows(ctx context.Context, ownerID string) ([]backend.CowProfile, error)
	GetCow(ctx context.Context, cowID, ownerID string) (backend.CowProfile, error)
	CreateCow(ctx context.Context, cow backend.CowProfile) (backend.CowProfile, error)
	UpdateCow(ctx context.Context, cowID, ownerID string, update backend.CowUpdate) (backend.CowProfile, error)
	DeleteCow(ctx context.Context, cowID, ownerID string, hard bool) error
	ListDiets(ctx context.Context, ownerID, cowID string) ([]backend.DietRecord, error)
	ActiveDiet(ctx context.Context, cowID, ownerID string) (backend.DietRecord, error)
}

type Countries interface {
	Resolve(ctx context.Context, q country.Query) (*backend.Country, error)
	Locate(ctx context.Context, lat, lon float64) (*backend.Country, error)
	List(ctx context.Context) ([]backend.Country, error)
}

type CowVerifier interface {
	VerifyCow(cow backend.CowProfile, caller string) error
}

type DietGenerator interface {
	Generate(ctx context.Context, req diet.Request) (diet.Result, error)
}

type DietFollower interface {
	Follow(ctx context.Context, caller, dietID string) (diet.Transition, error)
	Unfollow(ctx context.Context, caller, dietID string) (diet.Transition, error)
}

// Deps are the collaborators shared by the tools.
type Deps struct {
	Backend   Backend
	Countries Countries
	Verifier  CowVerifier
	Diets     DietGenerator
	FollowUps DietFollower
}

// countryQuery reads the optional location arguments shared by tools.
func countryQuery(input map[string]any) (country.Query, error) {
	q := country.Query{
		Name: stringArg(input, "country_name"),
		Code: stringArg(input, "country_code"),
	}
	lat, lon, ok, err := coordinates(input)
	if err != nil {
		return q, err
	}
	if ok {
		q.Latitude, q.Longitude = &lat, &lon
	}
	return q, nil
}

// coordinates reads latitude and longitude, which must come as a pair.
func coordinates(input map[string]any) (lat, lon float64, ok bool, err error) {
	lat, hasLat, err := floatArg(input, "latitude")
	if err != nil {
		return 0, 0, false, err
	}
	lon, hasLon, err := floatArg(input, "longitude")
	if err != nil {
		return 0, 0, false, err
	}
	if hasLat != hasLon {
		return 0, 0, false, invalidInput("latitude and longitude must be given together")
	}
	if !hasLat {
		return 0, 0, false, nil
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false, invalidInput("latitude or longitude is out of range")
	}
	return lat, lon, true, nil
}

func emptyQuery(q country.Query) bool {
	return q.Name == "" && q.Code == "" && q.Latitude == nil
}
