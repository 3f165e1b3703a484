package ownership

import (
	"context"
	"fmt"
	"strings"

	"rationsmart"
	"rationsmart/backend"
)

// Backend is the subset of the backend client the verifier reads from.
type Backend interface {
	GetDiet(ctx context.Context, dietID string) (backend.DietRecord, error)
	GetCow(ctx context.Context, cowID, ownerID string) (backend.CowProfile, error)
}

// Verifier checks that a caller owns the cow or diet it is acting on.
type Verifier struct {
	backend Backend
}

func NewVerifier(b Backend) *Verifier {
	return &Verifier{backend: b}
}

// VerifyCow fails with ErrAccessDenied unless caller owns cow.
func (v *Verifier) VerifyCow(cow backend.CowProfile, caller string) error {
	if !sameOwner(cow.OwnerID, caller) {
		return fmt.Errorf("%w: cow %s", rationsmart.ErrAccessDenied, cow.ID)
	}
	return nil
}

// VerifyDiet fetches the diet and checks ownership. Records that carry an
// owner are compared directly; records created before owner tracking are
// checked through the cow they belong to. The fetched record is returned so
// callers do not need to load it again.
func (v *Verifier) VerifyDiet(ctx context.Context, caller, dietID string) (backend.DietRecord, error) {
	rec, err := v.backend.GetDiet(ctx, dietID)
	if err != nil {
		if backend.IsNotFound(err) {
			return backend.DietRecord{}, fmt.Errorf("%w: diet %s", rationsmart.ErrNotFound, dietID)
		}
		return backend.DietRecord{}, err
	}

	if rec.OwnerID != "" {
		if err := checkDirect(rec, caller); err != nil {
			return backend.DietRecord{}, err
		}
		return rec, nil
	}

	cow, err := v.backend.GetCow(ctx, rec.CowID, caller)
	if err != nil {
		switch {
		case backend.IsNotFound(err), backend.IsForbidden(err):
			// The cow lookup is scoped to the caller, so a miss means the
			// caller does not own it.
			return backend.DietRecord{}, fmt.Errorf("%w: diet %s", rationsmart.ErrAccessDenied, dietID)
		default:
			return backend.DietRecord{}, err
		}
	}
	if err := checkViaCow(rec, cow, caller); err != nil {
		return backend.DietRecord{}, err
	}
	return rec, nil
}

func checkDirect(rec backend.DietRecord, caller string) error {
	if !sameOwner(rec.OwnerID, caller) {
		return fmt.Errorf("%w: diet %s", rationsmart.ErrAccessDenied, rec.ID)
	}
	return nil
}

func checkViaCow(rec backend.DietRecord, cow backend.CowProfile, caller string) error {
	if cow.ID != "" && rec.CowID != "" && cow.ID != rec.CowID {
		return fmt.Errorf("%w: diet %s", rationsmart.ErrAccessDenied, rec.ID)
	}
	if !sameOwner(cow.OwnerID, caller) {
		return fmt.Errorf("%w: diet %s", rationsmart.ErrAccessDenied, rec.ID)
	}
	return nil
}

func sameOwner(owner, caller string) bool {
	caller = strings.TrimSpace(caller)
	return caller != "" && strings.TrimSpace(owner) == caller
}
