package diet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rationsmart"
	"rationsmart/backend"
	"rationsmart/notify"
)

// FollowUpInterval is how far ahead the check-in of a followed diet is.
const FollowUpInterval = 7 * 24 * time.Hour

type FollowBackend interface {
	UpdateDietStatus(ctx context.Context, dietID, ownerID string, update backend.DietStatusUpdate) (backend.DietRecord, error)
	CreateFollowUp(ctx context.Context, entry backend.FollowUpEntry) (backend.FollowUpEntry, error)
}

type DietVerifier interface {
	VerifyDiet(ctx context.Context, caller, dietID string) (backend.DietRecord, error)
}

type Notifier interface {
	NotifyFollowUp(ctx context.Context, notice notify.FollowUpNotice) error
}

// Transition reports the state of a diet after Follow or Unfollow. Changed
// is false when the diet was already in the requested state.
type Transition struct {
	Diet     backend.DietRecord
	Changed  bool
	FollowUp *backend.FollowUpEntry
}

// FollowUps moves diets in and out of the following state.
type FollowUps struct {
	backend     FollowBackend
	verifier    DietVerifier
	notifier    Notifier
	diagnostics rationsmart.DiagnosticsSink
	now         func() time.Time

	mu sync.Mutex
	// unconfirmed holds follow-up entries, by diet id, whose diet has not
	// been switched to following yet. A retried Follow reuses them.
	unconfirmed map[string]backend.FollowUpEntry
}

type FollowUpsOpts struct {
	Backend  FollowBackend
	Verifier DietVerifier
	// Notifier is optional.
	Notifier    Notifier
	Diagnostics rationsmart.DiagnosticsSink
	Now         func() time.Time
}

func NewFollowUps(opts FollowUpsOpts) *FollowUps {
	if opts.Diagnostics == nil {
		opts.Diagnostics = rationsmart.NoOpDiagnosticsSink{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &FollowUps{
		backend:     opts.Backend,
		verifier:    opts.Verifier,
		notifier:    opts.Notifier,
		diagnostics: opts.Diagnostics,
		now:         opts.Now,
		unconfirmed: make(map[string]backend.FollowUpEntry),
	}
}

// Follow marks the diet as followed and schedules a check-in. Following an
// already followed diet is a successful no-op and schedules nothing. The
// check-in is created before the diet changes state, so a failed attempt can
// be retried and still ends with exactly one entry.
func (f *FollowUps) Follow(ctx context.Context, caller, dietID string) (Transition, error) {
	rec, err := f.verifier.VerifyDiet(ctx, caller, dietID)
	if err != nil {
		return Transition{}, err
	}
	switch {
	case rec.Status == backend.DietFollowing && rec.Active:
		slog.Debug("FOLLOWUP: Diet already followed", "diet_id", dietID)
		f.forget(rec.ID)
		return Transition{Diet: rec}, nil
	case rec.Status == backend.DietArchived:
		return Transition{}, fmt.Errorf("%w: diet %s", rationsmart.ErrDietArchived, dietID)
	}

	entry, err := f.schedule(ctx, rec, caller)
	if err != nil {
		return Transition{}, err
	}

	rec, err = f.setStatus(ctx, rec, caller, backend.DietFollowing, true)
	if err != nil {
		return Transition{}, err
	}
	f.forget(rec.ID)

	slog.Info("FOLLOWUP: Diet followed", "diet_id", rec.ID, "scheduled_at", entry.ScheduledAt)
	if at, err := time.Parse(time.RFC3339, entry.ScheduledAt); err == nil {
		f.notify(ctx, rec, caller, at)
	}
	return Transition{Diet: rec, Changed: true, FollowUp: &entry}, nil
}

// schedule returns the pending check-in of a diet, creating it unless an
// earlier attempt already did.
func (f *FollowUps) schedule(ctx context.Context, rec backend.DietRecord, caller string) (backend.FollowUpEntry, error) {
	f.mu.Lock()
	entry, ok := f.unconfirmed[rec.ID]
	f.mu.Unlock()
	if ok {
		slog.Debug("FOLLOWUP: Reusing check-in of an earlier attempt", "diet_id", rec.ID, "follow_up_id", entry.ID)
		return entry, nil
	}

	entry, err := f.backend.CreateFollowUp(ctx, backend.FollowUpEntry{
		OwnerID:     caller,
		DietID:      rec.ID,
		ScheduledAt: f.now().UTC().Add(FollowUpInterval).Format(time.RFC3339),
		Status:      backend.FollowUpPending,
	})
	if err != nil {
		return backend.FollowUpEntry{}, err
	}

	f.mu.Lock()
	f.unconfirmed[rec.ID] = entry
	f.mu.Unlock()
	return entry, nil
}

func (f *FollowUps) forget(dietID string) {
	f.mu.Lock()
	delete(f.unconfirmed, dietID)
	f.mu.Unlock()
}

// Unfollow archives the diet. Unfollowing an archived diet is a no-op.
func (f *FollowUps) Unfollow(ctx context.Context, caller, dietID string) (Transition, error) {
	rec, err := f.verifier.VerifyDiet(ctx, caller, dietID)
	if err != nil {
		return Transition{}, err
	}
	if rec.Status == backend.DietArchived && !rec.Active {
		slog.Debug("FOLLOWUP: Diet already archived", "diet_id", dietID)
		return Transition{Diet: rec}, nil
	}

	rec, err = f.setStatus(ctx, rec, caller, backend.DietArchived, false)
	if err != nil {
		return Transition{}, err
	}
	slog.Info("FOLLOWUP: Diet unfollowed", "diet_id", rec.ID)
	return Transition{Diet: rec, Changed: true}, nil
}

func (f *FollowUps) setStatus(ctx context.Context, rec backend.DietRecord, caller string, status backend.DietStatus, active bool) (backend.DietRecord, error) {
	updated, err := f.backend.UpdateDietStatus(ctx, rec.ID, caller, backend.DietStatusUpdate{Status: status, Active: active})
	if err != nil {
		return backend.DietRecord{}, err
	}
	if updated.ID == "" {
		updated = rec
	}
	updated.Status = status
	updated.Active = active
	return updated, nil
}

func (f *FollowUps) notify(ctx context.Context, rec backend.DietRecord, caller string, at time.Time) {
	if f.notifier == nil {
		return
	}
	err := f.notifier.NotifyFollowUp(ctx, notify.FollowUpNotice{
		DietID:      rec.ID,
		DietName:    rec.Name,
		CowID:       rec.CowID,
		OwnerID:     caller,
		ScheduledAt: at,
	})
	if err != nil {
		rationsmart.RecordDiagnostic(f.diagnostics, rationsmart.Diagnostic{
			Kind:      rationsmart.DiagnosticNotificationFailed,
			Operation: "follow-diet",
			Message:   "Failed to send follow-up notice",
			Fields:    map[string]any{"diet_id": rec.ID, "error": err.Error()},
		})
	}
}
