package queue

import (
	"context"
	"errors"
	"time"
)

var ErrVisitNotFound = errors.New("visit not found")

// VisitStore is the visit collection the recalculation reads from and
// patches.
type VisitStore interface {
	GetVisit(ctx context.Context, id string) (*Visit, error)
	// ListVisitsBetween returns visits with from <= slot_time < to.
	ListVisitsBetween(ctx context.Context, from, to time.Time) ([]*Visit, error)
	// CommitPatches applies every patch atomically.
	CommitPatches(ctx context.Context, ps PatchSet) error
}

// SettingsStore holds the single clinic settings document.
type SettingsStore interface {
	// GetSettings returns DefaultSettings when no document exists.
	GetSettings(ctx context.Context) (ClinicSettings, error)
	PatchDoctorStatus(ctx context.Context, patch DoctorStatusPatch) error
}
