package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateAttempt reports that an attempt row already exists for the dose
// on the same calendar day. It is the overlap signal, not a failure.
var ErrDuplicateAttempt = errors.New("attempt already logged for this dose today")

type AttemptRepository interface {
	// CreateQueued inserts the write-ahead queued row. Returns
	// ErrDuplicateAttempt when another run already logged this dose for the
	// same attempted_on date.
	CreateQueued(ctx context.Context, a *Attempt) error
	// MarkResult finalizes an attempt row with the outcome status, bumping
	// the attempt counter and last_attempt_at.
	MarkResult(ctx context.Context, id uuid.UUID, status string, at time.Time) error
	ListByFacility(ctx context.Context, facilityID uuid.UUID, limit, offset int) ([]*Attempt, int, error)
}

type DueDoseReader interface {
	// FindDue returns pending doses scheduled inside [onDate, onDate+lookahead]
	// that have no attempt row dated onDate. With requireConsent set, doses of
	// opted-out patients are excluded.
	FindDue(ctx context.Context, onDate time.Time, lookaheadDays int, requireConsent bool) ([]*DueDose, error)
}
