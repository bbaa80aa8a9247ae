package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type DoseRepository interface {
	InsertBatch(ctx context.Context, doses []*ScheduledDose) error
	ListUpcoming(ctx context.Context, facilityID uuid.UUID, from, to time.Time, limit, offset int) ([]*UpcomingDose, int, error)
}
