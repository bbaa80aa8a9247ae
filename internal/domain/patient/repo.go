package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	ListByFacility(ctx context.Context, facilityID uuid.UUID, limit, offset int) ([]*Patient, int, error)
	// FindExisting looks up a patient by the registration identity key. A nil
	// result with nil error means no duplicate.
	FindExisting(ctx context.Context, facilityID uuid.UUID, parentPhone string, childDOB time.Time) (*Patient, error)
}
