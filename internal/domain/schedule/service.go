package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	doses DoseRepository
}

func NewService(doses DoseRepository) *Service {
	return &Service{doses: doses}
}

// BuildForPatient expands the protocol into scheduled dose rows for a newly
// registered patient. The rows are not persisted; registration inserts them
// inside its transaction.
func BuildForPatient(patientID uuid.UUID, dob time.Time) []*ScheduledDose {
	generated := Generate(dob)
	doses := make([]*ScheduledDose, 0, len(generated))
	for _, g := range generated {
		doses = append(doses, &ScheduledDose{
			ID:            uuid.New(),
			PatientID:     patientID,
			VaccineID:     g.VaccineID,
			DoseNumber:    g.DoseNumber,
			ScheduledDate: g.ScheduledDate,
			Status:        StatusPending,
		})
	}
	return doses
}

// ListUpcoming returns pending doses for the facility due between today and
// today+days, date-ascending.
func (s *Service) ListUpcoming(ctx context.Context, facilityID uuid.UUID, now time.Time, days, limit, offset int) ([]*UpcomingDose, int, error) {
	if days <= 0 {
		return nil, 0, fmt.Errorf("days must be positive")
	}
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, days)
	return s.doses.ListUpcoming(ctx, facilityID, from, to, limit, offset)
}
