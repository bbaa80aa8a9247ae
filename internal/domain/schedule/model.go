package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Dose statuses. Only pending doses are reminder-eligible; completed and
// cancelled are set by external tooling and never touched by the dispatcher.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// ScheduledDose maps to the scheduled_doses table.
type ScheduledDose struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
	VaccineID     int       `db:"vaccine_id" json:"vaccine_id"`
	DoseNumber    int       `db:"dose_number" json:"dose_number"`
	ScheduledDate time.Time `db:"scheduled_date" json:"scheduled_date"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// UpcomingDose is the joined list view for the upcoming-schedule endpoint.
type UpcomingDose struct {
	DoseID        uuid.UUID `json:"dose_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	ChildName     string    `json:"child_name"`
	ParentName    string    `json:"parent_name"`
	ParentPhone   string    `json:"parent_phone"`
	VaccineID     int       `json:"vaccine_id"`
	VaccineName   string    `json:"vaccine_name"`
	DoseNumber    int       `json:"dose_number"`
	ScheduledDate time.Time `json:"scheduled_date"`
}
