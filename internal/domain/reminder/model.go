package reminder

import (
	"time"

	"github.com/google/uuid"
)

// Attempt statuses. "queued" is the write-ahead intent recorded before the
// gateway call; terminal rows carry the gateway's status token or "failed".
const (
	StatusQueued = "queued"
	StatusFailed = "failed"
)

// Attempt maps to the sms_logs table: one row per dose per calendar day.
type Attempt struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	ScheduledDoseID uuid.UUID  `db:"scheduled_dose_id" json:"scheduled_dose_id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	ToPhone         string     `db:"to_phone" json:"to_phone"`
	Message         string     `db:"message" json:"message"`
	Status          string     `db:"status" json:"status"`
	Attempts        int        `db:"attempts" json:"attempts"`
	LastAttemptAt   *time.Time `db:"last_attempt_at" json:"last_attempt_at,omitempty"`
	AttemptedOn     time.Time  `db:"attempted_on" json:"attempted_on"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// DueDose is the dispatcher's typed view of one reminder-eligible dose with
// the joined patient fields needed to render and address the message.
type DueDose struct {
	DoseID        uuid.UUID
	PatientID     uuid.UUID
	ParentName    string
	ParentPhone   string
	ChildName     string
	VaccineID     int
	DoseNumber    int
	ScheduledDate time.Time
}
