package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patients table. Rows are immutable after creation; the
// registry has no update or delete path.
type Patient struct {
	ID           uuid.UUID `db:"id" json:"id"`
	FacilityID   uuid.UUID `db:"facility_id" json:"facility_id"`
	ParentName   string    `db:"parent_name" json:"parent_name"`
	ParentPhone  string    `db:"parent_phone" json:"parent_phone"`
	ParentEmail  *string   `db:"parent_email" json:"parent_email,omitempty"`
	ChildName    *string   `db:"child_name" json:"child_name,omitempty"`
	ChildDOB     time.Time `db:"child_dob" json:"child_dob"`
	ConsentOptIn bool      `db:"consent_optin" json:"consent_optin"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// RegisterRequest is the JSON body for POST /patients.
type RegisterRequest struct {
	ParentName   string  `json:"parent_name"`
	ParentPhone  string  `json:"parent_phone"`
	ParentEmail  *string `json:"parent_email"`
	ChildName    *string `json:"child_name"`
	ChildDOB     string  `json:"child_dob"`
	ConsentOptIn *bool   `json:"consent_optin"`
}
