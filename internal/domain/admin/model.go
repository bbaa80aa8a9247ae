package admin

import (
	"time"

	"github.com/google/uuid"
)

// Admin maps to the admins table. PasswordHash is a bcrypt digest and never
// leaves the service layer.
type Admin struct {
	ID           uuid.UUID `db:"id" json:"id"`
	FacilityID   uuid.UUID `db:"facility_id" json:"facility_id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token      string    `json:"token"`
	AdminID    uuid.UUID `json:"admin_id"`
	FacilityID uuid.UUID `json:"facility_id"`
	Role       string    `json:"role"`
}
