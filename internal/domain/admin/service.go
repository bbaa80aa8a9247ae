package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vaxremind/vaxremind/internal/platform/auth"
)

// ErrInvalidCredentials covers both unknown email and wrong password so the
// login response never reveals which one failed.
var ErrInvalidCredentials = errors.New("invalid email or password")

type Service struct {
	admins AdminRepository
	secret []byte
}

func NewService(admins AdminRepository, secret []byte) *Service {
	return &Service{admins: admins, secret: secret}
}

// Login verifies the password and issues a facility-scoped bearer token.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	a, err := s.admins.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := auth.NewToken(s.secret, a.ID.String(), a.FacilityID.String(), a.Role, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &LoginResponse{
		Token:      token,
		AdminID:    a.ID,
		FacilityID: a.FacilityID,
		Role:       a.Role,
	}, nil
}

// Create registers an admin account with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, a *Admin, password string) error {
	if a.Email == "" {
		return fmt.Errorf("email is required")
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if a.Role == "" {
		a.Role = "staff"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	a.PasswordHash = string(hash)

	return s.admins.Create(ctx, a)
}
