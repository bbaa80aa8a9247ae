package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ttacon/libphonenumber"

	"github.com/vaxremind/vaxremind/internal/domain/schedule"
)

// DefaultRegion is the phone-number region used when a number has no
// country prefix.
const DefaultRegion = "IN"

// TxRunner executes fn inside a database transaction. Repositories called
// through fn's context join that transaction.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	patients PatientRepository
	doses    schedule.DoseRepository
	runInTx  TxRunner
}

func NewService(patients PatientRepository, doses schedule.DoseRepository, runInTx TxRunner) *Service {
	return &Service{patients: patients, doses: doses, runInTx: runInTx}
}

// NormalizePhone validates a raw phone number and canonicalizes it to E.164
// so the duplicate guard compares like with like.
func NormalizePhone(raw string) (string, error) {
	num, err := libphonenumber.Parse(raw, DefaultRegion)
	if err != nil {
		return "", fmt.Errorf("parse phone number: %w", err)
	}
	if !libphonenumber.IsValidNumber(num) {
		return "", fmt.Errorf("phone number is not valid")
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}

// Register creates a patient and its full dose timeline in one transaction.
// If the same parent phone and child DOB are already registered at the
// facility, the existing patient is returned with created=false and no new
// rows are written.
func (s *Service) Register(ctx context.Context, facilityID uuid.UUID, req *RegisterRequest) (*Patient, bool, error) {
	if req.ParentName == "" {
		return nil, false, validationErrorf("parent_name is required")
	}
	if req.ParentPhone == "" {
		return nil, false, validationErrorf("parent_phone is required")
	}
	if req.ChildDOB == "" {
		return nil, false, validationErrorf("child_dob is required")
	}

	dob, err := time.ParseInLocation("2006-01-02", req.ChildDOB, time.UTC)
	if err != nil {
		return nil, false, validationErrorf("child_dob must be YYYY-MM-DD")
	}

	phone, err := NormalizePhone(req.ParentPhone)
	if err != nil {
		return nil, false, validationErrorf("parent_phone: %v", err)
	}

	existing, err := s.patients.FindExisting(ctx, facilityID, phone, dob)
	if err != nil {
		return nil, false, fmt.Errorf("check existing registration: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	consent := true
	if req.ConsentOptIn != nil {
		consent = *req.ConsentOptIn
	}

	p := &Patient{
		ID:           uuid.New(),
		FacilityID:   facilityID,
		ParentName:   req.ParentName,
		ParentPhone:  phone,
		ParentEmail:  req.ParentEmail,
		ChildName:    req.ChildName,
		ChildDOB:     dob,
		ConsentOptIn: consent,
	}

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.patients.Create(txCtx, p); err != nil {
			return fmt.Errorf("create patient: %w", err)
		}
		doses := schedule.BuildForPatient(p.ID, dob)
		if err := s.doses.InsertBatch(txCtx, doses); err != nil {
			return fmt.Errorf("create dose schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return p, true, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, facilityID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	return s.patients.ListByFacility(ctx, facilityID, limit, offset)
}
