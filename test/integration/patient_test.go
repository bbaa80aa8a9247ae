package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vaxremind/vaxremind/internal/domain/patient"
	"github.com/vaxremind/vaxremind/internal/domain/schedule"
	"github.com/vaxremind/vaxremind/internal/platform/db"
)

func newPatientService() *patient.Service {
	runInTx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.RunInTx(ctx, globalDB.Pool, fn)
	}
	return patient.NewService(
		patient.NewPatientRepoPG(globalDB.Pool),
		schedule.NewDoseRepoPG(globalDB.Pool),
		runInTx,
	)
}

func TestRegister_CreatesPatientAndSchedule(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	facilityID := createTestFacility(t, ctx, "PHC Alpha")
	svc := newPatientService()

	childName := "Ravi"
	p, created, err := svc.Register(ctx, facilityID, &patient.RegisterRequest{
		ParentName:  "Asha",
		ParentPhone: "9876543210",
		ChildName:   &childName,
		ChildDOB:    "2024-01-01",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !created {
		t.Fatal("expected created=true for a new registration")
	}
	if p.ID == uuid.Nil {
		t.Fatal("expected non-nil patient ID")
	}
	if p.ParentPhone != "+919876543210" {
		t.Errorf("expected normalized phone +919876543210, got %s", p.ParentPhone)
	}

	var doses int
	if err := globalDB.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM scheduled_doses WHERE patient_id = $1`, p.ID).Scan(&doses); err != nil {
		t.Fatalf("count doses: %v", err)
	}
	if doses != len(schedule.Protocol) {
		t.Errorf("expected %d scheduled doses, got %d", len(schedule.Protocol), doses)
	}

	// Penta-1 falls 42 days after birth.
	var pentaDate time.Time
	if err := globalDB.Pool.QueryRow(ctx, `
		SELECT scheduled_date FROM scheduled_doses
		WHERE patient_id = $1 AND vaccine_id = 2 AND dose_number = 1`, p.ID).Scan(&pentaDate); err != nil {
		t.Fatalf("fetch penta-1: %v", err)
	}
	if got := pentaDate.Format("2006-01-02"); got != "2024-02-12" {
		t.Errorf("expected Pentavalent dose 1 on 2024-02-12, got %s", got)
	}
}

func TestInsertBatch_RepeatedProtocolEntries(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	facilityID := createTestFacility(t, ctx, "PHC Alpha")
	p := createTestPatient(t, ctx, facilityID, "+919876543210", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	// A protocol revision may repeat a vaccine/dose-number pair with
	// different dates; the insert must accept it.
	repo := schedule.NewDoseRepoPG(globalDB.Pool)
	doses := []*schedule.ScheduledDose{
		{PatientID: p.ID, VaccineID: 2, DoseNumber: 1, ScheduledDate: time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC)},
		{PatientID: p.ID, VaccineID: 2, DoseNumber: 1, ScheduledDate: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
	}
	if err := repo.InsertBatch(ctx, doses); err != nil {
		t.Fatalf("InsertBatch with repeated protocol entry: %v", err)
	}

	var count int
	if err := globalDB.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM scheduled_doses WHERE patient_id = $1`, p.ID).Scan(&count); err != nil {
		t.Fatalf("count doses: %v", err)
	}
	if count != 2 {
		t.Errorf("expected both dose rows stored, got %d", count)
	}
}

func TestRegister_DuplicateReturnsExisting(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	facilityID := createTestFacility(t, ctx, "PHC Alpha")
	svc := newPatientService()

	req := &patient.RegisterRequest{
		ParentName:  "Asha",
		ParentPhone: "9876543210",
		ChildDOB:    "2024-01-01",
	}

	first, created, err := svc.Register(ctx, facilityID, req)
	if err != nil || !created {
		t.Fatalf("first Register: created=%v err=%v", created, err)
	}

	second, created, err := svc.Register(ctx, facilityID, req)
	if err != nil {
		t.Fatalf("second Register: %v", err)
	}
	if created {
		t.Error("expected created=false on duplicate registration")
	}
	if second.ID != first.ID {
		t.Errorf("expected same patient, got %s and %s", first.ID, second.ID)
	}

	var doses int
	if err := globalDB.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM scheduled_doses`).Scan(&doses); err != nil {
		t.Fatalf("count doses: %v", err)
	}
	if doses != len(schedule.Protocol) {
		t.Errorf("expected schedule to be generated once, got %d doses", doses)
	}
}

func TestRegister_SamePhoneDifferentFacility(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	alphaID := createTestFacility(t, ctx, "PHC Alpha")
	betaID := createTestFacility(t, ctx, "PHC Beta")
	svc := newPatientService()

	req := &patient.RegisterRequest{
		ParentName:  "Asha",
		ParentPhone: "9876543210",
		ChildDOB:    "2024-01-01",
	}

	a, created, err := svc.Register(ctx, alphaID, req)
	if err != nil || !created {
		t.Fatalf("alpha Register: created=%v err=%v", created, err)
	}
	b, created, err := svc.Register(ctx, betaID, req)
	if err != nil {
		t.Fatalf("beta Register: %v", err)
	}
	if !created {
		t.Error("expected a distinct registration per facility")
	}
	if a.ID == b.ID {
		t.Error("expected distinct patient records per facility")
	}
}

func TestListUpcoming_WindowAndScope(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	facilityID := createTestFacility(t, ctx, "PHC Alpha")
	otherID := createTestFacility(t, ctx, "PHC Beta")
	svc := newPatientService()

	// A child born 40 days ago has Penta-1 due in 2 days.
	now := time.Now().UTC()
	dob := now.AddDate(0, 0, -40).Format("2006-01-02")
	if _, _, err := svc.Register(ctx, facilityID, &patient.RegisterRequest{
		ParentName:  "Asha",
		ParentPhone: "9876543210",
		ChildDOB:    dob,
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// Same child in another facility must not leak into the listing.
	if _, _, err := svc.Register(ctx, otherID, &patient.RegisterRequest{
		ParentName:  "Asha",
		ParentPhone: "9876543211",
		ChildDOB:    dob,
	}); err != nil {
		t.Fatalf("Register other facility: %v", err)
	}

	schedSvc := schedule.NewService(schedule.NewDoseRepoPG(globalDB.Pool))
	doses, total, err := schedSvc.ListUpcoming(ctx, facilityID, now, 7, 20, 0)
	if err != nil {
		t.Fatalf("ListUpcoming: %v", err)
	}
	if total == 0 || len(doses) == 0 {
		t.Fatal("expected upcoming doses within 7 days")
	}
	for _, d := range doses {
		if d.ParentPhone != "+919876543210" {
			t.Errorf("dose from wrong facility leaked into listing: %s", d.ParentPhone)
		}
	}
}
