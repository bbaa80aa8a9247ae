package reminder

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vaxremind/vaxremind/internal/domain/schedule"
	"github.com/vaxremind/vaxremind/internal/platform/sms"
)

// memStore backs both repository interfaces with the same dedup rule the
// database enforces: one attempt row per (dose, attempted_on).
type memStore struct {
	mu       sync.Mutex
	doses    []*DueDose
	consent  map[uuid.UUID]bool
	attempts map[string]*Attempt
	order    []*Attempt
}

func newMemStore() *memStore {
	return &memStore{
		consent:  make(map[uuid.UUID]bool),
		attempts: make(map[string]*Attempt),
	}
}

func attemptKey(doseID uuid.UUID, on time.Time) string {
	return doseID.String() + "|" + on.Format("2006-01-02")
}

func (s *memStore) addDose(d *DueDose, consent bool) {
	s.doses = append(s.doses, d)
	s.consent[d.PatientID] = consent
}

func (s *memStore) FindDue(_ context.Context, onDate time.Time, lookaheadDays int, requireConsent bool) ([]*DueDose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	windowEnd := onDate.AddDate(0, 0, lookaheadDays)
	var due []*DueDose
	for _, d := range s.doses {
		if d.ScheduledDate.Before(onDate) || d.ScheduledDate.After(windowEnd) {
			continue
		}
		if requireConsent && !s.consent[d.PatientID] {
			continue
		}
		if _, exists := s.attempts[attemptKey(d.DoseID, onDate)]; exists {
			continue
		}
		due = append(due, d)
	}
	return due, nil
}

func (s *memStore) CreateQueued(_ context.Context, a *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := attemptKey(a.ScheduledDoseID, a.AttemptedOn)
	if _, exists := s.attempts[key]; exists {
		return ErrDuplicateAttempt
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Status = StatusQueued
	stored := *a
	s.attempts[key] = &stored
	s.order = append(s.order, &stored)
	return nil
}

func (s *memStore) MarkResult(_ context.Context, id uuid.UUID, status string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.attempts {
		if a.ID == id {
			a.Status = status
			a.Attempts++
			t := at
			a.LastAttemptAt = &t
			return nil
		}
	}
	return fmt.Errorf("attempt %s not found", id)
}

func (s *memStore) ListByFacility(_ context.Context, _ uuid.UUID, limit, offset int) ([]*Attempt, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.order)
	var out []*Attempt
	for i := len(s.order) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.order[i])
	}
	return out, total, nil
}

func (s *memStore) all() []*Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Attempt, len(s.order))
	copy(out, s.order)
	return out
}

func dueDose(phone string, scheduled time.Time) *DueDose {
	return &DueDose{
		DoseID:        uuid.New(),
		PatientID:     uuid.New(),
		ParentName:    "Asha",
		ParentPhone:   phone,
		ChildName:     "Ravi",
		VaccineID:     1,
		DoseNumber:    1,
		ScheduledDate: scheduled,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestDispatcher(store *memStore, gateway sms.Gateway, policy Policy) *Dispatcher {
	return NewDispatcher(store, store, gateway, policy, zerolog.Nop())
}

func TestRunTick_SendsDueReminders(t *testing.T) {
	store := newMemStore()
	today := day(2024, 3, 10)
	store.addDose(dueDose("+911111111111", today), true)
	store.addDose(dueDose("+912222222222", today), true)
	store.addDose(dueDose("+913333333333", today.AddDate(0, 0, 30)), true)

	gateway := &sms.MockGateway{}
	d := newTestDispatcher(store, gateway, Policy{})

	summary, err := d.RunTick(context.Background(), today.Add(8*time.Hour))
	if err != nil {
		t.Fatalf("RunTick() error: %v", err)
	}

	if summary.Due != 2 || summary.Attempted != 2 || summary.Sent != 2 || summary.Failed != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if calls := gateway.Calls(); len(calls) != 2 {
		t.Errorf("expected 2 gateway calls, got %d", len(calls))
	}

	for _, a := range store.all() {
		if a.Status != "sent" {
			t.Errorf("expected terminal status sent, got %s", a.Status)
		}
		if a.Attempts != 1 {
			t.Errorf("expected attempts=1, got %d", a.Attempts)
		}
		if a.LastAttemptAt == nil {
			t.Error("expected last_attempt_at set")
		}
	}
}

func TestRunTick_SecondTickSameDaySkips(t *testing.T) {
	store := newMemStore()
	today := day(2024, 3, 10)
	store.addDose(dueDose("+911111111111", today), true)

	gateway := &sms.MockGateway{}
	d := newTestDispatcher(store, gateway, Policy{})

	if _, err := d.RunTick(context.Background(), today); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	second, err := d.RunTick(context.Background(), today.Add(6*time.Hour))
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}

	if second.Due != 0 || second.Attempted != 0 {
		t.Errorf("expected nothing due on second tick, got %+v", second)
	}
	if calls := gateway.Calls(); len(calls) != 1 {
		t.Errorf("expected exactly 1 send across both ticks, got %d", len(calls))
	}
}

func TestRunTick_OverlappingRunSkipsOnDuplicate(t *testing.T) {
	// Two dispatcher instances sharing one store model overlapping processes.
	store := newMemStore()
	today := day(2024, 3, 10)
	dose := dueDose("+911111111111", today)
	store.addDose(dose, true)

	gateway := &sms.MockGateway{}
	a := newTestDispatcher(store, gateway, Policy{})
	b := newTestDispatcher(store, gateway, Policy{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); a.RunTick(context.Background(), today) }()
	go func() { defer wg.Done(); b.RunTick(context.Background(), today) }()
	wg.Wait()

	if calls := gateway.Calls(); len(calls) != 1 {
		t.Errorf("expected exactly 1 send despite overlapping runs, got %d", len(calls))
	}
	if len(store.all()) != 1 {
		t.Errorf("expected exactly 1 attempt row, got %d", len(store.all()))
	}
}

func TestRunTick_FailureIsolation(t *testing.T) {
	store := newMemStore()
	today := day(2024, 3, 10)
	failing := dueDose("+911111111111", today)
	healthy := dueDose("+912222222222", today)
	store.addDose(failing, true)
	store.addDose(healthy, true)

	gateway := &sms.MockGateway{FailFor: map[string]bool{"+911111111111": true}}
	d := newTestDispatcher(store, gateway, Policy{})

	summary, err := d.RunTick(context.Background(), today)
	if err != nil {
		t.Fatalf("RunTick() error: %v", err)
	}

	if summary.Attempted != 2 || summary.Sent != 1 || summary.Failed != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	statuses := map[uuid.UUID]string{}
	for _, a := range store.all() {
		statuses[a.ScheduledDoseID] = a.Status
	}
	if statuses[failing.DoseID] != StatusFailed {
		t.Errorf("expected failed status for failing recipient, got %s", statuses[failing.DoseID])
	}
	if statuses[healthy.DoseID] != "sent" {
		t.Errorf("expected sent status for healthy recipient, got %s", statuses[healthy.DoseID])
	}
}

func TestRunTick_NoSameDayRetryOfFailed(t *testing.T) {
	store := newMemStore()
	today := day(2024, 3, 10)
	store.addDose(dueDose("+911111111111", today), true)

	gateway := &sms.MockGateway{ShouldFail: true}
	d := newTestDispatcher(store, gateway, Policy{})

	if _, err := d.RunTick(context.Background(), today); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	second, err := d.RunTick(context.Background(), today.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}

	if second.Attempted != 0 {
		t.Errorf("failed attempt must not retry same day, got %+v", second)
	}
	if calls := gateway.Calls(); len(calls) != 1 {
		t.Errorf("expected 1 send attempt, got %d", len(calls))
	}
}

func TestRunTick_FailedDoseEligibleNextDay(t *testing.T) {
	store := newMemStore()
	today := day(2024, 3, 10)
	store.addDose(dueDose("+911111111111", today), true)

	gateway := &sms.MockGateway{ShouldFail: true}
	d := newTestDispatcher(store, gateway, Policy{LookaheadDays: 0})

	if _, err := d.RunTick(context.Background(), today); err != nil {
		t.Fatalf("day one tick: %v", err)
	}

	// The dose date has passed by the next day, so a zero-lookahead window no
	// longer covers it. An overdue sweep is a separate concern; this pins the
	// dedup row being date-scoped rather than permanent.
	due, err := store.FindDue(context.Background(), today.AddDate(0, 0, 1), 0, false)
	if err != nil {
		t.Fatalf("FindDue() error: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("expected dose outside next day's window, got %d", len(due))
	}

	dueSameDay, err := store.FindDue(context.Background(), today, 0, false)
	if err != nil {
		t.Fatalf("FindDue() error: %v", err)
	}
	if len(dueSameDay) != 0 {
		t.Errorf("same-day attempt row must block re-selection, got %d", len(dueSameDay))
	}
}

func TestRunTick_ConsentPolicy(t *testing.T) {
	store := newMemStore()
	today := day(2024, 3, 10)
	optedIn := dueDose("+911111111111", today)
	optedOut := dueDose("+912222222222", today)
	store.addDose(optedIn, true)
	store.addDose(optedOut, false)

	gateway := &sms.MockGateway{}
	d := newTestDispatcher(store, gateway, Policy{RequireConsent: true})

	summary, err := d.RunTick(context.Background(), today)
	if err != nil {
		t.Fatalf("RunTick() error: %v", err)
	}

	if summary.Due != 1 || summary.Sent != 1 {
		t.Errorf("expected only the opted-in dose, got %+v", summary)
	}
	calls := gateway.Calls()
	if len(calls) != 1 || calls[0].To != "+911111111111" {
		t.Errorf("expected single send to opted-in parent, got %+v", calls)
	}
}

func TestRunTick_Lookahead(t *testing.T) {
	store := newMemStore()
	today := day(2024, 3, 10)
	store.addDose(dueDose("+911111111111", today.AddDate(0, 0, 3)), true)

	gateway := &sms.MockGateway{}

	strict := newTestDispatcher(store, gateway, Policy{LookaheadDays: 0})
	summary, err := strict.RunTick(context.Background(), today)
	if err != nil {
		t.Fatalf("RunTick() error: %v", err)
	}
	if summary.Due != 0 {
		t.Errorf("expected future dose excluded with zero lookahead, got %+v", summary)
	}

	wide := newTestDispatcher(store, gateway, Policy{LookaheadDays: 3})
	summary, err = wide.RunTick(context.Background(), today)
	if err != nil {
		t.Fatalf("RunTick() error: %v", err)
	}
	if summary.Due != 1 || summary.Sent != 1 {
		t.Errorf("expected future dose included with 3-day lookahead, got %+v", summary)
	}
}

func TestRunTick_EffectiveDateFromNowLocation(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	store := newMemStore()
	store.addDose(dueDose("+911111111111", day(2024, 3, 11)), true)

	gateway := &sms.MockGateway{}
	d := newTestDispatcher(store, gateway, Policy{})

	// 00:30 on 2024-03-11 in Kolkata is still 19:00 on 2024-03-10 in UTC. The
	// tick must read the date from the clinic zone, not the UTC instant, or
	// the dose is skipped and never retried under a zero lookahead.
	now := time.Date(2024, 3, 10, 19, 0, 0, 0, time.UTC).In(ist)
	summary, err := d.RunTick(context.Background(), now)
	if err != nil {
		t.Fatalf("RunTick() error: %v", err)
	}

	if summary.Due != 1 || summary.Sent != 1 {
		t.Errorf("expected the 2024-03-11 dose to be due, got %+v", summary)
	}
	attempts := store.all()
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	if got := attempts[0].AttemptedOn.Format("2006-01-02"); got != "2024-03-11" {
		t.Errorf("expected attempt dated 2024-03-11, got %s", got)
	}
}

func TestRunTick_MessageContent(t *testing.T) {
	store := newMemStore()
	today := day(2024, 2, 12)
	dose := dueDose("+911111111111", today)
	dose.VaccineID = 2
	store.addDose(dose, true)

	gateway := &sms.MockGateway{}
	d := newTestDispatcher(store, gateway, Policy{})

	if _, err := d.RunTick(context.Background(), today); err != nil {
		t.Fatalf("RunTick() error: %v", err)
	}

	attempts := store.all()
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	want := "Dear Asha, vaccination reminder: Pentavalent dose 1 for Ravi is due on 2024-02-12."
	if attempts[0].Message != want {
		t.Errorf("unexpected message:\n got %q\nwant %q", attempts[0].Message, want)
	}

	calls := gateway.Calls()
	if calls[0].Fields.VaccineName != "Pentavalent" || calls[0].Fields.DueDate != "2024-02-12" {
		t.Errorf("unexpected template fields: %+v", calls[0].Fields)
	}
}

func TestRunTick_EndToEndFromGeneratedSchedule(t *testing.T) {
	store := newMemStore()
	patientID := uuid.New()
	dob := day(2024, 1, 1)

	for _, sd := range schedule.BuildForPatient(patientID, dob) {
		store.addDose(&DueDose{
			DoseID:        sd.ID,
			PatientID:     patientID,
			ParentName:    "Asha",
			ParentPhone:   "+919876543210",
			ChildName:     "Ravi",
			VaccineID:     sd.VaccineID,
			DoseNumber:    sd.DoseNumber,
			ScheduledDate: sd.ScheduledDate,
		}, true)
	}

	gateway := &sms.MockGateway{}
	d := newTestDispatcher(store, gateway, Policy{})

	// Birth-day tick reaches exactly the day-0 doses.
	summary, err := d.RunTick(context.Background(), dob)
	if err != nil {
		t.Fatalf("RunTick() error: %v", err)
	}
	if summary.Due != 2 || summary.Sent != 2 {
		t.Errorf("expected the two day-0 doses, got %+v", summary)
	}

	// Six weeks later the day-42 pair comes due.
	summary, err = d.RunTick(context.Background(), day(2024, 2, 12))
	if err != nil {
		t.Fatalf("RunTick() error: %v", err)
	}
	if summary.Due != 2 || summary.Sent != 2 {
		t.Errorf("expected the two day-42 doses on 2024-02-12, got %+v", summary)
	}
}
