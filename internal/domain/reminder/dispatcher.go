package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vaxremind/vaxremind/internal/domain/schedule"
	"github.com/vaxremind/vaxremind/internal/platform/sms"
)

// Policy controls dose eligibility per tick. LookaheadDays widens the window
// beyond today; RequireConsent drops doses of opted-out patients.
type Policy struct {
	LookaheadDays  int
	RequireConsent bool
}

// Summary reports one tick's outcome counts. Due counts eligible doses,
// Attempted the doses this run actually took on (duplicates skipped by
// another run are excluded), Sent and Failed the terminal outcomes.
type Summary struct {
	Due       int `json:"due"`
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// Dispatcher finds due doses and sends at most one reminder per dose per
// calendar day.
type Dispatcher struct {
	due      DueDoseReader
	attempts AttemptRepository
	gateway  sms.Gateway
	policy   Policy
	logger   zerolog.Logger

	// mu serializes ticks within this process; across processes the unique
	// index on (scheduled_dose_id, attempted_on) makes overlapping runs skip.
	mu sync.Mutex
}

func NewDispatcher(due DueDoseReader, attempts AttemptRepository, gateway sms.Gateway, policy Policy, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		due:      due,
		attempts: attempts,
		gateway:  gateway,
		policy:   policy,
		logger:   logger,
	}
}

// RunTick processes all doses due on now's calendar date, read in now's
// location; callers on a schedule must pass a time already converted to the
// clinic timezone. Each dose is handled independently: one recipient's
// failure never aborts the batch. The tick is not one transaction; a crash
// mid-tick leaves processed doses finalized and the rest eligible on the
// next run.
func (d *Dispatcher) RunTick(ctx context.Context, now time.Time) (Summary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	onDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	due, err := d.due.FindDue(ctx, onDate, d.policy.LookaheadDays, d.policy.RequireConsent)
	if err != nil {
		return Summary{}, fmt.Errorf("find due doses: %w", err)
	}

	summary := Summary{Due: len(due)}
	for _, dose := range due {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		d.processDose(ctx, dose, onDate, now, &summary)
	}

	d.logger.Info().
		Time("date", onDate).
		Int("due", summary.Due).
		Int("attempted", summary.Attempted).
		Int("sent", summary.Sent).
		Int("failed", summary.Failed).
		Msg("reminder tick finished")

	return summary, nil
}

func (d *Dispatcher) processDose(ctx context.Context, dose *DueDose, onDate, now time.Time, summary *Summary) {
	vaccine := schedule.VaccineName(dose.VaccineID)
	dueDate := dose.ScheduledDate.Format("2006-01-02")
	message := renderMessage(dose.ParentName, vaccine, dose.DoseNumber, dose.ChildName, dueDate)

	attempt := &Attempt{
		ScheduledDoseID: dose.DoseID,
		PatientID:       dose.PatientID,
		ToPhone:         dose.ParentPhone,
		Message:         message,
		AttemptedOn:     onDate,
	}

	// Write-ahead intent. A duplicate key means another run got here first.
	if err := d.attempts.CreateQueued(ctx, attempt); err != nil {
		if errors.Is(err, ErrDuplicateAttempt) {
			d.logger.Debug().
				Str("dose_id", dose.DoseID.String()).
				Msg("attempt already logged, skipping")
			return
		}
		d.logger.Error().Err(err).
			Str("dose_id", dose.DoseID.String()).
			Msg("failed to log reminder attempt")
		return
	}
	summary.Attempted++

	result, sendErr := d.gateway.Send(ctx, dose.ParentPhone, sms.TemplateFields{
		ParentName:  dose.ParentName,
		ChildName:   dose.ChildName,
		VaccineName: vaccine,
		DueDate:     dueDate,
	})

	status := StatusFailed
	if sendErr == nil {
		status = result.Status
		summary.Sent++
	} else {
		summary.Failed++
		d.logger.Warn().Err(sendErr).
			Str("dose_id", dose.DoseID.String()).
			Str("to", dose.ParentPhone).
			Msg("reminder send failed")
	}

	if err := d.attempts.MarkResult(ctx, attempt.ID, status, now); err != nil {
		d.logger.Error().Err(err).
			Str("attempt_id", attempt.ID.String()).
			Msg("failed to finalize reminder attempt")
	}
}

func renderMessage(parentName, vaccine string, doseNumber int, childName, dueDate string) string {
	if childName == "" {
		childName = "your child"
	}
	return fmt.Sprintf("Dear %s, vaccination reminder: %s dose %d for %s is due on %s.",
		parentName, vaccine, doseNumber, childName, dueDate)
}
