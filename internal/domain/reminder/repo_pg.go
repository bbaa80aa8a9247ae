package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vaxremind/vaxremind/internal/platform/db"
)

const pgUniqueViolation = "23505"

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type attemptRepoPG struct{ pool *pgxpool.Pool }

func NewAttemptRepoPG(pool *pgxpool.Pool) AttemptRepository {
	return &attemptRepoPG{pool: pool}
}

func (r *attemptRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *attemptRepoPG) CreateQueued(ctx context.Context, a *Attempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Status = StatusQueued

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO sms_logs (id, scheduled_dose_id, patient_id, to_phone, message, status, attempts, attempted_on)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7)`,
		a.ID, a.ScheduledDoseID, a.PatientID, a.ToPhone, a.Message, a.Status, a.AttemptedOn)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateAttempt
		}
		return err
	}
	return nil
}

func (r *attemptRepoPG) MarkResult(ctx context.Context, id uuid.UUID, status string, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE sms_logs
		SET status = $2, attempts = attempts + 1, last_attempt_at = $3
		WHERE id = $1`,
		id, status, at)
	return err
}

func (r *attemptRepoPG) ListByFacility(ctx context.Context, facilityID uuid.UUID, limit, offset int) ([]*Attempt, int, error) {
	q := r.conn(ctx)

	var total int
	err := q.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM sms_logs sl
		JOIN patients p ON p.id = sl.patient_id
		WHERE p.facility_id = $1`, facilityID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT sl.id, sl.scheduled_dose_id, sl.patient_id, sl.to_phone, sl.message,
		       sl.status, sl.attempts, sl.last_attempt_at, sl.attempted_on, sl.created_at
		FROM sms_logs sl
		JOIN patients p ON p.id = sl.patient_id
		WHERE p.facility_id = $1
		ORDER BY sl.created_at DESC, sl.id
		LIMIT $2 OFFSET $3`,
		facilityID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var attempts []*Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.ScheduledDoseID, &a.PatientID, &a.ToPhone, &a.Message,
			&a.Status, &a.Attempts, &a.LastAttemptAt, &a.AttemptedOn, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		attempts = append(attempts, &a)
	}
	return attempts, total, rows.Err()
}

type dueDoseReaderPG struct{ pool *pgxpool.Pool }

func NewDueDoseReaderPG(pool *pgxpool.Pool) DueDoseReader {
	return &dueDoseReaderPG{pool: pool}
}

func (r *dueDoseReaderPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *dueDoseReaderPG) FindDue(ctx context.Context, onDate time.Time, lookaheadDays int, requireConsent bool) ([]*DueDose, error) {
	windowEnd := onDate.AddDate(0, 0, lookaheadDays)

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT sd.id, sd.patient_id, p.parent_name, p.parent_phone, COALESCE(p.child_name, ''),
		       sd.vaccine_id, sd.dose_number, sd.scheduled_date
		FROM scheduled_doses sd
		JOIN patients p ON p.id = sd.patient_id
		WHERE sd.status = 'pending'
		  AND sd.scheduled_date BETWEEN $1 AND $2
		  AND ($3 = false OR p.consent_optin)
		  AND NOT EXISTS (
			SELECT 1 FROM sms_logs sl
			WHERE sl.scheduled_dose_id = sd.id AND sl.attempted_on = $1
		  )
		ORDER BY sd.scheduled_date ASC, sd.id ASC`,
		onDate, windowEnd, requireConsent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []*DueDose
	for rows.Next() {
		var d DueDose
		if err := rows.Scan(&d.DoseID, &d.PatientID, &d.ParentName, &d.ParentPhone, &d.ChildName,
			&d.VaccineID, &d.DoseNumber, &d.ScheduledDate); err != nil {
			return nil, err
		}
		due = append(due, &d)
	}
	return due, rows.Err()
}
