package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vaxremind/vaxremind/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type doseRepoPG struct{ pool *pgxpool.Pool }

func NewDoseRepoPG(pool *pgxpool.Pool) DoseRepository {
	return &doseRepoPG{pool: pool}
}

func (r *doseRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *doseRepoPG) InsertBatch(ctx context.Context, doses []*ScheduledDose) error {
	q := r.conn(ctx)
	for _, d := range doses {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		if d.Status == "" {
			d.Status = StatusPending
		}
		_, err := q.Exec(ctx, `
			INSERT INTO scheduled_doses (id, patient_id, vaccine_id, dose_number, scheduled_date, status)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			d.ID, d.PatientID, d.VaccineID, d.DoseNumber, d.ScheduledDate, d.Status)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *doseRepoPG) ListUpcoming(ctx context.Context, facilityID uuid.UUID, from, to time.Time, limit, offset int) ([]*UpcomingDose, int, error) {
	q := r.conn(ctx)

	var total int
	err := q.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM scheduled_doses sd
		JOIN patients p ON p.id = sd.patient_id
		WHERE p.facility_id = $1
		  AND sd.status = 'pending'
		  AND sd.scheduled_date BETWEEN $2 AND $3`,
		facilityID, from, to).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT sd.id, sd.patient_id, COALESCE(p.child_name, ''), p.parent_name, p.parent_phone,
		       sd.vaccine_id, sd.dose_number, sd.scheduled_date
		FROM scheduled_doses sd
		JOIN patients p ON p.id = sd.patient_id
		WHERE p.facility_id = $1
		  AND sd.status = 'pending'
		  AND sd.scheduled_date BETWEEN $2 AND $3
		ORDER BY sd.scheduled_date ASC, sd.id ASC
		LIMIT $4 OFFSET $5`,
		facilityID, from, to, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*UpcomingDose
	for rows.Next() {
		var u UpcomingDose
		if err := rows.Scan(&u.DoseID, &u.PatientID, &u.ChildName, &u.ParentName, &u.ParentPhone,
			&u.VaccineID, &u.DoseNumber, &u.ScheduledDate); err != nil {
			return nil, 0, err
		}
		u.VaccineName = VaccineName(u.VaccineID)
		items = append(items, &u)
	}
	return items, total, rows.Err()
}
