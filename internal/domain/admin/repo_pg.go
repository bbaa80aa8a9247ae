package admin

import (
	"context"

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

type adminRepoPG struct{ pool *pgxpool.Pool }

func NewAdminRepoPG(pool *pgxpool.Pool) AdminRepository {
	return &adminRepoPG{pool: pool}
}

func (r *adminRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const adminCols = `id, facility_id, email, password_hash, role, created_at`

func scanAdmin(row pgx.Row) (*Admin, error) {
	var a Admin
	err := row.Scan(&a.ID, &a.FacilityID, &a.Email, &a.PasswordHash, &a.Role, &a.CreatedAt)
	return &a, err
}

func (r *adminRepoPG) Create(ctx context.Context, a *Admin) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO admins (id, facility_id, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		a.ID, a.FacilityID, a.Email, a.PasswordHash, a.Role).Scan(&a.CreatedAt)
}

func (r *adminRepoPG) GetByEmail(ctx context.Context, email string) (*Admin, error) {
	return scanAdmin(r.conn(ctx).QueryRow(ctx,
		`SELECT `+adminCols+` FROM admins WHERE email = $1`, email))
}

func (r *adminRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Admin, error) {
	return scanAdmin(r.conn(ctx).QueryRow(ctx,
		`SELECT `+adminCols+` FROM admins WHERE id = $1`, id))
}
