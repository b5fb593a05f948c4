package refdata

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested unit or schedule does not exist.
var ErrNotFound = errors.New("reference data not found")

// Repository encapsulates DB access for reference data.
type Repository interface {
	GetUnit(ctx context.Context, name string) (Unit, error)
	ListActiveSchedules(ctx context.Context) ([]Schedule, error)
	GetSchedule(ctx context.Context, code string) (Schedule, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a pgx-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) GetUnit(ctx context.Context, name string) (Unit, error) {
	var u Unit
	err := r.db.QueryRow(ctx, `SELECT name, unit_code, region_code FROM skpd_units WHERE name = $1`, name).
		Scan(&u.Name, &u.UnitCode, &u.RegionCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Unit{}, ErrNotFound
		}
		return Unit{}, err
	}
	return u, nil
}

func (r *repository) ListActiveSchedules(ctx context.Context) ([]Schedule, error) {
	rows, err := r.db.Query(ctx, `SELECT code, description, active FROM schedules WHERE active ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var schedules []Schedule
	for rows.Next() {
		var s Schedule
		if err := rows.Scan(&s.Code, &s.Description, &s.Active); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

func (r *repository) GetSchedule(ctx context.Context, code string) (Schedule, error) {
	var s Schedule
	err := r.db.QueryRow(ctx, `SELECT code, description, active FROM schedules WHERE code = $1`, code).
		Scan(&s.Code, &s.Description, &s.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Schedule{}, ErrNotFound
		}
		return Schedule{}, err
	}
	return s, nil
}
