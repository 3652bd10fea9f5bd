package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coreybb/thermowatch/models"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// CheckinRepository stores daily check-ins in Postgres.
type CheckinRepository struct {
	db *sql.DB
}

func NewCheckinRepository(db *sql.DB) *CheckinRepository {
	return &CheckinRepository{db: db}
}

// CreateCheckin checks the worker, then the element, then inserts, all under
// a per-day advisory lock. The unique constraints back this up.
func (r *CheckinRepository) CreateCheckin(ctx context.Context, checkin *models.DailyCheckin) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockKey(ctx, tx, "checkin:"+checkin.Day); err != nil {
			return err
		}

		var taken bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM daily_checkins WHERE day = $1 AND worker_id = $2)`,
			checkin.Day, checkin.WorkerID,
		).Scan(&taken)
		if err != nil {
			return fmt.Errorf("failed to check worker binding: %w", err)
		}
		if taken {
			return models.ErrWorkerAlreadyBound
		}

		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM daily_checkins WHERE day = $1 AND element_id = $2)`,
			checkin.Day, checkin.ElementID,
		).Scan(&taken)
		if err != nil {
			return fmt.Errorf("failed to check element binding: %w", err)
		}
		if taken {
			return models.ErrElementAlreadyBound
		}

		query := `
			INSERT INTO daily_checkins (id, day, worker_id, full_name, element_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err = tx.ExecContext(ctx, query,
			checkin.ID, checkin.Day, checkin.WorkerID, checkin.FullName, checkin.ElementID, checkin.CreatedAt,
		)
		if err != nil {
			return mapUniqueViolation(err)
		}
		return nil
	})
}

func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		switch pqErr.Constraint {
		case "daily_checkins_day_worker_key":
			return models.ErrWorkerAlreadyBound
		case "daily_checkins_day_element_key":
			return models.ErrElementAlreadyBound
		}
	}
	return fmt.Errorf("failed to insert check-in: %w", err)
}

// ListCheckinsForDay returns the day's check-ins in insertion order.
func (r *CheckinRepository) ListCheckinsForDay(ctx context.Context, day string) ([]models.DailyCheckin, error) {
	query := `
		SELECT id, day, worker_id, full_name, element_id, created_at
		FROM daily_checkins
		WHERE day = $1
		ORDER BY seq ASC
	`
	rows, err := r.db.QueryContext(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query check-ins for %s: %w", day, err)
	}
	defer rows.Close()

	checkins := []models.DailyCheckin{}
	for rows.Next() {
		var c models.DailyCheckin
		if err := rows.Scan(&c.ID, &c.Day, &c.WorkerID, &c.FullName, &c.ElementID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan check-in row: %w", err)
		}
		c.CreatedAt = c.CreatedAt.UTC()
		checkins = append(checkins, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating check-in rows: %w", err)
	}
	return checkins, nil
}
