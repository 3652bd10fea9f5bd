package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/coreybb/thermowatch/models"
)

// ReadingRepository stores readings in Postgres.
type ReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository creates a new ReadingRepository.
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Postgres keeps microseconds; dedup lookups must compare the stored value.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

type execQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertReading(ctx context.Context, q execQuerier, elementID string, temperatureC float64, recordedAt time.Time) (models.Reading, error) {
	if elementID == "" {
		return models.Reading{}, fmt.Errorf("element id cannot be empty")
	}
	query := `
		INSERT INTO readings (element_id, temperature_c, recorded_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	reading := models.Reading{
		ElementID:    elementID,
		TemperatureC: temperatureC,
		RecordedAt:   normalizeTime(recordedAt),
	}
	if err := q.QueryRowContext(ctx, query, elementID, temperatureC, reading.RecordedAt).Scan(&reading.ID); err != nil {
		return models.Reading{}, fmt.Errorf("failed to insert reading: %w", err)
	}
	return reading, nil
}

func readingExists(ctx context.Context, q execQuerier, elementID string, recordedAt time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM readings WHERE element_id = $1 AND recorded_at = $2)`
	var exists bool
	if err := q.QueryRowContext(ctx, query, elementID, normalizeTime(recordedAt)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check reading existence: %w", err)
	}
	return exists, nil
}

// Append inserts a reading; the id comes from the table sequence.
func (r *ReadingRepository) Append(ctx context.Context, elementID string, temperatureC float64, recordedAt time.Time) (models.Reading, error) {
	return insertReading(ctx, r.db, elementID, temperatureC, recordedAt)
}

// Exists reports whether a reading with the same element and timestamp is stored.
func (r *ReadingRepository) Exists(ctx context.Context, elementID string, recordedAt time.Time) (bool, error) {
	return readingExists(ctx, r.db, elementID, recordedAt)
}

// AppendIfAbsent serialises writers on the (element, timestamp) key with an
// advisory lock so concurrent reconcilers cannot both insert.
func (r *ReadingRepository) AppendIfAbsent(ctx context.Context, elementID string, temperatureC float64, recordedAt time.Time) (models.Reading, bool, error) {
	var reading models.Reading
	var created bool

	key := fmt.Sprintf("reading:%s:%d", elementID, normalizeTime(recordedAt).UnixMicro())
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockKey(ctx, tx, key); err != nil {
			return err
		}
		exists, err := readingExists(ctx, tx, elementID, recordedAt)
		if err != nil || exists {
			return err
		}
		reading, err = insertReading(ctx, tx, elementID, temperatureC, recordedAt)
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return models.Reading{}, false, err
	}
	return reading, created, nil
}

// Latest returns the newest reading for the element. Ties on recorded_at go
// to the most recently appended row. Returns nil, nil when there is none.
func (r *ReadingRepository) Latest(ctx context.Context, elementID string) (*models.Reading, error) {
	query := `
		SELECT id, element_id, temperature_c, recorded_at
		FROM readings
		WHERE element_id = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`
	var reading models.Reading
	err := r.db.QueryRowContext(ctx, query, elementID).Scan(
		&reading.ID, &reading.ElementID, &reading.TemperatureC, &reading.RecordedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest reading for element %s: %w", elementID, err)
	}
	reading.RecordedAt = reading.RecordedAt.UTC()
	return &reading, nil
}

// ListByElement returns up to limit readings for the element, newest first.
func (r *ReadingRepository) ListByElement(ctx context.Context, elementID string, limit int) ([]models.Reading, error) {
	query := `
		SELECT id, element_id, temperature_c, recorded_at
		FROM readings
		WHERE element_id = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, elementID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings for element %s: %w", elementID, err)
	}
	defer rows.Close()

	readings := []models.Reading{}
	for rows.Next() {
		var reading models.Reading
		if err := rows.Scan(&reading.ID, &reading.ElementID, &reading.TemperatureC, &reading.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reading row: %w", err)
		}
		reading.RecordedAt = reading.RecordedAt.UTC()
		readings = append(readings, reading)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reading rows: %w", err)
	}
	return readings, nil
}
