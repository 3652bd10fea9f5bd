// Package sqlitestore keeps readings and check-ins in a local sqlite file
// through gorm. It is the default backend for single-site deployments.
package sqlitestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/coreybb/thermowatch/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type readingRow struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	ElementID    string  `gorm:"not null;index:idx_readings_element_recorded,priority:1"`
	TemperatureC float64 `gorm:"not null"`
	// Microseconds since the epoch, UTC. Integer keeps dedup lookups exact.
	RecordedAt int64 `gorm:"not null;index:idx_readings_element_recorded,priority:2"`
}

func (readingRow) TableName() string { return "readings" }

func (r readingRow) toModel() models.Reading {
	return models.Reading{
		ID:           r.ID,
		ElementID:    r.ElementID,
		TemperatureC: r.TemperatureC,
		RecordedAt:   time.UnixMicro(r.RecordedAt).UTC(),
	}
}

type checkinRow struct {
	ID        string    `gorm:"primaryKey"`
	Day       string    `gorm:"not null;uniqueIndex:idx_checkins_day_worker,priority:1;uniqueIndex:idx_checkins_day_element,priority:1"`
	WorkerID  string    `gorm:"not null;uniqueIndex:idx_checkins_day_worker,priority:2"`
	ElementID string    `gorm:"not null;uniqueIndex:idx_checkins_day_element,priority:2"`
	FullName  string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (checkinRow) TableName() string { return "daily_checkins" }

func (c checkinRow) toModel() models.DailyCheckin {
	return models.DailyCheckin{
		ID:        c.ID,
		Day:       c.Day,
		WorkerID:  c.WorkerID,
		ElementID: c.ElementID,
		FullName:  c.FullName,
		CreatedAt: c.CreatedAt.UTC(),
	}
}

// Store implements models.ReadingStore and models.CheckinStore.
type Store struct {
	db *gorm.DB
}

// Open creates the database file (and its directory) if needed, then migrates.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	// One connection serialises every transaction, which is the exclusion
	// scope for the check-then-insert paths below.
	sqlDB.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.Migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// Migrate creates or updates the tables and indexes.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&readingRow{}, &checkinRow{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Append(ctx context.Context, elementID string, temperatureC float64, recordedAt time.Time) (models.Reading, error) {
	return appendReading(s.db.WithContext(ctx), elementID, temperatureC, recordedAt)
}

func appendReading(tx *gorm.DB, elementID string, temperatureC float64, recordedAt time.Time) (models.Reading, error) {
	if elementID == "" {
		return models.Reading{}, errors.New("element id cannot be empty")
	}
	row := readingRow{
		ElementID:    elementID,
		TemperatureC: temperatureC,
		RecordedAt:   recordedAt.UTC().UnixMicro(),
	}
	if err := tx.Create(&row).Error; err != nil {
		return models.Reading{}, fmt.Errorf("failed to insert reading: %w", err)
	}
	return row.toModel(), nil
}

func (s *Store) Exists(ctx context.Context, elementID string, recordedAt time.Time) (bool, error) {
	return readingExists(s.db.WithContext(ctx), elementID, recordedAt)
}

func readingExists(tx *gorm.DB, elementID string, recordedAt time.Time) (bool, error) {
	var count int64
	err := tx.Model(&readingRow{}).
		Where("element_id = ? AND recorded_at = ?", elementID, recordedAt.UTC().UnixMicro()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check reading existence: %w", err)
	}
	return count > 0, nil
}

func (s *Store) AppendIfAbsent(ctx context.Context, elementID string, temperatureC float64, recordedAt time.Time) (models.Reading, bool, error) {
	var reading models.Reading
	var created bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := readingExists(tx, elementID, recordedAt)
		if err != nil || exists {
			return err
		}
		reading, err = appendReading(tx, elementID, temperatureC, recordedAt)
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

func (s *Store) Latest(ctx context.Context, elementID string) (*models.Reading, error) {
	var rows []readingRow
	err := s.db.WithContext(ctx).
		Where("element_id = ?", elementID).
		Order("recorded_at desc, id desc").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get latest reading for element %s: %w", elementID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	reading := rows[0].toModel()
	return &reading, nil
}

func (s *Store) ListByElement(ctx context.Context, elementID string, limit int) ([]models.Reading, error) {
	var rows []readingRow
	err := s.db.WithContext(ctx).
		Where("element_id = ?", elementID).
		Order("recorded_at desc, id desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query readings for element %s: %w", elementID, err)
	}

	readings := make([]models.Reading, 0, len(rows))
	for _, row := range rows {
		readings = append(readings, row.toModel())
	}
	return readings, nil
}

func (s *Store) CreateCheckin(ctx context.Context, checkin *models.DailyCheckin) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&checkinRow{}).
			Where("day = ? AND worker_id = ?", checkin.Day, checkin.WorkerID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check worker binding: %w", err)
		}
		if count > 0 {
			return models.ErrWorkerAlreadyBound
		}

		err = tx.Model(&checkinRow{}).
			Where("day = ? AND element_id = ?", checkin.Day, checkin.ElementID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check element binding: %w", err)
		}
		if count > 0 {
			return models.ErrElementAlreadyBound
		}

		row := checkinRow{
			ID:        checkin.ID,
			Day:       checkin.Day,
			WorkerID:  checkin.WorkerID,
			ElementID: checkin.ElementID,
			FullName:  checkin.FullName,
			CreatedAt: checkin.CreatedAt.UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return mapUniqueViolation(err)
		}
		return nil
	})
}

// mapUniqueViolation turns sqlite's "UNIQUE constraint failed: t.a, t.b"
// message into the matching conflict.
func mapUniqueViolation(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		switch {
		case strings.Contains(msg, "worker_id"):
			return models.ErrWorkerAlreadyBound
		case strings.Contains(msg, "element_id"):
			return models.ErrElementAlreadyBound
		}
	}
	return fmt.Errorf("failed to insert check-in: %w", err)
}

func (s *Store) ListCheckinsForDay(ctx context.Context, day string) ([]models.DailyCheckin, error) {
	var rows []checkinRow
	err := s.db.WithContext(ctx).
		Where("day = ?", day).
		Order("rowid asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query check-ins for %s: %w", day, err)
	}

	checkins := make([]models.DailyCheckin, 0, len(rows))
	for _, row := range rows {
		checkins = append(checkins, row.toModel())
	}
	return checkins, nil
}
