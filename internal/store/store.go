// Package store persists capture records: scalar fields in SQLite through
// gorm, image bytes as files beside the database.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/couchcryptid/cloudtracker/internal/domain"
)

// captureRow is the captures table. Latitude and Longitude are written and
// read as a pair.
type captureRow struct {
	Seq          uint64   `gorm:"column:seq;primaryKey;autoIncrement"`
	ID           string   `gorm:"column:id;size:36;uniqueIndex;not null"`
	CloudType    string   `gorm:"column:cloud_type;not null"`
	Description  string   `gorm:"column:description;not null"`
	CapturedAt   int64    `gorm:"column:captured_at;index;not null"` // unix nanoseconds, UTC
	Latitude     *float64 `gorm:"column:latitude"`
	Longitude    *float64 `gorm:"column:longitude"`
	LocationName *string  `gorm:"column:location_name"`
	ImageSize    int      `gorm:"column:image_size;not null"`
}

func (captureRow) TableName() string { return "captures" }

func toRow(r domain.CaptureRecord) captureRow {
	row := captureRow{
		ID:          r.ID,
		CloudType:   r.CloudType,
		Description: r.Description,
		CapturedAt:  r.CapturedAt.UTC().UnixNano(),
		ImageSize:   len(r.ImageBytes),
	}
	if r.Location != nil {
		lat, lon := r.Location.Latitude, r.Location.Longitude
		row.Latitude, row.Longitude = &lat, &lon
	}
	if r.LocationName != "" {
		name := r.LocationName
		row.LocationName = &name
	}
	return row
}

func (row captureRow) record(image []byte) domain.CaptureRecord {
	r := domain.CaptureRecord{
		ID:          row.ID,
		ImageBytes:  image,
		CloudType:   row.CloudType,
		Description: row.Description,
		CapturedAt:  time.Unix(0, row.CapturedAt).UTC(),
	}
	if row.Latitude != nil && row.Longitude != nil {
		r.Location = &domain.Coordinates{Latitude: *row.Latitude, Longitude: *row.Longitude}
	}
	if row.LocationName != nil {
		r.LocationName = *row.LocationName
	}
	return r
}

// Store implements domain.RecordStore.
type Store struct {
	db     *gorm.DB
	blobs  *BlobStore
	logger *slog.Logger
}

// Open opens (creating if needed) the database at dbPath and the image
// directory at imageDir, and migrates the schema.
func Open(dbPath, imageDir string, log *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000&_journal_mode=WAL"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&captureRow{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	blobs, err := NewBlobStore(imageDir)
	if err != nil {
		return nil, err
	}

	return &Store{db: db, blobs: blobs, logger: log}, nil
}

// Insert creates the row and writes the image inside one transaction, so a
// record is either fully stored or absent.
func (s *Store) Insert(ctx context.Context, rec domain.CaptureRecord) error {
	row := toRow(rec)
	wrote := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if err := s.blobs.Write(rec.ID, rec.ImageBytes); err != nil {
			return err
		}
		wrote = true
		return nil
	})
	if err != nil {
		if wrote {
			if rmErr := s.blobs.Delete(rec.ID); rmErr != nil {
				s.logger.Warn("failed to remove orphaned image", "id", rec.ID, "error", rmErr)
			}
		}
		return &domain.PersistenceError{Op: "insert", Err: err}
	}

	s.logger.Debug("capture stored", "id", rec.ID, "cloud_type", rec.CloudType, "image_bytes", row.ImageSize)
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (domain.CaptureRecord, error) {
	var row captureRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.CaptureRecord{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.CaptureRecord{}, &domain.PersistenceError{Op: "get", Err: err}
	}

	image, err := s.blobs.Read(row.ID)
	if err != nil {
		return domain.CaptureRecord{}, &domain.PersistenceError{Op: "get", Err: err}
	}
	return row.record(image), nil
}

// List returns every record, newest first. Records with the same timestamp
// keep their insertion order.
func (s *Store) List(ctx context.Context) ([]domain.CaptureRecord, error) {
	var rows []captureRow
	err := s.db.WithContext(ctx).
		Order("captured_at DESC").
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list", Err: err}
	}

	records := make([]domain.CaptureRecord, 0, len(rows))
	for _, row := range rows {
		image, err := s.blobs.Read(row.ID)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "list", Err: err}
		}
		records = append(records, row.record(image))
	}
	return records, nil
}

// Delete removes the row, then its image. A failure to remove the image is
// logged; the record is already gone.
func (s *Store) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&captureRow{})
	if res.Error != nil {
		return &domain.PersistenceError{Op: "delete", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	if err := s.blobs.Delete(id); err != nil {
		s.logger.Warn("failed to remove image", "id", id, "error", err)
	}
	return nil
}

// DeleteAll removes every record and the images belonging to them. Other
// files in the image directory are left alone.
func (s *Store) DeleteAll(ctx context.Context) error {
	var ids []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&captureRow{}).Pluck("id", &ids).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&captureRow{}).Error
	})
	if err != nil {
		return &domain.PersistenceError{Op: "delete all", Err: err}
	}
	if err := s.blobs.Clear(ids); err != nil {
		s.logger.Warn("failed to remove images", "error", err)
	}
	s.logger.Info("collection cleared", "records", len(ids))
	return nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&captureRow{}).Count(&n).Error; err != nil {
		return 0, &domain.PersistenceError{Op: "count", Err: err}
	}
	return n, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
