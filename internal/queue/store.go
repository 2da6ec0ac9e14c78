// Package queue persists records waiting for upload in a local SQLite database.
//
// Records are grouped by category and acknowledged (deleted) only after the
// backend accepts them, so a failed upload leaves them queued for the next
// launch.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bft-labs/feedship/internal/domain"
)

// DBFileName is the queue database file inside the data directory.
const DBFileName = "queue.db"

// Record is the persisted row for one queued item.
type Record struct {
	ID        uint           `gorm:"primaryKey"`
	Category  string         `gorm:"size:32;index:idx_queue_category_id,priority:1;not null"`
	Payload   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time
}

// TableName pins the table name.
func (Record) TableName() string { return "queued_records" }

// Store implements ports.UploadQueue on GORM.
type Store struct {
	db *gorm.DB
}

// Open opens (and migrates) the queue database at path.
// Use ":memory:" or a "file::memory:" DSN for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" && filepath.Dir(path) != "." {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("queue dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open queue %s: %w", path, err)
	}
	return New(db)
}

// New wraps an existing database handle and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate queue: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Enqueue adds a record for later upload and returns its id.
func (s *Store) Enqueue(ctx context.Context, category domain.Category, payload json.RawMessage) (uint, error) {
	if !json.Valid(payload) {
		return 0, fmt.Errorf("enqueue %s: payload is not valid JSON", category)
	}
	rec := Record{Category: string(category), Payload: datatypes.JSON(payload)}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return 0, fmt.Errorf("enqueue %s: %w", category, err)
	}
	return rec.ID, nil
}

// Pending returns up to limit queued records of a category, oldest first.
func (s *Store) Pending(ctx context.Context, category domain.Category, limit int) ([]domain.QueuedRecord, error) {
	var rows []Record
	q := s.db.WithContext(ctx).Where("category = ?", string(category)).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("pending %s: %w", category, err)
	}

	out := make([]domain.QueuedRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.QueuedRecord{
			ID:       r.ID,
			Category: domain.Category(r.Category),
			Payload:  json.RawMessage(r.Payload),
		})
	}
	return out, nil
}

// Ack removes accepted records.
func (s *Store) Ack(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Delete(&Record{}, ids).Error; err != nil {
		return fmt.Errorf("ack %d records: %w", len(ids), err)
	}
	return nil
}

// Count returns the number of queued records per category.
func (s *Store) Count(ctx context.Context) (map[domain.Category]int64, error) {
	type row struct {
		Category string
		N        int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&Record{}).
		Select("category, count(*) as n").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count queue: %w", err)
	}

	out := make(map[domain.Category]int64, len(domain.Categories()))
	for _, c := range domain.Categories() {
		out[c] = 0
	}
	for _, r := range rows {
		out[domain.Category(r.Category)] = r.N
	}
	return out, nil
}

// Bytes returns the summed payload size of every queued record.
func (s *Store) Bytes(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&Record{}).
		Select("COALESCE(SUM(LENGTH(CAST(payload AS BLOB))), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("queue bytes: %w", err)
	}
	return total, nil
}

// DropOldest deletes the oldest records across all categories until the
// summed payload size is at most target. It returns the number of records
// and bytes removed.
func (s *Store) DropOldest(ctx context.Context, target int64) (int, int64, error) {
	total, err := s.Bytes(ctx)
	if err != nil {
		return 0, 0, err
	}

	type row struct {
		ID   uint
		Size int64
	}
	var removed int
	var freed int64
	for total > target {
		var rows []row
		err := s.db.WithContext(ctx).Model(&Record{}).
			Select("id, LENGTH(CAST(payload AS BLOB)) AS size").
			Order("id ASC").
			Limit(dropPage).
			Scan(&rows).Error
		if err != nil {
			return removed, freed, fmt.Errorf("drop oldest: %w", err)
		}
		if len(rows) == 0 {
			break
		}

		ids := make([]uint, 0, len(rows))
		for _, r := range rows {
			if total <= target {
				break
			}
			ids = append(ids, r.ID)
			total -= r.Size
			freed += r.Size
		}
		if err := s.db.WithContext(ctx).Delete(&Record{}, ids).Error; err != nil {
			return removed, freed, fmt.Errorf("drop oldest: %w", err)
		}
		removed += len(ids)
	}
	return removed, freed, nil
}

const dropPage = 200
