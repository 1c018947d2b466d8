package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DisasterRecord is the persisted outcome of one classified report. Records
// are append-only: created once, never updated or deleted.
type DisasterRecord struct {
	ID        string    `gorm:"primaryKey;column:id;size:36"`
	Category  string    `gorm:"column:category;size:64"`
	Type      string    `gorm:"column:type;size:128"`
	Latitude  float64   `gorm:"column:latitude"`
	Longitude float64   `gorm:"column:longitude"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (DisasterRecord) TableName() string {
	return "disasters"
}

// DisasterRepository provides persistence APIs for disaster records.
type DisasterRepository struct {
	db *gorm.DB
}

// NewDisasterRepository creates a new repository instance.
func NewDisasterRepository(db *gorm.DB) *DisasterRepository {
	return &DisasterRepository{db: db}
}

// AutoMigrate ensures the schema is available.
func (r *DisasterRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&DisasterRecord{})
}

// Insert persists a disaster record, assigning its identifier. A single
// attempt, no retries.
func (r *DisasterRepository) Insert(ctx context.Context, record *DisasterRecord) (string, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return "", err
	}
	return record.ID, nil
}

// ListAll returns every stored record. Order is not guaranteed.
func (r *DisasterRepository) ListAll(ctx context.Context) ([]DisasterRecord, error) {
	var records []DisasterRecord
	if err := r.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
