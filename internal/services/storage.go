package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"geocommons/internal/apperrors"
	"geocommons/internal/models"
	"geocommons/internal/utils/logger"
)

// FeatureRecord is the row shape of every provisioned feature table.
// Geometry holds GeoJSON; Attributes holds the template's free-form fields.
// The permission layer never looks inside either column.
type FeatureRecord struct {
	ID         string               `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID    string               `gorm:"type:uuid;index" json:"ownerId"`
	Status     models.FeatureStatus `gorm:"default:'ACTIVE'" json:"status"`
	Geometry   datatypes.JSON       `gorm:"type:jsonb" json:"geometry,omitempty"`
	Attributes datatypes.JSON       `gorm:"type:jsonb" json:"attributes"`
	CreatedAt  time.Time            `json:"createdAt"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

// FeatureStore provisions and accesses the per-template feature tables. The
// resource managers only ever see the storage name that comes back from
// CreateTable.
type FeatureStore interface {
	CreateTable(ctx context.Context) (string, error)
	DropTable(ctx context.Context, storage string) error
	Insert(ctx context.Context, storage string, record *FeatureRecord) error
	Get(ctx context.Context, storage, id string) (*FeatureRecord, error)
	List(ctx context.Context, storage string, statuses []models.FeatureStatus) ([]FeatureRecord, error)
	Update(ctx context.Context, storage, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, storage, id string) error
	// WithTx returns a store bound to the given transaction handle, so
	// feature writes can commit together with permission rows.
	WithTx(tx *gorm.DB) FeatureStore
}

type gormFeatureStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeatureStore(db *gorm.DB) FeatureStore {
	return &gormFeatureStore{
		db:  db,
		log: logger.New("feature_store"),
	}
}

func (s *gormFeatureStore) WithTx(tx *gorm.DB) FeatureStore {
	return &gormFeatureStore{db: tx, log: s.log}
}

// CreateTable provisions a fresh feature table and returns its name
func (s *gormFeatureStore) CreateTable(ctx context.Context) (string, error) {
	storage := fmt.Sprintf("features_%s", strings.ReplaceAll(uuid.New().String(), "-", "_"))

	if err := s.db.WithContext(ctx).Table(storage).AutoMigrate(&FeatureRecord{}); err != nil {
		return "", s.log.Error("Failed to provision feature table %s", err, storage)
	}

	s.log.Success("Provisioned feature table %s", storage)
	return storage, nil
}

func (s *gormFeatureStore) DropTable(ctx context.Context, storage string) error {
	if err := s.db.WithContext(ctx).Migrator().DropTable(storage); err != nil {
		return s.log.Error("Failed to drop feature table %s", err, storage)
	}
	return nil
}

func (s *gormFeatureStore) Insert(ctx context.Context, storage string, record *FeatureRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Table(storage).Create(record).Error
}

func (s *gormFeatureStore) Get(ctx context.Context, storage, id string) (*FeatureRecord, error) {
	var record FeatureRecord
	err := s.db.WithContext(ctx).Table(storage).Where("id = ?", id).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NewNotFound("feature", id)
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *gormFeatureStore) List(ctx context.Context, storage string, statuses []models.FeatureStatus) ([]FeatureRecord, error) {
	var records []FeatureRecord
	query := s.db.WithContext(ctx).Table(storage)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if err := query.Order("created_at").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *gormFeatureStore) Update(ctx context.Context, storage, id string, fields map[string]interface{}) error {
	result := s.db.WithContext(ctx).Table(storage).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFound("feature", id)
	}
	return nil
}

func (s *gormFeatureStore) Delete(ctx context.Context, storage, id string) error {
	result := s.db.WithContext(ctx).Table(storage).Where("id = ?", id).Delete(&FeatureRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFound("feature", id)
	}
	return nil
}
