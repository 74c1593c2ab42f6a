package repository

import (
	"fmt"

	"vibecast/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogRepository tracks payloads mirrored into the local cache root.
type CatalogRepository interface {
	Upsert(file *model.CatalogFile) error
	GetByPath(path string) (*model.CatalogFile, error)
	ListAll() ([]*model.CatalogFile, error)
}

type gormCatalogRepository struct {
	DB *gorm.DB
}

// NewGormCatalogRepository creates a new instance of gormCatalogRepository.
func NewGormCatalogRepository(gdb *gorm.DB) CatalogRepository {
	return &gormCatalogRepository{DB: gdb}
}

// Upsert inserts or refreshes a catalog row keyed by local path.
func (r *gormCatalogRepository) Upsert(file *model.CatalogFile) error {
	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"normalized_artist", "normalized_title", "downloaded_at"}),
	}).Create(file).Error
	if err != nil {
		return fmt.Errorf("failed to upsert catalog file %s: %w", file.Path, err)
	}
	return nil
}

// GetByPath returns the catalog row for a local path, nil when absent.
func (r *gormCatalogRepository) GetByPath(path string) (*model.CatalogFile, error) {
	var file model.CatalogFile
	err := r.DB.Where("path = ?", path).First(&file).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get catalog file %s: %w", path, err)
	}
	return &file, nil
}

// ListAll returns every catalog row.
func (r *gormCatalogRepository) ListAll() ([]*model.CatalogFile, error) {
	var files []*model.CatalogFile
	if err := r.DB.Order("path ASC").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("failed to list catalog files: %w", err)
	}
	return files, nil
}
