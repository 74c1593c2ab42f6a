package repository

import (
	"fmt"
	"time"

	"vibecast/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DispatchRepository records the append-only audit trail of attempted sends.
type DispatchRepository interface {
	Record(trackID int64, payloadPath string, at time.Time) (*model.DispatchRecord, error)
	ListByTrack(trackID int64) ([]*model.DispatchRecord, error)
}

// gormDispatchRepository implements DispatchRepository on the GORM connection.
type gormDispatchRepository struct {
	DB *gorm.DB
}

// NewGormDispatchRepository creates a new instance of gormDispatchRepository.
func NewGormDispatchRepository(gdb *gorm.DB) DispatchRepository {
	return &gormDispatchRepository{DB: gdb}
}

// Record inserts one audit row. Rows are write-once; there is no update path.
func (r *gormDispatchRepository) Record(trackID int64, payloadPath string, at time.Time) (*model.DispatchRecord, error) {
	rec := &model.DispatchRecord{
		ID:          uuid.NewString(),
		TrackID:     trackID,
		PayloadPath: payloadPath,
		CreatedAt:   at,
	}
	if err := r.DB.Create(rec).Error; err != nil {
		return nil, fmt.Errorf("failed to insert dispatch record for track %d: %w", trackID, err)
	}
	return rec, nil
}

// ListByTrack returns the audit rows for one track, oldest first.
func (r *gormDispatchRepository) ListByTrack(trackID int64) ([]*model.DispatchRecord, error) {
	var recs []*model.DispatchRecord
	if err := r.DB.Where("track_id = ?", trackID).Order("created_at ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list dispatch records for track %d: %w", trackID, err)
	}
	return recs, nil
}
