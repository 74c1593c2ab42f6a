package model

import "time"

// DispatchRecord is one write-once audit row per attempted send. It exists
// so "we attempted to schedule this" survives later status overwrites on the
// track itself. Rows are never updated.
type DispatchRecord struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	TrackID     int64     `json:"trackId" gorm:"index;not null"`
	PayloadPath string    `json:"payloadPath" gorm:"size:512"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TableName sets the GORM table name.
func (DispatchRecord) TableName() string {
	return "dispatches"
}

// CatalogFile is one entry in the optional local-file catalog: a payload
// mirrored from object storage into the local cache root.
type CatalogFile struct {
	Path             string    `json:"path" gorm:"primaryKey;size:512"`
	NormalizedArtist string    `json:"normalizedArtist" gorm:"size:255"`
	NormalizedTitle  string    `json:"normalizedTitle" gorm:"size:255"`
	DownloadedAt     time.Time `json:"downloadedAt"`
}

// TableName sets the GORM table name.
func (CatalogFile) TableName() string {
	return "catalog_files"
}
