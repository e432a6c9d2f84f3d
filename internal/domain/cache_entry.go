package domain

import (
	"time"

	"gorm.io/gorm"
)

// CacheEntry struct - one persisted media identity mapping. A catalog post may
// hold two rows, one per representation: the inline photo rendition and the
// uncompressed document. Rows are upserted and never deleted.
type CacheEntry struct {
	PostID              int    `gorm:"primaryKey;autoIncrement:false"`
	AsDocument          bool   `gorm:"primaryKey"`
	PlatformFileID      string `gorm:"not null"`
	PlatformAccessToken string
	FileURL             string
	MimeType            string
	CacheDate           time.Time `gorm:"not null"`
	IsThumbnail         bool
}

// TableName sets the table name for the CacheEntry model
func (CacheEntry) TableName() string {
	return "cache_entries"
}

// MigrateDatabase runs the schema migration for the media cache
func MigrateDatabase(db *gorm.DB) error {
	return db.AutoMigrate(&CacheEntry{})
}
