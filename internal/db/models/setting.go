// Package models contains database model definitions.
package models

// Setting represents a global configuration value stored in the database.
// Keys are free-form dotted strings (e.g. "Settings:Gallery:Require_Review")
// and are always stored upper-cased.
type Setting struct {
	Key   string `gorm:"primaryKey;size:191;column:key"`
	Value string `gorm:"size:1024"`
}

// GallerySetting overrides a global Setting for a single gallery.
// An override with an empty value resolves to the global value.
type GallerySetting struct {
	Key       string `gorm:"primaryKey;size:191;column:key"`
	GalleryID uint64 `gorm:"primaryKey"`
	Value     string `gorm:"size:1024"`
}
