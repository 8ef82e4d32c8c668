package models

// AggregateGalleryID is the synthetic gallery id representing all galleries
// combined. It is never persisted.
const AggregateGalleryID uint64 = 0

// DefaultGalleryID is the id of the protected default gallery seeded on
// first start. It cannot be deleted.
const DefaultGalleryID uint64 = 1

// Gallery represents a named collection of media items with its own secret
// key and upload directory.
type Gallery struct {
	// ID is the unique identifier for the gallery.
	ID uint64 `gorm:"primaryKey"`
	// Identifier is the URL-safe slug used to build the gallery's paths.
	Identifier string `gorm:"unique;size:64;not null"`
	// Name is the display name, stored lower-cased and unique.
	Name string `gorm:"unique;size:100;not null"`
	// SecretKey guards guest access to the gallery. Empty means open.
	SecretKey string `gorm:"size:100"`
	// Owner is the id of the user account owning the gallery.
	Owner uint64 `gorm:"not null;default:1"`

	// Item counts and total size are computed by aggregation over
	// gallery_items at read time and never stored.
	TotalItems    int64 `gorm:"->;-:migration"`
	ApprovedItems int64 `gorm:"->;-:migration"`
	PendingItems  int64 `gorm:"->;-:migration"`
	TotalSize     int64 `gorm:"->;-:migration"`
}
