package models

import (
	"time"
)

// ItemState is the review lifecycle state of a gallery item.
type ItemState int

const (
	// ItemStateAll is a filter value matching every state. It is never stored.
	ItemStateAll ItemState = 0
	// ItemStatePending marks an item awaiting owner review.
	ItemStatePending ItemState = 1
	// ItemStateApproved marks an item visible in the gallery.
	ItemStateApproved ItemState = 2
	// ItemStateRejected is transient: rejected items are deleted, optionally
	// after their file was moved to the Rejected holding directory.
	ItemStateRejected ItemState = 3
)

// ItemStates lists every state key a count result must contain.
var ItemStates = []ItemState{ItemStateAll, ItemStatePending, ItemStateApproved, ItemStateRejected}

// String returns the state name used as a key in count results.
func (s ItemState) String() string {
	switch s {
	case ItemStatePending:
		return "Pending"
	case ItemStateApproved:
		return "Approved"
	case ItemStateRejected:
		return "Rejected"
	case ItemStateAll:
		return "All"
	default:
		return "Unknown"
	}
}

// MediaType classifies a gallery item's media.
type MediaType int

const (
	// MediaTypeAll is a filter value matching every media type.
	MediaTypeAll MediaType = 0
	// MediaTypeImage marks a photo.
	MediaTypeImage MediaType = 1
	// MediaTypeVideo marks a video clip.
	MediaTypeVideo MediaType = 2
	// MediaTypeUnknown marks media the uploader could not classify.
	MediaTypeUnknown MediaType = 3
)

// Orientation describes the aspect of an uploaded image.
type Orientation int

const (
	// OrientationNone means the orientation is unknown or a filter wildcard.
	OrientationNone Orientation = 0
	// OrientationPortrait is taller than wide.
	OrientationPortrait Orientation = 1
	// OrientationLandscape is wider than tall.
	OrientationLandscape Orientation = 2
	// OrientationSquare has equal sides.
	OrientationSquare Orientation = 3
)

// GalleryItem represents a single uploaded photo or video belonging to a
// gallery. The Title doubles as the on-disk file name inside the gallery's
// directory.
type GalleryItem struct {
	ID            uint64 `gorm:"primaryKey"`
	GalleryID     uint64 `gorm:"index;not null"`
	Title         string `gorm:"size:255;not null"`
	UploadedBy    string `gorm:"size:100"`
	UploaderEmail string `gorm:"size:255"`
	UploadedDate  time.Time
	// Checksum is used for duplicate detection, unique per gallery.
	Checksum    string `gorm:"size:64;index:idx_gallery_checksum"`
	MediaType   MediaType
	Orientation Orientation
	State       ItemState `gorm:"index;not null"`
	FileSize    int64

	// GalleryName is joined from the galleries table on reads.
	GalleryName string `gorm:"->;-:migration"`
}
