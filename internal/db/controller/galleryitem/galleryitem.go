// Package galleryitem provides CRUD and filtered queries over the media
// items uploaded to galleries.
package galleryitem

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
)

// joinedSelect enriches every item row with the owning gallery's name.
const joinedSelect = "gallery_items.*, galleries.name AS gallery_name"

var (
	// ErrItemNotFound is returned when no item has the given id.
	ErrItemNotFound = errors.New("gallery item not found")
	// ErrItemGalleryRequired is returned when the item has no gallery id.
	ErrItemGalleryRequired = errors.New("gallery item requires a gallery id")
	// ErrItemTitleEmpty is returned when the item has no file name.
	ErrItemTitleEmpty = errors.New("gallery item title cannot be empty")
	// ErrRandomOrderGrouped is returned when random order is combined with
	// grouping, which has no meaningful result.
	ErrRandomOrderGrouped = errors.New("random order cannot be grouped")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Group selects how a listing is clustered before date ordering applies.
type Group int

const (
	GroupNone Group = iota
	GroupDate
	GroupUploader
	GroupMediaType
)

// Order selects the direction of the date sort within a listing.
type Order int

const (
	OrderDescending Order = iota
	OrderAscending
	OrderRandom
)

// Query filters and shapes a listing. Zero values are wildcards: gallery id
// 0 spans all galleries and state/media/orientation 0 match everything.
type Query struct {
	GalleryID   uint64
	State       models.ItemState
	MediaType   models.MediaType
	Orientation models.Orientation
	Group       Group
	Order       Order
	Limit       int
	Page        int
}

// Add stores a new item. The state defaults to pending and the upload time
// to now in UTC. The returned row carries the joined gallery name.
func Add(ctx context.Context, db *gorm.DB, item *models.GalleryItem) (*models.GalleryItem, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if item.GalleryID == 0 {
		return nil, ErrItemGalleryRequired
	}
	if strings.TrimSpace(item.Title) == "" {
		return nil, ErrItemTitleEmpty
	}

	if item.State == models.ItemStateAll {
		item.State = models.ItemStatePending
	}
	if item.UploadedDate.IsZero() {
		item.UploadedDate = time.Now().UTC()
	}

	if err := db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}

	return Get(ctx, db, item.ID)
}

// Edit updates every mutable field of an existing item.
func Edit(ctx context.Context, db *gorm.DB, item *models.GalleryItem) (*models.GalleryItem, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if item.GalleryID == 0 {
		return nil, ErrItemGalleryRequired
	}
	if strings.TrimSpace(item.Title) == "" {
		return nil, ErrItemTitleEmpty
	}

	result := db.WithContext(ctx).Model(&models.GalleryItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"gallery_id":     item.GalleryID,
			"title":          item.Title,
			"uploaded_by":    item.UploadedBy,
			"uploader_email": item.UploaderEmail,
			"checksum":       item.Checksum,
			"media_type":     item.MediaType,
			"orientation":    item.Orientation,
			"state":          item.State,
			"file_size":      item.FileSize,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrItemNotFound
	}

	return Get(ctx, db, item.ID)
}

// Delete removes an item row. The on-disk file is the caller's concern.
func Delete(ctx context.Context, db *gorm.DB, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.WithContext(ctx).Delete(&models.GalleryItem{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}

	return nil
}

// Get retrieves a single item with its gallery name joined in.
func Get(ctx context.Context, db *gorm.DB, id uint64) (*models.GalleryItem, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var item models.GalleryItem
	err := db.WithContext(ctx).Model(&models.GalleryItem{}).
		Select(joinedSelect).
		Joins("JOIN galleries ON galleries.id = gallery_items.gallery_id").
		Where("gallery_items.id = ?", id).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	return &item, nil
}

// GetByChecksum finds an item in a gallery by its content checksum. It is
// the duplicate-upload probe.
func GetByChecksum(ctx context.Context, db *gorm.DB, galleryID uint64, checksum string) (*models.GalleryItem, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if checksum == "" {
		return nil, ErrItemNotFound
	}

	var item models.GalleryItem
	err := db.WithContext(ctx).
		Where("gallery_id = ? AND checksum = ?", galleryID, checksum).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	return &item, nil
}

// ListPending returns items awaiting review, oldest first, with gallery
// names joined in. A gallery id of 0 spans every gallery.
func ListPending(ctx context.Context, db *gorm.DB, galleryID uint64) ([]models.GalleryItem, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	tx := db.WithContext(ctx).Model(&models.GalleryItem{}).
		Select(joinedSelect).
		Joins("JOIN galleries ON galleries.id = gallery_items.gallery_id").
		Where("gallery_items.state = ?", models.ItemStatePending)
	if galleryID > 0 {
		tx = tx.Where("gallery_items.gallery_id = ?", galleryID)
	}

	var items []models.GalleryItem
	if err := tx.Order("gallery_items.uploaded_date ASC").Find(&items).Error; err != nil {
		return nil, err
	}

	return items, nil
}

// PendingCount returns the number of items awaiting review.
func PendingCount(ctx context.Context, db *gorm.DB, galleryID uint64) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	tx := db.WithContext(ctx).Model(&models.GalleryItem{}).
		Where("state = ?", models.ItemStatePending)
	if galleryID > 0 {
		tx = tx.Where("gallery_id = ?", galleryID)
	}

	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

// List returns items matching the query, shaped by its grouping, order and
// pagination. Random order is only valid without grouping.
func List(ctx context.Context, db *gorm.DB, query Query) ([]models.GalleryItem, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if query.Order == OrderRandom && query.Group != GroupNone {
		return nil, ErrRandomOrderGrouped
	}

	tx := db.WithContext(ctx).Model(&models.GalleryItem{}).
		Select(joinedSelect).
		Joins("JOIN galleries ON galleries.id = gallery_items.gallery_id")
	tx = applyFilters(tx, query)
	tx = applyOrder(tx, query)

	if query.Limit > 0 {
		tx = tx.Limit(query.Limit)
		if query.Page > 1 {
			tx = tx.Offset((query.Page - 1) * query.Limit)
		}
	}

	var items []models.GalleryItem
	if err := tx.Find(&items).Error; err != nil {
		return nil, err
	}

	return items, nil
}

func applyFilters(tx *gorm.DB, query Query) *gorm.DB {
	if query.GalleryID > 0 {
		tx = tx.Where("gallery_items.gallery_id = ?", query.GalleryID)
	}
	if query.State != models.ItemStateAll {
		tx = tx.Where("gallery_items.state = ?", query.State)
	}
	if query.MediaType != models.MediaTypeAll {
		tx = tx.Where("gallery_items.media_type = ?", query.MediaType)
	}
	if query.Orientation != models.OrientationNone {
		tx = tx.Where("gallery_items.orientation = ?", query.Orientation)
	}
	return tx
}

func applyOrder(tx *gorm.DB, query Query) *gorm.DB {
	if query.Order == OrderRandom {
		return tx.Order("RANDOM()")
	}

	direction := "DESC"
	if query.Order == OrderAscending {
		direction = "ASC"
	}

	switch query.Group {
	case GroupUploader:
		tx = tx.Order("gallery_items.uploaded_by ASC")
	case GroupMediaType:
		tx = tx.Order("gallery_items.media_type ASC")
	}

	return tx.Order("gallery_items.uploaded_date " + direction)
}

// Count returns per-state item counts for the matching filters. Every state
// appears in the result even when zero, and All is the sum of the rest.
func Count(ctx context.Context, db *gorm.DB, galleryID uint64, state models.ItemState, mediaType models.MediaType, orientation models.Orientation) (map[string]int64, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	tx := db.WithContext(ctx).Model(&models.GalleryItem{}).
		Select("state, COUNT(id) AS total").
		Group("state")
	if galleryID > 0 {
		tx = tx.Where("gallery_id = ?", galleryID)
	}
	if state != models.ItemStateAll {
		tx = tx.Where("state = ?", state)
	}
	if mediaType != models.MediaTypeAll {
		tx = tx.Where("media_type = ?", mediaType)
	}
	if orientation != models.OrientationNone {
		tx = tx.Where("orientation = ?", orientation)
	}

	var rows []struct {
		State models.ItemState
		Total int64
	}
	if err := tx.Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(models.ItemStates))
	for _, s := range models.ItemStates {
		counts[s.String()] = 0
	}

	var sum int64
	for _, row := range rows {
		counts[row.State.String()] = row.Total
		sum += row.Total
	}
	counts[models.ItemStateAll.String()] = sum

	return counts, nil
}
