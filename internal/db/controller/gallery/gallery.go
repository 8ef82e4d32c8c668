// Package gallery provides the gallery directory: CRUD over galleries with
// item counts computed by aggregation at read time.
package gallery

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/setting"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
	"github.com/GoWeddingShare/GoWeddingShare/internal/settings"
)

// aggregateSelect joins every gallery with its items so counts and sizes
// are always derived from the item table, never stored redundantly.
const aggregateSelect = `SELECT g.id, g.identifier, g.name, g.secret_key, g.owner,
COUNT(gi.id) AS total_items,
COALESCE(SUM(CASE WHEN gi.state = @approved THEN 1 ELSE 0 END), 0) AS approved_items,
COALESCE(SUM(CASE WHEN gi.state = @pending THEN 1 ELSE 0 END), 0) AS pending_items,
COALESCE(SUM(gi.file_size), 0) AS total_size
FROM galleries AS g
LEFT JOIN gallery_items AS gi ON gi.gallery_id = g.id
`

var (
	// ErrGalleryNotFound is returned when no gallery has the given id.
	ErrGalleryNotFound = errors.New("gallery not found")
	// ErrGalleryNameEmpty is returned when the gallery name is blank.
	ErrGalleryNameEmpty = errors.New("gallery name cannot be empty")
	// ErrGalleryNameProtected is returned when the name is reserved.
	ErrGalleryNameProtected = errors.New("gallery name is protected")
	// ErrGalleryNameTaken is returned on a case-insensitive name collision.
	ErrGalleryNameTaken = errors.New("gallery name already exists")
	// ErrGalleryIdentifierTaken is returned when the identifier is in use.
	ErrGalleryIdentifierTaken = errors.New("gallery identifier already exists")
	// ErrGalleryProtected is returned when deleting the default gallery.
	ErrGalleryProtected = errors.New("gallery cannot be deleted")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// ProtectedNames are reserved and can never be used as gallery names.
var ProtectedNames = []string{"all"}

func isProtectedName(name string) bool {
	for _, p := range ProtectedNames {
		if strings.EqualFold(p, strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// Count returns the number of galleries.
func Count(ctx context.Context, db *gorm.DB) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.Gallery{}).Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

// Names returns every gallery name ordered alphabetically.
func Names(ctx context.Context, db *gorm.DB) ([]string, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var names []string
	err := db.WithContext(ctx).Model(&models.Gallery{}).
		Order("name ASC").
		Pluck("name", &names).Error
	if err != nil {
		return nil, err
	}

	return names, nil
}

// IDByIdentifier resolves a gallery id from its slug, case-insensitively.
func IDByIdentifier(ctx context.Context, db *gorm.DB, identifier string) (uint64, error) {
	return lookupID(ctx, db, "UPPER(identifier) = UPPER(?)", identifier)
}

// IDByName resolves a gallery id from its name, case-insensitively.
func IDByName(ctx context.Context, db *gorm.DB, name string) (uint64, error) {
	return lookupID(ctx, db, "UPPER(name) = UPPER(?)", name)
}

func lookupID(ctx context.Context, db *gorm.DB, clause, value string) (uint64, error) {
	if db == nil {
		return 0, ErrDBNil
	}
	if strings.TrimSpace(value) == "" {
		return 0, ErrGalleryNotFound
	}

	var gallery models.Gallery
	err := db.WithContext(ctx).Select("id").Where(clause, value).First(&gallery).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrGalleryNotFound
		}
		return 0, err
	}

	return gallery.ID, nil
}

// Get retrieves a gallery with its aggregated item counts. Id 0 returns a
// synthetic "all" gallery summing counts across every real gallery.
func Get(ctx context.Context, db *gorm.DB, id uint64) (*models.Gallery, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if id == models.AggregateGalleryID {
		return aggregate(ctx, db)
	}

	var galleries []models.Gallery
	err := db.WithContext(ctx).
		Raw(aggregateSelect+"WHERE g.id = @id GROUP BY g.id",
			map[string]interface{}{
				"id":       id,
				"approved": models.ItemStateApproved,
				"pending":  models.ItemStatePending,
			}).
		Scan(&galleries).Error
	if err != nil {
		return nil, err
	}
	if len(galleries) == 0 {
		return nil, ErrGalleryNotFound
	}

	return &galleries[0], nil
}

// GetAll retrieves every gallery with aggregated counts, ordered by name.
func GetAll(ctx context.Context, db *gorm.DB) ([]models.Gallery, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var galleries []models.Gallery
	err := db.WithContext(ctx).
		Raw(aggregateSelect+"GROUP BY g.id ORDER BY g.name ASC",
			map[string]interface{}{
				"approved": models.ItemStateApproved,
				"pending":  models.ItemStatePending,
			}).
		Scan(&galleries).Error
	if err != nil {
		return nil, err
	}

	return galleries, nil
}

func aggregate(ctx context.Context, db *gorm.DB) (*models.Gallery, error) {
	galleries, err := GetAll(ctx, db)
	if err != nil {
		return nil, err
	}

	all := &models.Gallery{
		ID:         models.AggregateGalleryID,
		Identifier: "all",
		Name:       "all",
		Owner:      1,
	}
	for _, g := range galleries {
		all.TotalItems += g.TotalItems
		all.ApprovedItems += g.ApprovedItems
		all.PendingItems += g.PendingItems
		all.TotalSize += g.TotalSize
	}

	return all, nil
}

// Create adds a new gallery. The name must not collide case-insensitively
// with an existing or protected name, and the identifier must be unused.
// On success the gallery's SecretKey override setting is seeded.
func Create(ctx context.Context, db *gorm.DB, name, identifier, secretKey string, owner uint64) (*models.Gallery, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, ErrGalleryNameEmpty
	}
	if isProtectedName(name) {
		return nil, ErrGalleryNameProtected
	}

	if _, err := IDByName(ctx, db, name); err == nil {
		return nil, ErrGalleryNameTaken
	} else if !errors.Is(err, ErrGalleryNotFound) {
		return nil, err
	}

	if _, err := IDByIdentifier(ctx, db, identifier); err == nil {
		return nil, ErrGalleryIdentifierTaken
	} else if !errors.Is(err, ErrGalleryNotFound) {
		return nil, err
	}

	gallery := &models.Gallery{
		Identifier: identifier,
		Name:       name,
		SecretKey:  secretKey,
		Owner:      owner,
	}
	if err := db.WithContext(ctx).Create(gallery).Error; err != nil {
		return nil, err
	}

	setting.Set(ctx, db, string(settings.GallerySecretKey), secretKey, gallery.ID)

	return Get(ctx, db, gallery.ID)
}

// Edit renames or rekeys a gallery in place. Item counts are unaffected.
func Edit(ctx context.Context, db *gorm.DB, id uint64, name, secretKey string, owner uint64) (*models.Gallery, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, ErrGalleryNameEmpty
	}
	if isProtectedName(name) {
		return nil, ErrGalleryNameProtected
	}

	var existing models.Gallery
	err := db.WithContext(ctx).First(&existing, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGalleryNotFound
		}
		return nil, err
	}

	err = db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"name":       name,
		"secret_key": secretKey,
		"owner":      owner,
	}).Error
	if err != nil {
		return nil, err
	}

	return Get(ctx, db, id)
}

// Wipe deletes all items and gallery-scoped settings for the gallery while
// keeping the gallery row itself.
func Wipe(ctx context.Context, db *gorm.DB, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("gallery_id = ?", id).Delete(&models.GallerySetting{}).Error; err != nil {
			return err
		}
		return tx.Where("gallery_id = ?", id).Delete(&models.GalleryItem{}).Error
	})
}

// WipeAll clears every gallery's items and overrides and removes every
// gallery except the protected default.
func WipeAll(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return ErrDBNil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.GallerySetting{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&models.GalleryItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id > ?", models.DefaultGalleryID).Delete(&models.Gallery{}).Error
	})
}

// Delete removes a gallery, cascading to its items and gallery-scoped
// settings. The synthetic aggregate and the default gallery are protected.
func Delete(ctx context.Context, db *gorm.DB, id uint64) error {
	if db == nil {
		return ErrDBNil
	}
	if id <= models.DefaultGalleryID {
		return ErrGalleryProtected
	}

	var deleted int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("gallery_id = ?", id).Delete(&models.GallerySetting{}).Error; err != nil {
			return err
		}
		if err := tx.Where("gallery_id = ?", id).Delete(&models.GalleryItem{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Gallery{}, id)
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrGalleryNotFound
	}

	return nil
}
