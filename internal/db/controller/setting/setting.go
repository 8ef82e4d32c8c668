// Package setting provides the settings store: global defaults with
// per-gallery overrides resolved on read.
package setting

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
)

const (
	keyQueryPattern        = "key = ?"
	overrideQueryPattern   = "key = ? AND gallery_id = ?"
	galleryIDQueryPattern  = "gallery_id = ?"
	nonEmptyOverrideClause = "gallery_id = ? AND value <> ''"
)

var (
	// ErrSettingNotFound is returned when a setting is not set in any scope.
	ErrSettingNotFound = errors.New("setting not found")
	// ErrSettingKeyEmpty is returned when the setting key is blank.
	ErrSettingKeyEmpty = errors.New("setting key cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Normalize upper-cases a setting key. Key comparison is case-insensitive
// and every row is stored with the normalized key.
func Normalize(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Get retrieves the global value of a setting.
func Get(ctx context.Context, db *gorm.DB, key string) (*models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	key = Normalize(key)
	if key == "" {
		return nil, ErrSettingKeyEmpty
	}

	var setting models.Setting
	result := db.WithContext(ctx).Where(keyQueryPattern, key).First(&setting)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSettingNotFound
		}
		return nil, result.Error
	}

	return &setting, nil
}

// GetOverride retrieves the gallery-scoped row for a key, even when its
// value is empty. Callers wanting override-over-global resolution should
// use GetEffective instead.
func GetOverride(ctx context.Context, db *gorm.DB, key string, galleryID uint64) (*models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	key = Normalize(key)
	if key == "" {
		return nil, ErrSettingKeyEmpty
	}

	var override models.GallerySetting
	result := db.WithContext(ctx).Where(overrideQueryPattern, key, galleryID).First(&override)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSettingNotFound
		}
		return nil, result.Error
	}

	return &models.Setting{Key: override.Key, Value: override.Value}, nil
}

// GetEffective resolves a setting for a gallery: the gallery override wins
// when present and non-empty, otherwise the global value applies. A gallery
// id of 0 resolves the global scope only.
func GetEffective(ctx context.Context, db *gorm.DB, key string, galleryID uint64) (*models.Setting, error) {
	if galleryID > 0 {
		override, err := GetOverride(ctx, db, key, galleryID)
		if err == nil && override.Value != "" {
			return override, nil
		}
		if err != nil && !errors.Is(err, ErrSettingNotFound) {
			return nil, err
		}
	}

	return Get(ctx, db, key)
}

// GetAll returns the full global setting set as a key/value map. When a
// gallery id is given, non-empty overrides replace the global entries;
// empty overrides do not suppress the global value.
func GetAll(ctx context.Context, db *gorm.DB, galleryID uint64) (map[string]string, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var globals []models.Setting
	if err := db.WithContext(ctx).Find(&globals).Error; err != nil {
		return nil, err
	}

	merged := make(map[string]string, len(globals))
	for _, s := range globals {
		merged[s.Key] = s.Value
	}

	if galleryID > 0 {
		var overrides []models.GallerySetting
		err := db.WithContext(ctx).Where(nonEmptyOverrideClause, galleryID).Find(&overrides).Error
		if err != nil {
			return nil, err
		}

		for _, o := range overrides {
			merged[o.Key] = o.Value
		}
	}

	return merged, nil
}

// Set writes a setting at the given scope (gallery id 0 = global) and
// returns the persisted value. An empty value clears the row at that scope.
// Write failures never escape this boundary: they are logged and reported
// as a setting with an empty value.
func Set(ctx context.Context, db *gorm.DB, key, value string, galleryID uint64) *models.Setting {
	key = Normalize(key)
	cleared := &models.Setting{Key: key}

	if db == nil || key == "" {
		return cleared
	}

	// Read-then-write on a single key must be atomic against concurrent
	// writers of the same key, hence one transaction per Set.
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if galleryID > 0 {
			return setOverride(tx, key, value, galleryID)
		}
		return setGlobal(tx, key, value)
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Uint64("gallery_id", galleryID).Msg("failed to persist setting")
		return cleared
	}

	if value == "" {
		return cleared
	}

	return &models.Setting{Key: key, Value: value}
}

func setGlobal(tx *gorm.DB, key, value string) error {
	var existing models.Setting
	err := tx.Where(keyQueryPattern, key).First(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if value == "" {
			return nil
		}
		return tx.Create(&models.Setting{Key: key, Value: value}).Error
	case err != nil:
		return err
	case value == "":
		return tx.Where(keyQueryPattern, key).Delete(&models.Setting{}).Error
	default:
		return tx.Model(&models.Setting{}).Where(keyQueryPattern, key).Update("value", value).Error
	}
}

func setOverride(tx *gorm.DB, key, value string, galleryID uint64) error {
	var existing models.GallerySetting
	err := tx.Where(overrideQueryPattern, key, galleryID).First(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if value == "" {
			return nil
		}
		return tx.Create(&models.GallerySetting{Key: key, GalleryID: galleryID, Value: value}).Error
	case err != nil:
		return err
	case value == "":
		return tx.Where(overrideQueryPattern, key, galleryID).Delete(&models.GallerySetting{}).Error
	default:
		return tx.Model(&models.GallerySetting{}).
			Where(overrideQueryPattern, key, galleryID).
			Update("value", value).Error
	}
}

// Delete removes a setting row. With a gallery id it removes that single
// override; without one it removes the global row and every gallery
// override of the key, so the key is fully retired.
func Delete(ctx context.Context, db *gorm.DB, key string, galleryID uint64) error {
	if db == nil {
		return ErrDBNil
	}

	key = Normalize(key)
	if key == "" {
		return ErrSettingKeyEmpty
	}

	if galleryID > 0 {
		result := db.WithContext(ctx).Where(overrideQueryPattern, key, galleryID).Delete(&models.GallerySetting{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrSettingNotFound
		}
		return nil
	}

	var affected int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		overrides := tx.Where(keyQueryPattern, key).Delete(&models.GallerySetting{})
		if overrides.Error != nil {
			return overrides.Error
		}

		globals := tx.Where(keyQueryPattern, key).Delete(&models.Setting{})
		if globals.Error != nil {
			return globals.Error
		}

		affected = overrides.RowsAffected + globals.RowsAffected
		return nil
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSettingNotFound
	}

	return nil
}

// DeleteAll clears one gallery's overrides, or with gallery id 0 wipes both
// the overrides and the global table.
func DeleteAll(ctx context.Context, db *gorm.DB, galleryID uint64) error {
	if db == nil {
		return ErrDBNil
	}

	if galleryID > 0 {
		return db.WithContext(ctx).Where(galleryIDQueryPattern, galleryID).Delete(&models.GallerySetting{}).Error
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.GallerySetting{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&models.Setting{}).Error
	})
}
