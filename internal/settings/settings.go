// Package settings defines the well-known configuration keys and a typed
// accessor over the settings store.
package settings

import (
	"context"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/setting"
)

// Key identifies a configuration value. Keys are colon-separated paths and
// compared case-insensitively by the store.
type Key string

// Site-wide keys.
const (
	Title             Key = "Settings:Title"
	BaseURL           Key = "Settings:Base_Url"
	SingleGalleryMode Key = "Settings:Single_Gallery_Mode"
	MaxGalleryCount   Key = "Settings:Max_Gallery_Count"
	EmailReport       Key = "Settings:Email_Report"
)

// Account keys.
const (
	AccountLockoutAttempts Key = "Settings:Account:Lockout_Attempts"
	AccountLockoutMins     Key = "Settings:Account:Lockout_Mins"
	OwnerUsername          Key = "Settings:Account:Owner:Username"
	OwnerPassword          Key = "Settings:Account:Owner:Password"
)

// Gallery keys. These are the keys galleries commonly override.
const (
	GallerySecretKey           Key = "Settings:Gallery:Secret_Key"
	GalleryColumns             Key = "Settings:Gallery:Columns"
	GalleryItemsPerPage        Key = "Settings:Gallery:Items_Per_Page"
	GalleryRetainRejectedItems Key = "Settings:Gallery:Retain_Rejected_Items"
	GalleryUpload              Key = "Settings:Gallery:Upload"
	GalleryDownload            Key = "Settings:Gallery:Download"
	GalleryRequireReview       Key = "Settings:Gallery:Require_Review"
	GalleryReviewCounter       Key = "Settings:Gallery:Review_Counter"
	GalleryPreventDuplicates   Key = "Settings:Gallery:Prevent_Duplicates"
	GalleryMaxSizeMB           Key = "Settings:Gallery:Max_Size_MB"
	GalleryMaxFileSizeMB       Key = "Settings:Gallery:Max_File_Size_MB"
	GalleryAllowedFileTypes    Key = "Settings:Gallery:Allowed_File_Types"
	GalleryUploadPeriod        Key = "Settings:Gallery:Upload_Period"
)

// Service resolves typed setting values for a gallery scope. A gallery id of
// 0 reads global values only.
type Service struct {
	db *gorm.DB
}

// NewService returns a Service backed by the given database.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetOrDefault returns the effective string value for a key, or the fallback
// when the key is not set in any scope.
func (s *Service) GetOrDefault(ctx context.Context, key Key, galleryID uint64, fallback string) string {
	value, err := setting.GetEffective(ctx, s.db, string(key), galleryID)
	if err != nil || value.Value == "" {
		return fallback
	}

	return value.Value
}

// GetBool parses the effective value as a boolean. Unset or unparseable
// values return the fallback.
func (s *Service) GetBool(ctx context.Context, key Key, galleryID uint64, fallback bool) bool {
	raw := s.GetOrDefault(ctx, key, galleryID, "")
	if raw == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(strings.ToLower(raw))
	if err != nil {
		return fallback
	}

	return parsed
}

// GetInt parses the effective value as an integer. Unset or unparseable
// values return the fallback.
func (s *Service) GetInt(ctx context.Context, key Key, galleryID uint64, fallback int64) int64 {
	raw := s.GetOrDefault(ctx, key, galleryID, "")
	if raw == "" {
		return fallback
	}

	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return parsed
}

// Set writes a value at the given scope. An empty value clears the override
// so the global default applies again.
func (s *Service) Set(ctx context.Context, key Key, value string, galleryID uint64) string {
	return setting.Set(ctx, s.db, string(key), value, galleryID).Value
}
