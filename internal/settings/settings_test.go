package settings

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(&models.Setting{}, &models.GallerySetting{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func TestGetOrDefault(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewService(db)

	svc.Set(ctx, Title, "Our Wedding", 0)
	svc.Set(ctx, GalleryColumns, "4", 0)
	svc.Set(ctx, GalleryColumns, "6", 5)

	assert.Equal(t, "Our Wedding", svc.GetOrDefault(ctx, Title, 0, "fallback"))
	assert.Equal(t, "fallback", svc.GetOrDefault(ctx, BaseURL, 0, "fallback"))
	assert.Equal(t, "6", svc.GetOrDefault(ctx, GalleryColumns, 5, "1"))
	assert.Equal(t, "4", svc.GetOrDefault(ctx, GalleryColumns, 9, "1"))
}

func TestGetBool(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewService(db)

	svc.Set(ctx, GalleryRequireReview, "true", 0)
	svc.Set(ctx, GalleryRequireReview, "False", 3)
	svc.Set(ctx, GalleryRetainRejectedItems, "not-a-bool", 0)

	assert.True(t, svc.GetBool(ctx, GalleryRequireReview, 0, false))
	assert.False(t, svc.GetBool(ctx, GalleryRequireReview, 3, true))
	assert.True(t, svc.GetBool(ctx, GalleryRetainRejectedItems, 0, true), "unparseable falls back")
	assert.False(t, svc.GetBool(ctx, GalleryPreventDuplicates, 0, false), "unset falls back")
}

func TestGetInt(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewService(db)

	svc.Set(ctx, AccountLockoutAttempts, "5", 0)
	svc.Set(ctx, GalleryMaxFileSizeMB, "ten", 0)

	assert.Equal(t, int64(5), svc.GetInt(ctx, AccountLockoutAttempts, 0, 3))
	assert.Equal(t, int64(10), svc.GetInt(ctx, GalleryMaxFileSizeMB, 0, 10), "unparseable falls back")
	assert.Equal(t, int64(30), svc.GetInt(ctx, AccountLockoutMins, 0, 30), "unset falls back")
}

func TestSetClearsOverride(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewService(db)

	svc.Set(ctx, GalleryColumns, "4", 0)
	svc.Set(ctx, GalleryColumns, "6", 5)
	require.Equal(t, "6", svc.GetOrDefault(ctx, GalleryColumns, 5, ""))

	cleared := svc.Set(ctx, GalleryColumns, "", 5)
	assert.Empty(t, cleared)
	assert.Equal(t, "4", svc.GetOrDefault(ctx, GalleryColumns, 5, ""))
}
