package backup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
	"github.com/GoWeddingShare/GoWeddingShare/internal/fileutil"
)

func openTestDB(t *testing.T, path string) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(
		&models.Setting{},
		&models.GallerySetting{},
		&models.Gallery{},
		&models.GalleryItem{},
		&models.User{},
		&models.AuditLog{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	db := openTestDB(t, filepath.Join(root, "live.db"))
	require.NoError(t, db.Create(&models.Setting{Key: "SETTINGS:TITLE", Value: "Our Wedding"}).Error)
	require.NoError(t, db.Create(&models.Gallery{Identifier: "abc123", Name: "party"}).Error)

	backupPath := filepath.Join(root, "backup.db")
	require.NoError(t, Export(ctx, db, backupPath))
	assert.True(t, fileutil.FileExists(backupPath))

	// mutate the live database after the snapshot
	require.NoError(t, db.Where("1 = 1").Delete(&models.Setting{}).Error)
	require.NoError(t, db.Create(&models.Gallery{Identifier: "def456", Name: "other"}).Error)

	require.NoError(t, Import(ctx, db, backupPath))

	var title models.Setting
	require.NoError(t, db.Where("key = ?", "SETTINGS:TITLE").First(&title).Error)
	assert.Equal(t, "Our Wedding", title.Value)

	var galleries int64
	db.Model(&models.Gallery{}).Count(&galleries)
	assert.Equal(t, int64(1), galleries, "rows added after the snapshot are gone")
}

func TestExportOverwritesExistingFile(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	db := openTestDB(t, filepath.Join(root, "live.db"))
	backupPath := filepath.Join(root, "backup.db")

	require.NoError(t, Export(ctx, db, backupPath))
	require.NoError(t, Export(ctx, db, backupPath), "a second export replaces the first")
}

func TestImportMissingFile(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	db := openTestDB(t, filepath.Join(root, "live.db"))
	assert.Error(t, Import(ctx, db, filepath.Join(root, "missing.db")))
}
