package review

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/galleryitem"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/setting"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
	"github.com/GoWeddingShare/GoWeddingShare/internal/settings"
)

// fakeFileOps records file operations instead of touching the disk.
type fakeFileOps struct {
	created []string
	moved   [][2]string
	deleted []string
	failOn  string
}

func (f *fakeFileOps) CreateDirectoryIfNotExists(path string) (bool, error) {
	f.created = append(f.created, path)
	return true, nil
}

func (f *fakeFileOps) MoveFileIfExists(source, destination string) (bool, error) {
	if f.failOn != "" && source == f.failOn {
		return false, errors.New("disk full")
	}
	f.moved = append(f.moved, [2]string{source, destination})
	return true, nil
}

func (f *fakeFileOps) DeleteFileIfExists(path string) (bool, error) {
	if f.failOn != "" && path == f.failOn {
		return false, errors.New("disk full")
	}
	f.deleted = append(f.deleted, path)
	return true, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(
		&models.Gallery{},
		&models.GalleryItem{},
		&models.Setting{},
		&models.GallerySetting{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func seedGallery(t *testing.T, db *gorm.DB, identifier, name string) uint64 {
	t.Helper()
	g := models.Gallery{Identifier: identifier, Name: name}
	require.NoError(t, db.Create(&g).Error, "failed to seed test data")
	return g.ID
}

func seedPending(t *testing.T, db *gorm.DB, galleryID uint64, title string) uint64 {
	t.Helper()
	item, err := galleryitem.Add(context.Background(), db, &models.GalleryItem{
		GalleryID: galleryID,
		Title:     title,
	})
	require.NoError(t, err, "failed to seed test data")
	return item.ID
}

func TestReview(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join("/", "uploads")

	t.Run("unknown action mutates nothing", func(t *testing.T) {
		db := setupTestDB(t)
		galleryID := seedGallery(t, db, "abc123", "party")
		itemID := seedPending(t, db, galleryID, "photo.jpg")
		files := &fakeFileOps{}

		err := NewWorkflow(db, files, root).Review(ctx, itemID, ActionUnknown)
		assert.ErrorIs(t, err, ErrUnknownAction)

		item, err := galleryitem.Get(ctx, db, itemID)
		require.NoError(t, err)
		assert.Equal(t, models.ItemStatePending, item.State)
		assert.Empty(t, files.moved)
		assert.Empty(t, files.deleted)
	})

	t.Run("approve moves the file out of pending", func(t *testing.T) {
		db := setupTestDB(t)
		galleryID := seedGallery(t, db, "abc123", "party")
		itemID := seedPending(t, db, galleryID, "photo.jpg")
		files := &fakeFileOps{}

		require.NoError(t, NewWorkflow(db, files, root).Review(ctx, itemID, ActionApproved))

		require.Len(t, files.moved, 1)
		assert.Equal(t, filepath.Join(root, "abc123", PendingDir, "photo.jpg"), files.moved[0][0])
		assert.Equal(t, filepath.Join(root, "abc123", "photo.jpg"), files.moved[0][1])

		item, err := galleryitem.Get(ctx, db, itemID)
		require.NoError(t, err)
		assert.Equal(t, models.ItemStateApproved, item.State)
	})

	t.Run("reject deletes file and row by default", func(t *testing.T) {
		db := setupTestDB(t)
		galleryID := seedGallery(t, db, "abc123", "party")
		itemID := seedPending(t, db, galleryID, "photo.jpg")
		files := &fakeFileOps{}

		require.NoError(t, NewWorkflow(db, files, root).Review(ctx, itemID, ActionRejected))

		require.Len(t, files.deleted, 1)
		assert.Equal(t, filepath.Join(root, "abc123", PendingDir, "photo.jpg"), files.deleted[0])
		assert.Empty(t, files.moved)

		_, err := galleryitem.Get(ctx, db, itemID)
		assert.ErrorIs(t, err, galleryitem.ErrItemNotFound)
	})

	t.Run("reject retains the file when configured", func(t *testing.T) {
		db := setupTestDB(t)
		galleryID := seedGallery(t, db, "abc123", "party")
		itemID := seedPending(t, db, galleryID, "photo.jpg")
		setting.Set(ctx, db, string(settings.GalleryRetainRejectedItems), "true", galleryID)
		files := &fakeFileOps{}

		require.NoError(t, NewWorkflow(db, files, root).Review(ctx, itemID, ActionRejected))

		require.Len(t, files.moved, 1)
		assert.Equal(t, filepath.Join(root, "abc123", RejectedDir, "photo.jpg"), files.moved[0][1])
		assert.Empty(t, files.deleted)

		// the row is deleted either way
		_, err := galleryitem.Get(ctx, db, itemID)
		assert.ErrorIs(t, err, galleryitem.ErrItemNotFound)
	})

	t.Run("already reviewed item is refused", func(t *testing.T) {
		db := setupTestDB(t)
		galleryID := seedGallery(t, db, "abc123", "party")
		item, err := galleryitem.Add(ctx, db, &models.GalleryItem{
			GalleryID: galleryID,
			Title:     "photo.jpg",
			State:     models.ItemStateApproved,
		})
		require.NoError(t, err)

		err = NewWorkflow(db, &fakeFileOps{}, root).Review(ctx, item.ID, ActionRejected)
		assert.ErrorIs(t, err, ErrItemNotPending)
	})

	t.Run("unknown item", func(t *testing.T) {
		db := setupTestDB(t)

		err := NewWorkflow(db, &fakeFileOps{}, root).Review(ctx, 999, ActionApproved)
		assert.ErrorIs(t, err, galleryitem.ErrItemNotFound)
	})
}

func TestBulkReview(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join("/", "uploads")

	t.Run("approves across galleries", func(t *testing.T) {
		db := setupTestDB(t)
		partyID := seedGallery(t, db, "abc123", "party")
		otherID := seedGallery(t, db, "def456", "other")
		seedPending(t, db, partyID, "a.jpg")
		seedPending(t, db, partyID, "b.jpg")
		seedPending(t, db, otherID, "c.jpg")
		files := &fakeFileOps{}

		result, err := NewWorkflow(db, files, root).BulkReview(ctx, ActionApproved)
		require.NoError(t, err)

		assert.Len(t, result.Succeeded, 3)
		assert.Empty(t, result.Failed)
		assert.Len(t, files.moved, 3)

		count, err := galleryitem.PendingCount(ctx, db, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("one failing item does not abort the run", func(t *testing.T) {
		db := setupTestDB(t)
		galleryID := seedGallery(t, db, "abc123", "party")
		seedPending(t, db, galleryID, "good.jpg")
		badID := seedPending(t, db, galleryID, "bad.jpg")
		files := &fakeFileOps{failOn: filepath.Join(root, "abc123", PendingDir, "bad.jpg")}

		result, err := NewWorkflow(db, files, root).BulkReview(ctx, ActionApproved)
		require.NoError(t, err)

		require.Len(t, result.Failed, 1)
		assert.Equal(t, badID, result.Failed[0].ItemID)
		assert.Error(t, result.Failed[0].Err)
		assert.Len(t, result.Succeeded, 1)

		// the failed item is still pending
		item, err := galleryitem.Get(ctx, db, badID)
		require.NoError(t, err)
		assert.Equal(t, models.ItemStatePending, item.State)
	})

	t.Run("unknown action is refused up front", func(t *testing.T) {
		db := setupTestDB(t)

		_, err := NewWorkflow(db, &fakeFileOps{}, root).BulkReview(ctx, ActionUnknown)
		assert.ErrorIs(t, err, ErrUnknownAction)
	})
}
