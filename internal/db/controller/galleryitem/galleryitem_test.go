package galleryitem

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(&models.Gallery{}, &models.GalleryItem{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func seedGallery(t *testing.T, db *gorm.DB, name string) uint64 {
	t.Helper()
	g := models.Gallery{Identifier: name, Name: name}
	require.NoError(t, db.Create(&g).Error, "failed to seed test data")
	return g.ID
}

func seedItem(t *testing.T, db *gorm.DB, item models.GalleryItem) uint64 {
	t.Helper()
	if item.UploadedDate.IsZero() {
		item.UploadedDate = time.Now().UTC()
	}
	require.NoError(t, db.Create(&item).Error, "failed to seed test data")
	return item.ID
}

func TestAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to pending with a UTC upload time", func(t *testing.T) {
		db := setupTestDB(t)
		galleryID := seedGallery(t, db, "party")

		before := time.Now().UTC()
		got, err := Add(ctx, db, &models.GalleryItem{
			GalleryID: galleryID,
			Title:     "photo.jpg",
			MediaType: models.MediaTypeImage,
		})
		require.NoError(t, err)

		assert.Equal(t, models.ItemStatePending, got.State)
		assert.False(t, got.UploadedDate.Before(before))
		assert.Equal(t, "party", got.GalleryName, "returned row carries the joined gallery name")
	})

	t.Run("explicit state is kept", func(t *testing.T) {
		db := setupTestDB(t)
		galleryID := seedGallery(t, db, "party")

		got, err := Add(ctx, db, &models.GalleryItem{
			GalleryID: galleryID,
			Title:     "photo.jpg",
			State:     models.ItemStateApproved,
		})
		require.NoError(t, err)
		assert.Equal(t, models.ItemStateApproved, got.State)
	})

	t.Run("requires a gallery id", func(t *testing.T) {
		db := setupTestDB(t)

		_, err := Add(ctx, db, &models.GalleryItem{Title: "photo.jpg"})
		assert.ErrorIs(t, err, ErrItemGalleryRequired)
	})

	t.Run("requires a title", func(t *testing.T) {
		db := setupTestDB(t)
		galleryID := seedGallery(t, db, "party")

		_, err := Add(ctx, db, &models.GalleryItem{GalleryID: galleryID, Title: "  "})
		assert.ErrorIs(t, err, ErrItemTitleEmpty)
	})

	t.Run("nil database", func(t *testing.T) {
		_, err := Add(ctx, nil, &models.GalleryItem{GalleryID: 1, Title: "photo.jpg"})
		assert.ErrorIs(t, err, ErrDBNil)
	})
}

func TestEdit(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	galleryID := seedGallery(t, db, "party")

	id := seedItem(t, db, models.GalleryItem{
		GalleryID: galleryID,
		Title:     "photo.jpg",
		State:     models.ItemStatePending,
	})

	t.Run("updates the full row", func(t *testing.T) {
		got, err := Edit(ctx, db, &models.GalleryItem{
			ID:         id,
			GalleryID:  galleryID,
			Title:      "renamed.jpg",
			UploadedBy: "alice",
			State:      models.ItemStateApproved,
			MediaType:  models.MediaTypeImage,
			FileSize:   123,
		})
		require.NoError(t, err)
		assert.Equal(t, "renamed.jpg", got.Title)
		assert.Equal(t, "alice", got.UploadedBy)
		assert.Equal(t, models.ItemStateApproved, got.State)
		assert.Equal(t, int64(123), got.FileSize)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := Edit(ctx, db, &models.GalleryItem{ID: 999, GalleryID: galleryID, Title: "x.jpg"})
		assert.ErrorIs(t, err, ErrItemNotFound)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	galleryID := seedGallery(t, db, "party")
	id := seedItem(t, db, models.GalleryItem{GalleryID: galleryID, Title: "photo.jpg", State: models.ItemStatePending})

	require.NoError(t, Delete(ctx, db, id))

	_, err := Get(ctx, db, id)
	assert.ErrorIs(t, err, ErrItemNotFound)

	assert.ErrorIs(t, Delete(ctx, db, id), ErrItemNotFound)
}

func TestGetByChecksum(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	partyID := seedGallery(t, db, "party")
	otherID := seedGallery(t, db, "other")

	seedItem(t, db, models.GalleryItem{GalleryID: partyID, Title: "a.jpg", Checksum: "abc", State: models.ItemStateApproved})

	t.Run("found in gallery", func(t *testing.T) {
		got, err := GetByChecksum(ctx, db, partyID, "abc")
		require.NoError(t, err)
		assert.Equal(t, "a.jpg", got.Title)
	})

	t.Run("checksum scoped per gallery", func(t *testing.T) {
		_, err := GetByChecksum(ctx, db, otherID, "abc")
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("empty checksum never matches", func(t *testing.T) {
		_, err := GetByChecksum(ctx, db, partyID, "")
		assert.ErrorIs(t, err, ErrItemNotFound)
	})
}

func TestListPending(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	partyID := seedGallery(t, db, "party")
	otherID := seedGallery(t, db, "other")

	now := time.Now().UTC()
	seedItem(t, db, models.GalleryItem{GalleryID: partyID, Title: "new.jpg", State: models.ItemStatePending, UploadedDate: now})
	seedItem(t, db, models.GalleryItem{GalleryID: partyID, Title: "old.jpg", State: models.ItemStatePending, UploadedDate: now.Add(-time.Hour)})
	seedItem(t, db, models.GalleryItem{GalleryID: partyID, Title: "done.jpg", State: models.ItemStateApproved, UploadedDate: now})
	seedItem(t, db, models.GalleryItem{GalleryID: otherID, Title: "elsewhere.jpg", State: models.ItemStatePending, UploadedDate: now})

	t.Run("single gallery oldest first", func(t *testing.T) {
		items, err := ListPending(ctx, db, partyID)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "old.jpg", items[0].Title)
		assert.Equal(t, "new.jpg", items[1].Title)
		assert.Equal(t, "party", items[0].GalleryName)
	})

	t.Run("gallery id 0 spans all galleries", func(t *testing.T) {
		items, err := ListPending(ctx, db, 0)
		require.NoError(t, err)
		assert.Len(t, items, 3)
	})

	t.Run("pending count", func(t *testing.T) {
		count, err := PendingCount(ctx, db, partyID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		count, err = PendingCount(ctx, db, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	partyID := seedGallery(t, db, "party")
	otherID := seedGallery(t, db, "other")

	now := time.Now().UTC()
	seedItem(t, db, models.GalleryItem{GalleryID: partyID, Title: "b.jpg", State: models.ItemStateApproved, MediaType: models.MediaTypeImage, UploadedBy: "bob", UploadedDate: now.Add(-2 * time.Hour)})
	seedItem(t, db, models.GalleryItem{GalleryID: partyID, Title: "a.mp4", State: models.ItemStateApproved, MediaType: models.MediaTypeVideo, UploadedBy: "alice", UploadedDate: now.Add(-time.Hour)})
	seedItem(t, db, models.GalleryItem{GalleryID: partyID, Title: "c.jpg", State: models.ItemStatePending, MediaType: models.MediaTypeImage, UploadedBy: "alice", UploadedDate: now})
	seedItem(t, db, models.GalleryItem{GalleryID: otherID, Title: "d.jpg", State: models.ItemStateApproved, MediaType: models.MediaTypeImage, UploadedBy: "bob", UploadedDate: now})

	t.Run("state and gallery filters", func(t *testing.T) {
		items, err := List(ctx, db, Query{GalleryID: partyID, State: models.ItemStateApproved})
		require.NoError(t, err)
		require.Len(t, items, 2)
		// newest first by default
		assert.Equal(t, "a.mp4", items[0].Title)
		assert.Equal(t, "b.jpg", items[1].Title)
	})

	t.Run("media type filter", func(t *testing.T) {
		items, err := List(ctx, db, Query{GalleryID: partyID, MediaType: models.MediaTypeVideo})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "a.mp4", items[0].Title)
	})

	t.Run("ascending order", func(t *testing.T) {
		items, err := List(ctx, db, Query{GalleryID: partyID, Order: OrderAscending})
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "b.jpg", items[0].Title)
	})

	t.Run("group by uploader", func(t *testing.T) {
		items, err := List(ctx, db, Query{GalleryID: partyID, Group: GroupUploader, Order: OrderAscending})
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "alice", items[0].UploadedBy)
		assert.Equal(t, "alice", items[1].UploadedBy)
		assert.Equal(t, "bob", items[2].UploadedBy)
	})

	t.Run("pagination", func(t *testing.T) {
		page1, err := List(ctx, db, Query{GalleryID: partyID, Order: OrderAscending, Limit: 2, Page: 1})
		require.NoError(t, err)
		page2, err := List(ctx, db, Query{GalleryID: partyID, Order: OrderAscending, Limit: 2, Page: 2})
		require.NoError(t, err)

		assert.Len(t, page1, 2)
		require.Len(t, page2, 1)
		assert.Equal(t, "c.jpg", page2[0].Title)
	})

	t.Run("random order spans the full set", func(t *testing.T) {
		items, err := List(ctx, db, Query{GalleryID: partyID, Order: OrderRandom})
		require.NoError(t, err)
		assert.Len(t, items, 3)
	})

	t.Run("random order refuses grouping", func(t *testing.T) {
		_, err := List(ctx, db, Query{Order: OrderRandom, Group: GroupDate})
		assert.ErrorIs(t, err, ErrRandomOrderGrouped)
	})
}

func TestCount(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	partyID := seedGallery(t, db, "party")
	otherID := seedGallery(t, db, "other")

	seedItem(t, db, models.GalleryItem{GalleryID: partyID, Title: "a.jpg", State: models.ItemStateApproved, MediaType: models.MediaTypeImage})
	seedItem(t, db, models.GalleryItem{GalleryID: partyID, Title: "b.jpg", State: models.ItemStateApproved, MediaType: models.MediaTypeVideo})
	seedItem(t, db, models.GalleryItem{GalleryID: partyID, Title: "c.jpg", State: models.ItemStatePending, MediaType: models.MediaTypeImage})
	seedItem(t, db, models.GalleryItem{GalleryID: otherID, Title: "d.jpg", State: models.ItemStatePending, MediaType: models.MediaTypeImage})

	t.Run("per gallery with all states backfilled", func(t *testing.T) {
		counts, err := Count(ctx, db, partyID, models.ItemStateAll, models.MediaTypeAll, models.OrientationNone)
		require.NoError(t, err)

		assert.Equal(t, int64(2), counts["Approved"])
		assert.Equal(t, int64(1), counts["Pending"])
		assert.Equal(t, int64(0), counts["Rejected"], "absent states appear as zero")
		assert.Equal(t, int64(3), counts["All"], "All is the sum of the rest")
	})

	t.Run("media type narrows the counts", func(t *testing.T) {
		counts, err := Count(ctx, db, partyID, models.ItemStateAll, models.MediaTypeImage, models.OrientationNone)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts["Approved"])
		assert.Equal(t, int64(2), counts["All"])
	})

	t.Run("gallery id 0 spans all galleries", func(t *testing.T) {
		counts, err := Count(ctx, db, 0, models.ItemStateAll, models.MediaTypeAll, models.OrientationNone)
		require.NoError(t, err)
		assert.Equal(t, int64(4), counts["All"])
	})
}
