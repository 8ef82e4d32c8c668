// Package review implements the moderation workflow for uploaded items:
// pending items are either approved into their gallery or rejected and
// removed, with the matching file moves on disk.
package review

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/gallery"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/galleryitem"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
	"github.com/GoWeddingShare/GoWeddingShare/internal/fileutil"
	"github.com/GoWeddingShare/GoWeddingShare/internal/settings"
)

const (
	// PendingDir holds uploads awaiting review inside a gallery directory.
	PendingDir = "Pending"
	// RejectedDir holds rejected files when retention is enabled.
	RejectedDir = "Rejected"
)

var (
	// ErrUnknownAction is returned for an unrecognised review action. No
	// state changes when it is returned.
	ErrUnknownAction = errors.New("unknown review action")
	// ErrItemNotPending is returned when the item has already been reviewed.
	ErrItemNotPending = errors.New("item is not awaiting review")
)

// Action is the verdict applied to a pending item.
type Action int

const (
	ActionUnknown Action = iota
	ActionApproved
	ActionRejected
)

// FileOps abstracts the disk mutations the workflow performs so tests can
// observe them without a real filesystem.
type FileOps interface {
	CreateDirectoryIfNotExists(path string) (bool, error)
	MoveFileIfExists(source, destination string) (bool, error)
	DeleteFileIfExists(path string) (bool, error)
}

// DiskFileOps performs the workflow's file operations on the local disk.
type DiskFileOps struct{}

func (DiskFileOps) CreateDirectoryIfNotExists(path string) (bool, error) {
	return fileutil.CreateDirectoryIfNotExists(path)
}

func (DiskFileOps) MoveFileIfExists(source, destination string) (bool, error) {
	return fileutil.MoveFileIfExists(source, destination)
}

func (DiskFileOps) DeleteFileIfExists(path string) (bool, error) {
	return fileutil.DeleteFileIfExists(path)
}

// ItemOutcome records the result of reviewing a single item in a bulk run.
type ItemOutcome struct {
	ItemID uint64
	Title  string
	Err    error
}

// BulkResult reports a bulk review run. A failing item never aborts the
// run; it lands in Failed and the remaining items are still processed.
type BulkResult struct {
	Succeeded []ItemOutcome
	Failed    []ItemOutcome
}

// Workflow reviews pending gallery items.
type Workflow struct {
	db       *gorm.DB
	files    FileOps
	settings *settings.Service
	root     string
}

// NewWorkflow returns a Workflow storing gallery files under root.
func NewWorkflow(db *gorm.DB, files FileOps, root string) *Workflow {
	return &Workflow{
		db:       db,
		files:    files,
		settings: settings.NewService(db),
		root:     root,
	}
}

// galleryDir is the on-disk home of a gallery, keyed by its identifier so
// renames never move files.
func (w *Workflow) galleryDir(identifier string) string {
	return filepath.Join(w.root, identifier)
}

// Review applies a verdict to a single pending item. Approval moves the
// file out of the pending directory and marks the row approved. Rejection
// deletes the row and either retains the file in the rejected directory or
// deletes it, depending on the gallery's retention setting.
func (w *Workflow) Review(ctx context.Context, itemID uint64, action Action) error {
	if action != ActionApproved && action != ActionRejected {
		return ErrUnknownAction
	}

	item, err := galleryitem.Get(ctx, w.db, itemID)
	if err != nil {
		return err
	}
	if item.State != models.ItemStatePending {
		return ErrItemNotPending
	}

	g, err := gallery.Get(ctx, w.db, item.GalleryID)
	if err != nil {
		return err
	}

	dir := w.galleryDir(g.Identifier)
	retain := w.settings.GetBool(ctx, settings.GalleryRetainRejectedItems, item.GalleryID, false)

	return w.apply(ctx, item, action, dir, retain)
}

func (w *Workflow) apply(ctx context.Context, item *models.GalleryItem, action Action, dir string, retain bool) error {
	source := filepath.Join(dir, PendingDir, item.Title)

	switch action {
	case ActionApproved:
		if _, err := w.files.CreateDirectoryIfNotExists(dir); err != nil {
			return err
		}
		if _, err := w.files.MoveFileIfExists(source, filepath.Join(dir, item.Title)); err != nil {
			return err
		}

		item.State = models.ItemStateApproved
		_, err := galleryitem.Edit(ctx, w.db, item)
		return err

	case ActionRejected:
		if retain {
			rejectedDir := filepath.Join(dir, RejectedDir)
			if _, err := w.files.CreateDirectoryIfNotExists(rejectedDir); err != nil {
				return err
			}
			if _, err := w.files.MoveFileIfExists(source, filepath.Join(rejectedDir, item.Title)); err != nil {
				return err
			}
		} else {
			if _, err := w.files.DeleteFileIfExists(source); err != nil {
				return err
			}
		}

		return galleryitem.Delete(ctx, w.db, item.ID)

	default:
		return ErrUnknownAction
	}
}

// BulkReview applies one verdict to every pending item across all
// galleries. The gallery directory and retention setting are resolved once
// per gallery, and failures are isolated per item.
func (w *Workflow) BulkReview(ctx context.Context, action Action) (*BulkResult, error) {
	if action != ActionApproved && action != ActionRejected {
		return nil, ErrUnknownAction
	}

	pending, err := galleryitem.ListPending(ctx, w.db, 0)
	if err != nil {
		return nil, err
	}

	byGallery := make(map[uint64][]models.GalleryItem)
	for _, item := range pending {
		byGallery[item.GalleryID] = append(byGallery[item.GalleryID], item)
	}

	result := &BulkResult{}
	for galleryID, items := range byGallery {
		g, err := gallery.Get(ctx, w.db, galleryID)
		if err != nil {
			for i := range items {
				result.Failed = append(result.Failed, ItemOutcome{ItemID: items[i].ID, Title: items[i].Title, Err: err})
			}
			continue
		}

		dir := w.galleryDir(g.Identifier)
		retain := w.settings.GetBool(ctx, settings.GalleryRetainRejectedItems, galleryID, false)

		for i := range items {
			item := items[i]
			if err := w.apply(ctx, &item, action, dir, retain); err != nil {
				log.Error().Err(err).Uint64("item_id", item.ID).Str("gallery", g.Name).Msg("bulk review failed for item")
				result.Failed = append(result.Failed, ItemOutcome{ItemID: item.ID, Title: item.Title, Err: err})
				continue
			}
			result.Succeeded = append(result.Succeeded, ItemOutcome{ItemID: item.ID, Title: item.Title})
		}
	}

	return result, nil
}
