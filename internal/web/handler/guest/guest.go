// Package guest provides the unauthenticated gallery endpoints used by
// wedding guests: viewing a gallery and uploading media to it. Access is
// guarded by the gallery's secret key instead of a user session.
package guest

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	// register decoders for orientation detection
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/config"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/gallery"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/galleryitem"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
	"github.com/GoWeddingShare/GoWeddingShare/internal/fileutil"
	"github.com/GoWeddingShare/GoWeddingShare/internal/review"
	"github.com/GoWeddingShare/GoWeddingShare/internal/settings"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler"
)

const (
	// Path is the base path for guest gallery access.
	Path = handler.RootPath + "gallery"

	// DefaultPageSize for guest item listings.
	DefaultPageSize = 50

	megabyte = int64(1024 * 1024)
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".heic": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".webm": true, ".avi": true,
}

// Service serves guest gallery views and uploads.
type Service struct {
	handler.Service
	cfg      *config.Config
	db       *gorm.DB
	settings *settings.Service
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = db
	s.cfg = cfg
	s.settings = settings.NewService(db)

	app.Get(Path+"/:identifier", s.View)
	app.Post(Path+"/:identifier/upload", s.Upload)

	return nil
}

// resolve loads the gallery by its identifier and checks the secret key
// supplied by the guest. An empty stored key means the gallery is open.
func (s *Service) resolve(c *fiber.Ctx) (*models.Gallery, error) {
	id, err := gallery.IDByIdentifier(c.Context(), s.db, c.Params("identifier"))
	if err != nil {
		if errors.Is(err, gallery.ErrGalleryNotFound) {
			return nil, fiber.ErrNotFound
		}
		return nil, err
	}

	g, err := gallery.Get(c.Context(), s.db, id)
	if err != nil {
		return nil, err
	}

	secretKey := s.settings.GetOrDefault(c.Context(), settings.GallerySecretKey, g.ID, g.SecretKey)
	if secretKey != "" && c.Query("key") != secretKey {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid secret key")
	}

	return g, nil
}

// View returns the gallery's approved items.
func (s *Service) View(c *fiber.Ctx) error {
	g, err := s.resolve(c)
	if err != nil {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return err
		}

		log.Error().Err(err).Str("identifier", c.Params("identifier")).Msg("failed to resolve gallery")

		return fiber.ErrInternalServerError
	}

	limit := c.QueryInt("pageSize", int(s.settings.GetInt(c.Context(), settings.GalleryItemsPerPage, g.ID, DefaultPageSize)))
	if limit < 1 || limit > 500 {
		limit = DefaultPageSize
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	query := galleryitem.Query{
		GalleryID: g.ID,
		State:     models.ItemStateApproved,
		MediaType: models.MediaType(c.QueryInt("mediaType", int(models.MediaTypeAll))),
		Group:     galleryitem.Group(c.QueryInt("group", int(galleryitem.GroupNone))),
		Order:     galleryitem.Order(c.QueryInt("order", int(galleryitem.OrderDescending))),
		Limit:     limit,
		Page:      page,
	}

	items, err := galleryitem.List(c.Context(), s.db, query)
	if err != nil {
		if errors.Is(err, galleryitem.ErrRandomOrderGrouped) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		log.Error().Err(err).Uint64("gallery_id", g.ID).Msg("failed to list gallery items")

		return fiber.ErrInternalServerError
	}

	return c.JSON(fiber.Map{
		"gallery": fiber.Map{
			"identifier": g.Identifier,
			"name":       g.Name,
		},
		"items": items,
		"page":  page,
	})
}

// Upload accepts a multipart media upload from a guest. Depending on the
// gallery's review setting the file lands either directly in the gallery
// or in its pending directory awaiting approval.
func (s *Service) Upload(c *fiber.Ctx) error {
	g, err := s.resolve(c)
	if err != nil {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return err
		}

		log.Error().Err(err).Str("identifier", c.Params("identifier")).Msg("failed to resolve gallery")

		return fiber.ErrInternalServerError
	}

	ctx := c.Context()

	if !s.settings.GetBool(ctx, settings.GalleryUpload, g.ID, true) {
		return fiber.NewError(fiber.StatusForbidden, "uploads are disabled for this gallery")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing file")
	}

	filename := fileutil.SanitizeFilename(fileHeader.Filename)
	if filename == "" {
		return fiber.NewError(fiber.StatusBadRequest, "invalid file name")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !s.extensionAllowed(ctx, g.ID, ext) {
		return fiber.NewError(fiber.StatusUnsupportedMediaType, "file type not allowed")
	}

	maxFileSize := s.settings.GetInt(ctx, settings.GalleryMaxFileSizeMB, g.ID, s.cfg.Uploads.MaxFileSizeMB)
	if maxFileSize > 0 && fileHeader.Size > maxFileSize*megabyte {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "file exceeds the size limit")
	}

	galleryDir := filepath.Join(s.cfg.Uploads.Directory, g.Identifier)

	maxGallerySize := s.settings.GetInt(ctx, settings.GalleryMaxSizeMB, g.ID, 0)
	if maxGallerySize > 0 {
		if used := fileutil.DirectorySize(galleryDir); used+fileHeader.Size > maxGallerySize*megabyte {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, "gallery is full")
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unreadable file")
	}
	defer file.Close()

	data := make([]byte, fileHeader.Size)
	if _, err := io.ReadFull(file, data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unreadable file")
	}

	checksum := fileutil.ChecksumBytes(data)

	if s.settings.GetBool(ctx, settings.GalleryPreventDuplicates, g.ID, true) {
		if _, dupErr := galleryitem.GetByChecksum(ctx, s.db, g.ID, checksum); dupErr == nil {
			return fiber.NewError(fiber.StatusConflict, "duplicate upload")
		}
	}

	state := models.ItemStateApproved
	targetDir := galleryDir

	if s.settings.GetBool(ctx, settings.GalleryRequireReview, g.ID, true) {
		state = models.ItemStatePending
		targetDir = filepath.Join(galleryDir, review.PendingDir)
	}

	if _, err := fileutil.CreateDirectoryIfNotExists(targetDir); err != nil {
		log.Error().Err(err).Str("dir", targetDir).Msg("failed to create upload directory")
		return fiber.ErrInternalServerError
	}

	if err := os.WriteFile(filepath.Join(targetDir, filename), data, 0o644); err != nil {
		log.Error().Err(err).Str("file", filename).Msg("failed to store upload")
		return fiber.ErrInternalServerError
	}

	item, err := galleryitem.Add(ctx, s.db, &models.GalleryItem{
		GalleryID:     g.ID,
		Title:         filename,
		UploadedBy:    c.FormValue("uploadedBy"),
		UploaderEmail: c.FormValue("uploaderEmail"),
		UploadedDate:  time.Now().UTC(),
		Checksum:      checksum,
		MediaType:     classifyMediaType(ext),
		Orientation:   detectOrientation(data),
		State:         state,
		FileSize:      fileHeader.Size,
	})
	if err != nil {
		log.Error().Err(err).Uint64("gallery_id", g.ID).Msg("failed to record upload")
		return fiber.ErrInternalServerError
	}

	log.Info().Uint64("gallery_id", g.ID).Str("file", filename).
		Str("state", item.State.String()).Msg("guest upload accepted")

	return c.Status(fiber.StatusCreated).JSON(item)
}

// extensionAllowed checks the upload extension against the gallery's
// allowed types setting. An empty setting accepts the built-in media
// extensions.
func (s *Service) extensionAllowed(ctx context.Context, galleryID uint64, ext string) bool {
	allowed := s.settings.GetOrDefault(ctx, settings.GalleryAllowedFileTypes, galleryID, "")
	if allowed == "" {
		return imageExtensions[ext] || videoExtensions[ext]
	}

	for _, entry := range strings.Split(allowed, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if !strings.HasPrefix(entry, ".") {
			entry = "." + entry
		}
		if entry == ext {
			return true
		}
	}

	return false
}

func classifyMediaType(ext string) models.MediaType {
	switch {
	case imageExtensions[ext]:
		return models.MediaTypeImage
	case videoExtensions[ext]:
		return models.MediaTypeVideo
	default:
		return models.MediaTypeUnknown
	}
}

// detectOrientation decodes only the image header. Videos and unknown
// formats report OrientationNone.
func detectOrientation(data []byte) models.Orientation {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return models.OrientationNone
	}

	switch {
	case cfg.Width == cfg.Height:
		return models.OrientationSquare
	case cfg.Width > cfg.Height:
		return models.OrientationLandscape
	default:
		return models.OrientationPortrait
	}
}
