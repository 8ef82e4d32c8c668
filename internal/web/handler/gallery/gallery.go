// Package gallery provides the JSON API handlers for managing galleries.
package gallery

import (
	"errors"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/auth"
	"github.com/GoWeddingShare/GoWeddingShare/internal/config"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/auditlog"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/gallery"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/galleryitem"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
	"github.com/GoWeddingShare/GoWeddingShare/internal/fileutil"
	"github.com/GoWeddingShare/GoWeddingShare/internal/settings"
	"github.com/GoWeddingShare/GoWeddingShare/internal/uniuri"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler"
)

const (
	// Path is the base path for gallery management.
	Path = handler.APIPath + "/galleries"

	// DefaultPageSize for item listings.
	DefaultPageSize = 50
)

// Service provides CRUD operations for galleries.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	settings  *settings.Service
	validator *validator.Validate
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
	s.validator = validator.New()

	admin := auth.RequireLevel(models.UserLevelAdmin)
	owner := auth.RequireLevel(models.UserLevelOwner)

	app.Get(Path, admin, s.List)
	app.Get(Path+"/:id", admin, s.Get)
	app.Get(Path+"/:id/items", admin, s.Items)
	app.Post(Path, admin, s.Create)
	app.Put(Path+"/:id", admin, s.Update)
	app.Post(Path+"/:id/wipe", admin, s.Wipe)
	app.Post(Path+"/wipe-all", owner, s.WipeAll)
	app.Delete(Path+"/:id", admin, s.Delete)

	return nil
}

// List returns all galleries with their aggregated item counts.
func (s *Service) List(c *fiber.Ctx) error {
	galleries, err := gallery.GetAll(c.Context(), s.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to list galleries")
		return fiber.ErrInternalServerError
	}

	return c.JSON(galleries)
}

// Get returns a single gallery. Id 0 returns the aggregate over all
// galleries.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid gallery id")
	}

	g, err := gallery.Get(c.Context(), s.db, id)
	if err != nil {
		if errors.Is(err, gallery.ErrGalleryNotFound) {
			return fiber.ErrNotFound
		}

		log.Error().Err(err).Uint64("gallery_id", id).Msg("failed to load gallery")

		return fiber.ErrInternalServerError
	}

	return c.JSON(g)
}

// Items returns the gallery's items with filtering, grouping and
// pagination. Id 0 spans all galleries.
func (s *Service) Items(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid gallery id")
	}

	limit := c.QueryInt("pageSize", DefaultPageSize)
	if limit < 1 || limit > 500 {
		limit = DefaultPageSize
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	query := galleryitem.Query{
		GalleryID:   id,
		State:       models.ItemState(c.QueryInt("state", int(models.ItemStateApproved))),
		MediaType:   models.MediaType(c.QueryInt("mediaType", int(models.MediaTypeAll))),
		Orientation: models.Orientation(c.QueryInt("orientation", int(models.OrientationNone))),
		Group:       galleryitem.Group(c.QueryInt("group", int(galleryitem.GroupNone))),
		Order:       galleryitem.Order(c.QueryInt("order", int(galleryitem.OrderDescending))),
		Limit:       limit,
		Page:        page,
	}

	items, err := galleryitem.List(c.Context(), s.db, query)
	if err != nil {
		if errors.Is(err, galleryitem.ErrRandomOrderGrouped) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		log.Error().Err(err).Uint64("gallery_id", id).Msg("failed to list gallery items")

		return fiber.ErrInternalServerError
	}

	counts, err := galleryitem.Count(c.Context(), s.db, id, models.ItemStateAll, query.MediaType, query.Orientation)
	if err != nil {
		log.Error().Err(err).Uint64("gallery_id", id).Msg("failed to count gallery items")
		return fiber.ErrInternalServerError
	}

	return c.JSON(fiber.Map{
		"items":  items,
		"counts": counts,
		"page":   page,
	})
}

type upsertRequest struct {
	Name      string `json:"name"      validate:"required,min=1,max=100"`
	SecretKey string `json:"secretKey" validate:"max=100"`
	Owner     uint64 `json:"owner"`
}

// Create creates a new gallery. The identifier and, when absent, the
// secret key are generated server side.
func (s *Service) Create(c *fiber.Ctx) error {
	in := new(upsertRequest)
	if err := c.BodyParser(in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx := c.Context()

	// enforce the configured gallery limit
	maxCount := s.settings.GetInt(ctx, settings.MaxGalleryCount, 0, 0)
	if maxCount > 0 {
		count, err := gallery.Count(ctx, s.db)
		if err != nil {
			log.Error().Err(err).Msg("failed to count galleries")
			return fiber.ErrInternalServerError
		}

		if count >= maxCount {
			return fiber.NewError(fiber.StatusConflict, "gallery limit reached")
		}
	}

	if in.Owner == 0 {
		if current := auth.CurrentUser(c); current != nil {
			in.Owner = current.ID
		}
	}

	secretKey := in.SecretKey
	if secretKey == "" {
		secretKey = uniuri.NewSecretKey()
	}

	g, err := gallery.Create(ctx, s.db, in.Name, uniuri.NewIdentifier(), secretKey, in.Owner)
	if err != nil {
		switch {
		case errors.Is(err, gallery.ErrGalleryNameEmpty),
			errors.Is(err, gallery.ErrGalleryNameProtected):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case errors.Is(err, gallery.ErrGalleryNameTaken),
			errors.Is(err, gallery.ErrGalleryIdentifierTaken):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}

		log.Error().Err(err).Str("name", in.Name).Msg("failed to create gallery")

		return fiber.ErrInternalServerError
	}

	s.audit(c, "created gallery "+g.Name)

	return c.Status(fiber.StatusCreated).JSON(g)
}

// Update renames a gallery or rotates its secret key.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid gallery id")
	}

	in := new(upsertRequest)
	if err := c.BodyParser(in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	g, err := gallery.Edit(c.Context(), s.db, id, in.Name, in.SecretKey, in.Owner)
	if err != nil {
		switch {
		case errors.Is(err, gallery.ErrGalleryNotFound):
			return fiber.ErrNotFound
		case errors.Is(err, gallery.ErrGalleryNameEmpty),
			errors.Is(err, gallery.ErrGalleryNameProtected):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case errors.Is(err, gallery.ErrGalleryNameTaken):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}

		log.Error().Err(err).Uint64("gallery_id", id).Msg("failed to update gallery")

		return fiber.ErrInternalServerError
	}

	s.audit(c, "updated gallery "+g.Name)

	return c.JSON(g)
}

// Wipe removes all items and setting overrides of a gallery but keeps the
// gallery itself.
func (s *Service) Wipe(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid gallery id")
	}

	g, err := gallery.Get(c.Context(), s.db, id)
	if err != nil {
		if errors.Is(err, gallery.ErrGalleryNotFound) {
			return fiber.ErrNotFound
		}

		log.Error().Err(err).Uint64("gallery_id", id).Msg("failed to load gallery")

		return fiber.ErrInternalServerError
	}

	if err := gallery.Wipe(c.Context(), s.db, id); err != nil {
		log.Error().Err(err).Uint64("gallery_id", id).Msg("failed to wipe gallery")
		return fiber.ErrInternalServerError
	}

	if err := fileutil.PurgeDirectory(filepath.Join(s.cfg.Uploads.Directory, g.Identifier)); err != nil {
		log.Error().Err(err).Str("identifier", g.Identifier).Msg("failed to purge gallery directory")
	}

	s.audit(c, "wiped gallery "+g.Name)

	return c.SendStatus(fiber.StatusNoContent)
}

// WipeAll removes every item and override and deletes all galleries except
// the default one.
func (s *Service) WipeAll(c *fiber.Ctx) error {
	galleries, err := gallery.GetAll(c.Context(), s.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to list galleries")
		return fiber.ErrInternalServerError
	}

	if err := gallery.WipeAll(c.Context(), s.db); err != nil {
		log.Error().Err(err).Msg("failed to wipe galleries")
		return fiber.ErrInternalServerError
	}

	for i := range galleries {
		dir := filepath.Join(s.cfg.Uploads.Directory, galleries[i].Identifier)
		if err := fileutil.PurgeDirectory(dir); err != nil {
			log.Error().Err(err).Str("identifier", galleries[i].Identifier).
				Msg("failed to purge gallery directory")
		}
	}

	s.audit(c, "wiped all galleries")

	return c.SendStatus(fiber.StatusNoContent)
}

// Delete removes a gallery, its items, its setting overrides and its files.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid gallery id")
	}

	g, err := gallery.Get(c.Context(), s.db, id)
	if err != nil {
		if errors.Is(err, gallery.ErrGalleryNotFound) {
			return fiber.ErrNotFound
		}

		log.Error().Err(err).Uint64("gallery_id", id).Msg("failed to load gallery")

		return fiber.ErrInternalServerError
	}

	if err := gallery.Delete(c.Context(), s.db, id); err != nil {
		switch {
		case errors.Is(err, gallery.ErrGalleryProtected):
			return fiber.NewError(fiber.StatusForbidden, err.Error())
		case errors.Is(err, gallery.ErrGalleryNotFound):
			return fiber.ErrNotFound
		}

		log.Error().Err(err).Uint64("gallery_id", id).Msg("failed to delete gallery")

		return fiber.ErrInternalServerError
	}

	if _, err := fileutil.DeleteDirectoryIfExists(filepath.Join(s.cfg.Uploads.Directory, g.Identifier)); err != nil {
		log.Error().Err(err).Str("identifier", g.Identifier).Msg("failed to delete gallery directory")
	}

	s.audit(c, "deleted gallery "+g.Name)

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Service) audit(c *fiber.Ctx, message string) {
	username := ""
	if current := auth.CurrentUser(c); current != nil {
		username = current.Username
	}

	auditlog.Add(c.Context(), s.db, username, message)
}
