// Package settings provides the JSON API handlers for global settings and
// their per-gallery overrides.
package settings

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/auth"
	"github.com/GoWeddingShare/GoWeddingShare/internal/config"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/auditlog"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/setting"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler"
)

const (
	// Path is the base path for settings management.
	Path = handler.APIPath + "/settings"
)

// Service manages settings through the JSON API.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
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

	admin := auth.RequireLevel(models.UserLevelAdmin)

	app.Get(Path, admin, s.List)
	app.Put(Path, admin, s.Set)
	app.Delete(Path, admin, s.Delete)
	app.Delete(Path+"/all", admin, s.DeleteAll)

	return nil
}

// List returns the effective settings for a gallery. With galleryId 0 it
// returns the plain global settings.
func (s *Service) List(c *fiber.Ctx) error {
	galleryID, err := queryGalleryID(c)
	if err != nil {
		return err
	}

	all, err := setting.GetAll(c.Context(), s.db, galleryID)
	if err != nil {
		log.Error().Err(err).Uint64("gallery_id", galleryID).Msg("failed to list settings")
		return fiber.ErrInternalServerError
	}

	return c.JSON(all)
}

type setRequest struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	GalleryID uint64 `json:"galleryId"`
}

// Set stores a global setting or, with a gallery id, an override for that
// gallery. An empty override value removes the override instead.
func (s *Service) Set(c *fiber.Ctx) error {
	in := new(setRequest)
	if err := c.BodyParser(in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if in.Key == "" {
		return fiber.NewError(fiber.StatusBadRequest, "key is required")
	}

	stored := setting.Set(c.Context(), s.db, in.Key, in.Value, in.GalleryID)
	if stored == nil {
		return fiber.ErrInternalServerError
	}

	s.audit(c, "changed setting "+stored.Key)

	return c.JSON(stored)
}

// Delete removes a setting. Deleting a global setting also removes every
// gallery override of it.
func (s *Service) Delete(c *fiber.Ctx) error {
	galleryID, err := queryGalleryID(c)
	if err != nil {
		return err
	}

	key := c.Query("key")
	if key == "" {
		return fiber.NewError(fiber.StatusBadRequest, "key is required")
	}

	if err := setting.Delete(c.Context(), s.db, key, galleryID); err != nil {
		log.Error().Err(err).Str("key", key).Uint64("gallery_id", galleryID).
			Msg("failed to delete setting")

		return fiber.ErrInternalServerError
	}

	s.audit(c, "deleted setting "+key)

	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteAll removes all settings in a scope. With galleryId 0 everything
// goes, including every override.
func (s *Service) DeleteAll(c *fiber.Ctx) error {
	galleryID, err := queryGalleryID(c)
	if err != nil {
		return err
	}

	if err := setting.DeleteAll(c.Context(), s.db, galleryID); err != nil {
		log.Error().Err(err).Uint64("gallery_id", galleryID).Msg("failed to delete settings")
		return fiber.ErrInternalServerError
	}

	s.audit(c, "deleted all settings")

	return c.SendStatus(fiber.StatusNoContent)
}

func queryGalleryID(c *fiber.Ctx) (uint64, error) {
	id := c.QueryInt("galleryId", 0)
	if id < 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid gallery id")
	}

	return uint64(id), nil
}

func (s *Service) audit(c *fiber.Ctx, message string) {
	username := ""
	if current := auth.CurrentUser(c); current != nil {
		username = current.Username
	}

	auditlog.Add(c.Context(), s.db, username, message)
}
