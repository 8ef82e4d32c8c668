// Package dashboard provides the summary endpoint for the admin area.
package dashboard

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/auth"
	"github.com/GoWeddingShare/GoWeddingShare/internal/config"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/gallery"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/galleryitem"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/user"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
	"github.com/GoWeddingShare/GoWeddingShare/internal/fileutil"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler"
)

const (
	// Path is the path to the dashboard endpoint.
	Path = handler.APIPath + "/dashboard"
)

// Service is the dashboard handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the dashboard handler.
var Handler = Service{}

// Init initializes the dashboard handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = db
	s.cfg = cfg

	app.Get(Path, auth.RequireLevel(models.UserLevelAdmin), s.Get)

	return nil
}

// Get returns the aggregate counts shown on the admin dashboard.
func (s *Service) Get(c *fiber.Ctx) error {
	ctx := c.Context()

	// gallery id 0 aggregates over all galleries
	totals, err := gallery.Get(ctx, s.db, models.AggregateGalleryID)
	if err != nil {
		log.Error().Err(err).Msg("failed to aggregate galleries")
		return fiber.ErrInternalServerError
	}

	galleryCount, err := gallery.Count(ctx, s.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to count galleries")
		return fiber.ErrInternalServerError
	}

	pendingCount, err := galleryitem.PendingCount(ctx, s.db, models.AggregateGalleryID)
	if err != nil {
		log.Error().Err(err).Msg("failed to count pending items")
		return fiber.ErrInternalServerError
	}

	userCount, err := user.Count(ctx, s.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to count users")
		return fiber.ErrInternalServerError
	}

	diskUsage := fileutil.DirectorySize(s.cfg.Uploads.Directory)

	return c.JSON(fiber.Map{
		"galleries":      galleryCount,
		"totalItems":     totals.TotalItems,
		"approvedItems":  totals.ApprovedItems,
		"pendingItems":   pendingCount,
		"users":          userCount,
		"diskUsage":      diskUsage,
		"diskUsageHuman": fileutil.BytesToHumanReadable(diskUsage, 2),
	})
}
