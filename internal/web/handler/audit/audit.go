// Package audit provides the JSON API handler for browsing the audit log.
package audit

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/auth"
	"github.com/GoWeddingShare/GoWeddingShare/internal/config"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/auditlog"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler"
)

const (
	// Path is the path to the audit log endpoint.
	Path = handler.APIPath + "/audit"
)

// Service serves the audit log.
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

	app.Get(Path, auth.RequireLevel(models.UserLevelAdmin), s.Search)

	return nil
}

// Search returns the newest audit entries, optionally filtered by a search
// term matching the username or message.
func (s *Service) Search(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", auditlog.DefaultSearchLimit)
	if limit < 1 || limit > 1000 {
		limit = auditlog.DefaultSearchLimit
	}

	entries, err := auditlog.Search(c.Context(), s.db, c.Query("search"), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to search audit log")
		return fiber.ErrInternalServerError
	}

	return c.JSON(entries)
}
