// Package backup provides the JSON API handlers for exporting and
// restoring the database.
package backup

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/auth"
	"github.com/GoWeddingShare/GoWeddingShare/internal/config"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/backup"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/auditlog"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
	"github.com/GoWeddingShare/GoWeddingShare/internal/fileutil"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler"
)

const (
	// Path is the base path for backup management.
	Path = handler.APIPath + "/backup"

	// Dir is the directory backups are written to, below the uploads root.
	Dir = "backups"
)

// Service exports and restores database snapshots.
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

	owner := auth.RequireLevel(models.UserLevelOwner)

	app.Post(Path+"/export", owner, s.Export)
	app.Post(Path+"/import", owner, s.Import)

	return nil
}

func (s *Service) backupDir() string {
	return filepath.Join(s.cfg.Uploads.Directory, Dir)
}

// Export writes a database snapshot into the backup directory and returns
// its file name.
func (s *Service) Export(c *fiber.Ctx) error {
	if _, err := fileutil.CreateDirectoryIfNotExists(s.backupDir()); err != nil {
		log.Error().Err(err).Msg("failed to create backup directory")
		return fiber.ErrInternalServerError
	}

	filename := "backup-" + time.Now().UTC().Format("20060102-150405") + ".db"
	target := filepath.Join(s.backupDir(), filename)

	if err := backup.Export(c.Context(), s.db, target); err != nil {
		log.Error().Err(err).Str("target", target).Msg("backup export failed")
		return fiber.ErrInternalServerError
	}

	s.audit(c, "exported database backup "+filename)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"file": filename,
	})
}

type importRequest struct {
	File string `json:"file"`
}

// Import replaces the database contents with a previously exported
// snapshot from the backup directory.
func (s *Service) Import(c *fiber.Ctx) error {
	in := new(importRequest)
	if err := c.BodyParser(in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	filename := fileutil.SanitizeFilename(in.File)
	if filename == "" {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}

	source := filepath.Join(s.backupDir(), filename)

	if err := backup.Import(c.Context(), s.db, source); err != nil {
		if errors.Is(err, backup.ErrBackupNotFound) {
			return fiber.ErrNotFound
		}

		log.Error().Err(err).Str("source", source).Msg("backup import failed")

		return fiber.ErrInternalServerError
	}

	s.audit(c, "restored database backup "+filename)

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Service) audit(c *fiber.Ctx, message string) {
	username := ""
	if current := auth.CurrentUser(c); current != nil {
		username = current.Username
	}

	auditlog.Add(c.Context(), s.db, username, message)
}
