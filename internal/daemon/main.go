package daemon

import (
	"fmt"

	"github.com/gofiber/storage"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	sessionsqlite "github.com/gofiber/storage/sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/GoWeddingShare/GoWeddingShare/internal/config"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/dsn"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
	"github.com/GoWeddingShare/GoWeddingShare/internal/fileutil"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService web.Service
}

// Start starts the Daemon's web service.
func (d *Daemon) Start() error {
	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
		return nil
	}

	if err = gormDB.AutoMigrate(
		&models.User{},
		&models.Setting{},
		&models.GallerySetting{},
		&models.Gallery{},
		&models.GalleryItem{},
		&models.AuditLog{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
		return nil
	}

	if _, err = fileutil.CreateDirectoryIfNotExists(cfg.Uploads.Directory); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Uploads.Directory).Msg("failed to create uploads directory")
		return nil
	}

	seed(cfg, gormDB)

	session.Init(sessionStorage(cfg))

	return &Daemon{
		cfg:        cfg,
		webService: *web.New(cfg, gormDB),
	}
}

// sessionStorage builds the fiber session backend matching the configured
// database engine.
func sessionStorage(cfg *config.Config) storage.Storage {
	switch cfg.DB.Engine {
	case "mysql":
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "sessions",
		})
	case "postgres":
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: dsn.CreatePostgresURL(cfg),
			Table:         "sessions",
		})
	default:
		return sessionsqlite.New(sessionsqlite.Config{
			Database: db.SQLitePath(cfg),
			Table:    "sessions",
		})
	}
}
