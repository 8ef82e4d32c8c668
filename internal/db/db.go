// Package db opens the gorm database connection for the configured engine.
package db

import (
	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/config"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/dsn"
)

// ErrUnsupportedEngine is returned for an unknown DB.Engine value.
var ErrUnsupportedEngine = errors.New("unsupported database engine")

// DefaultSQLitePath is used when no DB.Path is configured.
const DefaultSQLitePath = "./data/weddingshare.db"

// SQLitePath returns the configured SQLite database file path.
func SQLitePath(cfg *config.Config) string {
	if cfg.DB.Path != "" {
		return cfg.DB.Path
	}

	return DefaultSQLitePath
}

// Connect opens the database selected by cfg.DB.Engine. SQLite is the
// default and needs no server.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DB.Engine {
	case "", "sqlite":
		dialector = sqlite.Open(SQLitePath(cfg))
	case "mysql":
		dialector = mysql.Open(dsn.Create(cfg))
	case "postgres":
		dialector = postgres.Open(dsn.CreatePostgres(cfg))
	default:
		return nil, errors.Wrap(ErrUnsupportedEngine, cfg.DB.Engine)
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	return gormDB, nil
}
