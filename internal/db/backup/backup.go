// Package backup exports and restores the SQLite database behind the
// application. Server engines are expected to use their own tooling.
package backup

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/fileutil"
)

// ErrBackupNotFound is returned when the snapshot file does not exist.
var ErrBackupNotFound = errors.New("backup file does not exist")

// tables lists every application table in restore order.
var tables = []string{
	"settings",
	"gallery_settings",
	"galleries",
	"gallery_items",
	"users",
	"audit_logs",
}

// Export writes a consistent snapshot of the database to destPath. An
// existing file at destPath is replaced.
func Export(ctx context.Context, db *gorm.DB, destPath string) error {
	if _, err := fileutil.DeleteFileIfExists(destPath); err != nil {
		return err
	}

	// VACUUM INTO produces a compacted copy without blocking writers for
	// the whole duration.
	if err := db.WithContext(ctx).Exec("VACUUM INTO ?", destPath).Error; err != nil {
		return errors.Wrapf(err, "failed to export database to %q", destPath)
	}

	log.Info().Str("path", destPath).Msg("database exported")

	return nil
}

// Import replaces the content of every application table with the rows
// from the snapshot at srcPath.
func Import(ctx context.Context, db *gorm.DB, srcPath string) error {
	if !fileutil.FileExists(srcPath) {
		return errors.Wrapf(ErrBackupNotFound, "%q", srcPath)
	}

	if err := db.WithContext(ctx).Exec("ATTACH DATABASE ? AS restore", srcPath).Error; err != nil {
		return errors.Wrapf(err, "failed to attach backup %q", srcPath)
	}
	defer func() {
		if err := db.WithContext(ctx).Exec("DETACH DATABASE restore").Error; err != nil {
			log.Error().Err(err).Msg("failed to detach backup database")
		}
	}()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return errors.Wrapf(err, "failed to clear table %q", table)
			}
			if err := tx.Exec("INSERT INTO " + table + " SELECT * FROM restore." + table).Error; err != nil {
				return errors.Wrapf(err, "failed to restore table %q", table)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("path", srcPath).Msg("database imported")

	return nil
}
