// Package auditlog records privileged actions so the site owner can see
// who changed what.
package auditlog

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
)

// DefaultSearchLimit caps search results when the caller gives no limit.
const DefaultSearchLimit = 100

// ErrDBNil is returned when the database connection is nil.
var ErrDBNil = errors.New("database connection is nil")

// Add appends an entry. Audit writes are best effort and never fail the
// action being recorded; storage errors are only logged.
func Add(ctx context.Context, db *gorm.DB, username, message string) {
	if db == nil || message == "" {
		return
	}

	entry := models.AuditLog{
		Username:  username,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to write audit log entry")
	}
}

// Search returns the newest entries matching the term in either the
// username or the message. An empty term matches everything.
func Search(ctx context.Context, db *gorm.DB, term string, limit int) ([]models.AuditLog, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	tx := db.WithContext(ctx).Model(&models.AuditLog{})
	if term != "" {
		pattern := "%" + term + "%"
		tx = tx.Where("username LIKE ? OR message LIKE ?", pattern, pattern)
	}

	var entries []models.AuditLog
	err := tx.Order("timestamp DESC").Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}
