package daemon

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/config"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/gallery"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/setting"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/user"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
	"github.com/GoWeddingShare/GoWeddingShare/internal/settings"
	"github.com/GoWeddingShare/GoWeddingShare/internal/uniuri"
)

const (
	defaultOwnerUsername = "admin"
	defaultOwnerPassword = "admin"

	defaultGalleryName = "default"
)

// seed creates the site owner account and the default gallery on first
// start. Both carry id 1 and cannot be deleted.
func seed(cfg *config.Config, db *gorm.DB) {
	ctx := context.Background()
	settingsService := settings.NewService(db)

	// take the site title from the config file until one is stored
	if cfg.Title != "" {
		if _, err := setting.Get(ctx, db, string(settings.Title)); errors.Is(err, setting.ErrSettingNotFound) {
			setting.Set(ctx, db, string(settings.Title), cfg.Title, 0)
		}
	}

	count, err := user.Count(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to count users")
		return
	}

	if count == 0 {
		username := settingsService.GetOrDefault(ctx, settings.OwnerUsername, 0, defaultOwnerUsername)
		password := settingsService.GetOrDefault(ctx, settings.OwnerPassword, 0, defaultOwnerPassword)

		if _, err := user.Create(ctx, db, &models.User{
			Username: username,
			Password: models.HashPassword(password),
			Active:   true,
			Level:    models.UserLevelOwner,
		}); err != nil {
			log.Fatal().Err(err).Msg("failed to seed owner account")
			return
		}

		log.Warn().Str("username", username).
			Msg("seeded the site owner account, change its password after first login")
	}

	if _, err := gallery.IDByName(ctx, db, defaultGalleryName); err == nil {
		return
	}

	if _, err := gallery.Create(ctx, db, defaultGalleryName, defaultGalleryName,
		uniuri.NewSecretKey(), models.OwnerUserID); err != nil {
		log.Fatal().Err(err).Msg("failed to seed default gallery")
		return
	}

	log.Info().Str("name", defaultGalleryName).Msg("seeded the default gallery")
}
