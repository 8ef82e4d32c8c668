// Package users provides the JSON API handlers for account management and
// account self service (password changes and multi-factor enrollment).
package users

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/auth"
	"github.com/GoWeddingShare/GoWeddingShare/internal/config"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/auditlog"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/user"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler"
)

const (
	// Path is the base path for user management.
	Path = handler.APIPath + "/users"

	// AccountPath is the base path for account self service.
	AccountPath = handler.APIPath + "/account"
)

// Service provides account management endpoints.
type Service struct {
	handler.Service
	cfg         *config.Config
	db          *gorm.DB
	authService *auth.Service
	validator   *validator.Validate
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
	s.authService = auth.NewService(db)
	s.validator = validator.New()

	admin := auth.RequireLevel(models.UserLevelAdmin)
	basic := auth.RequireLevel(models.UserLevelBasic)

	app.Get(Path, admin, s.List)
	app.Post(Path, admin, s.Create)
	app.Put(Path+"/:id", admin, s.Update)
	app.Post(Path+"/:id/unlock", admin, s.Unlock)
	app.Delete(Path+"/:id", admin, s.Delete)

	app.Post(AccountPath+"/password", basic, s.ChangePassword)
	app.Post(AccountPath+"/mfa", basic, s.EnableMFA)
	app.Delete(AccountPath+"/mfa", basic, s.DisableMFA)

	return nil
}

type accountResponse struct {
	ID         uint64 `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Level      int    `json:"level"`
	Active     bool   `json:"active"`
	MFAEnabled bool   `json:"mfaEnabled"`
}

func toResponse(u *models.User) accountResponse {
	return accountResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Level:      int(u.Level),
		Active:     u.Active,
		MFAEnabled: u.MFAToken != "",
	}
}

// List returns all accounts without their credential material.
func (s *Service) List(c *fiber.Ctx) error {
	accounts, err := user.GetAll(c.Context(), s.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to list users")
		return fiber.ErrInternalServerError
	}

	out := make([]accountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, toResponse(&accounts[i]))
	}

	return c.JSON(out)
}

type createRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email"    validate:"omitempty,email,max=255"`
	Password string `json:"password" validate:"required,min=8"`
	Level    int    `json:"level"    validate:"required,oneof=1 2 3"`
	Active   bool   `json:"active"`
}

// Create adds a new account.
func (s *Service) Create(c *fiber.Ctx) error {
	in := new(createRequest)
	if err := c.BodyParser(in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	created, err := user.Create(c.Context(), s.db, &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: models.HashPassword(in.Password),
		Level:    models.UserLevel(in.Level),
		Active:   in.Active,
	})
	if err != nil {
		switch {
		case errors.Is(err, user.ErrUsernameEmpty):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case errors.Is(err, user.ErrUsernameTaken):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}

		log.Error().Err(err).Str("username", in.Username).Msg("failed to create user")

		return fiber.ErrInternalServerError
	}

	s.audit(c, "created user "+created.Username)

	return c.Status(fiber.StatusCreated).JSON(toResponse(created))
}

type updateRequest struct {
	Email  string `json:"email"  validate:"omitempty,email,max=255"`
	Level  int    `json:"level"  validate:"required,oneof=1 2 3"`
	Active bool   `json:"active"`
}

// Update changes an account's email, level and active flag.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	in := new(updateRequest)
	if err := c.BodyParser(in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	updated, err := user.Edit(c.Context(), s.db, id, in.Email, models.UserLevel(in.Level), in.Active)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return fiber.ErrNotFound
		}

		log.Error().Err(err).Uint64("user_id", id).Msg("failed to update user")

		return fiber.ErrInternalServerError
	}

	s.audit(c, "updated user "+updated.Username)

	return c.JSON(toResponse(updated))
}

// Unlock clears an account's failed login counter and lockout.
func (s *Service) Unlock(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	if err := user.ResetLockout(c.Context(), s.db, id); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return fiber.ErrNotFound
		}

		log.Error().Err(err).Uint64("user_id", id).Msg("failed to unlock user")

		return fiber.ErrInternalServerError
	}

	s.audit(c, "unlocked user "+strconv.FormatUint(id, 10))

	return c.SendStatus(fiber.StatusNoContent)
}

// Delete removes an account. The site owner and the current user cannot be
// deleted.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	if current := auth.CurrentUser(c); current != nil && current.ID == id {
		return fiber.NewError(fiber.StatusBadRequest, "cannot delete your own account")
	}

	if err := user.Delete(c.Context(), s.db, id); err != nil {
		switch {
		case errors.Is(err, user.ErrUserProtected):
			return fiber.NewError(fiber.StatusForbidden, err.Error())
		case errors.Is(err, user.ErrUserNotFound):
			return fiber.ErrNotFound
		}

		log.Error().Err(err).Uint64("user_id", id).Msg("failed to delete user")

		return fiber.ErrInternalServerError
	}

	s.audit(c, "deleted user "+strconv.FormatUint(id, 10))

	return c.SendStatus(fiber.StatusNoContent)
}

type passwordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// ChangePassword changes the current user's password after verifying the
// old one.
func (s *Service) ChangePassword(c *fiber.Ctx) error {
	current := auth.CurrentUser(c)
	if current == nil {
		return fiber.ErrUnauthorized
	}

	in := new(passwordRequest)
	if err := c.BodyParser(in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := s.authService.ChangePassword(c.Context(), current.ID, in.OldPassword, in.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidOldPassword) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		log.Error().Err(err).Uint64("user_id", current.ID).Msg("failed to change password")

		return fiber.ErrInternalServerError
	}

	s.audit(c, "changed own password")

	return c.SendStatus(fiber.StatusNoContent)
}

// EnableMFA enrolls the current user in multi-factor auth and returns the
// TOTP secret and otpauth URL.
func (s *Service) EnableMFA(c *fiber.Ctx) error {
	current := auth.CurrentUser(c)
	if current == nil {
		return fiber.ErrUnauthorized
	}

	secret, url, err := s.authService.EnableMFA(c.Context(), current.ID, s.cfg.Title)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", current.ID).Msg("failed to enable multi-factor auth")
		return fiber.ErrInternalServerError
	}

	s.audit(c, "enabled multi-factor auth")

	return c.JSON(fiber.Map{
		"secret": secret,
		"url":    url,
	})
}

// DisableMFA removes the current user's multi-factor enrollment.
func (s *Service) DisableMFA(c *fiber.Ctx) error {
	current := auth.CurrentUser(c)
	if current == nil {
		return fiber.ErrUnauthorized
	}

	if err := s.authService.DisableMFA(c.Context(), current.ID); err != nil {
		log.Error().Err(err).Uint64("user_id", current.ID).Msg("failed to disable multi-factor auth")
		return fiber.ErrInternalServerError
	}

	s.audit(c, "disabled multi-factor auth")

	return c.SendStatus(fiber.StatusNoContent)
}

func paramID(c *fiber.Ctx) (uint64, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	return id, nil
}

func (s *Service) audit(c *fiber.Ctx, message string) {
	username := ""
	if current := auth.CurrentUser(c); current != nil {
		username = current.Username
	}

	auditlog.Add(c.Context(), s.db, username, message)
}
