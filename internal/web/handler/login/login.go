package login

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/auth"
	"github.com/GoWeddingShare/GoWeddingShare/internal/config"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/auditlog"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/session"
)

const (
	// Path is the path to the login endpoint.
	Path = "/login"
)

// Service is the login handler service.
type Service struct {
	handler.Service
	cfg         *config.Config
	db          *gorm.DB
	authService *auth.Service
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = db
	s.cfg = cfg
	s.authService = auth.NewService(db)

	app.Post(Path, s.Post)

	return nil
}

type request struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	MFACode  string `json:"mfaCode"  form:"mfaCode"`
}

type response struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Level    int    `json:"level"`
}

// Post handles the login submission.
func (s *Service) Post(c *fiber.Ctx) error {
	in := new(request)
	if err := c.BodyParser(in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, ErrInvalidFormData.Error())
	}

	account, err := s.authService.Authenticate(c.Context(), in.Username, in.Password, in.MFACode)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrInvalidPassword):
			auditlog.Add(c.Context(), s.db, in.Username, "failed login attempt")

			return fiber.NewError(fiber.StatusUnauthorized, ErrInvalidCredentials.Error())
		case errors.Is(err, auth.ErrUserAccountDisabled):
			return fiber.NewError(fiber.StatusUnauthorized, auth.ErrUserAccountDisabled.Error())
		case errors.Is(err, auth.ErrAccountLockedOut):
			auditlog.Add(c.Context(), s.db, in.Username, "login attempt on locked out account")

			return fiber.NewError(fiber.StatusUnauthorized, auth.ErrAccountLockedOut.Error())
		case errors.Is(err, auth.ErrMFACodeRequired):
			return fiber.NewError(fiber.StatusUnauthorized, auth.ErrMFACodeRequired.Error())
		case errors.Is(err, auth.ErrInvalidMFACode):
			auditlog.Add(c.Context(), s.db, in.Username, "failed multi-factor challenge")

			return fiber.NewError(fiber.StatusUnauthorized, auth.ErrInvalidMFACode.Error())
		default:
			log.Error().Err(err).Msg("login failed")

			return fiber.NewError(fiber.StatusInternalServerError, ErrInternalServerError.Error())
		}
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session ID")
		return fiber.NewError(fiber.StatusInternalServerError, ErrInternalServerError.Error())
	}

	userSession := &session.Data{
		User: *account,
	}

	if err = userSession.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")
		return fiber.NewError(fiber.StatusInternalServerError, ErrInternalServerError.Error())
	}

	// set login cookie
	cookieSettings := &fiber.Cookie{
		Name:     session.CookieName,
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	if s.cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)

	auditlog.Add(c.Context(), s.db, account.Username, "logged in")

	return c.JSON(response{
		ID:       account.ID,
		Username: account.Username,
		Level:    int(account.Level),
	})
}
