package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/session"
)

// RequireLevel creates Fiber middleware that requires a minimum account
// level. The authenticated user is placed in fiber.Locals under
// "CurrentUser" for handlers further down the chain.
func RequireLevel(level models.UserLevel) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get session cookie
		sessionID := c.Cookies(session.CookieName)
		if sessionID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "not logged in")
		}

		// Read session data
		sessionData := new(session.Data)
		if err := sessionData.Read(sessionID); err != nil {
			log.Debug().Err(err).Msg("failed to read session")
			return fiber.NewError(fiber.StatusUnauthorized, "not logged in")
		}

		if sessionData.User.ID == 0 {
			return fiber.NewError(fiber.StatusUnauthorized, "not logged in")
		}

		if sessionData.User.Level < level {
			log.Warn().Uint64("user_id", sessionData.User.ID).
				Int("level", int(sessionData.User.Level)).
				Int("required", int(level)).
				Msg("user lacks required level")

			return fiber.NewError(fiber.StatusForbidden, "insufficient access level")
		}

		c.Locals("CurrentUser", sessionData.User)

		return c.Next()
	}
}

// CurrentUser returns the authenticated user placed in locals by
// RequireLevel, or nil outside a protected route.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, ok := c.Locals("CurrentUser").(models.User)
	if !ok {
		return nil
	}

	return &u
}
