package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// UserLevel represents the access level of a user account.
type UserLevel int

const (
	// UserLevelBasic can review items in galleries it owns.
	UserLevelBasic UserLevel = 1
	// UserLevelAdmin can manage galleries and review every submission.
	UserLevelAdmin UserLevel = 2
	// UserLevelOwner is the site owner seeded as user id 1.
	UserLevelOwner UserLevel = 3
)

// OwnerUserID is the id of the protected site owner account.
const OwnerUserID uint64 = 1

// User represents an owner or admin account. Guests uploading to galleries
// do not have accounts.
type User struct {
	// ID is the unique identifier for the user. Id 1 is the site owner.
	ID uint64 `gorm:"primaryKey"`
	// Active indicates whether the account can log in.
	Active bool
	// Username is the unique login name, stored lower-cased.
	Username string `gorm:"unique;size:100;not null"`
	// Email is the user's email address.
	Email string `gorm:"size:255"`
	// Password is the Argon2id hash of the account password.
	Password string `gorm:"size:255"`
	// Level is the account's access level.
	Level UserLevel `gorm:"not null;default:1"`
	// FailedLogins counts consecutive failed login attempts.
	FailedLogins int
	// LockoutUntil blocks logins until the given time when set.
	LockoutUntil *time.Time
	// MFAToken is the TOTP secret when multi-factor auth is enabled.
	MFAToken string `gorm:"column:mfa_token;size:255"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the user's stored
// hashed password using constant-time comparison.
func (u *User) VerifyPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}

// LockedOut reports whether the account is currently locked out.
func (u *User) LockedOut(now time.Time) bool {
	return u.LockoutUntil != nil && now.Before(*u.LockoutUntil)
}
