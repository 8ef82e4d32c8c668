package auth

import (
	"context"
	"errors"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/user"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
	"github.com/GoWeddingShare/GoWeddingShare/internal/settings"
)

const (
	// DefaultLockoutAttempts is the failure count triggering a lockout when
	// no setting overrides it.
	DefaultLockoutAttempts = 5
	// DefaultLockoutMins is the lockout duration when no setting overrides it.
	DefaultLockoutMins = 60
)

// Service authenticates accounts against the local database, enforcing the
// configured lockout policy and optional multi-factor auth.
type Service struct {
	db       *gorm.DB
	settings *settings.Service
}

// NewService creates a new auth service.
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:       db,
		settings: settings.NewService(db),
	}
}

// Authenticate verifies credentials and returns the account on success. A
// wrong password counts towards the lockout threshold; reaching it locks
// the account for the configured duration. Accounts with a stored MFA
// secret additionally require a valid TOTP code.
func (s *Service) Authenticate(ctx context.Context, username, password, mfaCode string) (*models.User, error) {
	account, err := user.GetByUsername(ctx, s.db, username)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !account.Active {
		return nil, ErrUserAccountDisabled
	}

	now := time.Now().UTC()
	if account.LockedOut(now) {
		return nil, ErrAccountLockedOut
	}

	if !account.VerifyPassword(password) {
		s.recordFailure(ctx, account, now)
		return nil, ErrInvalidPassword
	}

	if account.MFAToken != "" {
		if mfaCode == "" {
			return nil, ErrMFACodeRequired
		}
		if !totp.Validate(mfaCode, account.MFAToken) {
			s.recordFailure(ctx, account, now)
			return nil, ErrInvalidMFACode
		}
	}

	if err := user.ResetLockout(ctx, s.db, account.ID); err != nil {
		log.Error().Err(err).Str("username", account.Username).Msg("failed to reset lockout counters")
	}

	return account, nil
}

// recordFailure bumps the failure counter and applies a lockout once the
// configured attempt threshold is reached.
func (s *Service) recordFailure(ctx context.Context, account *models.User, now time.Time) {
	attempts := s.settings.GetInt(ctx, settings.AccountLockoutAttempts, 0, DefaultLockoutAttempts)
	mins := s.settings.GetInt(ctx, settings.AccountLockoutMins, 0, DefaultLockoutMins)

	var until *time.Time
	if int64(account.FailedLogins)+1 >= attempts {
		lockout := now.Add(time.Duration(mins) * time.Minute)
		until = &lockout
	}

	failures, err := user.RecordFailedLogin(ctx, s.db, account.ID, until)
	if err != nil {
		log.Error().Err(err).Str("username", account.Username).Msg("failed to record login failure")
		return
	}

	if until != nil {
		log.Warn().Str("username", account.Username).Int("failures", failures).
			Time("until", *until).Msg("account locked out")
	}
}

// ChangePassword verifies the old password before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	account, err := user.Get(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if !account.VerifyPassword(oldPassword) {
		return ErrInvalidOldPassword
	}

	return user.ChangePassword(ctx, s.db, userID, models.HashPassword(newPassword))
}

// EnableMFA generates and stores a TOTP secret for the account. The secret
// and its otpauth URL are returned so the user can enroll an authenticator.
func (s *Service) EnableMFA(ctx context.Context, userID uint64, issuer string) (secret, url string, err error) {
	account, err := user.Get(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return "", "", ErrUserNotFound
		}
		return "", "", err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account.Username,
	})
	if err != nil {
		return "", "", err
	}

	if err := user.SetMFAToken(ctx, s.db, userID, key.Secret()); err != nil {
		return "", "", err
	}

	return key.Secret(), key.URL(), nil
}

// DisableMFA clears the account's TOTP secret.
func (s *Service) DisableMFA(ctx context.Context, userID uint64) error {
	return user.SetMFAToken(ctx, s.db, userID, "")
}
