// Package user provides CRUD over owner and admin accounts, including the
// lockout counters used by the login flow.
package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
)

const usernameQueryPattern = "username = ?"

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameEmpty is returned when the username is blank.
	ErrUsernameEmpty = errors.New("username cannot be empty")
	// ErrUsernameTaken is returned when the username is already in use.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrUserProtected is returned when deleting the site owner account.
	ErrUserProtected = errors.New("user cannot be deleted")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a user by id.
func Get(ctx context.Context, db *gorm.DB, id uint64) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var user models.User
	err := db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

// GetByUsername retrieves a user by login name, case-insensitively.
func GetByUsername(ctx context.Context, db *gorm.DB, username string) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, ErrUsernameEmpty
	}

	var user models.User
	err := db.WithContext(ctx).Where(usernameQueryPattern, username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

// GetAll retrieves every user ordered by username.
func GetAll(ctx context.Context, db *gorm.DB) ([]models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var users []models.User
	if err := db.WithContext(ctx).Order("username ASC").Find(&users).Error; err != nil {
		return nil, err
	}

	return users, nil
}

// Count returns the number of user accounts.
func Count(ctx context.Context, db *gorm.DB) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

// Create adds a new account. The username is stored lower-cased and the
// password arrives already hashed.
func Create(ctx context.Context, db *gorm.DB, user *models.User) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" {
		return nil, ErrUsernameEmpty
	}

	if _, err := GetByUsername(ctx, db, user.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}

	return user, nil
}

// Edit updates the account's email, level and active flag.
func Edit(ctx context.Context, db *gorm.DB, id uint64, email string, level models.UserLevel, active bool) (*models.User, error) {
	err := updateUser(ctx, db, id, map[string]interface{}{
		"email":  email,
		"level":  level,
		"active": active,
	})
	if err != nil {
		return nil, err
	}

	return Get(ctx, db, id)
}

// ChangePassword replaces the stored password hash.
func ChangePassword(ctx context.Context, db *gorm.DB, id uint64, hashedPassword string) error {
	return updateUser(ctx, db, id, map[string]interface{}{"password": hashedPassword})
}

// SetMFAToken stores a TOTP secret for the account. An empty token disables
// multi-factor auth.
func SetMFAToken(ctx context.Context, db *gorm.DB, id uint64, token string) error {
	return updateUser(ctx, db, id, map[string]interface{}{"mfa_token": token})
}

// RecordFailedLogin increments the failure counter and returns the new
// count. When until is non-nil the account is locked out until that time.
func RecordFailedLogin(ctx context.Context, db *gorm.DB, id uint64, until *time.Time) (int, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	var failures int
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		failures = user.FailedLogins + 1
		return tx.Model(&user).Updates(map[string]interface{}{
			"failed_logins": failures,
			"lockout_until": until,
		}).Error
	})
	if err != nil {
		return 0, err
	}

	return failures, nil
}

// ResetLockout clears the failure counter and any active lockout.
func ResetLockout(ctx context.Context, db *gorm.DB, id uint64) error {
	return updateUser(ctx, db, id, map[string]interface{}{
		"failed_logins": 0,
		"lockout_until": nil,
	})
}

// Delete removes an account. The site owner account is protected.
func Delete(ctx context.Context, db *gorm.DB, id uint64) error {
	if db == nil {
		return ErrDBNil
	}
	if id <= 1 {
		return ErrUserProtected
	}

	result := db.WithContext(ctx).Delete(&models.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func updateUser(ctx context.Context, db *gorm.DB, id uint64, fields map[string]interface{}) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}
