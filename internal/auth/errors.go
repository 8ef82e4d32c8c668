package auth

import "errors"

var (
	// ErrInvalidOldPassword is returned when the provided old password does not match the user's current password.
	ErrInvalidOldPassword = errors.New("invalid old password")

	// ErrUserAccountDisabled is returned when attempting to authenticate a disabled user account.
	ErrUserAccountDisabled = errors.New("user account is disabled")

	// ErrInvalidPassword is returned when the provided password is incorrect during authentication.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrUserNotFound is returned when a user cannot be found in the database.
	ErrUserNotFound = errors.New("user not found")

	// ErrAccountLockedOut is returned while the account's lockout window is still active.
	ErrAccountLockedOut = errors.New("account is locked out")

	// ErrMFACodeRequired is returned when the account has multi-factor auth
	// enabled and no code was supplied.
	ErrMFACodeRequired = errors.New("multi-factor code required")

	// ErrInvalidMFACode is returned when the supplied multi-factor code does not verify.
	ErrInvalidMFACode = errors.New("invalid multi-factor code")
)
