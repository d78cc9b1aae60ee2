// Package services defines the business logic for capsules, users, and
// notifications. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// Validation errors raised before any store I/O happens. A creation request
// failing one of these has produced no record and no blob.
var (
	// ErrTitleRequired is returned when the capsule title is empty or blank.
	ErrTitleRequired = errors.New("title is required")

	// ErrDescriptionRequired is returned when the capsule description is
	// empty or blank.
	ErrDescriptionRequired = errors.New("description is required")

	// ErrUnlockNotFuture is returned when the requested unlock time is not
	// strictly after the current time.
	ErrUnlockNotFuture = errors.New("unlock time must be in the future")

	// ErrNoContentSelected is returned when no content kind was selected.
	ErrNoContentSelected = errors.New("select at least one content type")

	// ErrUnknownContentKind is returned when a selected kind is not one of
	// photos, videos, audio, or text.
	ErrUnknownContentKind = errors.New("unknown content type")

	// ErrEmptyContent is returned (wrapped with the kind) when a selected
	// content kind has no payload: no files, or blank text.
	ErrEmptyContent = errors.New("selected content type has no content")
)

// Capsule lifecycle errors.
var (
	// ErrCapsuleNotFound indicates that the requested capsule does not exist
	// or is not accessible to the current user.
	ErrCapsuleNotFound = errors.New("capsule not found")

	// ErrMissingBasePath is returned when a capsule record carries no
	// attachment base path. Such a record cannot be safely cleaned up, so
	// deletion refuses to proceed.
	ErrMissingBasePath = errors.New("capsule has no attachment base path")
)

// Identity errors.
var (
	// ErrEmailTaken is returned when registering with an email that already
	// has an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned for a failed sign-in. It deliberately
	// does not distinguish unknown email from wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserNotFound indicates the requested user record does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrWeakPassword is returned when a password does not meet the minimum
	// length requirement.
	ErrWeakPassword = errors.New("password must be at least 8 characters")

	// ErrDisplayNameRequired is returned when a profile update carries a
	// blank display name.
	ErrDisplayNameRequired = errors.New("display name is required")
)

// Notification errors.
var (
	// ErrNotificationNotFound indicates the requested notification id does
	// not resolve against the current capsule snapshot.
	ErrNotificationNotFound = errors.New("notification not found")
)
