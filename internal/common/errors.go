// Package common defines shared constants and sentinel errors used across the
// layers of graphmaster. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrInvalidUsername   = errors.New("invalid username")

	// Service-level errors (generic/internal flow control).
	ErrInternal = errors.New("internal error")

	// Auth errors. ErrInvalidCredentials is deliberately shared by the
	// unknown-user and wrong-password paths so responses cannot be used to
	// enumerate usernames.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user is disabled")

	// Token lifecycle errors.
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")
	ErrPurposeMismatch      = errors.New("token purpose mismatch")
	ErrRefreshWindowExpired = errors.New("token expired beyond refresh window")

	// Authorization errors.
	ErrForbidden = errors.New("insufficient role")

	// Tenant store errors.
	ErrNamespaceNotFound = errors.New("namespace not found")
	ErrWriteRejected     = errors.New("write rejected")
)
