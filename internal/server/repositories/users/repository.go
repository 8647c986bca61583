// Package users provides the credential store: persistence of user records
// (username, password hash, roles, active flag).
package users

import (
	"context"

	"github.com/Erikmmkarlsson/graphmaster/internal/server/models"
)

type Repository interface {
	// Create inserts a new user and returns it with the generated ID.
	// A taken username yields common.ErrDuplicateUsername.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByUsername returns the user record or common.ErrNotFound.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// SetActive flips the active flag; common.ErrNotFound when no such user.
	SetActive(ctx context.Context, id string, active bool) error
}

// TxRunner executes fn against a Repository bound to a single transaction:
// every statement fn issues commits or rolls back together.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Repository) error) error
}
