// Package repomanager wires the SQL connection and the repositories built on
// top of it, and applies schema migrations at startup.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/Erikmmkarlsson/graphmaster/internal/server/repositories/users"
)

type RepositoryManager interface {
	Conn() *sql.DB
	Users() users.Repository

	// InTx runs fn with repositories bound to a single transaction,
	// committing on success and rolling back on error.
	InTx(ctx context.Context, fn func(users.Repository) error) error

	RunMigrations(ctx context.Context) error
	Close() error
}
