package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Erikmmkarlsson/graphmaster/internal/common"
	"github.com/Erikmmkarlsson/graphmaster/internal/dbx"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/models"
)

const uniqueViolation = "23505"

// PostgresRepository implements the credential store over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (username, password_hash, roles, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.PasswordHash, encodeRoles(user.Roles), user.IsActive).Scan(&user.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, roles, is_active, created_at
		FROM users
		WHERE username = $1
	`

	user := &models.User{}
	var roles string
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &roles, &user.IsActive, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Roles = decodeRoles(roles)
	return user, nil
}

func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `
		UPDATE users SET is_active = $2
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}

// encodeRoles and decodeRoles are the single serialization boundary between
// the []string role set in the model and the text column in the store.

func encodeRoles(roles []string) string {
	return strings.Join(roles, ",")
}

func decodeRoles(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
