package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Erikmmkarlsson/graphmaster/internal/common"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const (
	insertQ = `(?s)^\s*INSERT\s+INTO\s+users\s*\(username,\s*password_hash,\s*roles,\s*is_active\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+id\s*$`
	selectQ = `(?s)^\s*SELECT\s+id,\s*username,\s*password_hash,\s*roles,\s*is_active,\s*created_at\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s*$`
	updateQ = `(?s)^\s*UPDATE\s+users\s+SET\s+is_active\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1\s*$`
)

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id"}).AddRow("u-1")
	mock.ExpectQuery(insertQ).
		WithArgs("Brandt", "hash", "", false).
		WillReturnRows(rows)

	u := &models.User{Username: "Brandt", PasswordHash: "hash"}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "u-1" || got.Username != "Brandt" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestCreate_DuplicateUsername(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WithArgs("Brandt", "hash", "", false).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	_, err := repo.Create(context.Background(), &models.User{Username: "Brandt", PasswordHash: "hash"})
	if !errors.Is(err, common.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WithArgs("Brandt", "hash", "", false).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Username: "Brandt", PasswordHash: "hash"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByUsername_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Now()
	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "roles", "is_active", "created_at"}).
		AddRow("u-1", "Erik", "hash", "admin,operator", true, created)
	mock.ExpectQuery(selectQ).
		WithArgs("Erik").
		WillReturnRows(rows)

	got, err := repo.GetByUsername(context.Background(), "Erik")
	if err != nil {
		t.Fatalf("GetByUsername error: %v", err)
	}
	if got.ID != "u-1" || got.Username != "Erik" || !got.IsActive {
		t.Fatalf("unexpected user: %+v", got)
	}
	if len(got.Roles) != 2 || got.Roles[0] != "admin" || got.Roles[1] != "operator" {
		t.Fatalf("unexpected roles: %v", got.Roles)
	}
}

func TestGetByUsername_EmptyRoles(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "roles", "is_active", "created_at"}).
		AddRow("u-2", "Walter", "hash", "", true, time.Now())
	mock.ExpectQuery(selectQ).
		WithArgs("Walter").
		WillReturnRows(rows)

	got, err := repo.GetByUsername(context.Background(), "Walter")
	if err != nil {
		t.Fatalf("GetByUsername error: %v", err)
	}
	if got.Roles != nil {
		t.Fatalf("expected nil roles, got %v", got.Roles)
	}
}

func TestGetByUsername_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQ).
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "nobody")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetActive(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(updateQ).
		WithArgs("u-1", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetActive(context.Background(), "u-1", false); err != nil {
		t.Fatalf("SetActive error: %v", err)
	}
}

func TestSetActive_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(updateQ).
		WithArgs("missing", true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetActive(context.Background(), "missing", true)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
