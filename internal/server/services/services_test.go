package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Erikmmkarlsson/graphmaster/internal/common"
	"github.com/Erikmmkarlsson/graphmaster/internal/logging"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/auth"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/models"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/repositories/users"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/tsdb"
)

// --- shared test doubles ---

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testTokens() *auth.TokenService {
	return auth.NewTokenService([]byte("test-secret"), 24*time.Hour, time.Hour, 30*24*time.Hour)
}

type fakeUsersRepo struct {
	byName map[string]*models.User
	nextID int

	createErr error
	getErr    error
	setErr    error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byName: make(map[string]*models.User)}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byName[u.Username]; ok {
		return nil, common.ErrDuplicateUsername
	}
	f.nextID++
	u.ID = fmt.Sprintf("u-%d", f.nextID)
	f.byName[u.Username] = u
	return u, nil
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[username]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// InTx lets the fake double as a users.TxRunner; there is nothing
// transactional about a map.
func (f *fakeUsersRepo) InTx(ctx context.Context, fn func(users.Repository) error) error {
	return fn(f)
}

func (f *fakeUsersRepo) SetActive(ctx context.Context, id string, active bool) error {
	if f.setErr != nil {
		return f.setErr
	}
	for _, u := range f.byName {
		if u.ID == id {
			u.IsActive = active
			return nil
		}
	}
	return common.ErrNotFound
}

type fakeTenantStore struct {
	provisioned  map[string]bool
	failuresLeft int
}

func newFakeTenantStore() *fakeTenantStore {
	return &fakeTenantStore{provisioned: make(map[string]bool)}
}

func (f *fakeTenantStore) Provision(namespace string) error {
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return errors.New("tenant store unreachable")
	}
	f.provisioned[namespace] = true
	return nil
}

func (f *fakeTenantStore) Exists(namespace string) bool { return f.provisioned[namespace] }

func (f *fakeTenantStore) Namespace(name string) (tsdb.Handle, error) {
	if !f.provisioned[name] {
		return nil, common.ErrNamespaceNotFound
	}
	return nil, nil
}

func (f *fakeTenantStore) Namespaces() []string {
	var names []string
	for n := range f.provisioned {
		names = append(names, n)
	}
	return names
}

func (f *fakeTenantStore) Dump(namespace string) (map[string][]models.Point, error) {
	if !f.provisioned[namespace] {
		return nil, common.ErrNamespaceNotFound
	}
	return map[string][]models.Point{}, nil
}

type fakeMailer struct {
	recipient string
	subject   string
	body      string
	sends     int
	err       error
}

func (f *fakeMailer) Send(ctx context.Context, recipient, subject, body string) error {
	f.sends++
	f.recipient = recipient
	f.subject = subject
	f.body = body
	return f.err
}
