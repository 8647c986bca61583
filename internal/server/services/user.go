// Package services contains the server-side business logic: credential
// verification, token lifecycle, the registration workflow, and tenant
// namespace provisioning.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Erikmmkarlsson/graphmaster/internal/common"
	"github.com/Erikmmkarlsson/graphmaster/internal/logging"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/auth"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/models"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/repositories/users"
)

// UserService handles authentication-related operations:
//   - Login: verify credentials and mint an access token
//   - Refresh: exchange an access token for a fresh one
//   - Authenticate: resolve a bearer token to a live user (the auth gate)
//   - Disable: deactivate an account (admin operation)
type UserService struct {
	users  users.Repository
	tx     users.TxRunner
	tokens *auth.TokenService
	logger logging.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo users.Repository, tx users.TxRunner, tokens *auth.TokenService, logger logging.Logger) *UserService {
	return &UserService{users: repo, tx: tx, tokens: tokens, logger: logger}
}

// Login verifies the username/password pair and returns a signed access
// token. Unknown usernames, wrong passwords, and disabled accounts all yield
// common.ErrInvalidCredentials so the response cannot distinguish them.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// spend a hash comparison anyway so the timing matches
			auth.BurnPassword(password)
			return "", common.ErrInvalidCredentials
		}
		return "", fmt.Errorf("credential lookup: %w", err)
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return "", err
	}

	if !user.IsActive {
		return "", common.ErrInvalidCredentials
	}

	return s.tokens.IssueAccessToken(user)
}

// Refresh exchanges an access token for a fresh one. No server-side state is
// consulted; the refresh window is carried in the token itself.
func (s *UserService) Refresh(ctx context.Context, tokenString string) (string, error) {
	return s.tokens.Refresh(tokenString)
}

// Authenticate resolves a bearer access token to the current user record.
// The record is re-read on every call so that an admin disable takes effect
// immediately, even for tokens that have not expired yet.
func (s *UserService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.tokens.Validate(tokenString, auth.PurposeAccess)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("credential lookup: %w", err)
	}

	if !user.IsActive {
		return nil, common.ErrUserDisabled
	}

	return user, nil
}

// Disable deactivates the named account. Tokens already issued to the user
// keep verifying, but the auth gate rejects them from the next request on.
// The lookup and the flag flip run in one transaction so the record cannot
// change between them.
func (s *UserService) Disable(ctx context.Context, username string) (*models.User, error) {
	var user *models.User
	err := s.tx.InTx(ctx, func(repo users.Repository) error {
		u, err := repo.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if err := repo.SetActive(ctx, u.ID, false); err != nil {
			return fmt.Errorf("disable user: %w", err)
		}
		u.IsActive = false
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "disabled user", "username", username)
	return user, nil
}
