package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Erikmmkarlsson/graphmaster/internal/common"
	"github.com/Erikmmkarlsson/graphmaster/internal/logging"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/auth"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/mail"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/models"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/repositories/users"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/tsdb"
)

const provisionAttempts = 3

// usernameRx bounds what may become a tenant namespace. The username doubles
// as a persistence filename and a snapshot object key, so path metacharacters
// must never get past this point.
var usernameRx = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// RegistrationService drives the user lifecycle from pending registration to
// an active account with a provisioned tenant namespace:
//
//	Pending (Register) -> Active (Finalize) -> [Disabled]
type RegistrationService struct {
	users           users.Repository
	tokens          *auth.TokenService
	tenants         tsdb.Store
	mailer          mail.Dispatcher
	bcryptCost      int
	confirmationURI string
	logger          logging.Logger
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(
	repo users.Repository,
	tokens *auth.TokenService,
	tenants tsdb.Store,
	mailer mail.Dispatcher,
	bcryptCost int,
	confirmationURI string,
	logger logging.Logger,
) *RegistrationService {
	return &RegistrationService{
		users:           repo,
		tokens:          tokens,
		tenants:         tenants,
		mailer:          mailer,
		bcryptCost:      bcryptCost,
		confirmationURI: confirmationURI,
		logger:          logger,
	}
}

// Register creates an inactive user and dispatches a confirmation email
// carrying a registration token. A taken username yields
// common.ErrDuplicateUsername. Mail failure is logged but does not fail the
// registration: the token can be re-requested by registering support channels
// and the account stays pending until finalized.
func (s *RegistrationService) Register(ctx context.Context, username, email, password string) error {
	if !usernameRx.MatchString(username) {
		return common.ErrInvalidUsername
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, &models.User{
		Username:     username,
		PasswordHash: hash,
		IsActive:     false,
	})
	if err != nil {
		return err
	}

	token, err := s.tokens.IssueRegistrationToken(user)
	if err != nil {
		return fmt.Errorf("issue registration token: %w", err)
	}

	subject := "Confirm your graphmaster registration"
	body := fmt.Sprintf(
		"Hello %s,\n\nfinish setting up your account by confirming within the next day:\n\n%s?token=%s\n",
		user.Username, s.confirmationURI, token,
	)
	if err := s.mailer.Send(ctx, email, subject, body); err != nil {
		s.logger.Error(ctx, "registration email dispatch failed", "username", username, "error", err.Error())
	}

	return nil
}

// Finalize activates the user identified by the registration token,
// provisions their tenant namespace, and returns an access token for
// immediate use.
//
// Finalize is idempotent: activation and provisioning are two independent
// mutations, and a crash between them is recovered by calling Finalize again
// with the same (still unexpired) token. Re-finalizing an already active user
// re-ensures provisioning and mints a fresh access token.
func (s *RegistrationService) Finalize(ctx context.Context, registrationToken string) (string, error) {
	claims, err := s.tokens.Validate(registrationToken, auth.PurposeRegistration)
	if err != nil {
		return "", err
	}

	user, err := s.users.GetByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrInvalidToken
		}
		return "", fmt.Errorf("credential lookup: %w", err)
	}

	if !user.IsActive {
		if err := s.users.SetActive(ctx, user.ID, true); err != nil {
			return "", fmt.Errorf("activate user: %w", err)
		}
		user.IsActive = true
	}

	if err := s.provision(ctx, user.Username); err != nil {
		return "", err
	}

	s.logger.Info(ctx, "finalized registration", "username", user.Username)
	return s.tokens.IssueAccessToken(user)
}

// Bootstrap seeds the admin account when absent: active, admin role, tenant
// namespace provisioned eagerly.
func (s *RegistrationService) Bootstrap(ctx context.Context, username, password string) error {
	if !usernameRx.MatchString(username) {
		return common.ErrInvalidUsername
	}

	_, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return s.provision(ctx, username)
	}
	if !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("bootstrap lookup: %w", err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.users.Create(ctx, &models.User{
		Username:     username,
		PasswordHash: hash,
		Roles:        []string{models.RoleAdmin},
		IsActive:     true,
	}); err != nil && !errors.Is(err, common.ErrDuplicateUsername) {
		return fmt.Errorf("bootstrap create: %w", err)
	}

	s.logger.Info(ctx, "bootstrapped admin user", "username", username)
	return s.provision(ctx, username)
}

// provision creates the tenant namespace with a bounded retry. Provisioning
// is idempotent, so retrying after a partial failure is safe.
func (s *RegistrationService) provision(ctx context.Context, namespace string) error {
	backoff := retry.WithMaxRetries(provisionAttempts-1, retry.NewConstant(100*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.tenants.Provision(namespace); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("provision namespace %s: %w", namespace, err)
	}
	return nil
}
