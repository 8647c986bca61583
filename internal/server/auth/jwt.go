// Package auth implements stateless token issuance and validation for the
// graphmaster server. Tokens are HS256 JWTs; identity, roles, purpose and the
// refresh window are fully recoverable from the token itself, so no token
// state is kept server-side and expiry is the only invalidation mechanism.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Erikmmkarlsson/graphmaster/internal/common"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/models"
)

// Token purposes. A token minted for one purpose is rejected wherever the
// other is required.
const (
	PurposeAccess       = "access"
	PurposeRegistration = "registration"
)

// Claims carried by every graphmaster token. RefreshUntil is set on access
// tokens only and anchors the refresh window to the original issuance, so
// refreshing cannot extend it.
type Claims struct {
	jwt.RegisteredClaims
	UserID       string   `json:"uid"`
	Username     string   `json:"username"`
	Roles        []string `json:"roles,omitempty"`
	Purpose      string   `json:"purpose"`
	RefreshUntil int64    `json:"rfe,omitempty"`
}

// TokenService mints, refreshes, and validates signed tokens.
type TokenService struct {
	secretKey            []byte
	accessValidity       time.Duration
	registrationValidity time.Duration
	refreshWindow        time.Duration
	now                  func() time.Time
}

// Option customizes TokenService construction.
type Option func(*TokenService)

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(s *TokenService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewTokenService constructs a TokenService signing with secretKey.
func NewTokenService(secretKey []byte, accessValidity, registrationValidity, refreshWindow time.Duration, opts ...Option) *TokenService {
	s := &TokenService{
		secretKey:            secretKey,
		accessValidity:       accessValidity,
		registrationValidity: registrationValidity,
		refreshWindow:        refreshWindow,
		now:                  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueAccessToken mints an access token for the user, valid for the access
// validity window and refreshable until now+refreshWindow.
func (s *TokenService) IssueAccessToken(user *models.User) (string, error) {
	now := s.now()
	return s.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessValidity)),
		},
		UserID:       user.ID,
		Username:     user.Username,
		Roles:        user.Roles,
		Purpose:      PurposeAccess,
		RefreshUntil: now.Add(s.refreshWindow).Unix(),
	})
}

// IssueRegistrationToken mints a single-purpose token authorizing account
// activation within the confirmation window.
func (s *TokenService) IssueRegistrationToken(user *models.User) (string, error) {
	now := s.now()
	return s.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.registrationValidity)),
		},
		UserID:   user.ID,
		Username: user.Username,
		Purpose:  PurposeRegistration,
	})
}

// Refresh exchanges an access token (possibly already past its expiry) for a
// fresh one. The signature must verify and the original refresh window must
// still be open; the new token carries the same subject, roles, and
// RefreshUntil instant, so the window never slides.
func (s *TokenService) Refresh(tokenString string) (string, error) {
	claims := &Claims{}

	// Expired tokens are still refreshable, so skip claim validation here and
	// check the refresh window manually.
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, err := parser.ParseWithClaims(tokenString, claims, s.keyFunc)
	if err != nil || !token.Valid {
		return "", common.ErrInvalidToken
	}

	if claims.Purpose != PurposeAccess {
		return "", common.ErrPurposeMismatch
	}

	now := s.now()
	if claims.RefreshUntil == 0 || now.After(time.Unix(claims.RefreshUntil, 0)) {
		return "", common.ErrRefreshWindowExpired
	}

	return s.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessValidity)),
		},
		UserID:       claims.UserID,
		Username:     claims.Username,
		Roles:        claims.Roles,
		Purpose:      PurposeAccess,
		RefreshUntil: claims.RefreshUntil,
	})
}

// Validate checks signature and expiry and requires the given purpose.
func (s *TokenService) Validate(tokenString string, purpose string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	if claims.Purpose != purpose {
		return nil, common.ErrPurposeMismatch
	}

	return claims, nil
}

func (s *TokenService) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

func (s *TokenService) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, common.ErrInvalidToken
	}
	return s.secretKey, nil
}
