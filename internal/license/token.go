package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/evervibe/evs-next-basic-web/internal/config"
)

// ErrTokenInvalid is returned when a download token fails verification
var ErrTokenInvalid = errors.New("invalid or expired download token")

// DownloadClaims are carried by a download token
type DownloadClaims struct {
	LicenseKey string `json:"licenseKey"`
	Email      string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies download tokens
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewTokenService creates a token service signing with secret
func NewTokenService(secret string, logger *slog.Logger) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    config.DownloadTokenTTL,
		now:    time.Now,
		logger: logger.With(slog.String("component", "download_token")),
	}
}

// WithClock replaces the time source, for tests
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue signs a token for licenseKey and email valid for five minutes
func (s *TokenService) Issue(licenseKey, email string) (string, error) {
	now := s.now()
	claims := DownloadClaims{
		LicenseKey: licenseKey,
		Email:      email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign download token: %w", err)
	}
	return signed, nil
}

// Verify returns the token's claims, or nil for any malformed, forged or
// expired token. Failures are logged and never returned.
func (s *TokenService) Verify(ctx context.Context, tokenString string) *DownloadClaims {
	claims := &DownloadClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		s.logger.WarnContext(ctx, "download token verification failed",
			slog.String("error", fmt.Sprint(err)))
		return nil
	}
	if claims.LicenseKey == "" || claims.Email == "" {
		s.logger.WarnContext(ctx, "download token missing claims")
		return nil
	}
	return claims
}
