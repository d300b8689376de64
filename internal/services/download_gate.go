package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	apierrors "github.com/evervibe/evs-next-basic-web/internal/errors"
	"github.com/evervibe/evs-next-basic-web/internal/infrastructure"
	"github.com/evervibe/evs-next-basic-web/internal/license"
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

// TokenIssuer signs and verifies short-lived download tokens
type TokenIssuer interface {
	Issue(licenseKey, email string) (string, error)
	Verify(ctx context.Context, token string) *license.DownloadClaims
}

// ValidationGrant is returned for a license that passed validation
type ValidationGrant struct {
	Token         string             `json:"token"`
	LicenseType   domain.LicenseType `json:"licenseType"`
	DownloadCount int64              `json:"downloadCount"`
}

// ClientInfo identifies the caller of a download
type ClientInfo struct {
	IP        string
	UserAgent string
}

// DownloadGrant points an authorized caller at the artifact
type DownloadGrant struct {
	DownloadURL string `json:"downloadUrl"`
	LicenseKey  string `json:"licenseKey"`
}

// DownloadGate validates licenses and trades them for download tokens
type DownloadGate struct {
	store       LicenseRepository
	tokens      TokenIssuer
	artifactURL string
	metrics     *infrastructure.BusinessMetrics
	now         func() time.Time
	logger      *slog.Logger
}

// NewDownloadGate creates a gate. A nil store reports the license system
// as unavailable.
func NewDownloadGate(store LicenseRepository, tokens TokenIssuer, artifactURL string, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *DownloadGate {
	return &DownloadGate{
		store:       store,
		tokens:      tokens,
		artifactURL: artifactURL,
		metrics:     metrics,
		now:         time.Now,
		logger:      logger.With(slog.String("component", "download_gate")),
	}
}

// WithClock replaces the time source, for tests
func (g *DownloadGate) WithClock(now func() time.Time) *DownloadGate {
	g.now = now
	return g
}

// Available reports whether a license store is configured
func (g *DownloadGate) Available() bool {
	return g.store != nil
}

// ValidateAndIssueToken checks key and email against the store and issues a
// download token for a valid license
func (g *DownloadGate) ValidateAndIssueToken(ctx context.Context, key, email string) (ValidationGrant, error) {
	key = strings.TrimSpace(key)
	email = strings.TrimSpace(email)

	if !license.ValidateFormat(key) {
		g.metrics.RecordValidation(ctx, "invalid_format")
		return ValidationGrant{}, apierrors.Validation(apierrors.MsgInvalidKeyFormat)
	}
	if !license.ValidateEmail(email) {
		g.metrics.RecordValidation(ctx, "invalid_email")
		return ValidationGrant{}, apierrors.Validation(apierrors.MsgInvalidEmail)
	}
	if g.store == nil {
		return ValidationGrant{}, apierrors.ConfigUnavailable(apierrors.MsgLicenseUnavailable)
	}

	result, err := g.store.Validate(ctx, key, email, g.now())
	if err != nil {
		g.logger.ErrorContext(ctx, "license lookup failed",
			slog.String("license_key", key),
			slog.String("error", err.Error()))
		return ValidationGrant{}, apierrors.Internal(apierrors.MsgValidationFailed, err)
	}

	if !result.Success {
		g.metrics.RecordValidation(ctx, string(result.Reason))
		g.logger.WarnContext(ctx, "license validation rejected",
			slog.String("license_key", key),
			slog.String("reason", string(result.Reason)))
		switch result.Reason {
		case domain.ValidationNotFound:
			return ValidationGrant{}, apierrors.NotFound(apierrors.MsgLicenseNotFound)
		case domain.ValidationExpired:
			return ValidationGrant{}, apierrors.Forbidden(apierrors.MsgLicenseExpired)
		default:
			return ValidationGrant{}, apierrors.Forbidden(apierrors.MsgEmailMismatch)
		}
	}

	token, err := g.tokens.Issue(key, email)
	if err != nil {
		return ValidationGrant{}, apierrors.Internal(apierrors.MsgValidationFailed, err)
	}

	g.metrics.RecordValidation(ctx, "ok")
	grant := ValidationGrant{Token: token}
	if result.License != nil {
		grant.LicenseType = result.License.Type
		grant.DownloadCount = result.License.DownloadCount
	}
	return grant, nil
}

// AuthorizeDownload verifies token, records the download and returns the
// artifact location. Tokens stay valid until they expire.
func (g *DownloadGate) AuthorizeDownload(ctx context.Context, token string, client ClientInfo) (DownloadGrant, error) {
	if strings.TrimSpace(token) == "" {
		return DownloadGrant{}, apierrors.Validation(apierrors.MsgTokenMissing)
	}

	claims := g.tokens.Verify(ctx, token)
	if claims == nil {
		return DownloadGrant{}, apierrors.Forbidden(apierrors.MsgTokenInvalid)
	}

	if g.store != nil {
		entry := domain.DownloadLogEntry{
			IP:        client.IP,
			Timestamp: g.now().UTC().Format(time.RFC3339Nano),
			UserAgent: client.UserAgent,
		}
		if err := g.store.RecordDownload(ctx, claims.LicenseKey, entry); err != nil {
			g.logger.ErrorContext(ctx, "download logging failed",
				slog.String("license_key", claims.LicenseKey),
				slog.String("error", err.Error()))
			return DownloadGrant{}, apierrors.Internal(apierrors.MsgDownloadFailed, err)
		}
	}

	g.metrics.RecordDownload(ctx)
	g.logger.InfoContext(ctx, "download authorized",
		slog.String("license_key", claims.LicenseKey),
		slog.String("client_ip", client.IP))
	return DownloadGrant{DownloadURL: g.artifactURL, LicenseKey: claims.LicenseKey}, nil
}
