package license

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evervibe/evs-next-basic-web/internal/config"
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

// PurchaseDateLayout renders purchase dates as UTC ISO-8601 with milliseconds
const PurchaseDateLayout = "2006-01-02T15:04:05.000Z"

var (
	keyPattern   = regexp.MustCompile(config.LicenseKeyPattern)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Integrity failures, checked in this order
var (
	ErrInvalidKeyFormat   = errors.New("invalid license key format")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrInvalidType        = errors.New("invalid license type")
	ErrHashMismatch       = errors.New("license hash mismatch - possible tampering detected")
	ErrInvalidPurchase    = errors.New("invalid purchase date")
	ErrFuturePurchaseDate = errors.New("purchase date is in the future")
)

// Codec generates license keys and computes their integrity digests
type Codec struct {
	salt string
	now  func() time.Time
}

// NewCodec creates a codec mixing salt into every digest
func NewCodec(salt string) *Codec {
	return &Codec{salt: salt, now: time.Now}
}

// WithClock replaces the time source used for purchase dates and date checks
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// GenerateKey returns a new key in the EVS-XXXX-XXXX-XXXX format
func GenerateKey() string {
	digits := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("%s-%s-%s-%s", config.LicenseKeyPrefix, digits[0:4], digits[4:8], digits[8:12])
}

// ComputeDigest hashes the pipe-joined license fields and salt
func ComputeDigest(key string, licenseType domain.LicenseType, email, purchaseDate, salt string) string {
	data := strings.Join([]string{key, string(licenseType), email, purchaseDate, salt}, "|")
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// ValidateFormat reports whether key matches the license key pattern exactly
func ValidateFormat(key string) bool {
	return keyPattern.MatchString(key)
}

// ValidateEmail reports whether email looks like an address
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Generate issues a complete license for a purchase made now
func (c *Codec) Generate(licenseType domain.LicenseType, email string) domain.License {
	key := GenerateKey()
	purchaseDate := c.now().UTC().Format(PurchaseDateLayout)
	return domain.License{
		Key:          key,
		Type:         licenseType,
		Email:        email,
		PurchaseDate: purchaseDate,
		Hash:         ComputeDigest(key, licenseType, email, purchaseDate, c.salt),
	}
}

// Digest computes the digest of l's fields under the codec's salt
func (c *Codec) Digest(l domain.License) string {
	return ComputeDigest(l.Key, l.Type, l.Email, l.PurchaseDate, c.salt)
}

// ValidateIntegrity returns nil when l is well formed and untampered.
// The first failing check wins.
func (c *Codec) ValidateIntegrity(l domain.License) error {
	if !ValidateFormat(l.Key) {
		return ErrInvalidKeyFormat
	}
	if !ValidateEmail(l.Email) {
		return ErrInvalidEmail
	}
	if !l.Type.Valid() {
		return ErrInvalidType
	}
	if subtle.ConstantTimeCompare([]byte(l.Hash), []byte(c.Digest(l))) != 1 {
		return ErrHashMismatch
	}
	purchased, err := time.Parse(time.RFC3339Nano, l.PurchaseDate)
	if err != nil {
		return ErrInvalidPurchase
	}
	if purchased.After(c.now()) {
		return ErrFuturePurchaseDate
	}
	return nil
}
