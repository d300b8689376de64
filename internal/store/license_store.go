package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

const (
	licensePrefix     = "LICENSE:"
	downloadLogPrefix = "DOWNLOAD:LOG:"

	// maxIncrementAttempts bounds optimistic retries when concurrent
	// downloads race on the same record
	maxIncrementAttempts = 10
)

// ErrConflict is returned when the download count could not be updated
// because the record kept changing underneath
var ErrConflict = errors.New("license record changed concurrently")

// LicenseStore keeps license records and download logs in Redis
type LicenseStore struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewLicenseStore creates a store backed by client
func NewLicenseStore(client redis.UniversalClient, logger *slog.Logger) *LicenseStore {
	return &LicenseStore{
		client: client,
		logger: logger.With(slog.String("component", "license_store")),
	}
}

// LicenseKey returns the Redis key holding a license record
func LicenseKey(key string) string { return licensePrefix + key }

// DownloadLogKey returns the Redis key holding a license's download log
func DownloadLogKey(key string) string { return downloadLogPrefix + key }

// Store upserts the record for key without expiry
func (s *LicenseStore) Store(ctx context.Context, key string, record domain.StoredLicense) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode license %s: %w", key, err)
	}
	if err := s.client.Set(ctx, LicenseKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("store license %s: %w", key, err)
	}
	s.logger.InfoContext(ctx, "license stored", slog.String("license_key", key))
	return nil
}

// Get returns the record for key, or nil when none exists
func (s *LicenseStore) Get(ctx context.Context, key string) (*domain.StoredLicense, error) {
	data, err := s.client.Get(ctx, LicenseKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get license %s: %w", key, err)
	}

	var record domain.StoredLicense
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode license %s: %w", key, err)
	}
	return &record, nil
}

// Validate looks up key and checks it belongs to email and has not expired
func (s *LicenseStore) Validate(ctx context.Context, key, email string, now time.Time) (domain.ValidationResult, error) {
	record, err := s.Get(ctx, key)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	if record == nil {
		return domain.ValidationResult{Reason: domain.ValidationNotFound}, nil
	}
	if !record.MatchesEmail(email) {
		return domain.ValidationResult{Reason: domain.ValidationEmailMismatch}, nil
	}
	if record.ExpiredAt(now) {
		return domain.ValidationResult{Reason: domain.ValidationExpired}, nil
	}
	return domain.ValidationResult{Success: true, License: record}, nil
}

// RecordDownload appends entry to the key's log and increments its download
// count. A missing record only skips the increment.
func (s *LicenseStore) RecordDownload(ctx context.Context, key string, entry domain.DownloadLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode download log entry: %w", err)
	}
	if err := s.client.RPush(ctx, DownloadLogKey(key), data).Err(); err != nil {
		return fmt.Errorf("append download log %s: %w", key, err)
	}

	for attempt := 0; attempt < maxIncrementAttempts; attempt++ {
		err = s.client.Watch(ctx, func(tx *redis.Tx) error {
			return s.incrementDownloadCount(ctx, tx, key)
		}, LicenseKey(key))
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("increment download count %s: %w", key, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("increment download count %s: %w", key, err)
	}
	return nil
}

func (s *LicenseStore) incrementDownloadCount(ctx context.Context, tx *redis.Tx, key string) error {
	data, err := tx.Get(ctx, LicenseKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		s.logger.WarnContext(ctx, "download logged for unknown license", slog.String("license_key", key))
		return nil
	}
	if err != nil {
		return err
	}

	var record domain.StoredLicense
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("decode license %s: %w", key, err)
	}
	record.DownloadCount++

	updated, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, LicenseKey(key), updated, 0)
		return nil
	})
	return err
}

// DownloadLogs returns every logged download for key, oldest first
func (s *LicenseStore) DownloadLogs(ctx context.Context, key string) ([]domain.DownloadLogEntry, error) {
	raw, err := s.client.LRange(ctx, DownloadLogKey(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read download log %s: %w", key, err)
	}

	entries := make([]domain.DownloadLogEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.DownloadLogEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			s.logger.WarnContext(ctx, "skipping malformed download log entry",
				slog.String("license_key", key),
				slog.String("error", err.Error()))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Keys returns every stored license key using SCAN
func (s *LicenseStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, licensePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[len(licensePrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan licenses: %w", err)
	}
	return keys, nil
}

// Ping checks connectivity
func (s *LicenseStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
