package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

// Sink receives one record per issued license
type Sink interface {
	Record(ctx context.Context, rec domain.IssuanceRecord) error
}

// FileSink appends records to dated JSON files
type FileSink struct {
	file *DailyFile
}

// NewFileSink writes records under dir
func NewFileSink(dir string) *FileSink {
	return &FileSink{file: NewDailyFile(dir)}
}

// Record implements Sink
func (s *FileSink) Record(_ context.Context, rec domain.IssuanceRecord) error {
	return s.file.Append(rec)
}

// Sheets allows 60 write requests per minute per user
const sheetsWriteInterval = time.Second

// SheetsSink appends one spreadsheet row per record. Appends are paced to stay
// under the API write quota.
type SheetsSink struct {
	service   *sheets.Service
	sheetID   string
	sheetName string
	limiter   *rate.Limiter
}

// NewSheetsSink connects to the Sheets API. Pass option.WithCredentialsFile
// in production.
func NewSheetsSink(ctx context.Context, sheetID, sheetName string, opts ...option.ClientOption) (*SheetsSink, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &SheetsSink{
		service:   service,
		sheetID:   sheetID,
		sheetName: sheetName,
		limiter:   rate.NewLimiter(rate.Every(sheetsWriteInterval), 1),
	}, nil
}

// Record implements Sink. It gives up when ctx ends, including while waiting
// for write quota.
func (s *SheetsSink) Record(ctx context.Context, rec domain.IssuanceRecord) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for sheets quota: %w", err)
	}

	row := &sheets.ValueRange{
		Values: [][]interface{}{{
			rec.Timestamp,
			rec.LicenseKey,
			string(rec.LicenseType),
			rec.Email,
			rec.OrderID,
		}},
	}

	_, err := s.service.Spreadsheets.Values.Append(s.sheetID, s.sheetName+"!A:E", row).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append audit row: %w", err)
	}
	return nil
}

// MultiSink fans a record out to every sink and joins their errors
type MultiSink struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewMultiSink combines sinks; nil entries are skipped
func NewMultiSink(logger *slog.Logger, sinks ...Sink) *MultiSink {
	m := &MultiSink{logger: logger.With(slog.String("component", "audit"))}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Record implements Sink. Every sink is tried even when an earlier one fails.
func (m *MultiSink) Record(ctx context.Context, rec domain.IssuanceRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Record(ctx, rec); err != nil {
			m.logger.WarnContext(ctx, "audit sink failed",
				slog.String("sink", fmt.Sprintf("%T", s)),
				slog.String("license_key", rec.LicenseKey),
				slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
