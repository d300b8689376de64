package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evervibe/evs-next-basic-web/internal/config"
	apierrors "github.com/evervibe/evs-next-basic-web/internal/errors"
	"github.com/evervibe/evs-next-basic-web/internal/infrastructure"
	"github.com/evervibe/evs-next-basic-web/internal/license"
	"github.com/evervibe/evs-next-basic-web/internal/saga"
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

// Issuance saga steps, in execution order
const (
	StepGenerate     = "generate_license"
	StepStore        = "store_license"
	StepInvoice      = "send_invoice"
	StepLicenseEmail = "send_license_email"
	StepAudit        = "audit_log"
)

// Issuance sources for metrics and logs
const (
	SourceCapture = "capture"
	SourceManual  = "manual"
)

// IssueRequest asks for one license to be generated and delivered
type IssueRequest struct {
	LicenseType domain.LicenseType
	Email       string
	OrderID     string // empty for manual issuance
}

// IssueResult describes a completed issuance
type IssueResult struct {
	License   domain.License
	InvoiceID string
	Stage     domain.PurchaseStage
	State     *saga.State
}

// LicenseIssuer runs the issuance saga. Storage, invoicing and auditing are
// best effort; only the license email must succeed.
type LicenseIssuer struct {
	codec    *license.Codec
	store    LicenseRepository
	invoices InvoiceGenerator
	notifier Notifier
	audit    AuditSink
	runner   *saga.Runner
	metrics  *infrastructure.BusinessMetrics
	now      func() time.Time
	logger   *slog.Logger

	auditTimeout time.Duration
}

// NewLicenseIssuer creates an issuer. store, invoices and audit may be nil,
// in which case their steps are skipped.
func NewLicenseIssuer(
	codec *license.Codec,
	store LicenseRepository,
	invoices InvoiceGenerator,
	notifier Notifier,
	audit AuditSink,
	metrics *infrastructure.BusinessMetrics,
	logger *slog.Logger,
) *LicenseIssuer {
	return &LicenseIssuer{
		codec:    codec,
		store:    store,
		invoices: invoices,
		notifier: notifier,
		audit:    audit,
		runner:   saga.NewRunner("license_issuance", metrics, logger),
		metrics:  metrics,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "license_issuer")),

		auditTimeout: config.AuditTimeout,
	}
}

// WithClock replaces the time source for audit timestamps, for tests
func (s *LicenseIssuer) WithClock(now func() time.Time) *LicenseIssuer {
	s.now = now
	s.runner.WithClock(now)
	return s
}

// WithAuditTimeout bounds how long the audit step may take
func (s *LicenseIssuer) WithAuditTimeout(d time.Duration) *LicenseIssuer {
	s.auditTimeout = d
	return s
}

// Issue generates, stores, invoices, mails and audits one license. The run is
// detached from ctx cancellation: once started it always reaches the license
// email or fails there. The audit step runs under its own deadline.
func (s *LicenseIssuer) Issue(ctx context.Context, req IssueRequest, source string) (IssueResult, error) {
	if !req.LicenseType.Valid() || !license.ValidateEmail(req.Email) {
		return IssueResult{}, apierrors.Validation(apierrors.MsgInvalidRequest)
	}
	ctx = context.WithoutCancel(ctx)

	var (
		result = IssueResult{Stage: domain.StageCaptured}
		l      domain.License
	)

	steps := []saga.Step{
		{
			Name:     StepGenerate,
			Critical: true,
			Run: func(context.Context) error {
				l = s.codec.Generate(req.LicenseType, req.Email)
				result.License = l
				result.Stage = domain.StageLicenseIssued
				return nil
			},
		},
		{
			Name: StepStore,
			Run: func(ctx context.Context) error {
				if s.store == nil {
					return saga.ErrSkip
				}
				return s.store.Store(ctx, l.Key, domain.NewStoredLicense(l))
			},
		},
		{
			Name: StepInvoice,
			Run: func(ctx context.Context) error {
				if s.invoices == nil {
					return saga.ErrSkip
				}
				invoiceID, err := s.sendInvoice(ctx, l, req.OrderID)
				if err != nil {
					return err
				}
				result.InvoiceID = invoiceID
				result.Stage = domain.StageInvoiceSent
				return nil
			},
		},
		{
			Name:     StepLicenseEmail,
			Critical: true,
			Run: func(ctx context.Context) error {
				if err := s.notifier.SendLicense(ctx, l); err != nil {
					return err
				}
				result.Stage = domain.StageLicenseEmailSent
				return nil
			},
		},
		{
			Name: StepAudit,
			Run: func(ctx context.Context) error {
				if s.audit == nil {
					return saga.ErrSkip
				}
				actx, cancel := context.WithTimeout(ctx, s.auditTimeout)
				defer cancel()
				return s.audit.Record(actx, s.issuanceRecord(l, req.OrderID))
			},
		},
	}

	sagaID := req.OrderID
	if sagaID == "" {
		sagaID = domain.ManualOrderID + "-" + infrastructure.GenerateTraceID()
	}

	state, err := s.runner.Run(ctx, sagaID, steps)
	result.State = state
	if err != nil {
		result.Stage = domain.StageFailed
		s.logger.ErrorContext(ctx, "license issuance failed",
			slog.String("order_id", req.OrderID),
			slog.String("license_key", l.Key),
			slog.String("email", req.Email),
			slog.String("error", err.Error()))
		return result, apierrors.Upstream(apierrors.MsgLicenseMailFailed, err)
	}

	result.Stage = domain.StageComplete
	s.metrics.RecordLicenseIssued(ctx, string(l.Type), source)
	s.logger.InfoContext(ctx, "license issued",
		slog.String("license_key", l.Key),
		slog.String("license_type", string(l.Type)),
		slog.String("email", l.Email),
		slog.String("order_id", req.OrderID),
		slog.String("invoice_id", result.InvoiceID),
		slog.Any("failed_steps", state.Failed()))
	return result, nil
}

// sendInvoice numbers, renders and mails the receipt for l
func (s *LicenseIssuer) sendInvoice(ctx context.Context, l domain.License, orderID string) (string, error) {
	invoiceID, err := s.invoices.NextInvoiceID(ctx)
	if err != nil {
		return "", fmt.Errorf("next invoice id: %w", err)
	}

	data := s.invoices.DataFor(invoiceID, l, orderID)
	path, err := s.invoices.Generate(ctx, data)
	if err != nil {
		return "", fmt.Errorf("render invoice %s: %w", invoiceID, err)
	}

	pdf, err := s.invoices.GetBuffer(path)
	if err != nil {
		return "", fmt.Errorf("read invoice %s: %w", invoiceID, err)
	}

	if err := s.notifier.SendReceipt(ctx, data, pdf); err != nil {
		return "", err
	}
	return invoiceID, nil
}

func (s *LicenseIssuer) issuanceRecord(l domain.License, orderID string) domain.IssuanceRecord {
	if orderID == "" {
		orderID = domain.ManualOrderID
	}
	return domain.IssuanceRecord{
		Timestamp:   s.now().UTC().Format(time.RFC3339Nano),
		LicenseKey:  l.Key,
		LicenseType: l.Type,
		Email:       l.Email,
		OrderID:     orderID,
	}
}
