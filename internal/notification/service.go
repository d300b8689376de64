// Package notification renders and delivers customer and operator mail.
//
// License and receipt mails are localized by the recipient's domain. All
// mail goes through a Mailer that tries the configured relay first and a
// STARTTLS fallback second.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evervibe/evs-next-basic-web/internal/audit"
	"github.com/evervibe/evs-next-basic-web/internal/config"
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

// Sender delivers a message, possibly over a fallback route
type Sender interface {
	Send(ctx context.Context, msg Message) (Delivery, error)
}

// ServiceConfig holds addressing for the notification service
type ServiceConfig struct {
	LicenseSender string // From of license and receipt mail
	ContactFrom   string // From of operator mail, the relay account
	ContactTo     string // operator inbox
}

// NewServiceConfig derives addressing from application config
func NewServiceConfig(cfg *config.Config) ServiceConfig {
	return ServiceConfig{
		LicenseSender: cfg.MailSender(),
		ContactFrom:   cfg.SMTP.User,
		ContactTo:     cfg.Mail.To,
	}
}

// FailureEntry is written to the mail failure log
type FailureEntry struct {
	Timestamp string         `json:"timestamp"`
	Error     string         `json:"error"`
	Context   FailureContext `json:"context"`
}

// FailureContext identifies the message that could not be delivered
type FailureContext struct {
	Kind   string `json:"kind"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email"`
	IP     string `json:"ip,omitempty"`
	Reason string `json:"reason"`
}

// Service sends the storefront's mails
type Service struct {
	sender   Sender
	renderer *Renderer
	cfg      ServiceConfig
	failures *audit.DailyFile
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates a notification service. failures may be nil to skip the
// failure log.
func NewService(sender Sender, renderer *Renderer, cfg ServiceConfig, failures *audit.DailyFile, logger *slog.Logger) *Service {
	return &Service{
		sender:   sender,
		renderer: renderer,
		cfg:      cfg,
		failures: failures,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "notification")),
	}
}

// WithClock replaces the time source, for tests
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SendLicense delivers the license key to its owner
func (s *Service) SendLicense(ctx context.Context, l domain.License) error {
	content, err := s.renderer.RenderLicense(l, "")
	if err != nil {
		return err
	}

	msg := Message{
		Kind:     "license",
		FromName: config.MailSenderName,
		From:     s.cfg.LicenseSender,
		To:       l.Email,
		Subject:  content.Subject,
		Text:     content.Text,
		HTML:     content.HTML,
	}
	if _, err := s.sender.Send(ctx, msg); err != nil {
		s.recordFailure(ctx, err, FailureContext{Kind: msg.Kind, Email: l.Email})
		return fmt.Errorf("send license mail: %w", err)
	}

	s.logger.InfoContext(ctx, "license mail sent",
		slog.String("license_key", l.Key),
		slog.String("email", l.Email))
	return nil
}

// SendReceipt delivers the receipt with the invoice PDF attached
func (s *Service) SendReceipt(ctx context.Context, d domain.InvoiceData, pdf []byte) error {
	content, err := s.renderer.RenderReceipt(d, "")
	if err != nil {
		return err
	}

	msg := Message{
		Kind:     "receipt",
		FromName: config.MailSenderName,
		From:     s.cfg.LicenseSender,
		To:       d.Customer,
		Subject:  content.Subject,
		Text:     content.Text,
		HTML:     content.HTML,
		Attachments: []Attachment{{
			Filename:    fmt.Sprintf("invoice_%s.pdf", d.InvoiceID),
			ContentType: "application/pdf",
			Content:     pdf,
		}},
	}
	if _, err := s.sender.Send(ctx, msg); err != nil {
		s.recordFailure(ctx, err, FailureContext{Kind: msg.Kind, Email: d.Customer})
		return fmt.Errorf("send receipt mail: %w", err)
	}

	s.logger.InfoContext(ctx, "receipt mail sent",
		slog.String("invoice_id", d.InvoiceID),
		slog.String("email", d.Customer))
	return nil
}

// SendContact relays a contact form submission to the operator inbox
func (s *Service) SendContact(ctx context.Context, sub ContactSubmission, clientIP string) (Delivery, error) {
	content := RenderContact(sub)
	msg := Message{
		Kind:    "contact",
		From:    s.cfg.ContactFrom,
		To:      s.cfg.ContactTo,
		ReplyTo: sub.Email,
		Subject: content.Subject,
		Text:    content.Text,
		HTML:    content.HTML,
	}

	delivery, err := s.sender.Send(ctx, msg)
	if err != nil {
		s.recordFailure(ctx, err, FailureContext{Kind: msg.Kind, Name: sub.Name, Email: sub.Email, IP: clientIP})
		return Delivery{}, fmt.Errorf("send contact mail: %w", err)
	}
	return delivery, nil
}

func (s *Service) recordFailure(ctx context.Context, err error, fc FailureContext) {
	fc.Reason = ClassifyFailure(err)
	s.logger.ErrorContext(ctx, "mail delivery failed",
		slog.String("kind", fc.Kind),
		slog.String("reason", fc.Reason),
		slog.String("error", err.Error()))

	if s.failures == nil {
		return
	}
	entry := FailureEntry{
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
		Error:     err.Error(),
		Context:   fc,
	}
	if werr := s.failures.Append(entry); werr != nil {
		s.logger.WarnContext(ctx, "failed to write mail failure log", slog.String("error", werr.Error()))
	}
}
