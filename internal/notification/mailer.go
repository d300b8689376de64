package notification

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/textproto"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/evervibe/evs-next-basic-web/internal/config"
	"github.com/evervibe/evs-next-basic-web/internal/infrastructure"
)

// Attachment is a file sent along with a message
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a fully addressed outbound mail
type Message struct {
	Kind        string // license, receipt or contact; used for metrics and logs
	FromName    string
	From        string
	To          string
	ReplyTo     string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Transport delivers a message over one concrete route
type Transport interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Failure reasons reported for undeliverable mail
const (
	ReasonTimeout   = "timeout"
	ReasonAuth      = "auth"
	ReasonRateLimit = "ratelimit"
	ReasonNetwork   = "network"
)

// ClassifyFailure maps a transport error to a coarse reason safe to show users
func ClassifyFailure(err error) string {
	if err == nil {
		return ""
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return ReasonTimeout
	}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		switch protoErr.Code {
		case 530, 534, 535:
			return ReasonAuth
		case 550:
			return ReasonRateLimit
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "535") || strings.Contains(strings.ToLower(msg), "authentication"):
		return ReasonAuth
	case strings.Contains(msg, "550"):
		return ReasonRateLimit
	}
	return ReasonNetwork
}

// SMTPTransport sends mail through a gomail dialer
type SMTPTransport struct {
	name   string
	dialer *gomail.Dialer
}

// NewSMTPTransport creates a transport for host:port. secure selects implicit
// TLS; otherwise the connection is upgraded with STARTTLS when offered.
func NewSMTPTransport(name string, cfg config.SMTPConfig, port int, secure bool) *SMTPTransport {
	d := gomail.NewDialer(cfg.Host, port, cfg.User, cfg.Pass)
	d.SSL = secure
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLSVerify, //nolint:gosec
	}
	return &SMTPTransport{name: name, dialer: d}
}

// Name identifies the transport in logs and metrics
func (t *SMTPTransport) Name() string { return t.name }

// Send dials the relay and delivers msg
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.dialer.DialAndSend(BuildMessage(msg)); err != nil {
		return fmt.Errorf("%s: %w", t.name, err)
	}
	return nil
}

// BuildMessage converts msg into a multipart gomail message
func BuildMessage(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.From, msg.FromName)
	m.SetHeader("To", msg.To)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	for _, a := range msg.Attachments {
		content := a.Content
		m.Attach(a.Filename,
			gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
		)
	}
	return m
}

// Delivery describes how a message left the system
type Delivery struct {
	Transport string
	Fallback  bool
}

// Mailer sends through a primary transport and retries once on the fallback
type Mailer struct {
	primary  Transport
	fallback Transport
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// NewMailer creates a mailer. fallback may be nil.
func NewMailer(primary, fallback Transport, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Mailer {
	return &Mailer{
		primary:  primary,
		fallback: fallback,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "mailer")),
	}
}

// NewSMTPMailer wires the configured relay as primary and port 587 with
// STARTTLS as fallback
func NewSMTPMailer(cfg config.SMTPConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Mailer {
	primary := NewSMTPTransport("primary", cfg, cfg.Port, cfg.Secure)
	var fallback Transport
	if cfg.Port != config.MailFallbackPort || cfg.Secure {
		fallback = NewSMTPTransport("fallback", cfg, config.MailFallbackPort, false)
	}
	return NewMailer(primary, fallback, metrics, logger)
}

// Send delivers msg. The returned error is from the last transport tried.
func (m *Mailer) Send(ctx context.Context, msg Message) (Delivery, error) {
	err := m.primary.Send(ctx, msg)
	if err == nil {
		m.logger.DebugContext(ctx, "mail delivered",
			slog.String("kind", msg.Kind),
			slog.String("transport", m.primary.Name()))
		m.metrics.RecordMail(ctx, msg.Kind, m.primary.Name(), "sent")
		return Delivery{Transport: m.primary.Name()}, nil
	}

	reason := ClassifyFailure(err)
	m.metrics.RecordMail(ctx, msg.Kind, m.primary.Name(), reason)
	if m.fallback == nil {
		return Delivery{}, err
	}

	m.logger.WarnContext(ctx, "primary mail transport failed, trying fallback",
		slog.String("kind", msg.Kind),
		slog.String("reason", reason),
		slog.String("error", err.Error()))

	if err := m.fallback.Send(ctx, msg); err != nil {
		m.metrics.RecordMail(ctx, msg.Kind, m.fallback.Name(), ClassifyFailure(err))
		return Delivery{}, err
	}

	m.metrics.RecordMail(ctx, msg.Kind, m.fallback.Name(), "sent")
	m.logger.InfoContext(ctx, "mail delivered via fallback transport", slog.String("kind", msg.Kind))
	return Delivery{Transport: m.fallback.Name(), Fallback: true}, nil
}
