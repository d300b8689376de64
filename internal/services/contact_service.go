package services

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/evervibe/evs-next-basic-web/internal/config"
	apierrors "github.com/evervibe/evs-next-basic-web/internal/errors"
	"github.com/evervibe/evs-next-basic-web/internal/infrastructure"
	"github.com/evervibe/evs-next-basic-web/internal/notification"
	"github.com/evervibe/evs-next-basic-web/internal/ratelimit"
)

// Bot guards that silently accept a submission
const (
	GuardHoneypot = "honeypot"
	GuardFillTime = "fill_time"
)

// ContactForm is a submission of the public contact form. Timestamp is the
// client clock in milliseconds when the form was rendered.
type ContactForm struct {
	Name      string `json:"name" validate:"required,min=2,max=60"`
	Email     string `json:"email" validate:"required,email,max=120"`
	Message   string `json:"message" validate:"required,max=2000"`
	Honeypot  string `json:"hp,omitempty"`
	Timestamp int64  `json:"ts,omitempty"`
}

// ContactOutcome reports how a submission was handled. Dropped submissions
// look like successes to the caller.
type ContactOutcome struct {
	Fallback bool
	Dropped  string
}

// ContactService relays contact form submissions to the operator
type ContactService struct {
	sender     ContactSender
	limiter    ratelimit.Limiter
	validate   *validator.Validate
	minMessage int
	minFill    time.Duration
	metrics    *infrastructure.BusinessMetrics
	now        func() time.Time
	logger     *slog.Logger
}

// NewContactService creates a contact relay. A nil sender reports mail as
// unavailable; a nil limiter disables the per-client budget.
func NewContactService(sender ContactSender, limiter ratelimit.Limiter, cfg config.ContactConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *ContactService {
	if limiter == nil {
		limiter = ratelimit.Disabled{}
	}
	return &ContactService{
		sender:     sender,
		limiter:    limiter,
		validate:   validator.New(),
		minMessage: cfg.MinMessageLength,
		minFill:    config.ContactMinFillTime,
		metrics:    metrics,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "contact_service")),
	}
}

// WithClock replaces the time source, for tests
func (s *ContactService) WithClock(now func() time.Time) *ContactService {
	s.now = now
	return s
}

// Submit validates and relays one submission. Checks run in a fixed order:
// configuration, input, honeypot, fill time, rate limit.
func (s *ContactService) Submit(ctx context.Context, form ContactForm, clientIP string) (ContactOutcome, error) {
	if s.sender == nil {
		return ContactOutcome{}, apierrors.ConfigUnavailable(apierrors.MsgMailUnavailable)
	}

	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	form.Message = strings.TrimSpace(form.Message)
	if err := s.validate.Struct(form); err != nil {
		return ContactOutcome{}, apierrors.Validation(apierrors.MsgInvalidRequest).WithCause(err)
	}
	if utf8.RuneCountInString(form.Message) < s.minMessage {
		return ContactOutcome{}, apierrors.Validation(apierrors.MsgInvalidRequest)
	}

	if strings.TrimSpace(form.Honeypot) != "" {
		return s.drop(ctx, GuardHoneypot, clientIP), nil
	}
	if form.Timestamp > 0 && s.now().Sub(time.UnixMilli(form.Timestamp)) < s.minFill {
		return s.drop(ctx, GuardFillTime, clientIP), nil
	}

	allowed, err := s.limiter.Allow(ctx, clientIP)
	if err != nil {
		s.logger.WarnContext(ctx, "contact rate limiter unavailable, allowing request",
			slog.String("error", err.Error()))
		allowed = true
	}
	if !allowed {
		s.metrics.RecordRateLimited(ctx, "contact")
		return ContactOutcome{}, apierrors.RateLimited(apierrors.MsgRateLimited)
	}

	delivery, err := s.sender.SendContact(ctx, notification.ContactSubmission{
		Name:    form.Name,
		Email:   form.Email,
		Message: form.Message,
	}, clientIP)
	if err != nil {
		return ContactOutcome{}, apierrors.Upstream(apierrors.MsgContactFailed, err).
			WithReason(notification.ClassifyFailure(err))
	}

	return ContactOutcome{Fallback: delivery.Fallback}, nil
}

func (s *ContactService) drop(ctx context.Context, guard, clientIP string) ContactOutcome {
	s.metrics.RecordBotSubmission(ctx, guard)
	s.logger.InfoContext(ctx, "contact submission dropped",
		slog.String("guard", guard),
		slog.String("client_ip", clientIP))
	return ContactOutcome{Dropped: guard}
}
