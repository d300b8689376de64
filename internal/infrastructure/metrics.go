package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// BusinessMetrics holds the storefront's application metrics
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Checkout metrics
	OrdersCreated   metric.Int64Counter
	OrdersCaptured  metric.Int64Counter
	LicensesIssued  metric.Int64Counter
	SagaStepsFailed metric.Int64Counter
	SagaDuration    metric.Float64Histogram

	// Delivery metrics
	MailsSent           metric.Int64Counter
	LicenseValidations  metric.Int64Counter
	DownloadsAuthorized metric.Int64Counter

	// Abuse metrics
	RateLimitRejections metric.Int64Counter
	BotSubmissions      metric.Int64Counter
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	m := &BusinessMetrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.HTTPRequestsTotal, "http_requests_total", "Total number of HTTP requests"},
		{&m.OrdersCreated, "orders_created_total", "Checkout orders created at the payment processor"},
		{&m.OrdersCaptured, "orders_captured_total", "Capture attempts by processor status"},
		{&m.LicensesIssued, "licenses_issued_total", "Licenses generated and delivered"},
		{&m.SagaStepsFailed, "purchase_saga_step_failures_total", "Failed purchase saga steps by step and criticality"},
		{&m.MailsSent, "mails_sent_total", "Outbound mails by kind, transport and outcome"},
		{&m.LicenseValidations, "license_validations_total", "License validations by result"},
		{&m.DownloadsAuthorized, "downloads_authorized_total", "Downloads authorized by a valid token"},
		{&m.RateLimitRejections, "rate_limit_rejections_total", "Requests rejected by a per-client limiter"},
		{&m.BotSubmissions, "contact_bot_submissions_total", "Contact submissions silently dropped by a guard"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.SagaDuration, err = meter.Float64Histogram(
		"purchase_saga_duration_seconds",
		metric.WithDescription("Duration of the license issuance saga"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordHTTPRequest records one served request
func (m *BusinessMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, d.Seconds(), attrs)
}

// NoopBusinessMetrics returns metrics backed by a no-op meter, for tests and tools
func NoopBusinessMetrics() *BusinessMetrics {
	m, _ := CreateBusinessMetrics(noop.NewMeterProvider().Meter(MeterName))
	return m
}

// RecordSaga records the duration and outcome of an issuance saga run
func (m *BusinessMetrics) RecordSaga(ctx context.Context, d time.Duration, success bool) {
	if m == nil {
		return
	}
	m.SagaDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordMail records one delivery attempt. outcome is "sent" or a failure reason.
func (m *BusinessMetrics) RecordMail(ctx context.Context, kind, transport, outcome string) {
	if m == nil {
		return
	}
	m.MailsSent.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("transport", transport),
		attribute.String("outcome", outcome),
	))
}

// RecordRateLimited records a request rejected by a per-client limiter
func (m *BusinessMetrics) RecordRateLimited(ctx context.Context, limiter string) {
	if m == nil {
		return
	}
	m.RateLimitRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("limiter", limiter)))
}

// RecordBotSubmission records a contact submission dropped by guard
func (m *BusinessMetrics) RecordBotSubmission(ctx context.Context, guard string) {
	if m == nil {
		return
	}
	m.BotSubmissions.Add(ctx, 1, metric.WithAttributes(attribute.String("guard", guard)))
}

// RecordOrder records an order creation or a capture with the processor status
func (m *BusinessMetrics) RecordOrder(ctx context.Context, captured bool, status string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	if captured {
		m.OrdersCaptured.Add(ctx, 1, attrs)
		return
	}
	m.OrdersCreated.Add(ctx, 1, attrs)
}

// RecordLicenseIssued records a delivered license by type and source
func (m *BusinessMetrics) RecordLicenseIssued(ctx context.Context, licenseType, source string) {
	if m == nil {
		return
	}
	m.LicensesIssued.Add(ctx, 1, metric.WithAttributes(
		attribute.String("license_type", licenseType),
		attribute.String("source", source),
	))
}

// RecordSagaStepFailure records a failed saga step
func (m *BusinessMetrics) RecordSagaStepFailure(ctx context.Context, step string, critical bool) {
	if m == nil {
		return
	}
	m.SagaStepsFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step", step),
		attribute.Bool("critical", critical),
	))
}

// RecordValidation records a license validation outcome
func (m *BusinessMetrics) RecordValidation(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.LicenseValidations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordDownload records an authorized download
func (m *BusinessMetrics) RecordDownload(ctx context.Context) {
	if m == nil {
		return
	}
	m.DownloadsAuthorized.Add(ctx, 1)
}
