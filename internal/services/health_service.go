package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"
)

// Component readiness states
const (
	StatusReady         = "ready"
	StatusNotReady      = "not_ready"
	StatusNotConfigured = "not_configured"
)

// ServiceName identifies the storefront in health reports
const ServiceName = "evs-frontend"

const pingTimeout = 2 * time.Second

// HealthStatus is the liveness report
type HealthStatus struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
	Service     string `json:"service"`
	Version     string `json:"version"`
}

// ReadinessStatus reports each collaborator. Unconfigured optional
// collaborators do not make the storefront unready.
type ReadinessStatus struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Services  map[string]ServiceHealth `json:"services"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthDeps lists what readiness inspects. A nil Store means no license
// store is configured.
type HealthDeps struct {
	PaymentConfigured bool
	MailConfigured    bool
	Store             Pinger
	WritableDirs      []string
}

// HealthService reports liveness and readiness
type HealthService struct {
	version     string
	environment string
	deps        HealthDeps
	startTime   time.Time
	now         func() time.Time
	logger      *slog.Logger
}

// NewHealthService creates a health service
func NewHealthService(version, environment string, deps HealthDeps, logger *slog.Logger) *HealthService {
	return &HealthService{
		version:     version,
		environment: environment,
		deps:        deps,
		startTime:   time.Now(),
		now:         time.Now,
		logger:      logger.With(slog.String("component", "health_service")),
	}
}

// WithClock replaces the time source, for tests
func (hs *HealthService) WithClock(now func() time.Time) *HealthService {
	hs.now = now
	return hs
}

// HealthCheck returns the liveness report
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:      "ok",
		Timestamp:   hs.now().UTC().Format(time.RFC3339Nano),
		Environment: hs.environment,
		Service:     ServiceName,
		Version:     hs.version,
	}
}

// ReadinessCheck inspects every collaborator
func (hs *HealthService) ReadinessCheck(ctx context.Context) ReadinessStatus {
	status := ReadinessStatus{
		Status:    StatusReady,
		Timestamp: hs.now().UTC().Format(time.RFC3339Nano),
		Services: map[string]ServiceHealth{
			"payment": configured(hs.deps.PaymentConfigured),
			"mail":    configured(hs.deps.MailConfigured),
			"store":   hs.checkStore(ctx),
			"storage": hs.checkStorage(),
		},
	}

	for name, sh := range status.Services {
		if sh.Status == StatusNotReady {
			status.Status = StatusNotReady
			hs.logger.WarnContext(ctx, "readiness check failed",
				slog.String("service", name),
				slog.String("message", sh.Message))
		}
	}
	return status
}

// Version returns build and runtime information
func (hs *HealthService) Version() map[string]interface{} {
	return map[string]interface{}{
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     time.Since(hs.startTime).Seconds(),
		"start_time": hs.startTime.Format(time.RFC3339),
	}
}

func configured(ok bool) ServiceHealth {
	if ok {
		return ServiceHealth{Status: StatusReady}
	}
	return ServiceHealth{Status: StatusNotConfigured}
}

func (hs *HealthService) checkStore(ctx context.Context) ServiceHealth {
	if hs.deps.Store == nil {
		return ServiceHealth{Status: StatusNotConfigured}
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := hs.deps.Store.Ping(ctx); err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: fmt.Sprintf("ping failed: %v", err)}
	}
	return ServiceHealth{Status: StatusReady}
}

// checkStorage verifies the artifact directories exist and accept writes
func (hs *HealthService) checkStorage() ServiceHealth {
	for _, dir := range hs.deps.WritableDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ServiceHealth{Status: StatusNotReady, Message: fmt.Sprintf("cannot create %s: %v", dir, err)}
		}
		f, err := os.CreateTemp(dir, ".ready-*")
		if err != nil {
			return ServiceHealth{Status: StatusNotReady, Message: fmt.Sprintf("cannot write to %s: %v", dir, err)}
		}
		name := f.Name()
		f.Close()
		os.Remove(name)
	}
	return ServiceHealth{Status: StatusReady}
}
