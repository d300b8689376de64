package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/evervibe/evs-next-basic-web/internal/audit"
	"github.com/evervibe/evs-next-basic-web/internal/config"
	apierrors "github.com/evervibe/evs-next-basic-web/internal/errors"
	"github.com/evervibe/evs-next-basic-web/internal/infrastructure"
	"github.com/evervibe/evs-next-basic-web/internal/invoice"
	"github.com/evervibe/evs-next-basic-web/internal/license"
	customMiddleware "github.com/evervibe/evs-next-basic-web/internal/middleware"
	"github.com/evervibe/evs-next-basic-web/internal/notification"
	"github.com/evervibe/evs-next-basic-web/internal/payment"
	"github.com/evervibe/evs-next-basic-web/internal/ratelimit"
	"github.com/evervibe/evs-next-basic-web/internal/services"
	"github.com/evervibe/evs-next-basic-web/internal/store"
	handlers "github.com/evervibe/evs-next-basic-web/internal/transport/http"
	"github.com/evervibe/evs-next-basic-web/pkg/contracts"
)

// Per-route budgets per client address
const (
	routeWindow       = 5 * time.Minute
	createOrderLimit  = 10
	captureOrderLimit = 10
	issueLimit        = 5
	validateLimit     = 3
	downloadLimit     = 3
)

// Application represents the storefront process
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Services      *ServiceContainer
	ErrorHandler  *apierrors.ErrorHandler

	redis  *redis.Client
	limits handlers.RouteLimits
}

// ServiceContainer holds the storefront's services
type ServiceContainer struct {
	Purchase *services.PurchaseService
	Issuer   *services.LicenseIssuer
	Gate     *services.DownloadGate
	Contact  *services.ContactService
	Health   *services.HealthService
	Store    *store.LicenseStore
}

// NewApplication loads configuration from the environment and builds the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(context.Background(), cfg, logger)
}

// New wires every component for cfg. Subsystems whose configuration is
// missing stay nil and their routes answer 503.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	a := &Application{
		Config:       cfg,
		Logger:       logger,
		ErrorHandler: apierrors.NewErrorHandler(logger, cfg.IsDevelopment()),
	}

	logger.InfoContext(ctx, "Application starting",
		slog.String("service", contracts.ServiceName),
		slog.String("version", contracts.Version),
		slog.String("mode", cfg.Mode))

	for _, name := range cfg.WeakSecrets() {
		logger.WarnContext(ctx, "secret is shorter than recommended",
			slog.String("secret", name),
			slog.Int("min_length", config.MinSecretLength))
	}

	otelProviders, err := infrastructure.InitializeOTel(
		infrastructure.NewOTelConfig(cfg.Telemetry, contracts.ServiceName, contracts.Version, cfg.Mode),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	a.OTelProviders = otelProviders

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.Metrics = metrics

	if cfg.RedisConfigured() {
		client, err := store.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.redis = client
	}

	if err := a.initializeServices(ctx); err != nil {
		a.closeRedis()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := a.initializeLimits(); err != nil {
		a.closeRedis()
		return nil, fmt.Errorf("failed to initialize rate limits: %w", err)
	}

	a.setupRouter()
	a.createServer()

	logger.InfoContext(ctx, "Application initialized",
		slog.Bool("payment", cfg.PayPalConfigured()),
		slog.Bool("mail", cfg.SMTPConfigured()),
		slog.Bool("license", cfg.LicenseConfigured()),
		slog.Bool("redis", a.redis != nil),
		slog.Bool("rate_limit", cfg.Security.EnableRateLimit))

	return a, nil
}

// initializeServices builds the service graph. Interface-typed collaborators
// are only assigned when configured so that services see a true nil.
func (a *Application) initializeServices(ctx context.Context) error {
	cfg := a.Config
	logger := a.Logger
	catalog := license.NewCatalog(cfg.License)

	var (
		licenseStore *store.LicenseStore
		repo         services.LicenseRepository
		counter      invoice.Counter
	)
	if a.redis != nil {
		licenseStore = store.NewLicenseStore(a.redis, logger)
		repo = licenseStore
		counter = store.NewRedisCounter(a.redis)
	} else {
		counter = store.NewFileCounter(cfg.Storage.InvoiceDir)
		logger.WarnContext(ctx, "redis not configured, license storage disabled and invoice numbers are process-local")
	}

	invoices := invoice.NewGenerator(cfg.Storage.InvoiceDir, counter, catalog, logger)

	auditSinks := []audit.Sink{audit.NewFileSink(cfg.Storage.LicenseLogDir)}
	if cfg.AuditSheetConfigured() {
		sheets, err := audit.NewSheetsSink(ctx, cfg.Audit.SheetID, cfg.Audit.SheetName,
			option.WithCredentialsFile(cfg.Audit.CredentialsFile))
		if err != nil {
			logger.WarnContext(ctx, "spreadsheet audit sink disabled", slog.String("error", err.Error()))
		} else {
			auditSinks = append(auditSinks, sheets)
		}
	}
	auditLog := audit.NewMultiSink(logger, auditSinks...)

	var (
		notifier *notification.Service
		sender   services.ContactSender
	)
	if cfg.SMTPConfigured() {
		mailLogger := logger
		if cfg.SMTPLogging {
			mailLogger = infrastructure.NewLogger(os.Stdout, "debug")
		}
		mailer := notification.NewSMTPMailer(cfg.SMTP, a.Metrics, mailLogger)
		notifier = notification.NewService(
			mailer,
			notification.NewRenderer(catalog, cfg.License.PortalURL),
			notification.NewServiceConfig(cfg),
			audit.NewDailyFile(cfg.Storage.MailLogDir),
			logger,
		)
		sender = notifier
	}

	var processor services.PaymentProcessor
	if cfg.PayPalConfigured() {
		processor = payment.NewClient(payment.NewSettings(cfg), catalog, logger)
	}

	var issuer *services.LicenseIssuer
	if cfg.LicenseConfigured() && notifier != nil {
		issuer = services.NewLicenseIssuer(
			license.NewCodec(cfg.License.Salt),
			repo,
			invoices,
			notifier,
			auditLog,
			a.Metrics,
			logger,
		)
	}

	gateStore := repo
	if !cfg.LicenseConfigured() {
		gateStore = nil
	}

	contactLimiter, err := a.limiter("contact", cfg.Contact.RateLimitMax, cfg.Contact.RateLimitWindow)
	if err != nil {
		return err
	}

	healthDeps := services.HealthDeps{
		PaymentConfigured: cfg.PayPalConfigured(),
		MailConfigured:    cfg.SMTPConfigured(),
		WritableDirs: []string{
			cfg.Storage.InvoiceDir,
			cfg.Storage.LicenseLogDir,
			cfg.Storage.MailLogDir,
		},
	}
	if licenseStore != nil {
		healthDeps.Store = licenseStore
	}

	a.Services = &ServiceContainer{
		Purchase: services.NewPurchaseService(processor, issuer, a.Metrics, logger),
		Issuer:   issuer,
		Gate: services.NewDownloadGate(
			gateStore,
			license.NewTokenService(cfg.License.JWTSecret, logger),
			cfg.License.ArtifactURL,
			a.Metrics,
			logger,
		),
		Contact: services.NewContactService(sender, contactLimiter, cfg.Contact, a.Metrics, logger),
		Health:  services.NewHealthService(contracts.Version, cfg.Mode, healthDeps, logger),
		Store:   licenseStore,
	}
	return nil
}

// limiter builds a named per-client limiter, or nil when rate limiting is off
func (a *Application) limiter(name string, max int, window time.Duration) (ratelimit.Limiter, error) {
	if !a.Config.Security.EnableRateLimit {
		return nil, nil
	}
	var client redis.UniversalClient
	if a.redis != nil {
		client = a.redis
	}
	l, err := ratelimit.New(a.Config.Security.RateLimitBackend, name, max, window, client)
	if err != nil {
		return nil, fmt.Errorf("rate limiter %s: %w", name, err)
	}
	return l, nil
}

// routeLimit wraps a limiter as route middleware, nil when rate limiting is off
func (a *Application) routeLimit(name string, max int, message string) (handlers.Middleware, error) {
	l, err := a.limiter(name, max, routeWindow)
	if err != nil || l == nil {
		return nil, err
	}
	return customMiddleware.RateLimit(customMiddleware.RateLimitConfig{
		Name:         name,
		Limiter:      l,
		Message:      message,
		ErrorHandler: a.ErrorHandler,
		Metrics:      a.Metrics,
		Logger:       a.Logger,
	}), nil
}

func (a *Application) initializeLimits() error {
	routes := []struct {
		dst     *handlers.Middleware
		name    string
		max     int
		message string
	}{
		{&a.limits.CreateOrder, "create_order", createOrderLimit, apierrors.MsgRateLimited},
		{&a.limits.CaptureOrder, "capture_order", captureOrderLimit, apierrors.MsgRateLimited},
		{&a.limits.Issue, "issue", issueLimit, apierrors.MsgRateLimited},
		{&a.limits.Validate, "validate", validateLimit, apierrors.MsgRateLimited},
		{&a.limits.Download, "download", downloadLimit, apierrors.MsgDownloadRateLimited},
	}
	for _, route := range routes {
		mw, err := a.routeLimit(route.name, route.max, route.message)
		if err != nil {
			return err
		}
		*route.dst = mw
	}
	return nil
}

// setupRouter builds the chi router. Order: RequestID, OTel, StructuredLogger,
// Recoverer, SecurityHeaders, CORS.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.ErrorHandler))
	r.Use(customMiddleware.SecurityHeaders)
	r.Use(customMiddleware.CORS(a.getCORSConfig()))

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.setupAPIRoutes(r)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes mounts the storefront API
func (a *Application) setupAPIRoutes(r chi.Router) {
	validator := customMiddleware.NewValidator(a.Logger)
	svc := a.Services

	checkout := handlers.NewCheckoutHandler(svc.Purchase, validator, a.ErrorHandler, a.Logger)
	licenses := handlers.NewLicenseHandler(
		svc.Issuer,
		svc.Gate,
		handlers.LicenseAvailability{
			LicenseConfigured: a.Config.LicenseConfigured,
			MailConfigured:    a.Config.SMTPConfigured,
		},
		validator,
		a.ErrorHandler,
		a.Logger,
	)
	contact := handlers.NewContactHandler(svc.Contact, a.Config.SMTPConfigured, validator, a.ErrorHandler, a.Logger)
	health := handlers.NewHealthHandler(svc.Health, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))

		r.Mount("/health", health.Routes())
		r.Mount("/paypal", checkout.Routes(a.limits))
		r.Mount("/license", licenses.Routes(a.limits))
		r.Mount("/download", licenses.DownloadRoutes(a.limits))
		r.Mount("/contact", contact.Routes())
		r.Mount("/mail/relay", contact.Routes())
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cors := customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
		Logger:         a.Logger,
	}

	if a.Config.IsDevelopment() {
		cors.AllowedOrigins = append([]string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		}, cors.AllowedOrigins...)
	}

	a.Logger.Info("CORS configured", slog.Any("allowed_origins", cors.AllowedOrigins))
	return cors
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start serves HTTP until ctx is cancelled, then shuts down
func (a *Application) Start(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Starting server",
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

// Stop gracefully stops the server and releases backing clients
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.closeRedis()

	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

func (a *Application) closeRedis() {
	if a.redis == nil {
		return
	}
	if err := a.redis.Close(); err != nil {
		a.Logger.Warn("Error closing redis client", slog.String("error", err.Error()))
	}
	a.redis = nil
}

// Run runs the application until SIGINT or SIGTERM
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Start(ctx)
}
