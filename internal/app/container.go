package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/config"
	httpx "github.com/you/accountsvc/internal/http"
	"github.com/you/accountsvc/internal/http/handlers"
	"github.com/you/accountsvc/internal/http/middleware"
	"github.com/you/accountsvc/internal/infrastructure/audit"
	"github.com/you/accountsvc/internal/infrastructure/auth"
	"github.com/you/accountsvc/internal/infrastructure/database"
	"github.com/you/accountsvc/internal/infrastructure/notifications"
	"github.com/you/accountsvc/internal/infrastructure/repositories"
	"github.com/you/accountsvc/internal/observability"
	"github.com/you/accountsvc/internal/services"
)

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config
	Logger *slog.Logger
	Clock  domain.Clock

	// Infrastructure
	DB          *gorm.DB
	RedisClient *redis.Client
	Registry    *prometheus.Registry

	// Repositories
	UserRepo       domain.UserRepository
	SessionRepo    domain.SessionRepository
	RevocationRepo domain.RevocationRepository

	// Services
	PasswordSvc     domain.PasswordService
	TokenSvc        domain.TokenService
	NotificationSvc domain.NotificationService
	OTPGen          domain.OTPGenerator
	AuditLogger     domain.AuditLogger
	Metrics         *observability.Metrics
	AccountSvc      domain.AccountService

	// HTTP
	Router *gin.Engine
}

// Option overrides a dependency before the container is wired
type Option func(*Container)

// WithNotificationService replaces the SMTP sender
func WithNotificationService(n domain.NotificationService) Option {
	return func(c *Container) { c.NotificationSvc = n }
}

// WithClock replaces the wall clock
func WithClock(clock domain.Clock) Option {
	return func(c *Container) { c.Clock = clock }
}

// NewContainer connects to Postgres and Redis and wires all dependencies
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Container, error) {
	db, err := database.Open(cfg.DSN, database.LogLevel(cfg.DBLogLevel))
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}

	rdb, err := database.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		closeDB(db)
		return nil, err
	}

	c, err := NewContainerWith(cfg, logger, db, rdb, opts...)
	if err != nil {
		_ = rdb.Close()
		closeDB(db)
		return nil, err
	}
	return c, nil
}

// NewContainerWith wires all dependencies around already opened stores
func NewContainerWith(cfg *config.Config, logger *slog.Logger, db *gorm.DB, rdb *redis.Client, opts ...Option) (*Container, error) {
	c := &Container{
		Config:      cfg,
		Logger:      logger,
		Clock:       domain.SystemClock,
		DB:          db,
		RedisClient: rdb,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.initRepositories()
	if err := c.initServices(); err != nil {
		return nil, err
	}
	c.initHTTP()
	return c, nil
}

func (c *Container) initRepositories() {
	c.UserRepo = repositories.NewUserRepository(c.DB)
	c.SessionRepo = repositories.NewSessionRepository(c.RedisClient, c.Clock)
	c.RevocationRepo = repositories.NewRevocationRepository(c.RedisClient, c.Clock)
}

func (c *Container) initServices() error {
	cfg := c.Config

	c.PasswordSvc = auth.NewPasswordService(cfg.BcryptCost)
	c.TokenSvc = auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL, c.Clock)
	c.OTPGen = auth.NewOTPGenerator(cfg.OTPLength)
	c.AuditLogger = audit.NewSlogAuditLogger(c.Logger)

	if c.NotificationSvc == nil {
		notifier, err := notifications.NewEmailService(notifications.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			Timeout:  cfg.SMTPTimeout,
		}, c.Logger)
		if err != nil {
			return err
		}
		c.NotificationSvc = notifier
	}

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Metrics = observability.NewMetrics(c.Registry)

	c.AccountSvc = services.NewAccountService(services.AccountDeps{
		Users:       c.UserRepo,
		Sessions:    c.SessionRepo,
		Revocations: c.RevocationRepo,
		Passwords:   c.PasswordSvc,
		Tokens:      c.TokenSvc,
		OTP:         c.OTPGen,
		Notifier:    c.NotificationSvc,
		Audit:       c.AuditLogger,
		Metrics:     c.Metrics,
		Clock:       c.Clock,
		Logger:      c.Logger,
	}, services.AccountConfig{
		OTPTTL:              cfg.OTPTTL,
		SessionTTL:          cfg.SessionTTL,
		CompensationRetries: cfg.CompensationRetries,
		CompensationBackoff: cfg.CompensationBackoff,
	})
	return nil
}

func (c *Container) initHTTP() {
	policy := c.Config.CookiePolicy()
	accountH := handlers.NewAccountHandlers(c.AccountSvc, handlers.CookieOptions{
		Secure:        policy.Secure,
		SameSite:      policy.SameSite,
		SessionMaxAge: c.Config.SessionTTL,
		TokenMaxAge:   c.Config.TokenCookieTTL,
	}, c.Logger)
	authMW := middleware.NewAuthMW(c.TokenSvc, c.RevocationRepo, c.SessionRepo, c.Logger)

	c.Router = httpx.BuildRouter(accountH, authMW, c.Metrics.Handler(), c.Logger)
}

// Close closes all connections
func (c *Container) Close() error {
	var errs []error
	if c.RedisClient != nil {
		errs = append(errs, c.RedisClient.Close())
	}
	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
