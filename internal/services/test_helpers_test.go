package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/infrastructure/auth"
	"github.com/you/accountsvc/internal/infrastructure/database"
	"github.com/you/accountsvc/internal/infrastructure/repositories"
	"github.com/you/accountsvc/internal/mocks"
	"github.com/you/accountsvc/internal/observability"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	testName     = "Ada Lovelace"
	testEmail    = "ada@example.com"
	testPassword = "s3cure!pass"
	testOTPTTL   = 10 * time.Minute
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// harness wires an AccountServiceImpl over the in-memory store and mocks
type harness struct {
	svc         *AccountServiceImpl
	users       *mocks.InMemoryUserRepository
	sessions    *mocks.MockSessionRepository
	revocations *mocks.MockRevocationRepository
	tokens      *mocks.MockTokenService
	passwords   domain.PasswordService
	notifier    *mocks.MockNotificationService
	otp         *mocks.MockOTPGenerator
	audit       *mocks.MockAuditLogger
	metrics     *observability.Metrics
	registry    *prometheus.Registry
	clock       *fakeClock
}

type harnessOption func(*harness)

// withPasswords replaces the bcrypt hasher
func withPasswords(p domain.PasswordService) harnessOption {
	return func(h *harness) { h.passwords = p }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	return newHarnessWithUsers(t, nil, opts...)
}

// newHarnessWithUsers uses repo in place of the in-memory store when non-nil
func newHarnessWithUsers(t *testing.T, repo domain.UserRepository, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		users:       mocks.NewInMemoryUserRepository(),
		sessions:    mocks.NewMockSessionRepository(),
		revocations: mocks.NewMockRevocationRepository(),
		tokens:      mocks.NewMockTokenService(),
		passwords:   auth.NewPasswordService(bcrypt.MinCost),
		notifier:    mocks.NewMockNotificationService(),
		otp:         mocks.NewMockOTPGenerator(),
		audit:       mocks.NewMockAuditLogger(),
		registry:    prometheus.NewRegistry(),
		clock:       newFakeClock(),
	}
	h.metrics = observability.NewMetrics(h.registry)
	for _, opt := range opts {
		opt(h)
	}
	var users domain.UserRepository = h.users
	if repo != nil {
		users = repo
	}

	h.svc = NewAccountService(AccountDeps{
		Users:       users,
		Sessions:    h.sessions,
		Revocations: h.revocations,
		Passwords:   h.passwords,
		Tokens:      h.tokens,
		OTP:         h.otp,
		Notifier:    h.notifier,
		Audit:       h.audit,
		Metrics:     h.metrics,
		Clock:       h.clock,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, AccountConfig{
		OTPTTL:              testOTPTTL,
		SessionTTL:          24 * time.Hour,
		CompensationRetries: 3,
		CompensationBackoff: time.Millisecond,
	})
	return h
}

func validInput() domain.RegisterInput {
	return domain.RegisterInput{Name: testName, Email: testEmail, Password: testPassword}
}

// registerUser registers the default user and returns it with its code
func registerUser(t *testing.T, h *harness) (*domain.User, string) {
	t.Helper()
	user, err := h.svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return user, *user.OTP
}

func strPtr(s string) *string { return &s }

// newSQLiteUserRepository returns the gorm repository over an in-memory database
func newSQLiteUserRepository(t *testing.T) domain.UserRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repositories.NewUserRepository(db)
}

// counterValue reads one counter series from the harness registry
func counterValue(t *testing.T, reg prometheus.Gatherer, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	series:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					continue series
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}
