package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/observability"
)

// Operation names used for metrics and logs
const (
	opRegister   = "register"
	opVerifyOTP  = "verify_otp"
	opResendOTP  = "resend_otp"
	opLogin      = "login"
	opIssueToken = "issue_token"
	opUpdateUser = "update_user"
	opDeleteUser = "delete_user"
	opLogout     = "logout"
	opGetProfile = "get_profile"
)

const defaultCompensationBackoff = 50 * time.Millisecond

// AccountConfig holds the tunables of the account service
type AccountConfig struct {
	OTPTTL              time.Duration
	SessionTTL          time.Duration
	CompensationRetries int
	CompensationBackoff time.Duration
}

// AccountDeps are the collaborators of the account service.
// Metrics, Audit, Clock and Logger may be nil.
type AccountDeps struct {
	Users       domain.UserRepository
	Sessions    domain.SessionRepository
	Revocations domain.RevocationRepository
	Passwords   domain.PasswordService
	Tokens      domain.TokenService
	OTP         domain.OTPGenerator
	Notifier    domain.NotificationService
	Audit       domain.AuditLogger
	Metrics     *observability.Metrics
	Clock       domain.Clock
	Logger      *slog.Logger
}

// AccountServiceImpl implements domain.AccountService
type AccountServiceImpl struct {
	userRepo    domain.UserRepository
	sessionRepo domain.SessionRepository
	revocations domain.RevocationRepository
	passwordSvc domain.PasswordService
	tokenSvc    domain.TokenService
	otpGen      domain.OTPGenerator
	notifier    domain.NotificationService
	audit       domain.AuditLogger
	metrics     *observability.Metrics
	clock       domain.Clock
	logger      *slog.Logger
	cfg         AccountConfig
}

// NewAccountService creates a new account service
func NewAccountService(deps AccountDeps, cfg AccountConfig) *AccountServiceImpl {
	if deps.Clock == nil {
		deps.Clock = domain.SystemClock
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Audit == nil {
		deps.Audit = nopAudit{}
	}
	if cfg.CompensationBackoff <= 0 {
		cfg.CompensationBackoff = defaultCompensationBackoff
	}
	if cfg.CompensationRetries < 0 {
		cfg.CompensationRetries = 0
	}

	return &AccountServiceImpl{
		userRepo:    deps.Users,
		sessionRepo: deps.Sessions,
		revocations: deps.Revocations,
		passwordSvc: deps.Passwords,
		tokenSvc:    deps.Tokens,
		otpGen:      deps.OTP,
		notifier:    deps.Notifier,
		audit:       deps.Audit,
		metrics:     deps.Metrics,
		clock:       deps.Clock,
		logger:      deps.Logger.With("component", "account_service"),
		cfg:         cfg,
	}
}

// Register implements domain.AccountService
func (s *AccountServiceImpl) Register(ctx context.Context, input domain.RegisterInput) (_ *domain.User, err error) {
	defer s.observe(opRegister, time.Now(), &err)

	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return nil, domain.NewValidationError(domain.MsgFieldsRequired)
	}
	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, domain.NewConflictError(domain.MsgEmailInUse)
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, s.internal(opRegister, err)
	}

	hashed, err := s.hashPassword(opRegister, input.Password)
	if err != nil {
		return nil, err
	}
	code, err := s.otpGen.Generate()
	if err != nil {
		return nil, s.internal(opRegister, fmt.Errorf("failed to generate otp: %w", err))
	}
	msg, err := confirmationMail(email, code, s.cfg.OTPTTL)
	if err != nil {
		return nil, s.internal(opRegister, err)
	}

	user := &domain.User{Name: name, Email: email, PasswordHash: hashed}
	user.SetOTP(code, s.clock.Now().Add(s.cfg.OTPTTL))

	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, domain.ErrUserAlreadyExists):
			return nil, domain.NewConflictError(domain.MsgEmailInUse)
		case domain.IsKind(err, domain.KindValidation):
			return nil, err
		}
		return nil, s.internal(opRegister, fmt.Errorf("failed to create user: %w", err))
	}

	if sendErr := s.notifier.SendEmail(ctx, msg.To, msg.Subject, msg.HTML); sendErr != nil {
		s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.EmailOTPDeliveryFailedEvent, user.ID).
			WithEmail(email).WithError(sendErr).WithMetadata("operation", opRegister))

		rollbackErr := s.compensate(ctx, opRegister, func(ctx context.Context) error {
			_, err := s.userRepo.DeleteByID(ctx, user.ID)
			if errors.Is(err, domain.ErrUserNotFound) {
				return nil
			}
			return err
		})
		if rollbackErr != nil {
			return nil, s.internal(opRegister, fmt.Errorf("rollback of user %d failed after send error %v: %w", user.ID, sendErr, rollbackErr))
		}

		s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.UserRegistrationRolledBack, user.ID).WithEmail(email))
		return nil, domain.NewDeliveryError(domain.MsgRegisterDelivery, sendErr)
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.UserRegistrationEvent, user.ID).WithEmail(email))
	return user, nil
}

// VerifyOTP implements domain.AccountService
func (s *AccountServiceImpl) VerifyOTP(ctx context.Context, email, otp string) (err error) {
	defer s.observe(opVerifyOTP, time.Now(), &err)

	email = strings.TrimSpace(email)
	otp = strings.TrimSpace(otp)
	if email == "" || otp == "" {
		return domain.NewValidationError(domain.MsgEmailOTPRequired)
	}

	user, err := s.findByEmail(ctx, opVerifyOTP, email)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	if !user.OTPMatches(otp, now) {
		s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.EmailOTPFailureEvent, user.ID).
			WithEmail(email).WithError(domain.ErrOTPInvalid))
		return domain.NewInvalidOTPError()
	}

	// the conditional consume re-checks against the latest stored code
	if err := s.userRepo.ConsumeOTP(ctx, user.ID, otp, now); err != nil {
		if errors.Is(err, domain.ErrOTPInvalid) {
			s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.EmailOTPFailureEvent, user.ID).
				WithEmail(email).WithError(err))
			return domain.NewInvalidOTPError()
		}
		return s.internal(opVerifyOTP, fmt.Errorf("failed to consume otp: %w", err))
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.EmailOTPVerifiedEvent, user.ID).WithEmail(email))
	return nil
}

// ResendOTP implements domain.AccountService. The pending state is saved
// without full-document validation since only the otp pair changes.
func (s *AccountServiceImpl) ResendOTP(ctx context.Context, email string) (err error) {
	defer s.observe(opResendOTP, time.Now(), &err)

	email = strings.TrimSpace(email)
	if email == "" {
		return domain.NewValidationError(domain.MsgEmailRequired)
	}

	user, err := s.findByEmail(ctx, opResendOTP, email)
	if err != nil {
		return err
	}

	code, err := s.otpGen.Generate()
	if err != nil {
		return s.internal(opResendOTP, fmt.Errorf("failed to generate otp: %w", err))
	}
	msg, err := resendMail(user.Email, code, s.cfg.OTPTTL)
	if err != nil {
		return s.internal(opResendOTP, err)
	}

	user.SetOTP(code, s.clock.Now().Add(s.cfg.OTPTTL))
	if err := s.userRepo.Save(ctx, user, false); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.NewNotFoundError(domain.MsgUserNotFound)
		}
		return s.internal(opResendOTP, err)
	}

	if sendErr := s.notifier.SendEmail(ctx, msg.To, msg.Subject, msg.HTML); sendErr != nil {
		s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.EmailOTPDeliveryFailedEvent, user.ID).
			WithEmail(email).WithError(sendErr).WithMetadata("operation", opResendOTP))

		user.ClearOTP()
		clearErr := s.compensate(ctx, opResendOTP, func(ctx context.Context) error {
			return s.userRepo.Save(ctx, user, false)
		})
		if clearErr != nil {
			return s.internal(opResendOTP, fmt.Errorf("clearing otp of user %d failed after send error %v: %w", user.ID, sendErr, clearErr))
		}
		return domain.NewDeliveryError(domain.MsgResendDelivery, sendErr)
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.EmailOTPResentEvent, user.ID).WithEmail(email))
	return nil
}

// Login implements domain.AccountService
func (s *AccountServiceImpl) Login(ctx context.Context, email, password string) (_ *domain.Session, err error) {
	defer s.observe(opLogin, time.Now(), &err)

	user, err := s.authenticate(ctx, opLogin, email, password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Name:      user.Name,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, s.internal(opLogin, fmt.Errorf("failed to create session: %w", err))
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.UserLoginEvent, user.ID).
		WithEmail(user.Email).WithSession(session.ID))
	return session, nil
}

// IssueToken implements domain.AccountService
func (s *AccountServiceImpl) IssueToken(ctx context.Context, email, password string) (_ *domain.AuthResult, err error) {
	defer s.observe(opIssueToken, time.Now(), &err)

	user, err := s.authenticate(ctx, opIssueToken, email, password)
	if err != nil {
		return nil, err
	}

	token, claims, err := s.tokenSvc.Sign(user.ID)
	if err != nil {
		return nil, s.internal(opIssueToken, fmt.Errorf("failed to sign token: %w", err))
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.TokenIssuedEvent, user.ID).
		WithEmail(user.Email).WithMetadata("jti", claims.TokenID))
	return &domain.AuthResult{
		User:      user,
		Token:     token,
		TokenID:   claims.TokenID,
		ExpiresAt: claims.Expiry(),
	}, nil
}

// UpdateUser implements domain.AccountService. Blank fields count as not supplied.
func (s *AccountServiceImpl) UpdateUser(ctx context.Context, userID uint, input domain.UpdateInput) (_ *domain.User, err error) {
	defer s.observe(opUpdateUser, time.Now(), &err)

	var update domain.UserUpdate
	if input.Name != nil {
		if name := strings.TrimSpace(*input.Name); name != "" {
			update.Name = &name
		}
	}
	if input.Password != nil && *input.Password != "" {
		if err := domain.ValidatePassword(*input.Password); err != nil {
			return nil, err
		}
		hashed, err := s.hashPassword(opUpdateUser, *input.Password)
		if err != nil {
			return nil, err
		}
		update.PasswordHash = &hashed
	}
	if update.Empty() {
		return nil, domain.NewValidationError(domain.MsgNoUpdateData)
	}

	user, err := s.userRepo.UpdateByID(ctx, userID, update, true)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return nil, domain.NewNotFoundError(domain.MsgUserNotFound)
		case domain.IsKind(err, domain.KindValidation):
			return nil, err
		}
		return nil, s.internal(opUpdateUser, err)
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.UserUpdatedEvent, user.ID).
		WithMetadata("name_changed", update.Name != nil).
		WithMetadata("password_changed", update.PasswordHash != nil))
	return user, nil
}

// DeleteUser implements domain.AccountService
func (s *AccountServiceImpl) DeleteUser(ctx context.Context, userID uint) (err error) {
	defer s.observe(opDeleteUser, time.Now(), &err)

	deleted, err := s.userRepo.DeleteByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.NewNotFoundError(domain.MsgUserNotFound)
		}
		return s.internal(opDeleteUser, err)
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.UserDeletedEvent, deleted.ID).WithEmail(deleted.Email))
	return nil
}

// Logout implements domain.AccountService. It destroys the session record and,
// when the caller authenticated with a bearer token, revokes that token until
// it would have expired anyway.
func (s *AccountServiceImpl) Logout(ctx context.Context, sessionID string, claims *domain.TokenClaims) (err error) {
	defer s.observe(opLogout, time.Now(), &err)

	var userID uint
	if sessionID != "" {
		if err := s.sessionRepo.Delete(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			s.logger.ErrorContext(ctx, "session destroy failed", "session_id", sessionID, "error", err)
			return domain.NewSessionError(err)
		}
	}
	if claims != nil && claims.TokenID != "" {
		userID = claims.UserID
		if err := s.revocations.Revoke(ctx, claims.TokenID, claims.Expiry()); err != nil {
			s.logger.ErrorContext(ctx, "token revoke failed", "jti", claims.TokenID, "error", err)
			return domain.NewSessionError(err)
		}
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.UserLogoutEvent, userID).WithSession(sessionID))
	return nil
}

// GetProfile implements domain.AccountService
func (s *AccountServiceImpl) GetProfile(ctx context.Context, userID uint) (_ *domain.User, err error) {
	defer s.observe(opGetProfile, time.Now(), &err)

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NewNotFoundError(domain.MsgUserNotFound)
		}
		return nil, s.internal(opGetProfile, err)
	}
	return user, nil
}

// authenticate checks credentials. An unknown email and a wrong password
// produce the same error.
func (s *AccountServiceImpl) authenticate(ctx context.Context, op, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, domain.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, s.internal(op, err)
		}
		s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.UserLoginFailureEvent, 0).
			WithEmail(email).WithError(err).WithMetadata("operation", op))
		return nil, domain.NewUnauthorizedError()
	}

	if !s.passwordSvc.Verify(user.PasswordHash, password) {
		s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.UserLoginFailureEvent, user.ID).
			WithEmail(email).WithError(errors.New("password mismatch")).WithMetadata("operation", op))
		return nil, domain.NewUnauthorizedError()
	}
	return user, nil
}

func (s *AccountServiceImpl) findByEmail(ctx context.Context, op, email string) (*domain.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NewNotFoundError(domain.MsgUserNotFound)
		}
		return nil, s.internal(op, err)
	}
	return user, nil
}

// hashPassword reports an over-long password as a validation failure
func (s *AccountServiceImpl) hashPassword(op, password string) (string, error) {
	hashed, err := s.passwordSvc.Hash(password)
	if errors.Is(err, domain.ErrPasswordTooLong) {
		return "", domain.NewValidationError(domain.MsgPasswordTooLong)
	}
	if err != nil {
		return "", s.internal(op, fmt.Errorf("failed to hash password: %w", err))
	}
	return hashed, nil
}

// compensate runs undo until it succeeds or the retry budget is spent. It
// ignores cancellation of the request so a disconnecting caller cannot leave
// a half-created account behind.
func (s *AccountServiceImpl) compensate(ctx context.Context, op string, undo func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(uint64(s.cfg.CompensationRetries), retry.NewExponential(s.cfg.CompensationBackoff))

	attempt := 0
	err := retry.Do(context.WithoutCancel(ctx), backoff, func(ctx context.Context) error {
		attempt++
		if err := undo(ctx); err != nil {
			s.logger.WarnContext(ctx, "compensation attempt failed", "operation", op, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	s.metrics.RecordCompensation(op, err)
	return err
}

// internal logs err and hides it behind the generic server error
func (s *AccountServiceImpl) internal(op string, err error) error {
	s.logger.Error("operation failed", "operation", op, "error", err)
	return domain.NewInternalError(err)
}

func (s *AccountServiceImpl) observe(op string, started time.Time, err *error) {
	var kind string
	if *err != nil {
		kind = string(domain.KindOf(*err))
	}
	s.metrics.RecordOperation(op, kind, started)
}

type nopAudit struct{}

func (nopAudit) LogEvent(context.Context, *domain.AuditEvent) {}

var _ domain.AccountService = (*AccountServiceImpl)(nil)
