package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
	"github.com/you/accountsvc/domain"
)

// SMTPConfig holds the outbound mail settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// mailSender is the part of *mail.Client used to deliver messages
type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailServiceImpl implements domain.NotificationService over SMTP
type EmailServiceImpl struct {
	sender mailSender
	from   string
	logger *slog.Logger
}

// NewEmailService creates an SMTP notification service. With no host
// configured messages are logged instead of sent.
func NewEmailService(cfg SMTPConfig, logger *slog.Logger) (domain.NotificationService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Host == "" {
		return &EmailServiceImpl{from: cfg.From, logger: logger}, nil
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &EmailServiceImpl{sender: client, from: cfg.From, logger: logger}, nil
}

// SendEmail implements domain.NotificationService
func (s *EmailServiceImpl) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	if s.sender == nil {
		s.logger.InfoContext(ctx, "[MOCK EMAIL]", "to", to, "subject", subject, "body", htmlBody)
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if err := s.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
