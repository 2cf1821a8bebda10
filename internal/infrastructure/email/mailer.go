package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/amicale-sp/calendriers/internal/infrastructure/config"
	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// ErrNoRecipient is returned when a message has no destination address.
var ErrNoRecipient = errors.New("email: no recipient")

// Attachment is a file joined to a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outgoing email.
type Message struct {
	To          string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// SMTPMailer sends messages through an SMTP relay.
type SMTPMailer struct {
	addr    string
	auth    smtp.Auth
	from    string
	replyTo string
	send    sendFunc
	logger  *zap.Logger
}

// NewSMTPMailer builds a mailer from config. Authentication is skipped when
// no username is configured (local relays, mailpit).
func NewSMTPMailer(cfg config.EmailConfig, logger *zap.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("email: host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("email: from address is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		addr:    cfg.Addr(),
		auth:    auth,
		from:    cfg.From,
		replyTo: cfg.ReplyTo,
		send:    func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
		logger:  logger,
	}, nil
}

// Send delivers msg.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	ctx, span := otel.Tracer("email").Start(ctx, "SendEmail")
	defer span.End()
	span.SetAttributes(
		attribute.String("email.subject", msg.Subject),
		attribute.Int("email.attachments", len(msg.Attachments)),
	)

	to := strings.TrimSpace(msg.To)
	if to == "" {
		return ErrNoRecipient
	}

	em := email.NewEmail()
	em.From = m.from
	em.To = []string{to}
	if m.replyTo != "" {
		em.ReplyTo = []string{m.replyTo}
	}
	em.Subject = msg.Subject
	em.Text = []byte(msg.Text)
	if msg.HTML != "" {
		em.HTML = []byte(msg.HTML)
	}
	for _, a := range msg.Attachments {
		if _, err := em.Attach(bytes.NewReader(a.Data), a.Filename, a.ContentType); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "attach failed")
			return fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.send(em, m.addr, m.auth); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "smtp send failed")
		return fmt.Errorf("smtp send: %w", err)
	}
	m.logger.Debug("Email sent", zap.String("subject", msg.Subject))
	return nil
}

// NoopMailer drops every message. Used when email delivery is disabled.
type NoopMailer struct {
	logger *zap.Logger
}

// NewNoopMailer creates a NoopMailer.
func NewNoopMailer(logger *zap.Logger) *NoopMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoopMailer{logger: logger}
}

// Send logs and discards msg.
func (m *NoopMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("Email delivery disabled, message dropped", zap.String("subject", msg.Subject))
	return nil
}
