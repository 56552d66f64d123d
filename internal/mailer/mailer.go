// Package mailer delivers outgoing email. The SMTP backend is used in
// production; the log backend writes messages to the application log.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"yamdb/internal/config"

	"github.com/wneessen/go-mail"
)

type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns the backend selected by MAIL_BACKEND.
func New(cfg *config.Config, logger *slog.Logger) (Mailer, error) {
	if cfg.MailBackend == "smtp" {
		return NewSMTPMailer(cfg)
	}
	return NewLogMailer(logger), nil
}

// sender is satisfied by *mail.Client.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type SMTPMailer struct {
	client sender
}

func NewSMTPMailer(cfg *config.Config) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithPort(cfg.SMTPPort),
		mail.WithTimeout(10 * time.Second),
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword))
	}
	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: client}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	email, err := buildMessage(msg)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, email); err != nil {
		return fmt.Errorf("smtp send to %s: %w", strings.Join(msg.To, ","), err)
	}
	return nil
}

// buildMessage rejects malformed addresses; header encoding is left to go-mail.
func buildMessage(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}

// LogMailer is the development backend.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "Email sent",
		"from", msg.From,
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body)
	return nil
}
