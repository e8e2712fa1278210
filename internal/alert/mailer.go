// Package alert delivers failure notifications over SMTP.
package alert

import (
	"fmt"
	"strings"

	mail "gopkg.in/mail.v2"

	"courier-go/internal/config"
	"courier-go/internal/courier"
)

// Mailer implements courier.Notifier with SMTP. The first recipient goes on
// the To header, the rest on Cc. STARTTLS is mandatory.
type Mailer struct {
	host       string
	port       int
	username   string
	password   string
	from       string
	recipients []string
	logger     courier.Logger
}

var _ courier.Notifier = (*Mailer)(nil)

// NewMailer creates a Mailer from configuration.
func NewMailer(cfg config.AlertConfig, logger courier.Logger) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, &courier.ConfigurationError{Reason: "alert requires an smtp host"}
	}
	if cfg.From == "" {
		return nil, &courier.ConfigurationError{Reason: "alert requires a from address"}
	}
	if len(cfg.Recipients) == 0 {
		return nil, &courier.ConfigurationError{Reason: "alert requires at least one recipient"}
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	if logger == nil {
		logger = courier.NopLogger{}
	}
	return &Mailer{
		host:       cfg.Host,
		port:       port,
		username:   cfg.Username,
		password:   cfg.Password,
		from:       cfg.From,
		recipients: cfg.Recipients,
		logger:     logger,
	}, nil
}

// Notify sends an alert mail. An empty recipients slice falls back to the
// configured recipient list.
func (m *Mailer) Notify(recipients []string, subject, body string) error {
	if len(recipients) == 0 {
		recipients = m.recipients
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipients[0])
	if len(recipients) > 1 {
		msg.SetHeader("Cc", recipients[1:]...)
	}
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer().DialAndSend(msg); err != nil {
		if isAuthFailure(err) {
			return &courier.AuthenticationError{Host: m.host, Err: err}
		}
		return fmt.Errorf("sending alert mail: %w", err)
	}
	m.logger.Info("alert sent", "to", strings.Join(recipients, ","), "subject", subject)
	return nil
}

// LoginTest connects and authenticates to the SMTP server without sending
// anything. Used by connection tests.
func (m *Mailer) LoginTest() error {
	closer, err := m.dialer().Dial()
	if err != nil {
		if isAuthFailure(err) {
			return &courier.AuthenticationError{Host: m.host, Err: err}
		}
		return fmt.Errorf("connecting to smtp server: %w", err)
	}
	return closer.Close()
}

func (m *Mailer) dialer() *mail.Dialer {
	d := mail.NewDialer(m.host, m.port, m.username, m.password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	return d
}

func isAuthFailure(err error) bool {
	s := err.Error()
	return strings.Contains(s, "535") || strings.Contains(s, "authentication failed")
}
