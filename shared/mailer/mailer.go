package mailer

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// ErrNoRecipients is returned when an email has no To address.
var ErrNoRecipients = errors.New("no recipients specified")

// Sender delivers a single email.
type Sender interface {
	Send(email Email) error
}

// Mailer represents an SMTP email sender.
type Mailer struct {
	config *Config
	dialer *gomail.Dialer
}

// Email represents an email message.
type Email struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// Config holds SMTP configuration for sending emails.
type Config struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT"     envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
}

// LoadConfig reads the SMTP configuration from environment variables.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse SMTP environment: %w", err)
	}
	return cfg, nil
}

// Enabled reports whether an SMTP host has been configured.
func (c Config) Enabled() bool {
	return c.Host != ""
}

// NewMailer creates a new Mailer instance with the given configuration.
func NewMailer(cfg Config) (*Mailer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)

	return &Mailer{
		config: &cfg,
		dialer: dialer,
	}, nil
}

// NewSender returns an SMTP Mailer when cfg is enabled and a LogSender otherwise.
func NewSender(cfg Config, logger *zerolog.Logger) (Sender, error) {
	if !cfg.Enabled() {
		logger.Warn().Msg("SMTP_HOST not set, emails will only be logged")
		return NewLogSender(logger), nil
	}
	return NewMailer(cfg)
}

// Send sends a single email.
func (m *Mailer) Send(email Email) error {
	if len(email.To) == 0 {
		return ErrNoRecipients
	}

	msg := gomail.NewMessage()
	m.setEmailMessage(msg, email)

	return m.dialer.DialAndSend(msg)
}

func (m *Mailer) setEmailMessage(msg *gomail.Message, email Email) {
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", email.To...)
	msg.SetHeader("Subject", email.Subject)

	msg.SetBody("text/plain", email.Body)
	if email.HTMLBody != "" {
		msg.AddAlternative("text/html", email.HTMLBody)
	}
}

// validate checks if the Mailer configuration is valid.
func (c *Config) validate() error {
	if c.Host == "" {
		return fmt.Errorf("missing SMTP_HOST environment variable")
	}
	if c.Port == 0 {
		return fmt.Errorf("missing SMTP_PORT environment variable")
	}
	if c.From == "" {
		return fmt.Errorf("missing SMTP_FROM environment variable")
	}

	return nil
}

// LogSender records outgoing emails in the log instead of delivering them.
// Bodies are never logged because they carry single-use tokens.
type LogSender struct {
	logger *zerolog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the recipients and subject of email.
func (s *LogSender) Send(email Email) error {
	if len(email.To) == 0 {
		return ErrNoRecipients
	}

	s.logger.Info().
		Strs("to", email.To).
		Str("subject", email.Subject).
		Msg("email delivery skipped, SMTP disabled")

	return nil
}
