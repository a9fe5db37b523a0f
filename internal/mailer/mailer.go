// Package mailer sends transactional mail for account registration.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"teleconsult/internal/config"
)

// Mailer delivers registration mail. Implementations must be safe for
// concurrent use.
type Mailer interface {
	SendValidationCode(to, name string, code int) error
}

// New returns an SMTP-backed mailer when mail is enabled in the clinic
// config, otherwise a no-op mailer that only logs.
func New(cfg config.Mail, log zerolog.Logger) Mailer {
	if !cfg.Enabled {
		return Noop{Log: log}
	}
	return SMTP{
		Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Auth: smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host),
		From: cfg.From,
		Log:  log,
	}
}

type SMTP struct {
	Addr string
	Auth smtp.Auth
	From string
	Log  zerolog.Logger
}

func (m SMTP) SendValidationCode(to, name string, code int) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: Your validation code\r\n")
	fmt.Fprintf(&b, "\r\n")
	fmt.Fprintf(&b, "Hello %s,\r\n\r\nYour account validation code is %d.\r\n", name, code)
	if err := smtp.SendMail(m.Addr, m.Auth, m.From, []string{to}, []byte(b.String())); err != nil {
		m.Log.Error().Err(err).Str("to", to).Msg("send validation mail failed")
		return err
	}
	m.Log.Info().Str("to", to).Msg("validation mail sent")
	return nil
}

// Noop logs the code instead of delivering it. Used when mail is disabled,
// which includes tests and local development.
type Noop struct {
	Log zerolog.Logger
}

func (m Noop) SendValidationCode(to, name string, code int) error {
	m.Log.Info().Str("to", to).Int("code", code).Msg("mail disabled, validation code not sent")
	return nil
}
