// Package mailer delivers email alert verification codes.
package mailer

import (
	"bytes"
	"context"
	"html/template"
	"time"

	"github.com/Rrens/flora-expert/internal/config"
	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

// Sender dispatches a verification code and reports whether it was sent
type Sender interface {
	SendCode(ctx context.Context, email, name, code string) bool
}

var codeTemplate = template.Must(template.New("code").Parse(`
<div style="font-family: Arial, sans-serif; padding: 20px; color: #021811;">
	<h2>FLORA Expert</h2>
	<p>Hi {{.Name}}, use this code to enable automated plant care alerts:</p>
	<h1 style="letter-spacing: 10px;">{{.Code}}</h1>
	<p>This code expires in {{.Minutes}} minutes.</p>
	<p>If you didn't request this, please ignore this email.</p>
</div>
`))

// SMTPSender sends codes through an SMTP server
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
	name   string
	ttl    time.Duration
}

// NewSMTPSender creates a gomail-backed sender
func NewSMTPSender(cfg config.MailConfig, ttl time.Duration) *SMTPSender {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   from,
		name:   cfg.FromName,
		ttl:    ttl,
	}
}

// SendCode emails the code to the recipient
func (s *SMTPSender) SendCode(ctx context.Context, email, name, code string) bool {
	m, err := s.message(email, name, code)
	if err != nil {
		log.Error().Err(err).Str("email", email).Msg("Failed to render code email")
		return false
	}

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		log.Error().Err(err).Str("email", email).Msg("Failed to send code email")
		return false
	}

	log.Info().Str("email", email).Msg("Verification code sent")
	return true
}

func (s *SMTPSender) message(email, name, code string) (*gomail.Message, error) {
	var body bytes.Buffer
	err := codeTemplate.Execute(&body, struct {
		Name    string
		Code    string
		Minutes int
	}{name, code, int(s.ttl.Minutes())})
	if err != nil {
		return nil, err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.name)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Secure Access Code - FLORA Expert")
	m.SetBody("text/plain", "Your FLORA Expert verification code is: "+code)
	m.AddAlternative("text/html", body.String())
	return m, nil
}

// LogSender writes codes to the log instead of sending them
type LogSender struct{}

// SendCode logs the code and always succeeds
func (LogSender) SendCode(_ context.Context, email, name, code string) bool {
	log.Warn().
		Str("email", email).
		Str("name", name).
		Str("code", code).
		Msg("SMTP not configured, verification code logged instead of sent")
	return true
}

// New returns an SMTP sender when mail is configured, otherwise a LogSender
func New(cfg config.MailConfig, ttl time.Duration) Sender {
	if cfg.Enabled() {
		return NewSMTPSender(cfg, ttl)
	}
	return LogSender{}
}
