package smtp

import (
	"fmt"
	"net/smtp"

	"github.com/go-auth-nosql/internal/config"
)

// Mailer sends emails. Message templating lives on this side of the boundary;
// callers hand over the OTP code, not a rendered body.
type Mailer interface {
	SendOTP(to, subject, code string) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

// SendOTP renders the HTML one-time-password template and sends it.
func (m *mailer) SendOTP(to, subject, code string) error {
	body, err := renderOTPTemplate(code)
	if err != nil {
		return fmt.Errorf("render otp template: %w", err)
	}
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		m.from, to, subject, body,
	)
	return m.send(to, msg)
}

func (m *mailer) send(to, msg string) error {
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}
