package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
)

// SMTPSettings describes the outgoing mail server.
type SMTPSettings struct {
	Addr     string
	User     string
	Password string
	From     string
}

// EmailSink sends each message as a plain-text e-mail.
type EmailSink struct {
	settings SMTPSettings
	send     func(mail *email.Email, addr string, auth smtp.Auth) error
}

func NewEmailSink(settings SMTPSettings) *EmailSink {
	return &EmailSink{
		settings: settings,
		send: func(mail *email.Email, addr string, auth smtp.Auth) error {
			return mail.Send(addr, auth)
		},
	}
}

func (s *EmailSink) Send(ctx context.Context, to, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Appointment Monitor <%s>", s.from())
	mail.To = []string{to}
	mail.Subject = subjectFor(message)
	mail.Text = []byte(message)

	var auth smtp.Auth
	if s.settings.User != "" {
		host, _, err := net.SplitHostPort(s.settings.Addr)
		if err != nil {
			return fmt.Errorf("email: smtp address %q: %w", s.settings.Addr, err)
		}
		auth = smtp.PlainAuth("", s.settings.User, s.settings.Password, host)
	}

	err := s.send(mail, s.settings.Addr, auth)
	if err != nil && auth != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = s.send(mail, s.settings.Addr, nil)
	}
	if err != nil {
		return fmt.Errorf("email: send to %s: %w", to, err)
	}
	return nil
}

func (s *EmailSink) from() string {
	if s.settings.From != "" {
		return s.settings.From
	}
	return s.settings.User
}

// subjectFor uses the first line of the message.
func subjectFor(message string) string {
	line, _, _ := strings.Cut(message, "\n")
	return strings.TrimSpace(line)
}
