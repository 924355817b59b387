package notify

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"
)

// SMTPConfig addresses an SMTP relay. Username and Password enable PLAIN
// auth; leave both empty for an unauthenticated relay.
type SMTPConfig struct {
	Addr     string
	Username string
	Password string
	From     string
}

// NewSMTPSender returns a SendFunc that submits messages with net/smtp.
func NewSMTPSender(cfg SMTPConfig) (SendFunc, error) {
	host, _, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("notify: smtp addr: %w", err)
	}
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("notify: smtp from: %w", err)
	}

	var auth smtp.Auth
	if cfg.Username != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}

	return func(ctx context.Context, to, subject, body string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rcpt, err := mail.ParseAddress(to)
		if err != nil {
			return fmt.Errorf("notify: recipient: %w", err)
		}
		msg := buildMessage(from, rcpt, subject, body, time.Now())
		return smtp.SendMail(cfg.Addr, auth, from.Address, []string{rcpt.Address}, msg)
	}, nil
}

// buildMessage formats an RFC 5322 message. The subject is Q-encoded, which
// also neutralizes line breaks.
func buildMessage(from, to *mail.Address, subject, body string, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from.String() + "\r\n")
	b.WriteString("To: " + to.String() + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}
