// Package mail implements the outbound message dispatch collaborator.
// The reset flow only needs "deliver this text to this address"; both
// senders here satisfy auth.Mailer.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"coursehub.org/internal/obs"
)

// SMTPSender delivers messages through a plain SMTP relay.
type SMTPSender struct {
	addr string // host:port
	from string
}

// NewSMTPSender constructs a sender for the given relay address and
// envelope sender.
func NewSMTPSender(addr, from string) (*SMTPSender, error) {
	addr = strings.TrimSpace(addr)
	from = strings.TrimSpace(from)
	if addr == "" || from == "" {
		return nil, errors.New("mail: smtp address and sender are required")
	}
	return &SMTPSender{addr: addr, from: from}, nil
}

// Send delivers one message. Any relay error is returned to the caller;
// it is never swallowed as success.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.from, to, subject, body)
	if err := smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender writes messages to the service log instead of delivering
// them. Used in development when no relay is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, subject, body string) error {
	obs.LogRequest(map[string]any{
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"level":   "info",
		"msg":     "mail_dispatch",
		"to":      to,
		"subject": subject,
		"body":    body,
	})
	return nil
}
