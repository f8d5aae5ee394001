package mail

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Sender delivers plain-text mail over SMTP.
type Sender struct {
	from   string
	dialer *gomail.Dialer
}

func New(host string, port int, username, password, from string) *Sender {
	if from == "" {
		from = username
	}

	return &Sender{
		from:   from,
		dialer: gomail.NewDialer(host, port, username, password),
	}
}

func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	const op = "mail.Send"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.dialer.DialAndSend(newMessage(s.from, to, subject, body)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func newMessage(from, to, subject, body string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	return msg
}
