package mail

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	gomail "gopkg.in/gomail.v2"
)

// Config configures the SMTP mailer.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTP sends mail over an authenticated SMTP connection.
type SMTP struct {
	dialer *gomail.Dialer
	from   string
	log    zerolog.Logger
}

func NewSMTP(cfg Config, log zerolog.Logger) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		log:    log,
	}
}

// Send delivers one message. gomail has no context support, so the dial and
// send run in a goroutine and the caller's deadline is honored by select; an
// abandoned send finishes (or fails) in the background on its own.
func (s *SMTP) Send(ctx context.Context, m Message) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/html", m.HTML)

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Verify dials and immediately closes the SMTP connection.
func (s *SMTP) Verify(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		c, err := s.dialer.Dial()
		if err == nil {
			err = c.Close()
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp verify: %w", err)
		}
		s.log.Info().Msg("mail transport verified")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
