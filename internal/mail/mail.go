package mail

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"shop_service/internal/config"
)

type Sender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSender(cfg config.Mail) *Sender {
	return &Sender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *Sender) Send(to, subject, htmlBody string) error {
	const op = "mail.Send"

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
