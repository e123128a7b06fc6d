package notifications

import (
	"github.com/Dasakami/alertme-backend/internal/config"
	gomail "gopkg.in/gomail.v2"
)

// GomailSender delivers alert emails over SMTP.
type GomailSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewGomailSender(cfg config.MailConfig) *GomailSender {
	if !cfg.Enabled() {
		return nil
	}
	return &GomailSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *GomailSender) Send(to []string, subject, htmlBody string, attachments []string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)
	for _, path := range attachments {
		m.Attach(path)
	}
	return s.dialer.DialAndSend(m)
}
