package notify

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/robertarktes/order-lifecycle/internal/config"
)

// Mailer sends the account-creation invites and ticket resends. SMTP config
// comes from the environment; an unset host turns sending into a no-op so
// local setups work without a relay.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer(cfg *config.Config) *Mailer {
	m := &Mailer{from: cfg.MailFrom}
	if cfg.SMTPHost != "" {
		m.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	}
	return m
}

func (m *Mailer) SendInvite(email string, ticketCode string) error {
	subject := "You have a ticket waiting"
	body := fmt.Sprintf("A complimentary ticket (%s) was issued to you. Create an account with this email address to claim it.", ticketCode)
	return m.send(email, subject, body)
}

func (m *Mailer) SendTicket(email string, ticketCode string) error {
	subject := "Your ticket"
	body := fmt.Sprintf("Here is your ticket code: %s", ticketCode)
	return m.send(email, subject, body)
}

func (m *Mailer) send(to, subject, body string) error {
	if m.dialer == nil {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}
