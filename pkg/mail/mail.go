// Package mail sends transactional email over SMTP.
//
//	err := mail.To("student@campus.edu").
//	    Subject("Your order is ready").
//	    Text("Show code 0420 at the counter.").
//	    Send(ctx)
package mail

import (
	"context"
	"errors"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/foodle-app/foodle/config"
)

var ErrNotConfigured = errors.New("mail: MAIL_HOST not configured")

// SMTP holds connection settings.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// FromConfig reads the MAIL_* settings.
func FromConfig() SMTP {
	return SMTP{
		Host:     config.MailHost(),
		Port:     config.MailPort(),
		Username: config.MailUsername(),
		Password: config.MailPassword(),
		From:     config.MailFrom(),
	}
}

// Configured reports whether a host is set.
func (s SMTP) Configured() bool { return s.Host != "" }

// Message is a fluent builder for one email.
type Message struct {
	to      []string
	subject string
	body    string
	html    bool
	cfg     SMTP
}

// To starts a message using the configured SMTP settings.
func To(addresses ...string) *Message {
	return &Message{to: addresses, cfg: FromConfig()}
}

func (m *Message) Subject(s string) *Message {
	m.subject = s
	return m
}

// HTML sets an HTML body.
func (m *Message) HTML(body string) *Message {
	m.body, m.html = body, true
	return m
}

// Text sets a plain-text body.
func (m *Message) Text(body string) *Message {
	m.body, m.html = body, false
	return m
}

// UseConfig overrides the SMTP settings for this message.
func (m *Message) UseConfig(cfg SMTP) *Message {
	m.cfg = cfg
	return m
}

// Build assembles the MIME message without sending it.
func (m *Message) Build() (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("mail: from: %w", err)
	}
	if err := msg.To(m.to...); err != nil {
		return nil, fmt.Errorf("mail: to: %w", err)
	}
	msg.Subject(m.subject)
	if m.html {
		msg.SetBodyString(gomail.TypeTextHTML, m.body)
	} else {
		msg.SetBodyString(gomail.TypeTextPlain, m.body)
	}
	return msg, nil
}

// Send delivers the message.
func (m *Message) Send(ctx context.Context) error {
	if !m.cfg.Configured() {
		return ErrNotConfigured
	}
	msg, err := m.Build()
	if err != nil {
		return err
	}

	opts := []gomail.Option{gomail.WithPort(m.cfg.Port)}
	if m.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthLogin),
			gomail.WithUsername(m.cfg.Username),
			gomail.WithPassword(m.cfg.Password),
			gomail.WithTLSPolicy(gomail.TLSMandatory),
		)
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}
	if m.cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	}

	client, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("mail: client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail: send: %w", err)
	}
	return nil
}
