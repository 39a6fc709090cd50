// Package notification fans a notification out over mail and webhook
// channels, in the background through a worker pool.
//
//	type OrderReady struct{ Code string }
//	func (n OrderReady) Via() []string { return []string{notification.ChannelMail} }
//	func (n OrderReady) ToMail() notification.MailData {
//	    return notification.MailData{Subject: "Ready", Text: "Code " + n.Code}
//	}
//
//	d.SendAsync("student@campus.edu", OrderReady{Code: "0420"})
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/foodle-app/foodle/pkg/http"
	"github.com/foodle-app/foodle/pkg/logger"
	"github.com/foodle-app/foodle/pkg/mail"
	"github.com/foodle-app/foodle/pkg/metrics"
	"github.com/foodle-app/foodle/pkg/workerpool"
)

const (
	ChannelMail    = "mail"
	ChannelWebhook = "webhook"
)

// MailData is an email notification.
type MailData struct {
	To      string // overrides the notifiable address if set
	Subject string
	Text    string
	HTML    string
}

// WebhookData is a JSON payload POSTed to URL.
type WebhookData struct {
	URL     string // overrides the dispatcher default if set
	Payload any
	Headers map[string]string
}

// Notification names the channels it goes out on.
type Notification interface {
	Via() []string
}

type Mailable interface {
	ToMail() MailData
}

type Webhookable interface {
	ToWebhook() WebhookData
}

// MailFunc delivers one email.
type MailFunc func(ctx context.Context, to string, d MailData) error

// SMTPMailer sends through pkg/mail.
func SMTPMailer(cfg mail.SMTP) MailFunc {
	return func(ctx context.Context, to string, d MailData) error {
		m := mail.To(to).UseConfig(cfg).Subject(d.Subject)
		if d.HTML != "" {
			m.HTML(d.HTML)
		} else {
			m.Text(d.Text)
		}
		return m.Send(ctx)
	}
}

type Option func(*Dispatcher)

func WithMailer(fn MailFunc) Option { return func(d *Dispatcher) { d.mailer = fn } }

// WithWebhookURL sets the URL used when WebhookData.URL is empty.
func WithWebhookURL(url string) Option { return func(d *Dispatcher) { d.webhookURL = url } }

// WithTimeout bounds each background delivery.
func WithTimeout(t time.Duration) Option { return func(d *Dispatcher) { d.timeout = t } }

// Dispatcher sends notifications.
type Dispatcher struct {
	pool       *workerpool.Pool
	mailer     MailFunc
	webhookURL string
	timeout    time.Duration
}

// NewDispatcher runs background sends on pool.
func NewDispatcher(pool *workerpool.Pool, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		pool:    pool,
		mailer:  SMTPMailer(mail.FromConfig()),
		timeout: 15 * time.Second,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Send delivers n on every channel it names and returns the failures.
func (d *Dispatcher) Send(ctx context.Context, address string, n Notification) []error {
	var errs []error
	for _, channel := range n.Via() {
		err := d.dispatch(ctx, address, channel, n)
		status := "sent"
		if err != nil {
			status = "failed"
			errs = append(errs, err)
			logger.WithCtx(ctx).Warn("notification: channel failed", "channel", channel, "error", err)
		}
		metrics.Notifications.WithLabelValues(channel, status).Inc()
	}
	return errs
}

// SendAsync queues n on the pool. It fails only when the pool is full or
// closed; delivery errors are logged.
func (d *Dispatcher) SendAsync(address string, n Notification) error {
	err := d.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.Send(ctx, address, n)
	})
	if err != nil {
		metrics.Notifications.WithLabelValues("pool", "dropped").Inc()
		return fmt.Errorf("notification: %w", err)
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, address, channel string, n Notification) error {
	switch channel {
	case ChannelMail:
		m, ok := n.(Mailable)
		if !ok {
			return fmt.Errorf("notification: %T does not implement Mailable", n)
		}
		data := m.ToMail()
		to := data.To
		if to == "" {
			to = address
		}
		if to == "" {
			return fmt.Errorf("notification: no mail recipient")
		}
		return d.mailer(ctx, to, data)

	case ChannelWebhook:
		wh, ok := n.(Webhookable)
		if !ok {
			return fmt.Errorf("notification: %T does not implement Webhookable", n)
		}
		return d.sendWebhook(ctx, wh.ToWebhook())
	}
	return fmt.Errorf("notification: unknown channel %q", channel)
}

func (d *Dispatcher) sendWebhook(ctx context.Context, data WebhookData) error {
	url := data.URL
	if url == "" {
		url = d.webhookURL
	}
	if url == "" {
		return fmt.Errorf("notification: webhook URL not configured")
	}

	req := http.Post(url).Body(data.Payload).Timeout(5*time.Second).Retry(2, 200*time.Millisecond)
	for k, v := range data.Headers {
		req.Header(k, v)
	}
	resp, err := req.Send(ctx)
	if err != nil {
		return fmt.Errorf("notification: webhook: %w", err)
	}
	return resp.Throw()
}
