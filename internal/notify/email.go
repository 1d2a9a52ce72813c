package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"time"

	mail "gopkg.in/mail.v2"

	"github.com/hamed0406/siteupbot/internal/chat"
	"github.com/hamed0406/siteupbot/internal/config"
)

const emailTimeout = 15 * time.Second

var emailHTML = template.Must(template.New("status").Parse(`<html>
<body style="font-family: sans-serif">
<h2 style="color: {{.Color}}">{{if .URL}}<a href="{{.URL}}">{{.Title}}</a>{{else}}{{.Title}}{{end}}</h2>
<p>{{.Description}}</p>
<table>
{{range .Fields}}<tr><td><b>{{.Name}}</b></td><td>{{.Value}}</td></tr>
{{end}}</table>
<p><small>{{.Footer}} · {{.When}}</small></p>
</body>
</html>`))

// Email mirrors the status card to a fixed list of recipients.
type Email struct {
	cfg  config.SMTP
	dial func(*mail.Message) error
}

// NewEmail returns nil when SMTP is not configured.
func NewEmail(cfg config.SMTP) *Email {
	if !cfg.Enabled() {
		return nil
	}
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	d.Timeout = emailTimeout
	if cfg.TLS {
		d.SSL = true
	} else {
		d.StartTLSPolicy = mail.OpportunisticStartTLS
	}
	return &Email{cfg: cfg, dial: func(m *mail.Message) error { return d.DialAndSend(m) }}
}

func (m *Email) message(e chat.Embed) (*mail.Message, error) {
	var body bytes.Buffer
	err := emailHTML.Execute(&body, struct {
		chat.Embed
		Color string
		When  string
	}{e, fmt.Sprintf("#%06x", e.Color), e.Timestamp.UTC().Format(time.RFC1123)})
	if err != nil {
		return nil, fmt.Errorf("render email: %w", err)
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", m.cfg.To...)
	msg.SetHeader("Subject", e.Title)
	msg.SetBody("text/plain", e.PlainText())
	msg.AddAlternative("text/html", body.String())
	return msg, nil
}

func (m *Email) Send(ctx context.Context, e chat.Embed) error {
	msg, err := m.message(e)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- m.dial(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(emailTimeout):
		return fmt.Errorf("send email: timeout after %s", emailTimeout)
	}
}
