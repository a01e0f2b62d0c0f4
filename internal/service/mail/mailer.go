// Package mail delivers account notification emails. Sends are
// best-effort: callers log failures and carry on, so no implementation
// may panic into the caller's control flow.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"text/template"
)

// Template names for the three message kinds.
const (
	TemplateVerification  = "verification"
	TemplatePasswordReset = "password_reset"
	TemplateBanNotice     = "ban_notice"
)

// Message is a rendered-to-be notification.
type Message struct {
	To       string
	Subject  string
	Template string
	Vars     map[string]string
}

// Gateway sends notification emails.
type Gateway interface {
	Send(ctx context.Context, msg Message) error
}

var bodies = template.Must(template.New("mail").Parse(`
{{define "verification"}}Hi {{.Username}},

Welcome to the board. Please verify your email address by opening:

{{.Link}}

The link is valid for 24 hours.{{end}}

{{define "password_reset"}}Hi {{.Username}},

A password reset was requested for your account. Open the link below to
choose a new password:

{{.Link}}

The link is valid for 1 hour. If you did not request this, ignore this
message.{{end}}

{{define "ban_notice"}}Hi {{.Username}},

Your account has been suspended by an administrator.
Reason: {{.Reason}}

If you believe this is a mistake, contact the site operators.{{end}}
`))

func render(msg Message) (string, error) {
	var buf bytes.Buffer
	if err := bodies.ExecuteTemplate(&buf, msg.Template, msg.Vars); err != nil {
		return "", fmt.Errorf("render template %q: %w", msg.Template, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// SMTPGateway delivers messages over SMTP with PLAIN auth.
type SMTPGateway struct {
	addr string
	auth smtp.Auth
	from string
	log  *slog.Logger
}

// NewSMTPGateway constructs a gateway for the given server address.
func NewSMTPGateway(addr, user, password, from string, log *slog.Logger) *SMTPGateway {
	var auth smtp.Auth
	if user != "" {
		host := addr
		if idx := strings.IndexByte(addr, ':'); idx >= 0 {
			host = addr[:idx]
		}
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &SMTPGateway{addr: addr, auth: auth, from: from, log: log}
}

// Send renders and delivers the message.
func (g *SMTPGateway) Send(ctx context.Context, msg Message) error {
	body, err := render(msg)
	if err != nil {
		return err
	}
	payload := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		g.from, msg.To, msg.Subject, body)
	if err := smtp.SendMail(g.addr, g.auth, g.from, []string{msg.To}, []byte(payload)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	g.log.Debug("mail sent", "to", msg.To, "template", msg.Template)
	return nil
}

// LogGateway renders messages into the log instead of delivering them.
// Used in development and tests.
type LogGateway struct {
	log *slog.Logger
}

// NewLogGateway constructs a logging gateway.
func NewLogGateway(log *slog.Logger) *LogGateway {
	return &LogGateway{log: log}
}

// Send logs the rendered message.
func (g *LogGateway) Send(ctx context.Context, msg Message) error {
	body, err := render(msg)
	if err != nil {
		return err
	}
	g.log.Info("mail (not delivered)", "to", msg.To, "subject", msg.Subject, "template", msg.Template, "body", body)
	return nil
}
