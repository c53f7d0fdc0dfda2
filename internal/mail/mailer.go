// Package mail renders and delivers the password reset email.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"
)

// ResetSubject is the subject line of every reset email.
const ResetSubject = "Password Reset Request"

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var resetTmpl = template.Must(template.New("reset").Parse(`<h2>Password Reset</h2>
<p>You requested a password reset for your account.</p>
<p>Click the link below to reset your password:</p>
<a href="{{.Link}}">Reset Password</a>
<p>This link will expire in {{.Expiry}}.</p>
<p>If you didn't request this, please ignore this email.</p>
`))

// ResetMailer turns a reset secret into a link on the frontend and mails it.
// It satisfies service.ResetNotifier.
type ResetMailer struct {
	sender      Sender
	frontendURL string
	ttl         time.Duration
}

func NewResetMailer(sender Sender, frontendURL string, ttl time.Duration) *ResetMailer {
	return &ResetMailer{sender: sender, frontendURL: strings.TrimRight(frontendURL, "/"), ttl: ttl}
}

// ResetLink returns FRONTEND_URL/reset-password?token=<secret>.
func ResetLink(frontendURL, secret string) string {
	return strings.TrimRight(frontendURL, "/") + "/reset-password?token=" + url.QueryEscape(secret)
}

func (m *ResetMailer) NotifyReset(ctx context.Context, email, secret string) error {
	var body bytes.Buffer
	err := resetTmpl.Execute(&body, struct {
		Link   string
		Expiry string
	}{
		Link:   ResetLink(m.frontendURL, secret),
		Expiry: humanDuration(m.ttl),
	})
	if err != nil {
		return fmt.Errorf("render reset email: %w", err)
	}
	return m.sender.Send(ctx, Message{To: email, Subject: ResetSubject, HTML: body.String()})
}

func humanDuration(d time.Duration) string {
	switch {
	case d <= 0 || d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	}
	return d.String()
}
