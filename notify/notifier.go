// Package notify is the best-effort side channel for admin notifications.
// Sends happen after the owning transaction commits and a failure is only
// ever logged; nothing here may fail a request or roll back the ledger.
package notify

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/wneessen/go-mail"
)

type Notifier interface {
	// Send delivers subject/body to the recipients (or the configured
	// default list when empty) and reports whether delivery happened.
	Send(ctx context.Context, subject, body string, to []string) bool
}

// Disabled is the default when NOTIFICATIONS_ENABLED is not set.
type Disabled struct{}

func (Disabled) Send(context.Context, string, string, []string) bool { return false }

type SMTPNotifier struct {
	host      string
	port      int
	username  string
	password  string
	from      string
	defaultTo []string
}

// FromEnv builds the notifier from SMTP_* environment variables, returning
// Disabled unless notifications are switched on and minimally configured.
func FromEnv() Notifier {
	enabled := strings.ToLower(os.Getenv("NOTIFICATIONS_ENABLED"))
	if enabled != "1" && enabled != "true" && enabled != "yes" {
		return Disabled{}
	}

	host := os.Getenv("SMTP_HOST")
	from := os.Getenv("SMTP_FROM")
	if host == "" || from == "" {
		log.Println("notifications enabled but SMTP_HOST/SMTP_FROM missing, disabling")
		return Disabled{}
	}

	port := 587
	if n, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil && n > 0 {
		port = n
	}

	var defaultTo []string
	for _, a := range strings.Split(os.Getenv("SMTP_TO"), ",") {
		if t := strings.TrimSpace(a); t != "" {
			defaultTo = append(defaultTo, t)
		}
	}

	return &SMTPNotifier{
		host:      host,
		port:      port,
		username:  os.Getenv("SMTP_USER"),
		password:  os.Getenv("SMTP_PASS"),
		from:      from,
		defaultTo: defaultTo,
	}
}

func (n *SMTPNotifier) Send(ctx context.Context, subject, body string, to []string) bool {
	recipients := to
	if len(recipients) == 0 {
		recipients = n.defaultTo
	}
	if len(recipients) == 0 {
		return false
	}

	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		log.Printf("notify: bad sender %q: %v", n.from, err)
		return false
	}
	if err := msg.To(recipients...); err != nil {
		log.Printf("notify: bad recipients: %v", err)
		return false
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(n.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if n.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.username),
			mail.WithPassword(n.password),
		)
	}

	client, err := mail.NewClient(n.host, opts...)
	if err != nil {
		log.Printf("notify: client: %v", err)
		return false
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		log.Printf("notify: send failed: %v", err)
		return false
	}
	return true
}
