package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"
)

// EmailChannel delivers notifications over SMTP.
type EmailChannel struct {
	addr string // host:port
	auth smtp.Auth
	from string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailChannel creates an email channel. user/password may be empty for
// unauthenticated relays.
func NewEmailChannel(addr, user, password, from string) *EmailChannel {
	var auth smtp.Auth
	if user != "" {
		host := addr
		if i := strings.IndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &EmailChannel{addr: addr, auth: auth, from: from, send: smtp.SendMail}
}

// Supports reports whether this channel handles the given channel name.
func (c *EmailChannel) Supports(name string) bool { return name == "email" }

// Send delivers one notification email.
func (c *EmailChannel) Send(
	_ context.Context, to Subscriber, level Level, message string, fields map[string]string,
) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.from)
	fmt.Fprintf(&b, "To: %s\r\n", to.Email)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject(level))
	b.WriteString("\r\n")
	b.WriteString(message)
	b.WriteString("\r\n")
	if len(fields) > 0 {
		b.WriteString("\r\nDetails:\r\n")
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %s\r\n", k, fields[k])
		}
	}

	if err := c.send(c.addr, c.auth, c.from, []string{to.Email}, []byte(b.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", to.Email, err)
	}
	return nil
}

func subject(level Level) string {
	switch level {
	case LevelError:
		return "feedrank - Error Alert"
	case LevelWarning:
		return "feedrank - Warning"
	case LevelSuccess:
		return "feedrank - Success"
	default:
		return "feedrank - Notification"
	}
}
